package models

import (
	"time"
)

// Playlist 歌单 - 用户整理收藏的曲目集合
type Playlist struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Plid        string    `gorm:"uniqueIndex;size:8;not null" json:"plid"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"size:200" json:"description"`
	IsPublic    bool      `gorm:"default:false" json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// 非数据库字段，用于查询时填充
	TrackCount int `gorm:"-" json:"track_count"`
}

// PlaylistTrack 歌单内的曲目，按 Position 升序排列（0 起）
type PlaylistTrack struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PlaylistID uint      `gorm:"not null;index;uniqueIndex:idx_playlist_track" json:"playlist_id"`
	TrackID    uint      `gorm:"not null;index;uniqueIndex:idx_playlist_track" json:"track_id"`
	Track      Track     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"track"`
	Position   int       `gorm:"not null;default:0" json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}
