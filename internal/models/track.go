package models

import (
	"time"
)

// Track 音乐曲目。音频文件本体存放在对象存储里，这里只保存元数据和对象 Key。
type Track struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Tid         string    `gorm:"uniqueIndex;size:8;not null" json:"tid"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	GenreID     uint      `gorm:"not null;index;default:1" json:"genre_id"`
	Genre       Genre     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"genre"`
	Title       string    `gorm:"not null" json:"title"`
	Artist      string    `gorm:"size:100" json:"artist"` // 表演者，默认为上传者用户名
	Description string    `gorm:"type:text" json:"description"`
	AudioKey    string    `gorm:"size:64;not null" json:"-"` // 对象存储中的音频 Key
	CoverKey    string    `gorm:"size:64" json:"-"`          // 封面图 Key，可为空
	ContentType string    `gorm:"size:50" json:"content_type"`
	Size        int64     `json:"size"`                    // 音频文件字节数
	Plays       int       `gorm:"default:0" json:"plays"`  // 播放次数
	IsPublic    bool      `gorm:"default:true;index" json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// 非数据库字段，用于查询时填充
	CommentCount int `gorm:"-" json:"comment_count"`
}
