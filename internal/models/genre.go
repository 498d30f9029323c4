package models

// Genre 曲目流派，启动时预置，用于浏览导航
type Genre struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;size:30;not null" json:"name"`
	Description string `gorm:"size:200" json:"description"`
}
