package db

import (
	"ispmedia/internal/models"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=ispmedia port=5432 sslmode=disable TimeZone=Africa/Luanda"
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established")

	Migrate(DB)

	// Seed initial genres
	seedGenres()
}

// Migrate 执行建表迁移，测试里也会用内存库调用
func Migrate(gdb *gorm.DB) {
	err := gdb.AutoMigrate(
		&models.User{},
		&models.Genre{},
		&models.Track{},
		&models.Comment{},
		&models.Playlist{},
		&models.PlaylistTrack{},
		&models.Notification{},
		&models.ActivityLog{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")
}

func seedGenres() {
	// 检查是否已有流派数据
	var count int64
	DB.Model(&models.Genre{}).Count(&count)
	if count > 0 {
		log.Println("Genres already seeded, skipping")
		return
	}

	// 创建预设流派
	genres := []models.Genre{
		{Name: "Kizomba", Description: "安哥拉经典舞曲风格"},
		{Name: "Semba", Description: "传统 Semba 音乐"},
		{Name: "Kuduro", Description: "节奏强烈的电子舞曲"},
		{Name: "Afro House", Description: "非洲浩室音乐"},
		{Name: "Hip Hop", Description: "说唱与嘻哈"},
		{Name: "其他", Description: "未分类曲目"},
	}

	for _, genre := range genres {
		if err := DB.Create(&genre).Error; err != nil {
			log.Printf("Failed to create genre %s: %v", genre.Name, err)
		}
	}
	log.Println("Initial genres created successfully")
}
