package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// AudioStorage 音频/封面文件的对象存储封装（MinIO 或任何 S3 兼容服务）
type AudioStorage struct {
	client  *minio.Client
	bucket  string
	Enabled bool
}

var (
	audioStorage *AudioStorage
	storageOnce  sync.Once
)

// GetAudioStorage 获取单例对象存储服务。
// 未配置 MINIO_ENDPOINT 时返回禁用状态的实例，上传接口会报错但进程可以启动。
func GetAudioStorage() *AudioStorage {
	storageOnce.Do(func() {
		audioStorage = newAudioStorage()
	})
	return audioStorage
}

func newAudioStorage() *AudioStorage {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		log.Println("⚠️ AudioStorage disabled: MINIO_ENDPOINT not set")
		return &AudioStorage{Enabled: false}
	}

	bucket := os.Getenv("MINIO_BUCKET")
	if bucket == "" {
		bucket = "ispmedia"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), ""),
		Secure: os.Getenv("MINIO_USE_SSL") == "true",
	})
	if err != nil {
		log.Printf("⚠️ AudioStorage disabled: %v", err)
		return &AudioStorage{Enabled: false}
	}

	s := &AudioStorage{client: client, bucket: bucket, Enabled: true}

	// 确保 bucket 存在（幂等）
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		exists, xerr := client.BucketExists(ctx, bucket)
		if xerr != nil || !exists {
			log.Printf("⚠️ AudioStorage disabled: bucket ensure failed: %v", err)
			return &AudioStorage{Enabled: false}
		}
	}

	log.Printf("AudioStorage ready: %s/%s", endpoint, bucket)
	return s
}

// Upload 上传文件到对象存储
func (s *AudioStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if !s.Enabled {
		return fmt.Errorf("对象存储未配置")
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("上传文件失败: %w", err)
	}
	return nil
}

// PresignedURL 生成限时播放/下载链接
func (s *AudioStorage) PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if !s.Enabled {
		return "", fmt.Errorf("对象存储未配置")
	}
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, expires, url.Values{})
	if err != nil {
		return "", fmt.Errorf("生成播放链接失败: %w", err)
	}
	return presigned.String(), nil
}

// Remove 删除对象（删除曲目时清理音频和封面）
func (s *AudioStorage) Remove(ctx context.Context, key string) error {
	if !s.Enabled || key == "" {
		return nil
	}
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
