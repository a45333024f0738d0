package services

import (
	"context"
	"fmt"

	"scamazon_go/models"

	"gorm.io/gorm"
)

// ImageService 图片记录服务（文件本身由上传器保存）
type ImageService struct {
	db *gorm.DB
}

// NewImageService 创建图片服务实例
func NewImageService(db *gorm.DB) *ImageService {
	return &ImageService{db: db}
}

// RecordImage 记录已保存的图片
func (is *ImageService) RecordImage(ctx context.Context, uploaderID, path, fileName string, size int64) (*models.Image, error) {
	image := models.Image{
		Path:       path,
		FileName:   fileName,
		Size:       size,
		UploadedBy: uploaderID,
	}
	if err := is.db.WithContext(ctx).Create(&image).Error; err != nil {
		return nil, fmt.Errorf("failed to record image: %w", err)
	}
	return &image, nil
}

// GetImage 获取图片记录
func (is *ImageService) GetImage(ctx context.Context, imageID uint) (*models.Image, error) {
	var image models.Image
	if err := is.db.WithContext(ctx).First(&image, "id = ?", imageID).Error; err != nil {
		return nil, notFound(err, "image")
	}
	return &image, nil
}
