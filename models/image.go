package models

import "time"

// Image 上传的图片
type Image struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Path       string    `gorm:"type:varchar(255);not null" json:"path"`
	FileName   string    `gorm:"type:varchar(255)" json:"file_name"`
	Size       int64     `json:"size"`
	UploadedBy string    `gorm:"type:varchar(36);index" json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (Image) TableName() string {
	return "images"
}
