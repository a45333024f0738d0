package utils

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// UploadConfig 上传配置
type UploadConfig struct {
	MaxFileSize    int64    // 最大文件大小（字节）
	AllowedFormats []string // 允许的文件格式
	UploadPath     string   // 上传路径
}

// DefaultAllowedFormats 允许的图片格式
var DefaultAllowedFormats = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// UploadResult 上传结果
type UploadResult struct {
	URL      string `json:"url"`       // 访问URL
	Path     string `json:"path"`      // 磁盘路径
	FileSize int64  `json:"file_size"` // 文件大小
	FileName string `json:"file_name"` // 文件名
}

// FileUploader 文件上传器
type FileUploader struct {
	config *UploadConfig
	rdb    *redis.Client // 可为nil
}

// NewFileUploader 创建文件上传器实例
func NewFileUploader(cfg *UploadConfig, rdb *redis.Client) *FileUploader {
	if len(cfg.AllowedFormats) == 0 {
		cfg.AllowedFormats = DefaultAllowedFormats
	}
	return &FileUploader{config: cfg, rdb: rdb}
}

// Save 校验并保存上传的文件
func (fu *FileUploader) Save(ctx context.Context, file *multipart.FileHeader) (*UploadResult, error) {
	if file.Size > fu.config.MaxFileSize {
		return nil, fmt.Errorf("file size exceeds maximum allowed size of %d bytes", fu.config.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !fu.isAllowedFormat(ext) {
		return nil, fmt.Errorf("file format %s is not allowed", ext)
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(fu.config.UploadPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	fileName := generateFileName(file.Filename)
	filePath := filepath.Join(fu.config.UploadPath, fileName)

	dst, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, src)
	if err != nil {
		_ = os.Remove(filePath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	result := &UploadResult{
		URL:      "/uploads/" + fileName,
		Path:     filePath,
		FileSize: written,
		FileName: fileName,
	}
	fu.cacheFileMetadata(ctx, result)
	return result, nil
}

// Delete 删除已保存的文件
func (fu *FileUploader) Delete(ctx context.Context, fileName string) error {
	filePath := filepath.Join(fu.config.UploadPath, filepath.Base(fileName))
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if fu.rdb != nil {
		fu.rdb.Del(ctx, "file:metadata:"+fileName)
	}
	return nil
}

// cacheFileMetadata 缓存文件元数据到Redis（24小时）
func (fu *FileUploader) cacheFileMetadata(ctx context.Context, result *UploadResult) {
	if fu.rdb == nil {
		return
	}
	key := "file:metadata:" + result.FileName
	pipe := fu.rdb.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"url":       result.URL,
		"file_size": result.FileSize,
		"cached_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, key, 24*time.Hour)
	_, _ = pipe.Exec(ctx)
}

// isAllowedFormat 检查文件格式是否允许
func (fu *FileUploader) isAllowedFormat(ext string) bool {
	for _, allowed := range fu.config.AllowedFormats {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

// generateFileName 生成唯一文件名
func generateFileName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s_%s%s", time.Now().Format("20060102150405"), id[:12], ext)
}
