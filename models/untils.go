package models

import (
	"github.com/google/uuid"
)

// generateUUID 生成UUID
func generateUUID() string {
	return uuid.New().String()
}

// All 需要自动迁移的全部模型
func All() []interface{} {
	return []interface{}{
		&User{},
		&Book{},
		&Image{},
		&Listing{},
		&CartEntry{},
		&Order{},
	}
}
