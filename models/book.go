package models

import (
	"time"
)

// Book 书目模型（以ISBN为主键）
type Book struct {
	ISBN        string    `gorm:"type:varchar(13);primaryKey" json:"isbn"`
	Title       string    `gorm:"type:varchar(200);not null;index" json:"title"`
	Author      string    `gorm:"type:varchar(200);not null;index" json:"author"`
	Pages       int       `gorm:"default:0;check:pages >= 0" json:"pages"`
	Rating      float64   `gorm:"type:decimal(3,2);default:0;check:rating >= 0 AND rating <= 5" json:"rating"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedBy   string    `gorm:"type:varchar(36);index" json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// 关联关系
	Listings []Listing `gorm:"foreignKey:BookISBN;references:ISBN" json:"listings,omitempty"`
}

// TableName 指定表名
func (Book) TableName() string {
	return "books"
}

// String 书名 + 作者
func (b Book) String() string {
	return b.Title + " by " + b.Author
}

// IsHighlyRated 评分不低于4
func (b Book) IsHighlyRated() bool {
	return b.Rating >= 4
}
