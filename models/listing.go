package models

import (
	"time"
)

// Listing 卖家发布的可售库存
// 数量为0的行不允许存在：售罄时直接删除
type Listing struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Label     string    `gorm:"type:varchar(100)" json:"label"`
	BookISBN  string    `gorm:"column:isbn;type:varchar(13);index;not null" json:"isbn"`
	Quantity  int       `gorm:"not null;check:quantity >= 1" json:"quantity"`
	SellerID  string    `gorm:"type:varchar(36);index;not null" json:"seller_id"`
	Price     float64   `gorm:"type:decimal(10,2);not null;check:price >= 0" json:"price"`
	ImageID   *uint     `gorm:"index" json:"image_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联关系
	Book  Book   `gorm:"foreignKey:BookISBN;references:ISBN" json:"book,omitempty"`
	Image *Image `gorm:"foreignKey:ImageID" json:"image,omitempty"`
}

// TableName 指定表名
func (Listing) TableName() string {
	return "listings"
}
