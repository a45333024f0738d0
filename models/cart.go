package models

import "time"

// CartEntry 购物车条目
// 同一买家对同一发布只有一条记录
type CartEntry struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	BuyerID   string `gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_buyer_listing" json:"buyer_id"`
	ListingID uint   `gorm:"not null;uniqueIndex:idx_cart_buyer_listing;index" json:"listing_id"`
	Quantity  int    `gorm:"not null;default:1;check:quantity >= 1" json:"quantity"`

	// 其他买家结账使库存减少时被压低前的数量，买家再次调整后清零
	ClampedFrom int `gorm:"not null;default:0" json:"clamped_from,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 发布可能已被删除（售罄），此时为nil
	Listing *Listing `gorm:"-" json:"listing,omitempty"`
}

// TableName 指定表名
func (CartEntry) TableName() string {
	return "cart_entries"
}
