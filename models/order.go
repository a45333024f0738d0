package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order 订单：结账时对发布的快照
// 价格、书目、卖家、图片都在创建时固定，发布被删除后仍然保留
type Order struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Date            time.Time  `gorm:"not null;index" json:"date"`
	Quantity        int        `gorm:"not null;check:quantity >= 1" json:"quantity"`
	BookISBN        string     `gorm:"column:isbn;type:varchar(13);index;not null" json:"isbn"`
	Price           float64    `gorm:"type:decimal(10,2);not null;check:price >= 0" json:"price"`
	BuyerID         string     `gorm:"type:varchar(36);index;not null" json:"buyer_id"`
	SellerID        string     `gorm:"type:varchar(36);index;not null" json:"seller_id"`
	Delivered       bool       `gorm:"not null;default:false;index" json:"delivered"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	ShippingAddress string     `gorm:"type:varchar(255);not null" json:"shipping_address"`
	CardholderName  string     `gorm:"type:varchar(100)" json:"cardholder_name,omitempty"`
	PaymentToken    string     `gorm:"type:varchar(64);not null" json:"-"`

	// 来源发布（无外键约束，退货时按此ID回填库存）
	OriginListingID    uint   `gorm:"not null;index" json:"origin_listing_id"`
	OriginListingLabel string `gorm:"type:varchar(100)" json:"origin_listing_label,omitempty"`
	OriginImageID      *uint  `json:"origin_image_id,omitempty"`

	// 关联关系
	Book Book `gorm:"foreignKey:BookISBN;references:ISBN" json:"book,omitempty"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// PaymentLast4 支付凭证后四位
func (o *Order) PaymentLast4() string {
	if len(o.PaymentToken) <= 4 {
		return o.PaymentToken
	}
	return o.PaymentToken[len(o.PaymentToken)-4:]
}

// Total 数量 × 成交单价
func (o *Order) Total() decimal.Decimal {
	return decimal.NewFromFloat(o.Price).Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// TotalPayment 订单总额，保留两位小数
func (o *Order) TotalPayment() float64 {
	return o.Total().Round(2).InexactFloat64()
}
