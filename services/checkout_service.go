package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"scamazon_go/metrics"
	"scamazon_go/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentDetails 结账支付信息（原样保存，不对接支付网关）
type PaymentDetails struct {
	ShippingAddress string `json:"shipping_address" binding:"required,max=255"`
	PaymentToken    string `json:"payment_token" binding:"required,max=64"`
	CardholderName  string `json:"cardholder_name" binding:"max=100"`
}

// Validate 地址和支付凭证不能为空
func (p *PaymentDetails) Validate() error {
	if strings.TrimSpace(p.ShippingAddress) == "" {
		return fmt.Errorf("%w: shipping address is required", ErrInvalidPayment)
	}
	if strings.TrimSpace(p.PaymentToken) == "" {
		return fmt.Errorf("%w: payment token is required", ErrInvalidPayment)
	}
	return nil
}

// CheckoutService 结账服务
type CheckoutService struct {
	db        *gorm.DB
	publisher *EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewCheckoutService 创建结账服务实例，publisher可为nil
func NewCheckoutService(db *gorm.DB, publisher *EventPublisher, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		db:        db,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Checkout 将买家的整个购物车转换为订单并扣减库存
// 整个购物车在一个事务内完成：任一条目冲突则全部回滚，购物车保持不变
func (cs *CheckoutService) Checkout(ctx context.Context, buyerID string, payment PaymentDetails) ([]uint, error) {
	if err := payment.Validate(); err != nil {
		metrics.Checkouts.WithLabelValues(outcome(err)).Inc()
		return nil, err
	}

	var orders []models.Order
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listingIDs []uint
		if err := tx.Model(&models.CartEntry{}).
			Where("buyer_id = ?", buyerID).
			Order("listing_id ASC").
			Pluck("listing_id", &listingIDs).Error; err != nil {
			return fmt.Errorf("failed to load cart: %w", err)
		}
		if len(listingIDs) == 0 {
			return nil
		}

		// 先按发布ID顺序锁发布，再锁购物车条目，与购物车操作的加锁顺序一致
		listings := make(map[uint]*models.Listing, len(listingIDs))
		for _, id := range listingIDs {
			listing, err := lockListing(tx, id)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: listing %d is no longer available", ErrInventoryConflict, id)
			}
			if err != nil {
				return fmt.Errorf("failed to load listing %d: %w", id, err)
			}
			listings[id] = listing
		}

		var entries []models.CartEntry
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("buyer_id = ?", buyerID).
			Order("listing_id ASC").
			Find(&entries).Error; err != nil {
			return fmt.Errorf("failed to lock cart: %w", err)
		}

		now := cs.now()
		entryIDs := make([]uint, 0, len(entries))
		for i := range entries {
			listing, ok := listings[entries[i].ListingID]
			if !ok {
				// 条目在两次读取之间被加入
				return fmt.Errorf("%w: cart changed during checkout", ErrInventoryConflict)
			}
			order, err := purchase(tx, buyerID, &entries[i], listing, &payment, now)
			if err != nil {
				return err
			}
			orders = append(orders, *order)
			entryIDs = append(entryIDs, entries[i].ID)
		}
		if len(entryIDs) == 0 {
			return nil
		}

		if err := tx.Where("id IN ?", entryIDs).Delete(&models.CartEntry{}).Error; err != nil {
			return fmt.Errorf("failed to drain cart: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.Checkouts.WithLabelValues(outcome(err)).Inc()
		if errors.Is(err, ErrInventoryConflict) {
			cs.logger.Warn("checkout rejected",
				zap.String("buyer_id", buyerID),
				zap.Error(err))
		}
		return nil, err
	}

	ids := make([]uint, 0, len(orders))
	for i := range orders {
		ids = append(ids, orders[i].ID)
		cs.publisher.Publish(orderEvent(EventOrderCreated, &orders[i]))
	}

	if len(ids) == 0 {
		metrics.Checkouts.WithLabelValues("empty").Inc()
		return ids, nil
	}
	metrics.Checkouts.WithLabelValues("success").Inc()
	metrics.OrdersCreated.Add(float64(len(ids)))

	cs.logger.Info("checkout completed",
		zap.String("buyer_id", buyerID),
		zap.Int("orders", len(ids)),
		zap.Uints("order_ids", ids))
	return ids, nil
}

// purchase 对单个购物车条目：校验库存、生成订单快照、扣减或删除发布
func purchase(tx *gorm.DB, buyerID string, entry *models.CartEntry, listing *models.Listing, payment *PaymentDetails, now time.Time) (*models.Order, error) {
	if entry.Quantity > listing.Quantity {
		return nil, fmt.Errorf("%w: listing %d has %d left, cart wants %d",
			ErrInventoryConflict, listing.ID, listing.Quantity, entry.Quantity)
	}

	order := models.Order{
		Date:               now,
		Quantity:           entry.Quantity,
		BookISBN:           listing.BookISBN,
		Price:              listing.Price,
		BuyerID:            buyerID,
		SellerID:           listing.SellerID,
		Delivered:          false,
		ShippingAddress:    strings.TrimSpace(payment.ShippingAddress),
		CardholderName:     strings.TrimSpace(payment.CardholderName),
		PaymentToken:       strings.TrimSpace(payment.PaymentToken),
		OriginListingID:    listing.ID,
		OriginListingLabel: listing.Label,
		OriginImageID:      listing.ImageID,
	}
	if err := tx.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if _, err := consumeListing(tx, listing, entry.Quantity); err != nil {
		return nil, err
	}
	return &order, nil
}

// orderEvent 由订单构造事件
func orderEvent(eventType string, order *models.Order) *OrderEvent {
	return &OrderEvent{
		Type:      eventType,
		OrderID:   order.ID,
		ListingID: order.OriginListingID,
		ISBN:      order.BookISBN,
		BuyerID:   order.BuyerID,
		SellerID:  order.SellerID,
		Quantity:  order.Quantity,
		Price:     order.Price,
	}
}
