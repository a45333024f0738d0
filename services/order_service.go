package services

import (
	"context"
	"fmt"
	"time"

	"scamazon_go/metrics"
	"scamazon_go/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderService 订单服务：退货、发货与订单列表
type OrderService struct {
	db        *gorm.DB
	publisher *EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrderService 创建订单服务实例，publisher可为nil
func NewOrderService(db *gorm.DB, publisher *EventPublisher, logger *zap.Logger) *OrderService {
	return &OrderService{
		db:        db,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// SellerOrders 卖家订单视图
type SellerOrders struct {
	Orders       []models.Order `json:"orders"`
	TotalRevenue float64        `json:"total_revenue"`
}

// ReturnOrder 买家退货：库存按来源发布ID回填，订单删除
func (s *OrderService) ReturnOrder(ctx context.Context, orderID uint, requesterID string) error {
	var order models.Order
	var listing *models.Listing

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrder(tx, orderID, &order); err != nil {
			return err
		}
		if order.BuyerID != requesterID {
			return fmt.Errorf("%w: order %d belongs to another buyer", ErrForbidden, orderID)
		}
		if order.Delivered {
			return fmt.Errorf("%w: order %d", ErrAlreadyDelivered, orderID)
		}

		snapshot := &models.Listing{
			ID:       order.OriginListingID,
			Label:    order.OriginListingLabel,
			BookISBN: order.BookISBN,
			Quantity: order.Quantity,
			SellerID: order.SellerID,
			Price:    order.Price,
			ImageID:  order.OriginImageID,
		}
		var err error
		if listing, err = restockListing(tx, snapshot); err != nil {
			return err
		}

		res := tx.Where("id = ? AND delivered = ?", orderID, false).Delete(&models.Order{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete order: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("%w: order %d", ErrAlreadyDelivered, orderID)
		}
		return nil
	})
	metrics.Transitions.WithLabelValues("return", outcome(err)).Inc()
	if err != nil {
		return err
	}

	s.logger.Info("order returned",
		zap.Uint("order_id", orderID),
		zap.String("buyer_id", requesterID),
		zap.Uint("listing_id", listing.ID),
		zap.Int("restocked", order.Quantity),
		zap.Int("listing_quantity", listing.Quantity))
	s.publisher.Publish(orderEvent(EventOrderReturned, &order))
	return nil
}

// DeliverOrder 卖家标记发货（单向，不影响库存）
func (s *OrderService) DeliverOrder(ctx context.Context, orderID uint, requesterID string) error {
	var order models.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrder(tx, orderID, &order); err != nil {
			return err
		}
		if order.SellerID != requesterID {
			return fmt.Errorf("%w: order %d belongs to another seller", ErrForbidden, orderID)
		}
		if order.Delivered {
			return fmt.Errorf("%w: order %d", ErrAlreadyDelivered, orderID)
		}

		now := s.now()
		res := tx.Model(&models.Order{}).
			Where("id = ? AND delivered = ?", orderID, false).
			UpdateColumns(map[string]interface{}{
				"delivered":    true,
				"delivered_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark order delivered: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("%w: order %d", ErrAlreadyDelivered, orderID)
		}
		order.Delivered = true
		order.DeliveredAt = &now
		return nil
	})
	metrics.Transitions.WithLabelValues("deliver", outcome(err)).Inc()
	if err != nil {
		return err
	}

	s.logger.Info("order delivered",
		zap.Uint("order_id", orderID),
		zap.String("seller_id", requesterID))
	s.publisher.Publish(orderEvent(EventOrderDelivered, &order))
	return nil
}

// GetOrder 获取订单详情，只有买家或卖家可见
func (s *OrderService) GetOrder(ctx context.Context, orderID uint, requesterID string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Book").First(&order, "id = ?", orderID).Error; err != nil {
		return nil, notFound(err, "order")
	}
	if order.BuyerID != requesterID && order.SellerID != requesterID {
		return nil, fmt.Errorf("%w: order %d", ErrForbidden, orderID)
	}
	return &order, nil
}

// GetOrdersForBuyer 买家订单：未发货在前，其次按时间倒序
func (s *OrderService) GetOrdersForBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	var orders []models.Order
	if err := s.ordered(ctx).Where("buyer_id = ?", buyerID).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return orders, nil
}

// GetOrdersForSeller 卖家订单及总收入（数量 × 成交单价之和，保留两位小数）
func (s *OrderService) GetOrdersForSeller(ctx context.Context, sellerID string) (*SellerOrders, error) {
	var orders []models.Order
	if err := s.ordered(ctx).Where("seller_id = ?", sellerID).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return &SellerOrders{
		Orders:       orders,
		TotalRevenue: TotalRevenue(orders),
	}, nil
}

// TotalRevenue 订单总额之和，保留两位小数
func TotalRevenue(orders []models.Order) float64 {
	total := decimal.Zero
	for i := range orders {
		total = total.Add(orders[i].Total())
	}
	return total.Round(2).InexactFloat64()
}

func (s *OrderService) ordered(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Book").
		Order("delivered ASC").
		Order("date DESC").
		Order("id DESC")
}

// lockOrder 加锁读取订单
func lockOrder(tx *gorm.DB, orderID uint, order *models.Order) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(order, "id = ?", orderID).Error
	return notFound(err, "order")
}
