package services

import (
	"context"
	"errors"
	"fmt"

	"scamazon_go/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartAdjustment 购物车数量调整结果
type CartAdjustment string

const (
	// CartAdjusted 数量已改变（或新建条目）
	CartAdjusted CartAdjustment = "adjusted"
	// CartAtCapacity 已到达发布库存上限，未改变
	CartAtCapacity CartAdjustment = "at_capacity"
	// CartRemoved 数量降到0，条目已删除
	CartRemoved CartAdjustment = "removed"
)

// CartService 购物车服务
type CartService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCartService 创建购物车服务实例
func NewCartService(db *gorm.DB, logger *zap.Logger) *CartService {
	return &CartService{db: db, logger: logger}
}

// CartView 购物车视图
type CartView struct {
	Entries  []models.CartEntry `json:"entries"`
	Subtotal float64            `json:"subtotal"`
	// 引用的发布已不存在的条目数（结账会失败）
	Unavailable int `json:"unavailable"`
	// 因他人购买被压低数量的条目数，结账按压低后的数量下单
	Clamped int `json:"clamped"`
}

// GetCart 读取买家购物车
func (cs *CartService) GetCart(ctx context.Context, buyerID string) (*CartView, error) {
	var entries []models.CartEntry
	if err := cs.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("listing_id ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	view := &CartView{Entries: entries}
	if len(entries) == 0 {
		view.Entries = []models.CartEntry{}
		return view, nil
	}

	ids := make([]uint, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ListingID)
	}
	var listings []models.Listing
	if err := cs.db.WithContext(ctx).Preload("Book").Where("id IN ?", ids).Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart listings: %w", err)
	}
	byID := make(map[uint]*models.Listing, len(listings))
	for i := range listings {
		byID[listings[i].ID] = &listings[i]
	}

	subtotal := decimal.Zero
	for i := range view.Entries {
		if view.Entries[i].ClampedFrom > 0 {
			view.Clamped++
		}
		listing, ok := byID[view.Entries[i].ListingID]
		if !ok {
			view.Unavailable++
			continue
		}
		view.Entries[i].Listing = listing
		line := decimal.NewFromFloat(listing.Price).Mul(decimal.NewFromInt(int64(view.Entries[i].Quantity)))
		subtotal = subtotal.Add(line)
	}
	view.Subtotal = subtotal.Round(2).InexactFloat64()
	return view, nil
}

// AddToCart 加入购物车：已有条目时按 IncreaseQuantity 处理，否则新建数量为1的条目
func (cs *CartService) AddToCart(ctx context.Context, buyerID string, listingID uint) (*models.CartEntry, CartAdjustment, error) {
	var entry models.CartEntry
	result := CartAdjusted

	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := lockListing(tx, listingID)
		if err != nil {
			return notFound(err, "listing")
		}

		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("buyer_id = ? AND listing_id = ?", buyerID, listingID).
			First(&entry).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			entry = models.CartEntry{BuyerID: buyerID, ListingID: listingID, Quantity: 1}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("failed to create cart entry: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to load cart entry: %w", err)
		default:
			result, err = increment(tx, &entry, listing)
			if err != nil {
				return err
			}
		}
		entry.Listing = listing
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	cs.logger.Debug("listing added to cart",
		zap.String("buyer_id", buyerID),
		zap.Uint("listing_id", listingID),
		zap.Int("quantity", entry.Quantity),
		zap.String("result", string(result)))
	return &entry, result, nil
}

// RemoveFromCart 从购物车移除某发布
func (cs *CartService) RemoveFromCart(ctx context.Context, buyerID string, listingID uint) error {
	res := cs.db.WithContext(ctx).
		Where("buyer_id = ? AND listing_id = ?", buyerID, listingID).
		Delete(&models.CartEntry{})
	if res.Error != nil {
		return fmt.Errorf("failed to remove cart entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart entry for listing %d %w", listingID, ErrNotFound)
	}
	return nil
}

// IncreaseQuantity 数量+1，不超过发布的当前库存
func (cs *CartService) IncreaseQuantity(ctx context.Context, buyerID string, entryID uint) (CartAdjustment, error) {
	var result CartAdjustment
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.CartEntry
		if err := tx.First(&current, "id = ?", entryID).Error; err != nil {
			return notFound(err, "cart entry")
		}
		if current.BuyerID != buyerID {
			return fmt.Errorf("%w: cart entry %d belongs to another buyer", ErrForbidden, entryID)
		}

		// 读取当前库存（其他买家的结账可能刚刚扣减过），先锁发布再锁条目
		listing, err := lockListing(tx, current.ListingID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: listing %d is no longer available", ErrInventoryConflict, current.ListingID)
		}
		if err != nil {
			return fmt.Errorf("failed to load listing: %w", err)
		}

		entry, err := lockEntry(tx, buyerID, entryID)
		if err != nil {
			return err
		}
		result, err = increment(tx, entry, listing)
		return err
	})
	return result, err
}

// DecreaseQuantity 数量-1，降到0时删除条目
func (cs *CartService) DecreaseQuantity(ctx context.Context, buyerID string, entryID uint) (CartAdjustment, error) {
	var result CartAdjustment
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := lockEntry(tx, buyerID, entryID)
		if err != nil {
			return err
		}

		if entry.Quantity <= 1 {
			if err := tx.Delete(&models.CartEntry{}, entry.ID).Error; err != nil {
				return fmt.Errorf("failed to delete cart entry: %w", err)
			}
			result = CartRemoved
			return nil
		}

		if err := setEntryQuantity(tx, entry, entry.Quantity-1); err != nil {
			return fmt.Errorf("failed to decrease cart entry: %w", err)
		}
		result = CartAdjusted
		return nil
	})
	return result, err
}

// lockEntry 加锁读取条目并校验归属
func lockEntry(tx *gorm.DB, buyerID string, entryID uint) (*models.CartEntry, error) {
	var entry models.CartEntry
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&entry, "id = ?", entryID).Error; err != nil {
		return nil, notFound(err, "cart entry")
	}
	if entry.BuyerID != buyerID {
		return nil, fmt.Errorf("%w: cart entry %d belongs to another buyer", ErrForbidden, entryID)
	}
	return &entry, nil
}

// increment 在库存上限内将条目数量+1
func increment(tx *gorm.DB, entry *models.CartEntry, listing *models.Listing) (CartAdjustment, error) {
	if entry.Quantity+1 > listing.Quantity {
		return CartAtCapacity, nil
	}
	if err := setEntryQuantity(tx, entry, entry.Quantity+1); err != nil {
		return "", fmt.Errorf("failed to increase cart entry: %w", err)
	}
	return CartAdjusted, nil
}

// setEntryQuantity 买家主动调整数量，同时清除压低标记
func setEntryQuantity(tx *gorm.DB, entry *models.CartEntry, quantity int) error {
	err := tx.Model(&models.CartEntry{}).Where("id = ?", entry.ID).
		UpdateColumns(map[string]interface{}{"quantity": quantity, "clamped_from": 0}).Error
	if err != nil {
		return err
	}
	entry.Quantity = quantity
	entry.ClampedFrom = 0
	return nil
}
