package services

import (
	"errors"
	"fmt"

	"scamazon_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 以下函数都在调用方的事务内执行，操作的行在事务内加锁

// lockListing 加行锁读取发布，不存在时返回 gorm.ErrRecordNotFound
func lockListing(tx *gorm.DB, listingID uint) (*models.Listing, error) {
	var listing models.Listing
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&listing, "id = ?", listingID).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// consumeListing 从发布中扣减n件：剩余大于0时扣减，恰好售罄时删除行
// 返回扣减后的剩余数量（0 表示已删除）
func consumeListing(tx *gorm.DB, listing *models.Listing, n int) (int, error) {
	switch {
	case n < listing.Quantity:
		res := tx.Model(&models.Listing{}).
			Where("id = ? AND quantity > ?", listing.ID, n).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", n))
		if res.Error != nil {
			return 0, fmt.Errorf("failed to decrement listing %d: %w", listing.ID, res.Error)
		}
		if res.RowsAffected != 1 {
			return 0, fmt.Errorf("%w: listing %d changed during checkout", ErrInventoryConflict, listing.ID)
		}
		remaining := listing.Quantity - n
		if err := clampCartEntries(tx, listing.ID, remaining); err != nil {
			return 0, err
		}
		return remaining, nil

	case n == listing.Quantity:
		res := tx.Where("id = ? AND quantity = ?", listing.ID, n).Delete(&models.Listing{})
		if res.Error != nil {
			return 0, fmt.Errorf("failed to delete listing %d: %w", listing.ID, res.Error)
		}
		if res.RowsAffected != 1 {
			return 0, fmt.Errorf("%w: listing %d changed during checkout", ErrInventoryConflict, listing.ID)
		}
		return 0, nil

	default:
		return 0, fmt.Errorf("%w: listing %d has %d left, %d requested", ErrInventoryConflict, listing.ID, listing.Quantity, n)
	}
}

// restockListing 按ID回填库存（upsert）：行存在则数量增加，不存在则用快照重建同ID的行
// 同一发布的多笔退货都会回到同一行
func restockListing(tx *gorm.DB, snapshot *models.Listing) (*models.Listing, error) {
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity": gorm.Expr("listings.quantity + ?", snapshot.Quantity),
		}),
	}).Create(snapshot).Error
	if err != nil {
		return nil, fmt.Errorf("failed to restock listing %d: %w", snapshot.ID, err)
	}

	var listing models.Listing
	if err := tx.First(&listing, "id = ?", snapshot.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload listing %d: %w", snapshot.ID, err)
	}
	if err := clampCartEntries(tx, listing.ID, listing.Quantity); err != nil {
		return nil, err
	}
	return &listing, nil
}

// clampCartEntries 将引用该发布的购物车条目数量压到上限以内
// 被压低的条目记下原数量，买家查看购物车时可以看到
func clampCartEntries(tx *gorm.DB, listingID uint, ceiling int) error {
	if ceiling < 1 {
		return errors.New("cart ceiling must be positive")
	}
	// clamped_from 排在 quantity 之前赋值，MySQL 按顺序求值
	err := tx.Model(&models.CartEntry{}).
		Where("listing_id = ? AND quantity > ?", listingID, ceiling).
		UpdateColumns(map[string]interface{}{
			"clamped_from": gorm.Expr("CASE WHEN clamped_from > 0 THEN clamped_from ELSE quantity END"),
			"quantity":     ceiling,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to clamp cart entries for listing %d: %w", listingID, err)
	}
	return nil
}
