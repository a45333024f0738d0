//go:build integration
// +build integration

package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"scamazon_go/config"
	"scamazon_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"go.uber.org/zap/zaptest"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMySQL 启动MySQL容器并完成迁移
func setupMySQL(t *testing.T) *gorm.DB {
	ctx := context.Background()

	container, err := mysql.Run(ctx,
		"mysql:8.0.36",
		mysql.WithDatabase("scamazon"),
		mysql.WithUsername("scamazon"),
		mysql.WithPassword("scamazon"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "failed to start mysql container")

	dsn, err := container.ConnectionString(ctx, "parseTime=true", "loc=UTC")
	require.NoError(t, err)

	db, err := gorm.Open(gormmysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestIntegration_ConcurrentCheckout(t *testing.T) {
	db := setupMySQL(t)
	logger := zaptest.NewLogger(t)
	checkout := NewCheckoutService(db, nil, logger)
	orders := NewOrderService(db, nil, logger)
	ctx := context.Background()

	const stock, buyers = 3, 10
	seedBook(t, db, testISBN)
	listing := seedListing(t, db, sellerID, testISBN, stock, 12.5)
	for i := 0; i < buyers; i++ {
		seedCartEntry(t, db, fmt.Sprintf("buyer-%d", i), listing.ID, 1)
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	start := make(chan struct{})
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = checkout.Checkout(ctx, fmt.Sprintf("buyer-%d", i), testPayment)
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInventoryConflict)
	}
	assert.Equal(t, stock, succeeded)
	assert.Equal(t, int64(stock), countRows(t, db, &models.Order{}, ""))
	_, exists := findListing(t, db, listing.ID)
	assert.False(t, exists)
	assert.Equal(t, int64(buyers-stock), countRows(t, db, &models.CartEntry{}, ""))

	// 逐个退货，库存回到同一行
	var placed []models.Order
	require.NoError(t, db.Find(&placed).Error)
	for _, o := range placed {
		require.NoError(t, orders.ReturnOrder(ctx, o.ID, o.BuyerID))
	}

	restored, exists := findListing(t, db, listing.ID)
	require.True(t, exists)
	assert.Equal(t, stock, restored.Quantity)
	assert.Equal(t, 12.5, restored.Price)
	assert.Zero(t, countRows(t, db, &models.Order{}, ""))
}

func TestIntegration_SchemaForeignKeys(t *testing.T) {
	db := setupMySQL(t)

	// 外键只在引用方：listings、orders 指向 books
	assert.True(t, db.Migrator().HasConstraint(&models.Book{}, "Listings"))
	assert.True(t, db.Migrator().HasConstraint(&models.Order{}, "Book"))

	book := seedBook(t, db, testISBN)
	listing := seedListing(t, db, sellerID, book.ISBN, 1, 3)
	require.NoError(t, db.Create(&models.Order{
		Date: listing.CreatedAt, Quantity: 1, BookISBN: book.ISBN, Price: 3,
		BuyerID: buyerID, SellerID: sellerID, ShippingAddress: "1 Main St", PaymentToken: "4242",
		OriginListingID: listing.ID,
	}).Error)

	orphan := models.Listing{BookISBN: "0306406152", Quantity: 1, SellerID: sellerID}
	assert.Error(t, db.Create(&orphan).Error)
}
