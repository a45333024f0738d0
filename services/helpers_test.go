package services

import (
	"context"
	"sync"
	"testing"

	"scamazon_go/config"
	"scamazon_go/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testISBN   = "9781399613385"
	testISBN2  = "9781250899651"
	sellerID   = "seller-1"
	sellerID2  = "seller-2"
	buyerID    = "buyer-1"
	buyerID2   = "buyer-2"
	strangerID = "stranger"
)

var testPayment = PaymentDetails{
	ShippingAddress: "1 Infinite Loop",
	PaymentToken:    "8291473089473064",
	CardholderName:  "Ada Lovelace",
}

// openTestDB 内存SQLite，单连接保证每个测试独立且写事务串行
func openTestDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := config.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := openTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedBook(t require.TestingT, db *gorm.DB, isbn string) *models.Book {
	book := &models.Book{
		ISBN:   isbn,
		Title:  "Book " + isbn,
		Author: "Author " + isbn[len(isbn)-2:],
		Pages:  320,
		Rating: 4.5,
	}
	require.NoError(t, db.Create(book).Error)
	return book
}

func seedListing(t require.TestingT, db *gorm.DB, seller, isbn string, quantity int, price float64) *models.Listing {
	listing := &models.Listing{
		Label:    "Copy of " + isbn,
		BookISBN: isbn,
		Quantity: quantity,
		SellerID: seller,
		Price:    price,
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

func seedCartEntry(t require.TestingT, db *gorm.DB, buyer string, listingID uint, quantity int) *models.CartEntry {
	entry := &models.CartEntry{BuyerID: buyer, ListingID: listingID, Quantity: quantity}
	require.NoError(t, db.Create(entry).Error)
	return entry
}

func findListing(t require.TestingT, db *gorm.DB, id uint) (*models.Listing, bool) {
	var listing models.Listing
	err := db.First(&listing, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, false
	}
	require.NoError(t, err)
	return &listing, true
}

func countRows(t require.TestingT, db *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	var n int64
	q := db.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

// recordingSink 记录收到的事件
type recordingSink struct {
	mu     sync.Mutex
	events []*OrderEvent
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Publish(_ context.Context, evt *OrderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *recordingSink) Types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]string, 0, len(s.events))
	for _, e := range s.events {
		types = append(types, e.Type)
	}
	return types
}

// engine 共享同一数据库的结账、订单、购物车服务
type engine struct {
	db       *gorm.DB
	checkout *CheckoutService
	orders   *OrderService
	cart     *CartService
	sink     *recordingSink
	events   *EventPublisher
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	db := newTestDB(t)
	logger := zaptest.NewLogger(t)
	sink := &recordingSink{}
	publisher := NewEventPublisher(logger, 1, sink)
	t.Cleanup(publisher.Close)
	return &engine{
		db:       db,
		checkout: NewCheckoutService(db, publisher, logger),
		orders:   NewOrderService(db, publisher, logger),
		cart:     NewCartService(db, logger),
		sink:     sink,
		events:   publisher,
	}
}

// buy 把 qty 件放进购物车后结账，返回唯一的订单
func (e *engine) buy(t *testing.T, buyer string, listingID uint, qty int) *models.Order {
	t.Helper()
	seedCartEntry(t, e.db, buyer, listingID, qty)
	ids, err := e.checkout.Checkout(context.Background(), buyer, testPayment)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	var order models.Order
	require.NoError(t, e.db.First(&order, ids[0]).Error)
	return &order
}
