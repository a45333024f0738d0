package services

import (
	"context"
	"testing"
	"time"

	"scamazon_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturnOrder_RecreatesSoldOutListing(t *testing.T) {
	e := newEngine(t)
	seedBook(t, e.db, testISBN)
	listing := seedListing(t, e.db, sellerID, testISBN, 2, 4.24)

	order := e.buy(t, buyerID, listing.ID, 2)
	_, exists := findListing(t, e.db, listing.ID)
	require.False(t, exists)

	// 发布删除后订单快照不变
	var stored models.Order
	require.NoError(t, e.db.First(&stored, order.ID).Error)
	assert.Equal(t, 4.24, stored.Price)
	assert.Equal(t, listing.Label, stored.OriginListingLabel)

	require.NoError(t, e.orders.ReturnOrder(context.Background(), order.ID, buyerID))

	recreated, exists := findListing(t, e.db, listing.ID)
	require.True(t, exists)
	assert.Equal(t, listing.ID, recreated.ID)
	assert.Equal(t, 2, recreated.Quantity)
	assert.Equal(t, 4.24, recreated.Price)
	assert.Equal(t, listing.Label, recreated.Label)
	assert.Equal(t, sellerID, recreated.SellerID)
	assert.Equal(t, testISBN, recreated.BookISBN)

	assert.Zero(t, countRows(t, e.db, &models.Order{}, "id = ?", order.ID))
}

func TestReturnOrder_MergesIntoExistingListing(t *testing.T) {
	e := newEngine(t)
	seedBook(t, e.db, testISBN)
	listing := seedListing(t, e.db, sellerID, testISBN, 10, 7)

	order := e.buy(t, buyerID, listing.ID, 4)
	remaining, _ := findListing(t, e.db, listing.ID)
	require.Equal(t, 6, remaining.Quantity)

	require.NoError(t, e.orders.ReturnOrder(context.Background(), order.ID, buyerID))

	restored, _ := findListing(t, e.db, listing.ID)
	assert.Equal(t, 10, restored.Quantity)
	assert.Equal(t, int64(1), countRows(t, e.db, &models.Listing{}, ""))
}

func TestReturnOrder_SiblingReturnsShareOneListing(t *testing.T) {
	e := newEngine(t)
	seedBook(t, e.db, testISBN)
	listing := seedListing(t, e.db, sellerID, testISBN, 3, 5.5)

	first := e.buy(t, buyerID, listing.ID, 1)
	second := e.buy(t, buyerID2, listing.ID, 2)
	_, exists := findListing(t, e.db, listing.ID)
	require.False(t, exists)

	ctx := context.Background()
	require.NoError(t, e.orders.ReturnOrder(ctx, second.ID, buyerID2))
	require.NoError(t, e.orders.ReturnOrder(ctx, first.ID, buyerID))

	restored, exists := findListing(t, e.db, listing.ID)
	require.True(t, exists)
	assert.Equal(t, 3, restored.Quantity)
	assert.Equal(t, int64(1), countRows(t, e.db, &models.Listing{}, ""))
	assert.Zero(t, countRows(t, e.db, &models.Order{}, ""))
}

func TestReturnOrder_ClampsDanglingCartEntries(t *testing.T) {
	e := newEngine(t)
	seedBook(t, e.db, testISBN)
	listing := seedListing(t, e.db, sellerID, testISBN, 3, 1)

	small := e.buy(t, buyerID, listing.ID, 1)
	waiting := seedCartEntry(t, e.db, buyerID2, listing.ID, 2)
	e.buy(t, "buyer-3", listing.ID, 2)
	_, exists := findListing(t, e.db, listing.ID)
	require.False(t, exists)

	require.NoError(t, e.orders.ReturnOrder(context.Background(), small.ID, buyerID))

	var entry models.CartEntry
	require.NoError(t, e.db.First(&entry, waiting.ID).Error)
	assert.Equal(t, 1, entry.Quantity)
}

func TestReturnOrder_Errors(t *testing.T) {
	e := newEngine(t)
	seedBook(t, e.db, testISBN)
	listing := seedListing(t, e.db, sellerID, testISBN, 5, 1)
	order := e.buy(t, buyerID, listing.ID, 1)
	ctx := context.Background()

	err := e.orders.ReturnOrder(ctx, order.ID+100, buyerID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = e.orders.ReturnOrder(ctx, order.ID, strangerID)
	assert.ErrorIs(t, err, ErrForbidden)

	err = e.orders.ReturnOrder(ctx, order.ID, sellerID)
	assert.ErrorIs(t, err, ErrForbidden, "sellers cannot return")

	remaining, _ := findListing(t, e.db, listing.ID)
	assert.Equal(t, 4, remaining.Quantity)
}

func TestDeliverThenReturn(t *testing.T) {
	e := newEngine(t)
	seedBook(t, e.db, testISBN)
	listing := seedListing(t, e.db, sellerID, testISBN, 5, 3)
	order := e.buy(t, buyerID, listing.ID, 2)
	ctx := context.Background()

	fixed := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	e.orders.now = func() time.Time { return fixed }

	assert.ErrorIs(t, e.orders.DeliverOrder(ctx, order.ID, buyerID), ErrForbidden)
	require.NoError(t, e.orders.DeliverOrder(ctx, order.ID, sellerID))
	assert.ErrorIs(t, e.orders.DeliverOrder(ctx, order.ID, sellerID), ErrAlreadyDelivered)
	assert.ErrorIs(t, e.orders.ReturnOrder(ctx, order.ID, buyerID), ErrAlreadyDelivered)

	var stored models.Order
	require.NoError(t, e.db.First(&stored, order.ID).Error)
	assert.True(t, stored.Delivered)
	require.NotNil(t, stored.DeliveredAt)
	assert.True(t, stored.DeliveredAt.Equal(fixed))
	assert.Equal(t, order.Quantity, stored.Quantity)
	assert.Equal(t, order.Price, stored.Price)

	// 发货不影响库存
	remaining, _ := findListing(t, e.db, listing.ID)
	assert.Equal(t, 3, remaining.Quantity)

	assert.ErrorIs(t, e.orders.DeliverOrder(ctx, order.ID+1, sellerID), ErrNotFound)

	e.events.Close()
	assert.Equal(t, []string{EventOrderCreated, EventOrderDelivered}, e.sink.Types())
}

func TestOrderSnapshotSurvivesListingChanges(t *testing.T) {
	e := newEngine(t)
	seedBook(t, e.db, testISBN)
	listing := seedListing(t, e.db, sellerID, testISBN, 5, 3)
	order := e.buy(t, buyerID, listing.ID, 1)

	require.NoError(t, e.db.Model(&models.Listing{}).Where("id = ?", listing.ID).
		UpdateColumns(map[string]interface{}{"price": 99, "label": "relabelled"}).Error)

	got, err := e.orders.GetOrder(context.Background(), order.ID, buyerID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.Price)
	assert.Equal(t, listing.Label, got.OriginListingLabel)
	assert.Equal(t, testISBN, got.Book.ISBN)
}

func TestGetOrder_Visibility(t *testing.T) {
	e := newEngine(t)
	seedBook(t, e.db, testISBN)
	listing := seedListing(t, e.db, sellerID, testISBN, 5, 3)
	order := e.buy(t, buyerID, listing.ID, 1)
	ctx := context.Background()

	_, err := e.orders.GetOrder(ctx, order.ID, buyerID)
	assert.NoError(t, err)
	_, err = e.orders.GetOrder(ctx, order.ID, sellerID)
	assert.NoError(t, err)
	_, err = e.orders.GetOrder(ctx, order.ID, strangerID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = e.orders.GetOrder(ctx, 9999, buyerID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderListings_Ordering(t *testing.T) {
	e := newEngine(t)
	seedBook(t, e.db, testISBN)
	listing := seedListing(t, e.db, sellerID, testISBN, 10, 2.34)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var placed []*models.Order
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		e.checkout.now = func() time.Time { return at }
		placed = append(placed, e.buy(t, buyerID, listing.ID, 1))
	}
	// 最早的和最新的都发货，中间的未发货
	require.NoError(t, e.orders.DeliverOrder(ctx, placed[0].ID, sellerID))
	require.NoError(t, e.orders.DeliverOrder(ctx, placed[2].ID, sellerID))

	purchases, err := e.orders.GetOrdersForBuyer(ctx, buyerID)
	require.NoError(t, err)
	require.Len(t, purchases, 3)
	assert.Equal(t, placed[1].ID, purchases[0].ID)
	assert.Equal(t, placed[2].ID, purchases[1].ID)
	assert.Equal(t, placed[0].ID, purchases[2].ID)

	sales, err := e.orders.GetOrdersForSeller(ctx, sellerID)
	require.NoError(t, err)
	require.Len(t, sales.Orders, 3)
	assert.Equal(t, placed[1].ID, sales.Orders[0].ID)
	assert.Equal(t, 7.02, sales.TotalRevenue)

	none, err := e.orders.GetOrdersForBuyer(ctx, strangerID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTotalRevenue(t *testing.T) {
	tests := []struct {
		name   string
		orders []models.Order
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []models.Order{{Quantity: 2, Price: 2.34}}, 4.68},
		{"mixed", []models.Order{{Quantity: 2, Price: 2.34}, {Quantity: 1, Price: 4.54}}, 9.22},
		{"float drift", []models.Order{{Quantity: 3, Price: 0.1}, {Quantity: 1, Price: 0.2}}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TotalRevenue(tt.orders))
		})
	}
}
