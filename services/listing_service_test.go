package services

import (
	"context"
	"testing"

	"scamazon_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCreateListing(t *testing.T) {
	db := newTestDB(t)
	ls := NewListingService(db, zaptest.NewLogger(t))
	images := NewImageService(db)
	seedBook(t, db, testISBN)
	ctx := context.Background()

	image, err := images.RecordImage(ctx, sellerID, "/uploads/cover.jpg", "cover.jpg", 2048)
	require.NoError(t, err)

	listing, err := ls.CreateListing(ctx, sellerID, &CreateListingRequest{
		ISBN: "978-1-399-61338-5", Quantity: 3, Price: 4.24, ImageID: &image.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, testISBN, listing.BookISBN)
	assert.Equal(t, "Book "+testISBN, listing.Label, "label defaults to the book title")
	assert.Equal(t, sellerID, listing.SellerID)

	got, err := ls.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Image)
	assert.Equal(t, "cover.jpg", got.Image.FileName)
	assert.Equal(t, testISBN, got.Book.ISBN)

	tests := []struct {
		name string
		req  CreateListingRequest
		err  error
	}{
		{"unknown book", CreateListingRequest{ISBN: "0306406152", Quantity: 1}, ErrNotFound},
		{"unknown image", CreateListingRequest{ISBN: testISBN, Quantity: 1, ImageID: func() *uint { id := uint(99); return &id }()}, ErrNotFound},
		{"zero quantity", CreateListingRequest{ISBN: testISBN, Quantity: 0}, ErrInvalidListing},
		{"negative price", CreateListingRequest{ISBN: testISBN, Quantity: 1, Price: -1}, ErrInvalidListing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ls.CreateListing(ctx, sellerID, &tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.Equal(t, int64(1), countRows(t, db, &models.Listing{}, ""))
}

func TestListListings(t *testing.T) {
	db := newTestDB(t)
	ls := NewListingService(db, zaptest.NewLogger(t))
	seedBook(t, db, testISBN)
	seedBook(t, db, testISBN2)
	cheap := seedListing(t, db, sellerID, testISBN, 1, 2)
	pricey := seedListing(t, db, sellerID2, testISBN, 1, 8)
	seedListing(t, db, sellerID, testISBN2, 1, 5)
	ctx := context.Background()

	listings, err := ls.ListListings(ctx, testISBN)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, cheap.ID, listings[0].ID)
	assert.Equal(t, pricey.ID, listings[1].ID)

	all, err := ls.ListListings(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := ls.ListSellerListings(ctx, sellerID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestDeleteListing(t *testing.T) {
	db := newTestDB(t)
	ls := NewListingService(db, zaptest.NewLogger(t))
	seedBook(t, db, testISBN)
	listing := seedListing(t, db, sellerID, testISBN, 2, 3)
	entry := seedCartEntry(t, db, buyerID, listing.ID, 1)
	ctx := context.Background()

	assert.ErrorIs(t, ls.DeleteListing(ctx, sellerID2, listing.ID), ErrForbidden)
	require.NoError(t, ls.DeleteListing(ctx, sellerID, listing.ID))
	assert.ErrorIs(t, ls.DeleteListing(ctx, sellerID, listing.ID), ErrNotFound)

	_, err := ls.GetListing(ctx, listing.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	// 购物车条目保留，结账时报冲突
	assert.Equal(t, int64(1), countRows(t, db, &models.CartEntry{}, "id = ?", entry.ID))
}

func TestImageService(t *testing.T) {
	db := newTestDB(t)
	images := NewImageService(db)
	ctx := context.Background()

	image, err := images.RecordImage(ctx, sellerID, "/uploads/a.png", "a.png", 10)
	require.NoError(t, err)

	got, err := images.GetImage(ctx, image.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/a.png", got.Path)
	assert.Equal(t, int64(10), got.Size)

	_, err = images.GetImage(ctx, image.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)
}
