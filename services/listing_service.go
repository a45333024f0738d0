package services

import (
	"context"
	"fmt"

	"scamazon_go/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListingService 发布服务
type ListingService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewListingService 创建发布服务实例
func NewListingService(db *gorm.DB, logger *zap.Logger) *ListingService {
	return &ListingService{db: db, logger: logger}
}

// CreateListingRequest 创建发布请求
type CreateListingRequest struct {
	ISBN     string  `json:"isbn" binding:"required,isbn"`
	Label    string  `json:"label" binding:"max=100"`
	Quantity int     `json:"quantity" binding:"required,gte=1"`
	Price    float64 `json:"price" binding:"gte=0"`
	ImageID  *uint   `json:"image_id"`
}

// CreateListing 创建发布（书目必须已存在）
func (ls *ListingService) CreateListing(ctx context.Context, sellerID string, req *CreateListingRequest) (*models.Listing, error) {
	if req.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidListing)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidListing)
	}

	isbn := normalizeISBN(req.ISBN)
	var book models.Book
	if err := ls.db.WithContext(ctx).First(&book, "isbn = ?", isbn).Error; err != nil {
		return nil, notFound(err, "book")
	}

	if req.ImageID != nil {
		var image models.Image
		if err := ls.db.WithContext(ctx).First(&image, "id = ?", *req.ImageID).Error; err != nil {
			return nil, notFound(err, "image")
		}
	}

	label := req.Label
	if label == "" {
		label = book.Title
	}

	listing := models.Listing{
		Label:    label,
		BookISBN: isbn,
		Quantity: req.Quantity,
		SellerID: sellerID,
		Price:    req.Price,
		ImageID:  req.ImageID,
	}
	if err := ls.db.WithContext(ctx).Create(&listing).Error; err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	listing.Book = book

	ls.logger.Info("listing created",
		zap.Uint("listing_id", listing.ID),
		zap.String("isbn", isbn),
		zap.String("seller_id", sellerID),
		zap.Int("quantity", listing.Quantity))
	return &listing, nil
}

// GetListing 获取发布详情
func (ls *ListingService) GetListing(ctx context.Context, listingID uint) (*models.Listing, error) {
	var listing models.Listing
	if err := ls.db.WithContext(ctx).
		Preload("Book").
		Preload("Image").
		First(&listing, "id = ?", listingID).Error; err != nil {
		return nil, notFound(err, "listing")
	}
	return &listing, nil
}

// ListListings 列出发布，isbn非空时只列该书
func (ls *ListingService) ListListings(ctx context.Context, isbn string) ([]models.Listing, error) {
	query := ls.db.WithContext(ctx).Preload("Book").Preload("Image")
	if isbn != "" {
		query = query.Where("isbn = ?", normalizeISBN(isbn))
	}

	var listings []models.Listing
	if err := query.Order("price ASC, id ASC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, nil
}

// ListSellerListings 卖家自己的发布
func (ls *ListingService) ListSellerListings(ctx context.Context, sellerID string) ([]models.Listing, error) {
	var listings []models.Listing
	if err := ls.db.WithContext(ctx).
		Preload("Book").
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to list seller listings: %w", err)
	}
	return listings, nil
}

// DeleteListing 卖家下架发布
// 引用它的购物车条目保留，结账时会报库存冲突
func (ls *ListingService) DeleteListing(ctx context.Context, sellerID string, listingID uint) error {
	return ls.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := lockListing(tx, listingID)
		if err != nil {
			return notFound(err, "listing")
		}
		if listing.SellerID != sellerID {
			return fmt.Errorf("%w: listing %d belongs to another seller", ErrForbidden, listingID)
		}
		if err := tx.Delete(&models.Listing{}, listingID).Error; err != nil {
			return fmt.Errorf("failed to delete listing: %w", err)
		}

		ls.logger.Info("listing removed by seller",
			zap.Uint("listing_id", listingID),
			zap.String("seller_id", sellerID))
		return nil
	})
}
