package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"scamazon_go/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CatalogService 书目服务
type CatalogService struct {
	db     *gorm.DB
	rdb    *redis.Client // 可为nil，缓存自动降级
	logger *zap.Logger
}

// NewCatalogService 创建书目服务实例
func NewCatalogService(db *gorm.DB, rdb *redis.Client, logger *zap.Logger) *CatalogService {
	return &CatalogService{db: db, rdb: rdb, logger: logger}
}

// CreateBookRequest 创建书目请求
type CreateBookRequest struct {
	ISBN        string  `json:"isbn" binding:"required,isbn"`
	Title       string  `json:"title" binding:"required,max=200"`
	Author      string  `json:"author" binding:"required,max=200"`
	Pages       int     `json:"pages" binding:"gte=0"`
	Rating      float64 `json:"rating" binding:"gte=0,lte=5"`
	Description string  `json:"description" binding:"max=2000"`
}

// ErrDuplicateISBN ISBN已存在
var ErrDuplicateISBN = errors.New("ISBN already exists")

// CreateBook 创建书目
func (cs *CatalogService) CreateBook(ctx context.Context, userID string, req *CreateBookRequest) (*models.Book, error) {
	isbn := normalizeISBN(req.ISBN)

	var count int64
	if err := cs.db.WithContext(ctx).Model(&models.Book{}).Where("isbn = ?", isbn).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check isbn: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateISBN
	}

	book := models.Book{
		ISBN:        isbn,
		Title:       req.Title,
		Author:      req.Author,
		Pages:       req.Pages,
		Rating:      req.Rating,
		Description: req.Description,
		CreatedBy:   userID,
	}
	if err := cs.db.WithContext(ctx).Create(&book).Error; err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	// 新书可能命中已缓存的搜索
	cs.clearSearchCaches(ctx)

	cs.logger.Info("book created", zap.String("isbn", book.ISBN), zap.String("user_id", userID))
	return &book, nil
}

// GetBook 获取书目详情（优先读Redis缓存）
func (cs *CatalogService) GetBook(ctx context.Context, isbn string) (*models.Book, error) {
	isbn = normalizeISBN(isbn)
	cacheKey := "book:" + isbn

	if cs.rdb != nil {
		if cached, err := cs.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var book models.Book
			if json.Unmarshal([]byte(cached), &book) == nil {
				return &book, nil
			}
		}
	}

	var book models.Book
	if err := cs.db.WithContext(ctx).First(&book, "isbn = ?", isbn).Error; err != nil {
		return nil, notFound(err, "book")
	}

	if cs.rdb != nil {
		if data, err := json.Marshal(book); err == nil {
			cs.rdb.Set(ctx, cacheKey, data, 10*time.Minute)
		}
	}
	return &book, nil
}

// SearchBooks 按书名、作者、ISBN子串搜索（任一字段匹配）
func (cs *CatalogService) SearchBooks(ctx context.Context, query string) ([]models.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Book{}, nil
	}
	cacheKey := "search:books:" + strings.ToLower(query)

	// 记录搜索关键词
	cs.recordSearchKeyword(ctx, query)

	if cs.rdb != nil {
		if cached, err := cs.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var books []models.Book
			if json.Unmarshal([]byte(cached), &books) == nil {
				return books, nil
			}
		}
	}

	pattern := "%" + query + "%"
	var books []models.Book
	if err := cs.db.WithContext(ctx).
		Where("title LIKE ? OR author LIKE ? OR isbn LIKE ?", pattern, pattern, pattern).
		Order("title ASC").
		Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}

	if cs.rdb != nil {
		if data, err := json.Marshal(books); err == nil {
			cs.rdb.Set(ctx, cacheKey, data, 5*time.Minute)
		}
	}
	return books, nil
}

// ListBooks 列出书目，author非空时按作者筛选
func (cs *CatalogService) ListBooks(ctx context.Context, author string) ([]models.Book, error) {
	query := cs.db.WithContext(ctx).Model(&models.Book{})
	if author != "" {
		query = query.Where("author = ?", author)
	}

	var books []models.Book
	if err := query.Order("title ASC").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// ListAuthors 去重后的作者列表
func (cs *CatalogService) ListAuthors(ctx context.Context) ([]string, error) {
	var authors []string
	if err := cs.db.WithContext(ctx).Model(&models.Book{}).
		Distinct("author").
		Order("author ASC").
		Pluck("author", &authors).Error; err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	return authors, nil
}

// GetHotSearchKeywords 热门搜索词
func (cs *CatalogService) GetHotSearchKeywords(ctx context.Context, limit int64) ([]string, error) {
	if cs.rdb == nil {
		return []string{}, nil
	}
	return cs.rdb.ZRevRange(ctx, "search:hot", 0, limit-1).Result()
}

// recordSearchKeyword 记录搜索关键词
func (cs *CatalogService) recordSearchKeyword(ctx context.Context, query string) {
	if cs.rdb == nil {
		return
	}
	cs.rdb.ZIncrBy(ctx, "search:hot", 1, strings.ToLower(query))
	cs.rdb.Expire(ctx, "search:hot", 24*time.Hour)
}

// clearSearchCaches 清除搜索缓存（模糊匹配）
func (cs *CatalogService) clearSearchCaches(ctx context.Context) {
	if cs.rdb == nil {
		return
	}

	iter := cs.rdb.Scan(ctx, 0, "search:books:*", 100).Iterator()
	for iter.Next(ctx) {
		cs.rdb.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		cs.logger.Warn("failed to clear search caches", zap.Error(err))
	}
}

// normalizeISBN 去掉连字符和空格
func normalizeISBN(isbn string) string {
	return strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn)))
}
