package services

import (
	"context"
	"testing"

	"scamazon_go/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newCatalog(t *testing.T, rdb *redis.Client) *CatalogService {
	return NewCatalogService(newTestDB(t), rdb, zaptest.NewLogger(t))
}

func createBooks(t *testing.T, cs *CatalogService) {
	t.Helper()
	reqs := []CreateBookRequest{
		{ISBN: "978-1-399-61338-5", Title: "Project Hail Mary", Author: "Andy Weir", Pages: 496, Rating: 4.8},
		{ISBN: "9781250899651", Title: "The Martian", Author: "Andy Weir", Pages: 384, Rating: 4.6},
		{ISBN: "0-306-40615-2", Title: "Dune", Author: "Frank Herbert", Pages: 612, Rating: 4.3},
	}
	for i := range reqs {
		_, err := cs.CreateBook(context.Background(), sellerID, &reqs[i])
		require.NoError(t, err)
	}
}

func TestCreateBook(t *testing.T) {
	cs := newCatalog(t, nil)
	ctx := context.Background()

	book, err := cs.CreateBook(ctx, sellerID, &CreateBookRequest{
		ISBN: "978-1-399-61338-5", Title: "Project Hail Mary", Author: "Andy Weir", Pages: 496, Rating: 4.8,
	})
	require.NoError(t, err)
	assert.Equal(t, testISBN, book.ISBN)
	assert.Equal(t, sellerID, book.CreatedBy)

	_, err = cs.CreateBook(ctx, sellerID, &CreateBookRequest{ISBN: testISBN, Title: "Again", Author: "Someone"})
	assert.ErrorIs(t, err, ErrDuplicateISBN)

	_, err = cs.GetBook(ctx, "0000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchBooks(t *testing.T) {
	cs := newCatalog(t, nil)
	createBooks(t, cs)
	ctx := context.Background()

	tests := []struct {
		query string
		want  []string
	}{
		{"weir", []string{"Project Hail Mary", "The Martian"}},
		{"MARTIAN", []string{"The Martian"}},
		{"0306406", []string{"Dune"}},
		{"tolkien", nil},
		{"   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			books, err := cs.SearchBooks(ctx, tt.query)
			require.NoError(t, err)
			var titles []string
			for _, b := range books {
				titles = append(titles, b.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestCatalogBrowse(t *testing.T) {
	cs := newCatalog(t, nil)
	createBooks(t, cs)
	ctx := context.Background()

	authors, err := cs.ListAuthors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Andy Weir", "Frank Herbert"}, authors)

	books, err := cs.ListBooks(ctx, "Andy Weir")
	require.NoError(t, err)
	assert.Len(t, books, 2)

	all, err := cs.ListBooks(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCatalogCache(t *testing.T) {
	rdb := newMiniRedis(t)
	cs := newCatalog(t, rdb)
	createBooks(t, cs)
	ctx := context.Background()

	book, err := cs.GetBook(ctx, testISBN)
	require.NoError(t, err)
	require.Equal(t, "Project Hail Mary", book.Title)

	// 绕过服务直接改库，缓存仍返回旧值
	require.NoError(t, cs.db.Model(&models.Book{}).Where("isbn = ?", testISBN).
		UpdateColumn("title", "Renamed").Error)
	cached, err := cs.GetBook(ctx, testISBN)
	require.NoError(t, err)
	assert.Equal(t, "Project Hail Mary", cached.Title)

	results, err := cs.SearchBooks(ctx, "weir")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// 新书使搜索缓存失效
	_, err = cs.CreateBook(ctx, sellerID, &CreateBookRequest{ISBN: "9780553418026", Title: "Artemis", Author: "Andy Weir"})
	require.NoError(t, err)
	results, err = cs.SearchBooks(ctx, "Weir")
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestHotSearchKeywords(t *testing.T) {
	ctx := context.Background()

	keywords, err := newCatalog(t, nil).GetHotSearchKeywords(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, keywords)

	cs := newCatalog(t, newMiniRedis(t))
	createBooks(t, cs)
	for _, q := range []string{"dune", "Weir", "weir", "martian", "weir", "Dune"} {
		_, err := cs.SearchBooks(ctx, q)
		require.NoError(t, err)
	}

	keywords, err = cs.GetHotSearchKeywords(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"weir", "dune"}, keywords)
}
