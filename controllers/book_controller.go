package controllers

import (
	"net/http"
	"strconv"

	"scamazon_go/middleware"
	"scamazon_go/services"
	"scamazon_go/utils"

	"github.com/gin-gonic/gin"
)

// BookController 书目控制器
type BookController struct {
	catalog *services.CatalogService
}

// NewBookController 创建书目控制器实例
func NewBookController(catalog *services.CatalogService) *BookController {
	return &BookController{catalog: catalog}
}

// GetBooks 获取书目列表
// @Summary 获取书目列表
// @Tags books
// @Param author query string false "按作者筛选"
// @Router /api/books [get]
func (bc *BookController) GetBooks(c *gin.Context) {
	books, err := bc.catalog.ListBooks(c.Request.Context(), c.Query("author"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, books)
}

// SearchBooks 按书名、作者、ISBN搜索
// @Summary 搜索书目
// @Tags books
// @Param q query string true "搜索关键词"
// @Router /api/books/search [get]
func (bc *BookController) SearchBooks(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		utils.Error(c, http.StatusBadRequest, utils.CodeError, "search query is required")
		return
	}

	books, err := bc.catalog.SearchBooks(c.Request.Context(), query)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, gin.H{
		"books": books,
		"total": len(books),
		"query": query,
	})
}

// GetHotSearchKeywords 热门搜索词
func (bc *BookController) GetHotSearchKeywords(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)
	if err != nil || limit < 1 {
		limit = 10
	}
	keywords, err := bc.catalog.GetHotSearchKeywords(c.Request.Context(), limit)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, gin.H{"keywords": keywords})
}

// GetAuthors 作者列表
func (bc *BookController) GetAuthors(c *gin.Context) {
	authors, err := bc.catalog.ListAuthors(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, authors)
}

// GetBook 书目详情
// @Summary 获取书目详情
// @Tags books
// @Param isbn path string true "ISBN"
// @Router /api/books/{isbn} [get]
func (bc *BookController) GetBook(c *gin.Context) {
	book, err := bc.catalog.GetBook(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, book)
}

// CreateBook 卖家录入书目
// @Summary 创建书目
// @Tags books
// @Security Bearer
// @Router /api/books [post]
func (bc *BookController) CreateBook(c *gin.Context) {
	var req services.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err)
		return
	}

	book, err := bc.catalog.CreateBook(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, book)
}
