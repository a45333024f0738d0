package controllers

import (
	"scamazon_go/middleware"
	"scamazon_go/services"
	"scamazon_go/utils"

	"github.com/gin-gonic/gin"
)

// ListingController 发布控制器
type ListingController struct {
	listings *services.ListingService
}

// NewListingController 创建发布控制器实例
func NewListingController(listings *services.ListingService) *ListingController {
	return &ListingController{listings: listings}
}

// GetListings 获取发布列表
// @Summary 获取发布列表
// @Tags listings
// @Param isbn query string false "按书目筛选"
// @Router /api/listings [get]
func (lc *ListingController) GetListings(c *gin.Context) {
	listings, err := lc.listings.ListListings(c.Request.Context(), c.Query("isbn"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, listings)
}

// GetListing 获取发布详情
func (lc *ListingController) GetListing(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		utils.BadRequest(c, err)
		return
	}

	listing, err := lc.listings.GetListing(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, listing)
}

// GetMyListings 当前卖家的发布
func (lc *ListingController) GetMyListings(c *gin.Context) {
	listings, err := lc.listings.ListSellerListings(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, listings)
}

// CreateListing 创建发布
// @Summary 创建发布
// @Tags listings
// @Security Bearer
// @Router /api/listings [post]
func (lc *ListingController) CreateListing(c *gin.Context) {
	var req services.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err)
		return
	}

	listing, err := lc.listings.CreateListing(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, listing)
}

// DeleteListing 下架发布
func (lc *ListingController) DeleteListing(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		utils.BadRequest(c, err)
		return
	}

	if err := lc.listings.DeleteListing(c.Request.Context(), middleware.UserID(c), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "listing removed", gin.H{"id": id})
}
