package controllers

import (
	"context"

	"scamazon_go/middleware"
	"scamazon_go/services"
	"scamazon_go/utils"

	"github.com/gin-gonic/gin"
)

// CartController 购物车控制器
type CartController struct {
	cart *services.CartService
}

// NewCartController 创建购物车控制器实例
func NewCartController(cart *services.CartService) *CartController {
	return &CartController{cart: cart}
}

// GetCart 查看购物车
// @Summary 查看购物车
// @Tags cart
// @Security Bearer
// @Router /api/cart [get]
func (cc *CartController) GetCart(c *gin.Context) {
	view, err := cc.cart.GetCart(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, view)
}

// AddToCart 加入购物车
func (cc *CartController) AddToCart(c *gin.Context) {
	listingID, err := parseIDParam(c, "listing_id")
	if err != nil {
		utils.BadRequest(c, err)
		return
	}

	entry, result, err := cc.cart.AddToCart(c.Request.Context(), middleware.UserID(c), listingID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, gin.H{"entry": entry, "result": result})
}

// RemoveFromCart 移出购物车
func (cc *CartController) RemoveFromCart(c *gin.Context) {
	listingID, err := parseIDParam(c, "listing_id")
	if err != nil {
		utils.BadRequest(c, err)
		return
	}

	if err := cc.cart.RemoveFromCart(c.Request.Context(), middleware.UserID(c), listingID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "removed from cart", nil)
}

// IncreaseQuantity 条目数量+1，到达库存上限时 result=at_capacity
func (cc *CartController) IncreaseQuantity(c *gin.Context) {
	cc.adjust(c, cc.cart.IncreaseQuantity)
}

// DecreaseQuantity 条目数量-1，降到0时 result=removed
func (cc *CartController) DecreaseQuantity(c *gin.Context) {
	cc.adjust(c, cc.cart.DecreaseQuantity)
}

type adjustFunc func(ctx context.Context, buyerID string, entryID uint) (services.CartAdjustment, error)

func (cc *CartController) adjust(c *gin.Context, fn adjustFunc) {
	entryID, err := parseIDParam(c, "id")
	if err != nil {
		utils.BadRequest(c, err)
		return
	}

	result, err := fn(c.Request.Context(), middleware.UserID(c), entryID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, gin.H{"entry_id": entryID, "result": result})
}
