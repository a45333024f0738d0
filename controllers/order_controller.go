package controllers

import (
	"scamazon_go/middleware"
	"scamazon_go/models"
	"scamazon_go/services"
	"scamazon_go/utils"

	"github.com/gin-gonic/gin"
)

// OrderController 结账与订单控制器
type OrderController struct {
	checkout *services.CheckoutService
	orders   *services.OrderService
}

// NewOrderController 创建订单控制器实例
func NewOrderController(checkout *services.CheckoutService, orders *services.OrderService) *OrderController {
	return &OrderController{checkout: checkout, orders: orders}
}

// OrderView 订单展示（支付凭证只显示后四位）
type OrderView struct {
	models.Order
	PaymentLast4 string  `json:"payment_last4"`
	TotalPayment float64 `json:"total_payment"`
}

func newOrderViews(orders []models.Order) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, OrderView{
			Order:        orders[i],
			PaymentLast4: orders[i].PaymentLast4(),
			TotalPayment: orders[i].TotalPayment(),
		})
	}
	return views
}

// Checkout 结账：整个购物车生成订单
// @Summary 结账
// @Tags orders
// @Security Bearer
// @Param request body services.PaymentDetails true "支付信息"
// @Router /api/checkout [post]
func (oc *OrderController) Checkout(c *gin.Context) {
	var req services.PaymentDetails
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err)
		return
	}

	ids, err := oc.checkout.Checkout(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if len(ids) == 0 {
		utils.SuccessWithMessage(c, "cart is empty", gin.H{"order_ids": ids})
		return
	}
	utils.Created(c, gin.H{"order_ids": ids})
}

// GetPurchases 买家订单
func (oc *OrderController) GetPurchases(c *gin.Context) {
	orders, err := oc.orders.GetOrdersForBuyer(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, newOrderViews(orders))
}

// GetSales 卖家订单及总收入
func (oc *OrderController) GetSales(c *gin.Context) {
	sales, err := oc.orders.GetOrdersForSeller(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, gin.H{
		"orders":        newOrderViews(sales.Orders),
		"total_revenue": sales.TotalRevenue,
	})
}

// GetOrder 订单详情
func (oc *OrderController) GetOrder(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		utils.BadRequest(c, err)
		return
	}

	order, err := oc.orders.GetOrder(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, newOrderViews([]models.Order{*order})[0])
}

// ReturnOrder 买家退货
// @Summary 退货
// @Tags orders
// @Security Bearer
// @Router /api/orders/{id}/return [post]
func (oc *OrderController) ReturnOrder(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		utils.BadRequest(c, err)
		return
	}

	if err := oc.orders.ReturnOrder(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "order returned", gin.H{"id": id})
}

// DeliverOrder 卖家发货
// @Summary 发货
// @Tags orders
// @Security Bearer
// @Router /api/orders/{id}/deliver [post]
func (oc *OrderController) DeliverOrder(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		utils.BadRequest(c, err)
		return
	}

	if err := oc.orders.DeliverOrder(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "order delivered", gin.H{"id": id})
}
