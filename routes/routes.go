package routes

import (
	"scamazon_go/controllers"
	"scamazon_go/metrics"
	"scamazon_go/middleware"
	"scamazon_go/models"
	"scamazon_go/websocket"

	"github.com/gin-gonic/gin"
)

// Handlers 路由依赖
type Handlers struct {
	Auth     *controllers.AuthController
	Books    *controllers.BookController
	Listings *controllers.ListingController
	Images   *controllers.ImageController
	Cart     *controllers.CartController
	Orders   *controllers.OrderController

	Authenticator middleware.Authenticator
	AccessLogger  *middleware.AccessLogger
	Hub           *websocket.Hub

	CORSOrigins string
	UploadPath  string
}

// SetupRoutes 设置路由
func SetupRoutes(r *gin.Engine, h *Handlers) {
	// 应用全局中间件
	r.Use(middleware.CORS(h.CORSOrigins))
	r.Use(middleware.Metrics())
	if h.AccessLogger != nil {
		r.Use(h.AccessLogger.Middleware())
	}

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	if h.UploadPath != "" {
		r.Static("/uploads", h.UploadPath)
	}

	authed := middleware.AuthMiddleware(h.Authenticator)
	seller := middleware.RequireRole(models.RoleSeller)

	api := r.Group("/api")
	{
		// ====== 认证路由 ======
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/logout", authed, h.Auth.Logout)
			auth.GET("/me", authed, h.Auth.Me)
		}

		// ====== 书目路由 ======
		books := api.Group("/books")
		{
			books.GET("", h.Books.GetBooks)
			books.GET("/search", h.Books.SearchBooks)
			books.GET("/hot", h.Books.GetHotSearchKeywords)
			books.GET("/authors", h.Books.GetAuthors)
			books.GET("/:isbn", h.Books.GetBook)
			books.POST("", authed, seller, h.Books.CreateBook)
		}

		// ====== 发布路由 ======
		listings := api.Group("/listings")
		{
			listings.GET("", h.Listings.GetListings)
			listings.GET("/mine", authed, seller, h.Listings.GetMyListings)
			listings.GET("/:id", h.Listings.GetListing)
			listings.POST("", authed, seller, h.Listings.CreateListing)
			listings.DELETE("/:id", authed, seller, h.Listings.DeleteListing)
		}

		api.POST("/images", authed, seller, h.Images.UploadImage)

		// ====== 购物车路由 ======
		cart := api.Group("/cart", authed)
		{
			cart.GET("", h.Cart.GetCart)
			cart.POST("/listings/:listing_id", h.Cart.AddToCart)
			cart.DELETE("/listings/:listing_id", h.Cart.RemoveFromCart)
			cart.POST("/entries/:id/increase", h.Cart.IncreaseQuantity)
			cart.POST("/entries/:id/decrease", h.Cart.DecreaseQuantity)
		}

		api.POST("/checkout", authed, h.Orders.Checkout)

		// ====== 订单路由 ======
		orders := api.Group("/orders", authed)
		{
			orders.GET("/purchases", h.Orders.GetPurchases)
			orders.GET("/sales", seller, h.Orders.GetSales)
			orders.GET("/:id", h.Orders.GetOrder)
			orders.POST("/:id/return", h.Orders.ReturnOrder)
			orders.POST("/:id/deliver", seller, h.Orders.DeliverOrder)
		}
	}

	// ====== WebSocket路由 ======
	if h.Hub != nil {
		r.GET("/ws/orders", authed, h.Hub.HandleConnection)
	}
}
