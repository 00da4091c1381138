package router

import (
	"github.com/gin-gonic/gin"
	"github.com/milkbites/milkbites-backend/config"
	"github.com/milkbites/milkbites-backend/internal/app/controller"
	"github.com/milkbites/milkbites-backend/internal/middleware"
)

type Router struct {
	authController       *controller.AuthController
	productController    *controller.ProductController
	cartController       *controller.CartController
	guestCartController  *controller.GuestCartController
	orderController      *controller.OrderController
	discountController   *controller.DiscountController
	addressController    *controller.AddressController
	settingsController   *controller.SettingsController
	cartSocketController *controller.CartSocketController
	authMiddleware       *middleware.AuthMiddleware
	config               *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	guestCartController *controller.GuestCartController,
	orderController *controller.OrderController,
	discountController *controller.DiscountController,
	addressController *controller.AddressController,
	settingsController *controller.SettingsController,
	cartSocketController *controller.CartSocketController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:       authController,
		productController:    productController,
		cartController:       cartController,
		guestCartController:  guestCartController,
		orderController:      orderController,
		discountController:   discountController,
		addressController:    addressController,
		settingsController:   settingsController,
		cartSocketController: cartSocketController,
		authMiddleware:       authMiddleware,
		config:               cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "MILKBITES API is running",
		})
	})

	// Cart badge push channel, shared by users and guests
	router.GET("/ws/cart", r.authMiddleware.OptionalAuthenticate(), r.cartSocketController.Subscribe)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/admin/login", r.authController.AdminLogin)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
			auth.PUT("/me", r.authMiddleware.Authenticate(), r.authController.UpdateMe)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.ListProducts)
			products.GET("/featured", r.productController.GetFeaturedProducts)
			products.GET("/:id", r.productController.GetProductByID)
		}

		cart := v1.Group("/cart")
		cart.Use(r.authMiddleware.Authenticate())
		{
			cart.GET("", r.cartController.GetCart)
			cart.GET("/count", r.cartController.GetCartCount)
			cart.POST("", r.cartController.AddToCart)
			cart.POST("/merge", r.cartController.MergeGuestCart)
			cart.PUT("/:id", r.cartController.UpdateCartItem)
			cart.DELETE("/product/:productId", r.cartController.RemoveProduct)
			cart.DELETE("", r.cartController.ClearCart)
		}

		guestCart := v1.Group("/guest-cart")
		{
			guestCart.GET("", r.guestCartController.GetCart)
			guestCart.GET("/count", r.guestCartController.GetCartCount)
			guestCart.POST("", r.guestCartController.AddToCart)
			guestCart.DELETE("/product/:productId", r.guestCartController.RemoveProduct)
		}

		orders := v1.Group("/orders")
		orders.Use(r.authMiddleware.Authenticate())
		{
			orders.GET("", r.orderController.GetMyOrders)
			orders.GET("/:id", r.orderController.GetOrder)
			orders.POST("", r.orderController.CreateOrder)
			orders.POST("/:id/payment-proof", r.orderController.UploadPaymentProof)
		}

		discounts := v1.Group("/discounts")
		{
			discounts.POST("/validate", r.discountController.Validate)
		}

		addresses := v1.Group("/addresses")
		addresses.Use(r.authMiddleware.Authenticate())
		{
			addresses.GET("", r.addressController.ListAddresses)
			addresses.POST("", r.addressController.CreateAddress)
			addresses.PUT("/:id", r.addressController.UpdateAddress)
			addresses.DELETE("/:id", r.addressController.DeleteAddress)
			addresses.PUT("/:id/default", r.addressController.SetDefaultAddress)
		}

		v1.GET("/site-settings", r.settingsController.GetSiteSettings)

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole("admin"))
		{
			admin.GET("/products", r.productController.ListAllProducts)
			admin.POST("/products", r.productController.CreateProduct)
			admin.POST("/products/image", r.productController.UploadProductImage)
			admin.POST("/products/image/presign", r.productController.PresignProductImage)
			admin.PUT("/products/:id", r.productController.UpdateProduct)
			admin.DELETE("/products/:id", r.productController.DeleteProduct)

			admin.GET("/orders", r.orderController.ListOrders)
			admin.GET("/orders/export/csv", r.orderController.ExportCSV)
			admin.GET("/orders/export/xlsx", r.orderController.ExportXLSX)
			admin.GET("/orders/number/:orderNumber", r.orderController.GetOrderByNumber)
			admin.GET("/orders/:id", r.orderController.GetOrderAdmin)
			admin.PUT("/orders/:id/status", r.orderController.UpdateOrderStatus)

			admin.GET("/discounts", r.discountController.ListDiscounts)
			admin.POST("/discounts", r.discountController.CreateDiscount)
			admin.PUT("/discounts/:id", r.discountController.UpdateDiscount)
			admin.DELETE("/discounts/:id", r.discountController.DeleteDiscount)

			admin.GET("/settings", r.settingsController.GetSettings)
			admin.PUT("/settings", r.settingsController.UpdateSettings)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Guest-Token")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
