package routes

import (
	"net/http"

	"github.com/01moynul/bazaar-golang/internal/config"
	"github.com/01moynul/bazaar-golang/internal/handlers"
	"github.com/01moynul/bazaar-golang/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(h *handlers.Handlers, cfg *config.Config, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(h.Log, h.Metrics))

	// --- APPLY THE CORS GUARD ---
	router.Use(middleware.CORSMiddleware(cfg.HTTP.AllowedOrigin))

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.Static("/uploads", cfg.Uploads.Dir)

	requireAuth := middleware.AuthMiddleware(h.Tokens, h.Store)
	adminOnly := middleware.AdminMiddleware()
	sellerOrAdmin := middleware.SellerOrAdminMiddleware()

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/register", h.Register)
		v1.POST("/login", h.Login)
		v1.POST("/refresh-token", h.RefreshToken)

		// --- Public Catalog Routes ---
		v1.GET("/products", h.ListProducts)
		v1.GET("/products/:id", h.GetProduct)
		v1.GET("/shops", h.ListShops)
		v1.GET("/shops/:id", h.GetShop)
		v1.GET("/categories", h.ListCategories)
		v1.GET("/categories/:id", h.GetCategory)
		v1.GET("/countries", h.ListCountries)
		v1.GET("/cities", h.ListCities)
		v1.GET("/comments", h.ListComments)
		v1.GET("/comments/:id", h.GetComment)
		v1.GET("/ratings/:id", h.GetRating)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(requireAuth)
		{
			auth.POST("/change-password", h.ChangePassword)

			// Users
			auth.GET("/users/:id", h.GetUser)
			auth.PUT("/users/:id", h.UpdateUser)
			auth.DELETE("/users/:id", h.DeactivateUser)

			// Addresses
			auth.POST("/addresses", h.CreateAddress)
			auth.GET("/addresses/:id", h.GetAddress)
			auth.PUT("/addresses/:id", h.UpdateAddress)
			auth.DELETE("/addresses/:id", h.DeactivateAddress)

			// Products & shops (ownership checked per object)
			auth.PUT("/products/:id", h.UpdateProduct)
			auth.DELETE("/products/:id", h.DeactivateProduct)
			auth.PUT("/shops/:id", h.UpdateShop)
			auth.DELETE("/shops/:id", h.DeactivateShop)

			// Wishlist
			auth.GET("/wishlist", h.ListWishlist)
			auth.POST("/wishlist", h.AddToWishlist)
			auth.DELETE("/wishlist/:id", h.RemoveFromWishlist)

			// Orders
			auth.GET("/orders/mine", h.ListMyOrders)
			auth.POST("/orders", h.CreateOrder)
			auth.GET("/orders/:id", h.GetOrder)
			auth.PUT("/orders/:id", h.UpdateOrder)
			auth.DELETE("/orders/:id", h.DeactivateOrder)
			auth.POST("/orders/:id/apply-coupon", h.ApplyCoupon)

			auth.GET("/order-items/:id", h.GetOrderItem)
			auth.PUT("/order-items/:id", h.UpdateOrderItem)
			auth.DELETE("/order-items/:id", h.DeactivateOrderItem)

			auth.GET("/deliveries", h.ListDeliveries)
			auth.GET("/deliveries/:id", h.GetDelivery)

			// Invoices
			auth.GET("/invoices", h.ListInvoices)
			auth.GET("/invoices/:id", h.GetInvoice)

			// Interactions
			auth.POST("/comments", h.CreateComment)
			auth.PUT("/comments/:id", h.UpdateComment)
			auth.DELETE("/comments/:id", h.DeactivateComment)
			auth.POST("/ratings", h.CreateRating)
		}

		// --- Seller Routes (Seller or Admin) ---
		seller := v1.Group("/")
		seller.Use(requireAuth, sellerOrAdmin)
		{
			seller.POST("/shops", h.CreateShop)
			seller.POST("/products", h.CreateProduct)
			seller.POST("/upload", h.UploadImage(cfg.Uploads))
		}

		// --- Admin-Only Routes ---
		admin := v1.Group("/")
		admin.Use(requireAuth, adminOnly)
		{
			admin.GET("/users", h.ListUsers)
			admin.PATCH("/users/:id/role", h.SetUserRole)
			admin.GET("/addresses", h.ListAddresses)

			admin.PATCH("/shops/:id/approve", h.ApproveShop)
			admin.PATCH("/shops/:id/reject", h.RejectShop)

			admin.POST("/categories", h.CreateCategory)
			admin.PUT("/categories/:id", h.UpdateCategory)
			admin.DELETE("/categories/:id", h.DeactivateCategory)

			admin.GET("/orders", h.ListOrders)
			admin.GET("/order-items", h.ListOrderItems)

			admin.POST("/deliveries", h.CreateDelivery)
			admin.DELETE("/deliveries/:id", h.DeactivateDelivery)

			admin.GET("/coupons", h.ListCoupons)
			admin.GET("/coupons/:id", h.GetCoupon)
			admin.POST("/coupons", h.CreateCoupon)
			admin.DELETE("/coupons/:id", h.DeactivateCoupon)

			admin.POST("/invoices/create-from-order", h.CreateInvoiceFromOrder)
			admin.PATCH("/invoices/:id", h.UpdateInvoiceStatus)
		}
	}

	return router
}
