package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/bakery/pkg/auth"
	"github.com/example/bakery/pkg/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const defaultMaxBody = 1 << 20

type Gateway struct {
	config *config.Config
	deps   Deps
	logger *zap.Logger
	router *gin.Engine
	server *http.Server
	now    func() time.Time
}

func NewGateway(cfg *config.Config, deps Deps, logger *zap.Logger) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))
	router.Use(cors.New(corsConfig(cfg.HTTP.AllowedOrigins)))

	g := &Gateway{
		config: cfg,
		deps:   deps,
		logger: logger,
		router: router,
		now:    time.Now,
	}
	g.SetupRoutes()
	return g
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", "Idempotency-Key")
	c.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	c.MaxAge = 12 * time.Hour
	return c
}

// Handler exposes the router, mostly for tests.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/health", g.health)
	g.router.GET("/ready", g.ready)

	if g.config.Uploads.Dir != "" && g.config.Uploads.PublicPath != "" {
		g.router.Static(g.config.Uploads.PublicPath, g.config.Uploads.Dir)
	}

	root := g.router.Group("/api")
	api := root.Group("", bodyLimit(g.config.HTTP.MaxBodyBytes))
	requireUser := auth.RequireUser(g.deps.Tokens)

	// Catalog
	api.GET("/cakes", g.listCakes)
	api.GET("/cakes/search", g.searchCakes)
	api.GET("/cakes/featured", g.featuredCakes)
	api.GET("/cakes/:id", g.getCake)
	api.POST("/cakes/:id/reviews", requireUser, g.addReview)
	api.GET("/categories", g.listCategories)
	api.GET("/categories/:slug/cakes", g.categoryCakes)

	// Public content
	api.GET("/banners", g.listBanners)
	api.GET("/news", g.listNews)
	api.GET("/news/:slug", g.getNews)
	api.GET("/addons", g.listAddons)
	api.GET("/locations", g.listLocations)
	api.GET("/settings/public", g.publicSettings)
	api.POST("/newsletter", g.subscribe)

	// Auth
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/google", g.googleLogin)
		authGroup.POST("/refresh", g.refreshToken)
		authGroup.POST("/admin/login", g.adminLogin)
	}

	// Checkout
	api.POST("/delivery/check", g.checkDelivery)
	api.POST("/coupons/apply", g.applyCoupon)
	api.POST("/payment/webhook", g.paymentWebhook)

	user := api.Group("", requireUser)
	{
		user.GET("/cart", g.getCart)
		user.PUT("/cart", g.replaceCart)
		user.DELETE("/cart", g.clearCart)
		user.POST("/cart/items", g.addCartItem)
		user.PATCH("/cart/items/:index", g.updateCartItem)
		user.DELETE("/cart/items/:index", g.removeCartItem)
		user.POST("/cart/addons", g.setCartAddon)

		user.POST("/checkout/quote", g.quote)
		user.POST("/orders", g.placeOrder)
		user.POST("/payment/create", g.createPayment)
		user.POST("/payment/verify", g.verifyPayment)

		user.GET("/me", g.getMe)
		user.PUT("/me", g.updateMe)
		user.GET("/me/addresses", g.listAddresses)
		user.POST("/me/addresses", g.addAddress)
		user.PUT("/me/addresses/:id", g.updateAddress)
		user.DELETE("/me/addresses/:id", g.removeAddress)
		user.POST("/me/addresses/:id/default", g.defaultAddress)
		user.GET("/me/orders", g.myOrders)
		user.GET("/me/orders/:id", g.myOrder)
		user.POST("/me/orders/:id/cancel", g.cancelOrder)

		user.GET("/wishlist", g.getWishlist)
		user.POST("/wishlist/:cakeId", g.addWishlist)
		user.DELETE("/wishlist/:cakeId", g.removeWishlist)
	}

	root.GET("/admin/orders/live", tokenFromQuery, auth.RequireAdmin(g.deps.Tokens), g.liveOrders)

	// Admin bodies may carry images and spreadsheets.
	g.setupAdminRoutes(root.Group("/admin",
		bodyLimit(g.uploadLimit()+defaultMaxBody),
		auth.RequireAdmin(g.deps.Tokens)))

	if g.config.HTTP.Swagger {
		g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

func (g *Gateway) setupAdminRoutes(admin *gin.RouterGroup) {
	cakes := admin.Group("/cakes")
	{
		cakes.GET("", g.adminListCakes)
		cakes.POST("", g.createCake)
		cakes.GET("/export", g.exportCakes)
		cakes.POST("/import", g.importCakes)
		cakes.PUT("/:id", g.updateCake)
		cakes.DELETE("/:id", g.deleteCake)
		cakes.PATCH("/:id/availability", g.setCakeAvailability)
		cakes.POST("/:id/images", g.uploadCakeImage)
	}

	categories := admin.Group("/categories")
	{
		categories.GET("", g.adminListCategories)
		categories.POST("", g.createCategory)
		categories.PUT("/:id", g.updateCategory)
		categories.DELETE("/:id", g.deleteCategory)
	}

	addons := admin.Group("/addons")
	{
		addons.GET("", g.adminListAddons)
		addons.POST("", g.createAddon)
		addons.PUT("/:id", g.updateAddon)
		addons.DELETE("/:id", g.deleteAddon)
	}

	locations := admin.Group("/locations")
	{
		locations.GET("", g.adminListLocations)
		locations.POST("", g.createLocation)
		locations.PUT("/:id", g.updateLocation)
		locations.DELETE("/:id", g.deleteLocation)
	}

	banners := admin.Group("/banners")
	{
		banners.GET("", g.adminListBanners)
		banners.POST("", g.createBanner)
		banners.PUT("/:id", g.updateBanner)
		banners.DELETE("/:id", g.deleteBanner)
	}

	news := admin.Group("/news")
	{
		news.GET("", g.adminListNews)
		news.POST("", g.createNews)
		news.PUT("/:id", g.updateNews)
		news.DELETE("/:id", g.deleteNews)
	}

	coupons := admin.Group("/coupons")
	{
		coupons.GET("", g.listCoupons)
		coupons.POST("", g.createCoupon)
		coupons.PUT("/:id", g.updateCoupon)
		coupons.DELETE("/:id", g.deleteCoupon)
	}

	orders := admin.Group("/orders")
	{
		orders.GET("", g.adminListOrders)
		orders.GET("/:id", g.adminGetOrder)
		orders.PUT("/:id/status", g.updateOrderStatus)
		orders.GET("/:id/payments", g.orderPayments)
	}

	admin.GET("/settings", g.getSettings)
	admin.PUT("/settings", g.putSettings)
	admin.GET("/stats", g.stats)
	admin.GET("/users", g.listUsers)
	admin.GET("/subscribers", g.listSubscribers)
	admin.DELETE("/subscribers/:id", g.deleteSubscriber)
	admin.GET("/audit", g.auditLogs)
	admin.GET("/audit/:entityId", g.auditLogs)
	admin.GET("/instances", g.listInstances)
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	g.server = &http.Server{
		Addr:         addr,
		Handler:      g.router,
		ReadTimeout:  g.config.HTTP.ReadTimeout,
		WriteTimeout: g.config.HTTP.WriteTimeout,
	}
	g.logger.Info("Gateway starting", zap.String("address", addr))
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve http: %w", err)
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.deps.Live != nil {
		g.deps.Live.Close()
	}
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

func (g *Gateway) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ready pings every backing store.
func (g *Gateway) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	status := http.StatusOK
	for name, p := range g.deps.Health {
		if err := p.Ping(ctx); err != nil {
			g.logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
}

func bodyLimit(max int64) gin.HandlerFunc {
	if max <= 0 {
		max = defaultMaxBody
	}
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		logger.Info("HTTP request", fields...)
	}
}
