package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/service"
	"pos-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services wires the handler to the business layer.
type Services struct {
	Orders  *service.OrderService
	Catalog *service.CatalogService
	Users   *service.UserService
	Auth    *service.AuthService
	Store   Pinger
}

// Handler contains HTTP handlers
type Handler struct {
	orders  *service.OrderService
	catalog *service.CatalogService
	users   *service.UserService
	auth    *service.AuthService
	store   Pinger
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(s Services) *Handler {
	return &Handler{
		orders:  s.Orders,
		catalog: s.Catalog,
		users:   s.Users,
		auth:    s.Auth,
		store:   s.Store,
		logger:  util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.POST("/auth/login", h.login)

	authed := api.Group("", h.authenticate())
	{
		authed.POST("/orders", h.placeOrder)
		authed.GET("/orders", h.listOrders)
		authed.GET("/orders/:id", h.getOrder)
		authed.DELETE("/orders/:id", h.deleteOrder)

		authed.GET("/categories", h.listCategories)
		authed.POST("/categories", h.createCategory)
		authed.PUT("/categories/:id", h.updateCategory)
		authed.DELETE("/categories/:id", h.deleteCategory)

		authed.GET("/products", h.listProducts)
		authed.GET("/products/:id", h.getProduct)
		authed.POST("/products", h.createProduct)
		authed.PUT("/products/:id", h.updateProduct)
		authed.PATCH("/products/:id/deactivate", h.deactivateProduct)
		authed.DELETE("/products/:id", h.deleteProduct)
	}

	admin := authed.Group("/users", requireRole(models.RoleAdmin))
	{
		admin.GET("", h.listUsers)
		admin.POST("", h.createUser)
		admin.PUT("/:id", h.updateUser)
		admin.DELETE("/:id", h.deleteUser)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when the store answers a ping
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
