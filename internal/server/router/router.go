package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmsales/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(handler *handlers.SalesHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/lots", handler.ListLots)
	r.POST("/quote", handler.Quote)

	d := r.Group("/drafts")
	d.GET("", handler.ListDrafts)
	d.POST("", handler.AddDraft)
	d.DELETE("", handler.ClearDrafts)
	d.DELETE("/:index", handler.DeleteDraft)
	d.POST("/:index/commit", handler.CommitDraft)

	s := r.Group("/sales")
	s.GET("", handler.ListSales)
	s.POST("", handler.CreateSale)
	s.PUT("/:id", handler.UpdateSale)
	s.DELETE("/:id", handler.DeleteSale)

	r.GET("/dashboard", handler.Dashboard)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
