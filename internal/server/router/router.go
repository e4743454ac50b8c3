package router

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"custodycore/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares. A positive
// requestTimeout bounds each handler's context.
func New(handler *handlers.LifecycleHandler, logger *zap.Logger, requestTimeout time.Duration) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))
	if requestTimeout > 0 {
		r.Use(timeoutMiddleware(requestTimeout))
	}

	api := r.Group("/api")
	{
		api.POST("/animals", handler.CreateAnimal)
		api.GET("/animals", handler.ListAnimals)
		api.GET("/animals/:id", handler.GetAnimal)
		api.PATCH("/animals/:id", handler.UpdateAnimal)
		api.DELETE("/animals/:id", handler.DeleteAnimal)
		api.GET("/animals/:id/days-in-custody", handler.DaysInCustody)
		api.POST("/animals/:id/photo", handler.UploadPhoto)
		api.GET("/animals/:id/photo", handler.GetPhoto)
		api.GET("/animals/:id/photo-url", handler.GetPhotoURL)
		api.POST("/animals/:id/finalize", handler.FinalizeAnimal)

		api.GET("/recurrence", handler.CheckRecurrence)

		api.GET("/tracks/:track", handler.ListTrack)
		api.POST("/tracks/:track", handler.AddToTrack)
		api.PATCH("/worklist/:id", handler.UpdateWorklistEntry)
		api.DELETE("/worklist/:id", handler.RemoveWorklistEntry)
		api.POST("/worklist/:id/finalize", handler.FinalizeEntry)
		api.POST("/finalize/batch", handler.FinalizeBatch)

		api.GET("/exits", handler.ListExits)
		api.DELETE("/exits/:id", handler.PurgeExit)
		api.GET("/exits/export", handler.ExportExits)

		api.GET("/summary", handler.Summary)
		api.GET("/occupancy", handler.Occupancy)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func timeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
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
