// Package router 注册HTTP路由
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/xiebiao/library/docs"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/response"
)

// New 创建Gin引擎并注册全部路由
//
// 权限:
//   - 图书查询公开
//   - 图书维护需要admin
//   - 预约接口需要登录,全部预约列表需要admin
func New(
	cfg *config.Config,
	logger *zap.Logger,
	bookHandler *handler.BookHandler,
	reservationHandler *handler.ReservationHandler,
	authMiddleware *middleware.AuthMiddleware,
) *gin.Engine {
	if cfg.Server.Mode == gin.ReleaseMode || cfg.Server.Mode == gin.TestMode {
		gin.SetMode(cfg.Server.Mode)
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(logger),
		middleware.Tracing(),
		middleware.RequestLogger(logger.Named("http")),
	)

	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// 访问 /swagger/index.html 查看API文档
	if cfg.Server.Mode != gin.ReleaseMode {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	{
		books := v1.Group("/books")
		{
			books.GET("", bookHandler.ListBooks)
			books.GET("/available", bookHandler.ListAvailableBooks)
			books.GET("/:id", bookHandler.GetBook)

			admin := books.Group("", authMiddleware.RequireAuth(), authMiddleware.RequireAdmin())
			admin.POST("", bookHandler.CreateBook)
			admin.PUT("/:id", bookHandler.UpdateBook)
			admin.DELETE("/:id", bookHandler.DeleteBook)
		}

		v1.GET("/stock", authMiddleware.RequireAuth(), authMiddleware.RequireAdmin(), bookHandler.GetStockSummary)

		reservations := v1.Group("/reservations")
		reservations.Use(authMiddleware.RequireAuth())
		{
			reservations.POST("", reservationHandler.CreateReservation)
			reservations.GET("", authMiddleware.RequireAdmin(), reservationHandler.ListReservations)
			reservations.GET("/me", reservationHandler.ListMyReservations)
			reservations.GET("/user/:userId", reservationHandler.ListUserReservations)
			reservations.GET("/:id", reservationHandler.GetReservation)
			reservations.PUT("/:id", reservationHandler.UpdateReservationStatus)
			reservations.DELETE("/:id", reservationHandler.DeleteReservation)
		}
	}

	return r
}
