//go:build wireinject
// +build wireinject

// Wire依赖注入配置
// 运行 `wire gen ./cmd/api` 生成wire_gen.go;
// 未生成时main.go中的newApp按相同顺序手动组装

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/internal/interface/http/router"
)

// infrastructureSet 存储、锁、消息
var infrastructureSet = wire.NewSet(
	provideStorage,
	provideLocker,
	providePublisher,
)

// applicationSet 库存协调器与定时对账
var applicationSet = wire.NewSet(
	provideCoordinator,
	provideReconciler,
)

// interfaceSet HTTP层
var interfaceSet = wire.NewSet(
	provideJWTManager,
	middleware.NewAuthMiddleware,
	handler.NewBookHandler,
	handler.NewReservationHandler,
	router.New,
)

// initializeApp 组装整个应用
func initializeApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, func(), error) {
	wire.Build(
		infrastructureSet,
		applicationSet,
		interfaceSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
