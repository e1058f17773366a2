// @title           图书馆库存与预约服务 API
// @version         1.0
// @description     馆藏管理、图书预约与归还;保证可借副本数与有效预约一致
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/internal/interface/http/router"
	"github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/response"
	"github.com/xiebiao/library/pkg/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "library-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer func() { _ = log.Sync() }()

	response.SetLogger(log)
	metrics.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(ctx, tracing.Config{
			ServiceName: cfg.Tracing.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()
	}

	app, cleanup, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	log.Info("config loaded",
		zap.Int("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("lock", cfg.Lock.Driver),
		zap.Int("max_book_stock", cfg.Library.MaxBookStock),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("启动服务失败: %w", err)
		}
		return nil
	})

	if cfg.Reconcile.Enabled {
		g.Go(func() error {
			return app.Reconciler.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newApp 手动依赖注入,顺序与wire.go中的initializeApp一致
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, func(), error) {
	storage, closeStorage, err := provideStorage(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	locker, closeLocker, err := provideLocker(ctx, cfg, log)
	if err != nil {
		closeStorage()
		return nil, nil, err
	}

	events, closePublisher, err := providePublisher(cfg, log)
	if err != nil {
		closeLocker()
		closeStorage()
		return nil, nil, err
	}

	coordinator := provideCoordinator(cfg, storage, locker, events, log)

	engine := router.New(cfg, log,
		handler.NewBookHandler(coordinator),
		handler.NewReservationHandler(coordinator),
		middleware.NewAuthMiddleware(provideJWTManager(cfg)),
	)

	cleanup := func() {
		closePublisher()
		closeLocker()
		closeStorage()
	}
	return &App{
		Engine:     engine,
		Reconciler: provideReconciler(cfg, coordinator, log),
	}, cleanup, nil
}
