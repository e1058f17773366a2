package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/application/inventory"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/messaging"
	"github.com/xiebiao/library/internal/infrastructure/persistence/gormstore"
	"github.com/xiebiao/library/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/lock"
	"github.com/xiebiao/library/pkg/mq"
)

// App 进程内的长期组件
type App struct {
	Engine     *gin.Engine
	Reconciler *inventory.Reconciler
}

// Storage 仓储与事务管理器,三者必须来自同一个存储
type Storage struct {
	Books        book.Repository
	Reservations reservation.Repository
	Tx           inventory.Transactor
}

// provideStorage 按storage.driver选择存储
// memory: 进程内map,不支持事务; mysql/sqlite: GORM
func provideStorage(cfg *config.Config, log *zap.Logger) (*Storage, func(), error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn("using in-memory storage, data is lost on restart")
		return &Storage{
			Books:        memory.NewBookStore(),
			Reservations: memory.NewReservationStore(),
			Tx:           memory.NoopTransactor{},
		}, func() {}, nil
	}

	db, err := gormstore.NewDB(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}

	cleanup := func() {
		if err := sqlDB.Close(); err != nil {
			log.Warn("close database failed", zap.Error(err))
		}
	}
	return &Storage{
		Books:        gormstore.NewBookRepository(db),
		Reservations: gormstore.NewReservationRepository(db),
		Tx:           gormstore.NewTxManager(db),
	}, cleanup, nil
}

// provideLocker 按lock.driver选择锁
// 多实例部署时必须使用redis
func provideLocker(ctx context.Context, cfg *config.Config, log *zap.Logger) (lock.Locker, func(), error) {
	if cfg.Lock.Driver != "redis" {
		return lock.NewKeyedMutex(), func() {}, nil
	}

	client, err := redis.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := client.Close(); err != nil {
			log.Warn("close redis failed", zap.Error(err))
		}
	}
	return redis.NewLocker(client, cfg.Lock.TTL, cfg.Lock.RetryDelay, log), cleanup, nil
}

// providePublisher mq.enabled=false时不发布事件
func providePublisher(cfg *config.Config, log *zap.Logger) (inventory.EventPublisher, func(), error) {
	if !cfg.MQ.Enabled {
		return messaging.NoopPublisher{}, func() {}, nil
	}

	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, "topic", log)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			log.Warn("close mq publisher failed", zap.Error(err))
		}
	}
	return messaging.NewReservationEventPublisher(publisher, log), cleanup, nil
}

func provideCoordinator(
	cfg *config.Config,
	storage *Storage,
	locker lock.Locker,
	events inventory.EventPublisher,
	log *zap.Logger,
) *inventory.Coordinator {
	return inventory.NewCoordinator(
		storage.Books,
		storage.Reservations,
		storage.Tx,
		locker,
		events,
		inventory.Options{
			MaxBookStock:          cfg.Library.MaxBookStock,
			MaxActiveReservations: cfg.Library.MaxActiveReservations,
			ReservationDuration:   cfg.Library.ReservationDuration(),
			LockTimeout:           cfg.Lock.Timeout,
		},
		log,
	)
}

func provideReconciler(cfg *config.Config, coordinator *inventory.Coordinator, log *zap.Logger) *inventory.Reconciler {
	return inventory.NewReconciler(coordinator, cfg.Reconcile.Interval, log)
}

// provideJWTManager 从配置创建JWT管理器
func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpire)
}
