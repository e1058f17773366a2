package gormstore

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/library/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明：
// 1. storage.driver=mysql 连接MySQL(生产),sqlite 使用本地文件(开发/测试)
// 2. 配置连接池参数（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 3. 开发环境开启SQL日志，生产环境关闭
// 4. database.auto_migrate为true时自动迁移表结构
func NewDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Storage.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.Database.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.Storage.SQLitePath)
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Storage.Driver)
	}

	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: time.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}

	if cfg.Storage.Driver == "mysql" {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	} else {
		// sqlite同一时刻只允许一个写连接
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	log.Info("database connected", zap.String("driver", cfg.Storage.Driver))

	if cfg.Database.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	return db, nil
}

// AutoMigrate 自动迁移表结构
// 注意：生产环境应使用版本化的迁移脚本，不要依赖AutoMigrate
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&BookModel{},
		&ReservationModel{},
	)
}

// BookModel GORM图书模型
// 设计说明:
// 1. available_copies由库存协调器维护,等于total_copies减去有效预约数
// 2. 书名/作者/分类建索引,支持列表过滤
type BookModel struct {
	ID              uint           `gorm:"primaryKey"`
	Title           string         `gorm:"index:idx_search;size:200;not null;comment:书名"`
	Author          string         `gorm:"index:idx_search;size:100;not null;comment:作者"`
	Category        string         `gorm:"index;size:100;not null;comment:分类"`
	Description     string         `gorm:"type:text;comment:图书描述"`
	TotalCopies     int            `gorm:"not null;comment:副本总数"`
	AvailableCopies int            `gorm:"not null;comment:可借副本数"`
	CreatedAt       time.Time      `gorm:"index;comment:创建时间"`
	UpdatedAt       time.Time      `gorm:"comment:更新时间"`
	DeletedAt       gorm.DeletedAt `gorm:"index;comment:删除时间(软删除)"`
}

// TableName 指定表名
func (BookModel) TableName() string {
	return "books"
}

// ReservationModel GORM预约模型
// 设计说明:
// 1. (user_id, status)和(book_id, status)复合索引支撑有效预约计数
// 2. book_title是创建时的快照
// 3. 预约删除为物理删除
type ReservationModel struct {
	ID              uint       `gorm:"primaryKey"`
	UserID          uint       `gorm:"index:idx_user_status;not null;comment:用户ID"`
	BookID          uint       `gorm:"index:idx_book_status;not null;comment:图书ID"`
	BookTitle       string     `gorm:"size:200;not null;comment:书名快照"`
	ReservationDate time.Time  `gorm:"index;not null;comment:预约时间"`
	ReturnByDate    time.Time  `gorm:"not null;comment:应还日期"`
	Status          string     `gorm:"index:idx_user_status;index:idx_book_status;size:16;not null;comment:状态(reserved/returned)"`
	ReturnedAt      *time.Time `gorm:"comment:归还时间"`
	CreatedAt       time.Time  `gorm:"comment:创建时间"`
	UpdatedAt       time.Time  `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (ReservationModel) TableName() string {
	return "reservations"
}
