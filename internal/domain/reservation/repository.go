package reservation

import (
	"context"
)

// Repository 预约仓储接口
type Repository interface {
	// Create 创建预约,回填ID
	Create(ctx context.Context, r *Reservation) error

	// FindByID 根据ID查找预约
	FindByID(ctx context.Context, id uint) (*Reservation, error)

	// List 按条件查询预约,按预约时间倒序
	List(ctx context.Context, filter Filter) ([]*Reservation, error)

	// CountActive 统计有效预约数,UserID/BookID为0表示不限
	CountActive(ctx context.Context, filter ActiveFilter) (int, error)

	// FindActive 查找用户对某本书的有效预约,没有时返回nil, nil
	FindActive(ctx context.Context, userID, bookID uint) (*Reservation, error)

	// UpdateStatus 写回预约状态(含ReturnedAt)
	UpdateStatus(ctx context.Context, r *Reservation) error

	// Delete 删除预约
	Delete(ctx context.Context, id uint) error
}

// Filter 列表查询条件,零值字段不参与过滤
type Filter struct {
	UserID uint
	BookID uint
	Status Status
}

// ActiveFilter 有效预约统计条件
type ActiveFilter struct {
	UserID uint
	BookID uint
}
