package book

import (
	"context"
)

// Repository 图书仓储接口(依赖倒置原则)
// 设计说明:
// 1. 由domain层定义接口,infrastructure层实现(GORM/内存)
// 2. 只要求单文档原子读写,不依赖多文档事务
// 3. 失败时返回ErrBookNotFound或包装后的存储错误(StoreUnavailable)
type Repository interface {
	// Create 创建图书,回填ID
	Create(ctx context.Context, book *Book) error

	// FindByID 根据ID查找图书
	FindByID(ctx context.Context, id uint) (*Book, error)

	// Update 整体写回图书(一次写入)
	Update(ctx context.Context, book *Book) error

	// Delete 删除图书
	Delete(ctx context.Context, id uint) error

	// List 按条件查询图书列表
	List(ctx context.Context, params ListParams) ([]*Book, int64, error)

	// SumTotalCopies 统计副本总数之和,excludeID非0时排除该图书
	SumTotalCopies(ctx context.Context, excludeID uint) (int, error)
}

// ListParams 列表查询参数
type ListParams struct {
	Page          int    // 页码(从1开始)
	PageSize      int    // 每页数量,0表示不分页
	Title         string // 书名关键字(不区分大小写)
	Author        string // 作者关键字
	Category      string // 分类关键字
	AvailableOnly bool   // 只返回有可借副本的图书
	SortBy        string // title_asc, title_desc, created_at_desc
}
