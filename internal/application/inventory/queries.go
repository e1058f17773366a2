package inventory

import (
	"context"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/reservation"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 查询不加锁,读取的是单文档的最新已提交状态

// GetBook 查询图书详情
func (c *Coordinator) GetBook(ctx context.Context, id uint) (*book.Book, error) {
	return c.books.FindByID(ctx, id)
}

// ListBooks 按条件分页查询图书
func (c *Coordinator) ListBooks(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	return c.books.List(ctx, params)
}

// ListAvailableBooks 只返回有可借副本的图书
func (c *Coordinator) ListAvailableBooks(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	params.AvailableOnly = true
	return c.books.List(ctx, params)
}

// GetReservation 查询预约详情
func (c *Coordinator) GetReservation(ctx context.Context, id uint) (*reservation.Reservation, error) {
	return c.reservations.FindByID(ctx, id)
}

// ListReservations 按条件查询预约
func (c *Coordinator) ListReservations(ctx context.Context, filter reservation.Filter) ([]*reservation.Reservation, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, reservation.ErrInvalidStatus
	}
	return c.reservations.List(ctx, filter)
}

// ListUserReservations 查询某个用户的全部预约
func (c *Coordinator) ListUserReservations(ctx context.Context, userID uint) ([]*reservation.Reservation, error) {
	if userID == 0 {
		return nil, apperrors.ErrInvalidParams.WithMessage("用户ID不能为空")
	}
	return c.reservations.List(ctx, reservation.Filter{UserID: userID})
}

// StockSummary 馆藏使用情况
type StockSummary struct {
	MaxBookStock int `json:"max_book_stock"`
	TotalCopies  int `json:"total_copies"`
	Remaining    int `json:"remaining"`
}

// GetStockSummary 统计当前馆藏副本总数与剩余额度
func (c *Coordinator) GetStockSummary(ctx context.Context) (*StockSummary, error) {
	total, err := c.books.SumTotalCopies(ctx, 0)
	if err != nil {
		return nil, err
	}
	return &StockSummary{
		MaxBookStock: c.stock.MaxBookStock,
		TotalCopies:  total,
		Remaining:    c.stock.Remaining(total),
	}, nil
}
