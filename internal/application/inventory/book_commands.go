package inventory

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/pkg/lock"
)

// CreateBookInput 创建图书参数
// AvailableCopies可选,提供时必须等于TotalCopies
type CreateBookInput struct {
	Title           string
	Author          string
	Category        string
	Description     string
	TotalCopies     int
	AvailableCopies *int
}

// CreateBook 创建图书
// 持有stock锁,在事务内重新统计副本总数后校验馆藏上限
func (c *Coordinator) CreateBook(ctx context.Context, in CreateBookInput) (_ *book.Book, err error) {
	ctx, done := c.begin(ctx, opCreateBook, zap.String("title", in.Title))
	defer func() { done(err) }()

	b := book.NewBook(in.Title, in.Author, in.Category, in.Description, in.TotalCopies)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if in.AvailableCopies != nil && *in.AvailableCopies != in.TotalCopies {
		return nil, book.ErrAvailableCopiesMismatch
	}

	err = c.withLocks(ctx, func() error {
		return c.tx.Transaction(ctx, func(ctx context.Context) error {
			current, err := c.books.SumTotalCopies(ctx, 0)
			if err != nil {
				return err
			}
			if err := c.stock.AdmitStockChange(current, b.TotalCopies); err != nil {
				return err
			}
			return c.books.Create(ctx, b)
		})
	}, lock.StockKey)
	if err != nil {
		return nil, err
	}

	return b, nil
}

// UpdateBook 部分更新图书
//
// 修改副本总数时持有stock和book锁,依次校验:
//  1. 馆藏上限(其余图书之和 + 新总数)
//  2. 新总数不低于有效预约数
//
// 通过后按 新总数 - 有效预约数 重新计算可借副本
// 只修改描述信息时只持有book锁
func (c *Coordinator) UpdateBook(ctx context.Context, id uint, patch book.Patch) (_ *book.Book, err error) {
	ctx, done := c.begin(ctx, opUpdateBook, zap.Uint("book_id", id))
	defer func() { done(err) }()

	if patch.AvailableCopies != nil {
		return nil, book.ErrAvailableCopiesReadOnly
	}
	if patch.TotalCopies != nil && *patch.TotalCopies < 1 {
		return nil, book.ErrInvalidTotalCopies
	}

	keys := []string{lock.BookKey(id)}
	if patch.ChangesStock() {
		keys = []string{lock.StockKey, lock.BookKey(id)}
	}

	var updated *book.Book
	err = c.withLocks(ctx, func() error {
		return c.tx.Transaction(ctx, func(ctx context.Context) error {
			b, err := c.books.FindByID(ctx, id)
			if err != nil {
				return err
			}

			b.ApplyInfo(patch)
			if patch.ChangesStock() {
				if err := c.resizeStock(ctx, b, *patch.TotalCopies); err != nil {
					return err
				}
			}
			if err := b.Validate(); err != nil {
				return err
			}

			if err := c.books.Update(ctx, b); err != nil {
				return err
			}
			updated = b
			return nil
		})
	}, keys...)
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// resizeStock 校验并调整副本总数,调用方持有stock和book锁
func (c *Coordinator) resizeStock(ctx context.Context, b *book.Book, total int) error {
	others, err := c.books.SumTotalCopies(ctx, b.ID)
	if err != nil {
		return err
	}
	if err := c.stock.AdmitStockChange(others, total); err != nil {
		return err
	}

	active, err := c.countActiveForBook(ctx, b.ID)
	if err != nil {
		return err
	}
	if err := c.policy.AdmitStockReduction(total, active); err != nil {
		return err
	}

	b.ResizeStock(total, active)
	return nil
}

// DeleteBook 删除图书,存在有效预约时拒绝
func (c *Coordinator) DeleteBook(ctx context.Context, id uint) (err error) {
	ctx, done := c.begin(ctx, opDeleteBook, zap.Uint("book_id", id))
	defer func() { done(err) }()

	return c.withLocks(ctx, func() error {
		return c.tx.Transaction(ctx, func(ctx context.Context) error {
			if _, err := c.books.FindByID(ctx, id); err != nil {
				return err
			}

			active, err := c.countActiveForBook(ctx, id)
			if err != nil {
				return err
			}
			if active > 0 {
				return book.ErrBookHasActiveReservations.WithMessage("图书仍有%d个未归还的预约,不能删除", active)
			}

			return c.books.Delete(ctx, id)
		})
	}, lock.BookKey(id))
}

// findBookOrNil 图书不存在时返回nil, nil
func (c *Coordinator) findBookOrNil(ctx context.Context, id uint) (*book.Book, error) {
	b, err := c.books.FindByID(ctx, id)
	if errors.Is(err, book.ErrBookNotFound) {
		return nil, nil
	}
	return b, err
}
