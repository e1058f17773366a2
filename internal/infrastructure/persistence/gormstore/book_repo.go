package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/book"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// bookRepository 图书仓储实现(GORM)
// 设计说明:
// 1. 实现domain/book/repository.go定义的接口
// 2. 负责domain实体与GORM模型之间的转换
// 3. 所有方法通过getDB(ctx)参与调用方的事务
type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository 创建图书仓储
func NewBookRepository(db *gorm.DB) book.Repository {
	return &bookRepository{db: db}
}

// Create 创建图书
func (r *bookRepository) Create(ctx context.Context, b *book.Book) error {
	model := toBookModel(b)

	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建图书失败")
	}

	b.ID = model.ID
	b.CreatedAt = model.CreatedAt
	b.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID 根据ID查找图书
func (r *bookRepository) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	var model BookModel
	err := getDB(ctx, r.db).First(&model, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "查询图书失败")
	}

	return toBookEntity(&model), nil
}

// Update 一次写回图书的全部可变字段
func (r *bookRepository) Update(ctx context.Context, b *book.Book) error {
	now := time.Now()
	result := getDB(ctx, r.db).Model(&BookModel{}).
		Where("id = ?", b.ID).
		Updates(map[string]interface{}{
			"title":            b.Title,
			"author":           b.Author,
			"category":         b.Category,
			"description":      b.Description,
			"total_copies":     b.TotalCopies,
			"available_copies": b.AvailableCopies,
			"updated_at":       now,
		})

	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新图书失败")
	}
	if result.RowsAffected == 0 {
		// 可能是图书不存在,也可能是驱动只统计实际变化的行,再查一次确定原因
		if _, err := r.FindByID(ctx, b.ID); err != nil {
			return err
		}
	}

	b.UpdatedAt = now
	return nil
}

// Delete 删除图书(软删除)
func (r *bookRepository) Delete(ctx context.Context, id uint) error {
	result := getDB(ctx, r.db).Delete(&BookModel{}, id)

	if result.Error != nil {
		return apperrors.Wrap(result.Error, "删除图书失败")
	}
	if result.RowsAffected == 0 {
		return book.ErrBookNotFound
	}

	return nil
}

// List 按条件查询图书列表
func (r *bookRepository) List(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	var models []BookModel
	var total int64

	query := getDB(ctx, r.db).Model(&BookModel{})
	query = whereContains(query, "title", params.Title)
	query = whereContains(query, "author", params.Author)
	query = whereContains(query, "category", params.Category)
	if params.AvailableOnly {
		query = query.Where("available_copies > 0")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书总数失败")
	}

	switch params.SortBy {
	case "title_asc":
		query = query.Order("title ASC").Order("id ASC")
	case "title_desc":
		query = query.Order("title DESC").Order("id DESC")
	case "created_at_desc":
		query = query.Order("created_at DESC").Order("id DESC")
	default:
		query = query.Order("id ASC")
	}

	if err := paginate(query, params.Page, params.PageSize).Find(&models).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书列表失败")
	}

	books := make([]*book.Book, len(models))
	for i := range models {
		books[i] = toBookEntity(&models[i])
	}

	return books, total, nil
}

// SumTotalCopies 统计副本总数之和
// SELECT COALESCE(SUM(total_copies), 0) FROM books WHERE id <> ? AND deleted_at IS NULL
func (r *bookRepository) SumTotalCopies(ctx context.Context, excludeID uint) (int, error) {
	var sum int64
	query := getDB(ctx, r.db).Model(&BookModel{})
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	if err := query.Select("COALESCE(SUM(total_copies), 0)").Scan(&sum).Error; err != nil {
		return 0, apperrors.Wrap(err, "统计馆藏总数失败")
	}

	return int(sum), nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

func toBookModel(b *book.Book) *BookModel {
	return &BookModel{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		Category:        b.Category,
		Description:     b.Description,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

// toBookEntity GORM模型 → 领域实体
func toBookEntity(model *BookModel) *book.Book {
	return &book.Book{
		ID:              model.ID,
		Title:           model.Title,
		Author:          model.Author,
		Category:        model.Category,
		Description:     model.Description,
		TotalCopies:     model.TotalCopies,
		AvailableCopies: model.AvailableCopies,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}
