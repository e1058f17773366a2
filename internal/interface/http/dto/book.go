package dto

import (
	"time"

	"github.com/xiebiao/library/internal/domain/book"
)

// TimeLayout 响应中的时间格式
const TimeLayout = "2006-01-02 15:04:05"

// CreateBookRequest HTTP新增图书请求
// available_copies可选,提供时必须等于total_copies
type CreateBookRequest struct {
	Title           string `json:"title" binding:"required,max=200" example:"Go语言实战"`
	Author          string `json:"author" binding:"required,max=100" example:"威廉·肯尼迪"`
	Category        string `json:"category" binding:"required,max=100" example:"编程"`
	Description     string `json:"description" binding:"max=5000" example:"这是一本关于Go语言的实战书籍"`
	TotalCopies     int    `json:"total_copies" binding:"required,min=1" example:"3"`
	AvailableCopies *int   `json:"available_copies" binding:"omitempty,min=0" example:"3"`
}

// UpdateBookRequest HTTP修改图书请求,缺省字段不修改
// available_copies由系统维护,提供时返回参数错误
type UpdateBookRequest struct {
	Title           *string `json:"title" binding:"omitempty,max=200"`
	Author          *string `json:"author" binding:"omitempty,max=100"`
	Category        *string `json:"category" binding:"omitempty,max=100"`
	Description     *string `json:"description" binding:"omitempty,max=5000"`
	TotalCopies     *int    `json:"total_copies" binding:"omitempty"`
	AvailableCopies *int    `json:"available_copies" binding:"omitempty"`
}

// ToPatch 转换为领域层的部分更新
func (r UpdateBookRequest) ToPatch() book.Patch {
	return book.Patch{
		Title:           r.Title,
		Author:          r.Author,
		Category:        r.Category,
		Description:     r.Description,
		TotalCopies:     r.TotalCopies,
		AvailableCopies: r.AvailableCopies,
	}
}

// BookResponse HTTP图书响应
type BookResponse struct {
	ID              uint   `json:"id" example:"1"`
	Title           string `json:"title" example:"Go语言实战"`
	Author          string `json:"author" example:"威廉·肯尼迪"`
	Category        string `json:"category" example:"编程"`
	Description     string `json:"description" example:"这是一本关于Go语言的实战书籍"`
	TotalCopies     int    `json:"total_copies" example:"3"`
	AvailableCopies int    `json:"available_copies" example:"2"`
	CreatedAt       string `json:"created_at" example:"2024-01-15 10:30:00"`
	UpdatedAt       string `json:"updated_at" example:"2024-01-15 10:30:00"`
}

// NewBookResponse 领域对象 → 响应
func NewBookResponse(b *book.Book) *BookResponse {
	return &BookResponse{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		Category:        b.Category,
		Description:     b.Description,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		CreatedAt:       formatTime(b.CreatedAt),
		UpdatedAt:       formatTime(b.UpdatedAt),
	}
}

// NewBookList 批量转换
func NewBookList(books []*book.Book) []*BookResponse {
	list := make([]*BookResponse, 0, len(books))
	for _, b := range books {
		list = append(list, NewBookResponse(b))
	}
	return list
}

// ListBooksRequest HTTP图书列表请求
type ListBooksRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
	Title    string `form:"title" binding:"omitempty,max=100" example:"go"`
	Author   string `form:"author" binding:"omitempty,max=100"`
	Category string `form:"category" binding:"omitempty,max=100"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=title_asc title_desc created_at_desc" example:"title_asc"`
}

// ToParams 转换为仓储查询参数,默认第1页每页20条
func (r ListBooksRequest) ToParams() book.ListParams {
	if r.Page == 0 {
		r.Page = 1
	}
	if r.PageSize == 0 {
		r.PageSize = 20
	}
	return book.ListParams{
		Page:     r.Page,
		PageSize: r.PageSize,
		Title:    r.Title,
		Author:   r.Author,
		Category: r.Category,
		SortBy:   r.SortBy,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}
