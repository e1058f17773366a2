package book

import (
	"strings"
	"time"
)

// Book 图书实体(聚合根)
// 设计说明:
// 1. TotalCopies是馆藏副本总数,受全局馆藏上限约束
// 2. AvailableCopies是派生值: TotalCopies - 有效预约数,只能由库存协调器修改
// 3. 副本数变更必须经过StockPolicy和ReservationPolicy校验
type Book struct {
	ID              uint
	Title           string // 书名
	Author          string // 作者
	Category        string // 分类
	Description     string // 图书描述
	TotalCopies     int    // 副本总数(>=1)
	AvailableCopies int    // 可借副本数(>=0)
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewBook 创建新图书(工厂方法)
// 新书没有任何预约,可借副本数等于副本总数
func NewBook(title, author, category, description string, totalCopies int) *Book {
	now := time.Now()
	return &Book{
		Title:           strings.TrimSpace(title),
		Author:          strings.TrimSpace(author),
		Category:        strings.TrimSpace(category),
		Description:     description,
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Validate 校验实体字段
func (b *Book) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(b.Author) == "" {
		return ErrAuthorRequired
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrCategoryRequired
	}
	if b.TotalCopies < 1 {
		return ErrInvalidTotalCopies
	}
	if b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
		return ErrInvalidAvailableCopies
	}
	return nil
}

// Reserve 占用一本可借副本(用于创建预约)
func (b *Book) Reserve() error {
	if b.AvailableCopies <= 0 {
		return ErrBookUnavailable
	}
	b.AvailableCopies--
	b.UpdatedAt = time.Now()
	return nil
}

// Release 归还一本副本(用于归还/删除预约)
// 可借副本数不会超过副本总数
func (b *Book) Release() {
	if b.AvailableCopies < b.TotalCopies {
		b.AvailableCopies++
	}
	b.UpdatedAt = time.Now()
}

// ResizeStock 调整副本总数,并按有效预约数重新计算可借副本
func (b *Book) ResizeStock(totalCopies, activeReservations int) {
	b.TotalCopies = totalCopies
	b.AvailableCopies = totalCopies - activeReservations
	b.UpdatedAt = time.Now()
}

// Patch 图书部分更新字段,nil表示不修改
type Patch struct {
	Title           *string
	Author          *string
	Category        *string
	Description     *string
	TotalCopies     *int
	AvailableCopies *int
}

// ChangesStock 是否修改副本总数
func (p Patch) ChangesStock() bool {
	return p.TotalCopies != nil
}

// ApplyInfo 应用除副本数以外的字段
func (b *Book) ApplyInfo(p Patch) {
	if p.Title != nil {
		b.Title = strings.TrimSpace(*p.Title)
	}
	if p.Author != nil {
		b.Author = strings.TrimSpace(*p.Author)
	}
	if p.Category != nil {
		b.Category = strings.TrimSpace(*p.Category)
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	b.UpdatedAt = time.Now()
}

// IsAvailable 是否有可借副本
func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}
