// Package memory 进程内存储实现
// 只提供单文档原子读写,不支持多文档事务;跨文档一致性由库存协调器的锁和补偿保证
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/reservation"
)

// BookStore 内存图书仓储
type BookStore struct {
	mu     sync.RWMutex
	books  map[uint]book.Book
	nextID uint
}

// NewBookStore 创建内存图书仓储
func NewBookStore() *BookStore {
	return &BookStore{books: make(map[uint]book.Book)}
}

var _ book.Repository = (*BookStore)(nil)

func (s *BookStore) Create(ctx context.Context, b *book.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	b.ID = s.nextID
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	s.books[b.ID] = *b
	return nil
}

func (s *BookStore) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[id]
	if !ok {
		return nil, book.ErrBookNotFound
	}
	return &b, nil
}

func (s *BookStore) Update(ctx context.Context, b *book.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.books[b.ID]
	if !ok {
		return book.ErrBookNotFound
	}
	b.CreatedAt = old.CreatedAt
	b.UpdatedAt = time.Now()
	s.books[b.ID] = *b
	return nil
}

func (s *BookStore) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return book.ErrBookNotFound
	}
	delete(s.books, id)
	return nil
}

func (s *BookStore) List(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	s.mu.RLock()
	matched := make([]*book.Book, 0, len(s.books))
	for _, b := range s.books {
		if !contains(b.Title, params.Title) || !contains(b.Author, params.Author) || !contains(b.Category, params.Category) {
			continue
		}
		if params.AvailableOnly && b.AvailableCopies <= 0 {
			continue
		}
		cp := b
		matched = append(matched, &cp)
	}
	s.mu.RUnlock()

	sortBooks(matched, params.SortBy)
	total := int64(len(matched))

	if params.PageSize > 0 {
		page := params.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * params.PageSize
		if start >= len(matched) {
			return []*book.Book{}, total, nil
		}
		end := start + params.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}

	return matched, total, nil
}

func (s *BookStore) SumTotalCopies(ctx context.Context, excludeID uint) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := 0
	for id, b := range s.books {
		if id != excludeID {
			sum += b.TotalCopies
		}
	}
	return sum, nil
}

func contains(value, keyword string) bool {
	keyword = strings.TrimSpace(keyword)
	return keyword == "" || strings.Contains(strings.ToLower(value), strings.ToLower(keyword))
}

func sortBooks(books []*book.Book, sortBy string) {
	sort.Slice(books, func(i, j int) bool {
		a, b := books[i], books[j]
		switch sortBy {
		case "title_asc":
			if a.Title != b.Title {
				return a.Title < b.Title
			}
			return a.ID < b.ID
		case "title_desc":
			if a.Title != b.Title {
				return a.Title > b.Title
			}
			return a.ID > b.ID
		case "created_at_desc":
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		default:
			return a.ID < b.ID
		}
	})
}

// ReservationStore 内存预约仓储
type ReservationStore struct {
	mu           sync.RWMutex
	reservations map[uint]reservation.Reservation
	nextID       uint
}

// NewReservationStore 创建内存预约仓储
func NewReservationStore() *ReservationStore {
	return &ReservationStore{reservations: make(map[uint]reservation.Reservation)}
}

var _ reservation.Repository = (*ReservationStore)(nil)

func (s *ReservationStore) Create(ctx context.Context, r *reservation.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	r.ID = s.nextID
	s.reservations[r.ID] = *r
	return nil
}

func (s *ReservationStore) FindByID(ctx context.Context, id uint) (*reservation.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	return &r, nil
}

func (s *ReservationStore) List(ctx context.Context, filter reservation.Filter) ([]*reservation.Reservation, error) {
	s.mu.RLock()
	list := make([]*reservation.Reservation, 0)
	for _, r := range s.reservations {
		if filter.UserID != 0 && r.UserID != filter.UserID {
			continue
		}
		if filter.BookID != 0 && r.BookID != filter.BookID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		cp := r
		list = append(list, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if !list[i].ReservationDate.Equal(list[j].ReservationDate) {
			return list[i].ReservationDate.After(list[j].ReservationDate)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (s *ReservationStore) CountActive(ctx context.Context, filter reservation.ActiveFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.reservations {
		if !r.IsActive() {
			continue
		}
		if filter.UserID != 0 && r.UserID != filter.UserID {
			continue
		}
		if filter.BookID != 0 && r.BookID != filter.BookID {
			continue
		}
		n++
	}
	return n, nil
}

func (s *ReservationStore) FindActive(ctx context.Context, userID, bookID uint) (*reservation.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reservations {
		if r.IsActive() && r.UserID == userID && r.BookID == bookID {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *ReservationStore) UpdateStatus(ctx context.Context, r *reservation.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.reservations[r.ID]
	if !ok {
		return reservation.ErrReservationNotFound
	}
	old.Status = r.Status
	old.ReturnedAt = r.ReturnedAt
	old.UpdatedAt = r.UpdatedAt
	s.reservations[r.ID] = old
	return nil
}

func (s *ReservationStore) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservations[id]; !ok {
		return reservation.ErrReservationNotFound
	}
	delete(s.reservations, id)
	return nil
}

// NoopTransactor 内存存储没有事务,直接执行fn
type NoopTransactor struct{}

// Transaction 实现inventory.Transactor
func (NoopTransactor) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
