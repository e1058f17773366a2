package inventory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/internal/infrastructure/persistence/memory"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/lock"
)

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []reservation.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event reservation.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []reservation.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]reservation.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// failingReservations 让指定操作返回存储错误
type failingReservations struct {
	reservation.Repository
	failCreate       bool
	failUpdateStatus bool
}

var errStoreDown = errors.New("connection refused")

func (f *failingReservations) Create(ctx context.Context, r *reservation.Reservation) error {
	if f.failCreate {
		return apperrors.Wrap(errStoreDown, "创建预约失败")
	}
	return f.Repository.Create(ctx, r)
}

func (f *failingReservations) UpdateStatus(ctx context.Context, r *reservation.Reservation) error {
	if f.failUpdateStatus {
		return apperrors.Wrap(errStoreDown, "更新预约状态失败")
	}
	return f.Repository.UpdateStatus(ctx, r)
}

type fixture struct {
	coordinator  *Coordinator
	books        *memory.BookStore
	reservations *memory.ReservationStore
	locker       *lock.KeyedMutex
	events       *recordingPublisher
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	f := &fixture{
		books:        memory.NewBookStore(),
		reservations: memory.NewReservationStore(),
		locker:       lock.NewKeyedMutex(),
		events:       &recordingPublisher{},
	}
	f.coordinator = f.build(t, f.reservations, opts)
	return f
}

func (f *fixture) build(t *testing.T, reservations reservation.Repository, opts Options) *Coordinator {
	if opts.MaxBookStock == 0 {
		opts.MaxBookStock = 100
	}
	return NewCoordinator(f.books, reservations, memory.NoopTransactor{}, f.locker, f.events, opts, zaptest.NewLogger(t))
}

func (f *fixture) createBook(t *testing.T, title string, total int) *book.Book {
	t.Helper()
	b, err := f.coordinator.CreateBook(context.Background(), CreateBookInput{
		Title: title, Author: "author", Category: "category", TotalCopies: total,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) available(t *testing.T, id uint) int {
	t.Helper()
	b, err := f.books.FindByID(context.Background(), id)
	require.NoError(t, err)
	return b.AvailableCopies
}

func intPtr(v int) *int { return &v }

func TestCreateBook(t *testing.T) {
	ctx := context.Background()

	t.Run("新书可借副本等于总数", func(t *testing.T) {
		f := newFixture(t, Options{MaxBookStock: 10})
		b, err := f.coordinator.CreateBook(ctx, CreateBookInput{
			Title: " Dune ", Author: "Herbert", Category: "Fiction", TotalCopies: 3, AvailableCopies: intPtr(3),
		})
		require.NoError(t, err)
		assert.NotZero(t, b.ID)
		assert.Equal(t, "Dune", b.Title)
		assert.Equal(t, 3, b.AvailableCopies)
	})

	t.Run("可借副本与总数不一致", func(t *testing.T) {
		f := newFixture(t, Options{MaxBookStock: 10})
		_, err := f.coordinator.CreateBook(ctx, CreateBookInput{
			Title: "Dune", Author: "Herbert", Category: "Fiction", TotalCopies: 3, AvailableCopies: intPtr(2),
		})
		assert.ErrorIs(t, err, book.ErrAvailableCopiesMismatch)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})

	t.Run("缺少必填字段", func(t *testing.T) {
		f := newFixture(t, Options{MaxBookStock: 10})
		_, err := f.coordinator.CreateBook(ctx, CreateBookInput{Title: "Dune", Category: "Fiction", TotalCopies: 1})
		assert.ErrorIs(t, err, book.ErrAuthorRequired)

		_, err = f.coordinator.CreateBook(ctx, CreateBookInput{Title: "Dune", Author: "Herbert", Category: "Fiction"})
		assert.ErrorIs(t, err, book.ErrInvalidTotalCopies)
	})

	t.Run("超出馆藏上限", func(t *testing.T) {
		f := newFixture(t, Options{MaxBookStock: 10})
		f.createBook(t, "A", 6)

		_, err := f.coordinator.CreateBook(ctx, CreateBookInput{Title: "B", Author: "x", Category: "c", TotalCopies: 5})
		assert.ErrorIs(t, err, book.ErrStockLimitExceeded)
		assert.Equal(t, book.ReasonStockLimitExceeded, apperrors.ReasonOf(err))

		f.createBook(t, "C", 4)
		summary, err := f.coordinator.GetStockSummary(ctx)
		require.NoError(t, err)
		assert.Equal(t, 10, summary.TotalCopies)
		assert.Equal(t, 0, summary.Remaining)
	})
}

func TestCreateBook_ConcurrentRespectsStockLimit(t *testing.T) {
	f := newFixture(t, Options{MaxBookStock: 10})

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.coordinator.CreateBook(context.Background(), CreateBookInput{
				Title: "Book", Author: "x", Category: "c", TotalCopies: 1,
			})
			if err == nil {
				accepted.Add(1)
				return
			}
			assert.ErrorIs(t, err, book.ErrStockLimitExceeded)
		}()
	}
	wg.Wait()

	total, err := f.books.SumTotalCopies(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int32(10), accepted.Load())
	assert.Equal(t, 10, total)
}

func TestUpdateBook(t *testing.T) {
	ctx := context.Background()

	t.Run("只改描述信息", func(t *testing.T) {
		f := newFixture(t, Options{MaxBookStock: 10})
		b := f.createBook(t, "Dune", 2)

		title := "Dune Messiah"
		updated, err := f.coordinator.UpdateBook(ctx, b.ID, book.Patch{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, title, updated.Title)
		assert.Equal(t, 2, updated.TotalCopies)
	})

	t.Run("按有效预约数重新计算可借副本", func(t *testing.T) {
		f := newFixture(t, Options{MaxBookStock: 10})
		b := f.createBook(t, "Dune", 3)
		_, err := f.coordinator.CreateReservation(ctx, 1, b.ID)
		require.NoError(t, err)
		_, err = f.coordinator.CreateReservation(ctx, 2, b.ID)
		require.NoError(t, err)

		updated, err := f.coordinator.UpdateBook(ctx, b.ID, book.Patch{TotalCopies: intPtr(5)})
		require.NoError(t, err)
		assert.Equal(t, 5, updated.TotalCopies)
		assert.Equal(t, 3, updated.AvailableCopies)

		updated, err = f.coordinator.UpdateBook(ctx, b.ID, book.Patch{TotalCopies: intPtr(2)})
		require.NoError(t, err)
		assert.Equal(t, 0, updated.AvailableCopies)
	})

	t.Run("总数低于有效预约数", func(t *testing.T) {
		f := newFixture(t, Options{MaxBookStock: 10})
		b := f.createBook(t, "Dune", 3)
		_, err := f.coordinator.CreateReservation(ctx, 1, b.ID)
		require.NoError(t, err)
		_, err = f.coordinator.CreateReservation(ctx, 2, b.ID)
		require.NoError(t, err)

		_, err = f.coordinator.UpdateBook(ctx, b.ID, book.Patch{TotalCopies: intPtr(1)})
		assert.ErrorIs(t, err, reservation.ErrBelowReservedFloor)

		got, err := f.books.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.TotalCopies, "被拒绝的修改不应写入")
		assert.Equal(t, 1, got.AvailableCopies)
	})

	t.Run("超出馆藏上限时不修改", func(t *testing.T) {
		f := newFixture(t, Options{MaxBookStock: 10})
		f.createBook(t, "A", 6)
		b := f.createBook(t, "B", 2)

		title := "B2"
		_, err := f.coordinator.UpdateBook(ctx, b.ID, book.Patch{Title: &title, TotalCopies: intPtr(5)})
		assert.ErrorIs(t, err, book.ErrStockLimitExceeded)

		got, err := f.books.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "B", got.Title)

		_, err = f.coordinator.UpdateBook(ctx, b.ID, book.Patch{TotalCopies: intPtr(4)})
		assert.NoError(t, err)
	})

	t.Run("不允许直接修改可借副本", func(t *testing.T) {
		f := newFixture(t, Options{MaxBookStock: 10})
		b := f.createBook(t, "Dune", 2)

		_, err := f.coordinator.UpdateBook(ctx, b.ID, book.Patch{AvailableCopies: intPtr(1)})
		assert.ErrorIs(t, err, book.ErrAvailableCopiesReadOnly)
	})

	t.Run("清空必填字段", func(t *testing.T) {
		f := newFixture(t, Options{MaxBookStock: 10})
		b := f.createBook(t, "Dune", 2)

		empty := "  "
		_, err := f.coordinator.UpdateBook(ctx, b.ID, book.Patch{Author: &empty})
		assert.ErrorIs(t, err, book.ErrAuthorRequired)
	})

	t.Run("图书不存在", func(t *testing.T) {
		f := newFixture(t, Options{MaxBookStock: 10})
		_, err := f.coordinator.UpdateBook(ctx, 42, book.Patch{TotalCopies: intPtr(1)})
		assert.ErrorIs(t, err, book.ErrBookNotFound)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	})
}

func TestDeleteBook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{MaxBookStock: 10})
	b := f.createBook(t, "Dune", 2)

	r, err := f.coordinator.CreateReservation(ctx, 1, b.ID)
	require.NoError(t, err)

	err = f.coordinator.DeleteBook(ctx, b.ID)
	assert.ErrorIs(t, err, book.ErrBookHasActiveReservations)
	assert.Equal(t, book.ReasonBookHasActiveReservations, apperrors.ReasonOf(err))

	_, err = f.coordinator.UpdateReservationStatus(ctx, r.ID, "returned")
	require.NoError(t, err)
	require.NoError(t, f.coordinator.DeleteBook(ctx, b.ID))

	_, err = f.coordinator.GetBook(ctx, b.ID)
	assert.ErrorIs(t, err, book.ErrBookNotFound)
	assert.ErrorIs(t, f.coordinator.DeleteBook(ctx, b.ID), book.ErrBookNotFound)

	// 已归还的预约在图书删除后仍可删除
	require.NoError(t, f.coordinator.DeleteReservation(ctx, r.ID))
}

func TestCreateReservation(t *testing.T) {
	ctx := context.Background()

	t.Run("成功预约扣减可借副本", func(t *testing.T) {
		f := newFixture(t, Options{})
		b := f.createBook(t, "Dune", 2)

		r, err := f.coordinator.CreateReservation(ctx, 7, b.ID)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusReserved, r.Status)
		assert.Equal(t, "Dune", r.BookTitle)
		assert.Equal(t, reservation.DefaultDuration, r.ReturnByDate.Sub(r.ReservationDate))
		assert.Equal(t, 1, f.available(t, b.ID))
		assert.Equal(t, []reservation.EventType{reservation.EventCreated}, f.events.types())
	})

	t.Run("超出配额", func(t *testing.T) {
		f := newFixture(t, Options{MaxActiveReservations: 2})
		var ids []uint
		for _, title := range []string{"A", "B", "C"} {
			ids = append(ids, f.createBook(t, title, 1).ID)
		}
		for _, id := range ids[:2] {
			_, err := f.coordinator.CreateReservation(ctx, 1, id)
			require.NoError(t, err)
		}

		_, err := f.coordinator.CreateReservation(ctx, 1, ids[2])
		assert.ErrorIs(t, err, reservation.ErrTooManyReservations)
		assert.Equal(t, 1, f.available(t, ids[2]))
	})

	t.Run("重复预约", func(t *testing.T) {
		f := newFixture(t, Options{})
		b := f.createBook(t, "Dune", 3)
		_, err := f.coordinator.CreateReservation(ctx, 1, b.ID)
		require.NoError(t, err)

		_, err = f.coordinator.CreateReservation(ctx, 1, b.ID)
		assert.ErrorIs(t, err, reservation.ErrDuplicateReservation)
		assert.Equal(t, 2, f.available(t, b.ID))
	})

	t.Run("无可借副本", func(t *testing.T) {
		f := newFixture(t, Options{})
		b := f.createBook(t, "Dune", 1)
		_, err := f.coordinator.CreateReservation(ctx, 1, b.ID)
		require.NoError(t, err)

		_, err = f.coordinator.CreateReservation(ctx, 2, b.ID)
		assert.ErrorIs(t, err, book.ErrBookUnavailable)
		assert.Equal(t, apperrors.KindPolicy, apperrors.KindOf(err))
	})

	t.Run("配额优先于重复预约检查", func(t *testing.T) {
		f := newFixture(t, Options{MaxActiveReservations: 1})
		b := f.createBook(t, "Dune", 3)
		_, err := f.coordinator.CreateReservation(ctx, 1, b.ID)
		require.NoError(t, err)

		_, err = f.coordinator.CreateReservation(ctx, 1, b.ID)
		assert.ErrorIs(t, err, reservation.ErrTooManyReservations)
	})

	t.Run("参数与不存在的图书", func(t *testing.T) {
		f := newFixture(t, Options{})
		_, err := f.coordinator.CreateReservation(ctx, 0, 1)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

		_, err = f.coordinator.CreateReservation(ctx, 1, 99)
		assert.ErrorIs(t, err, book.ErrBookNotFound)
	})

	t.Run("归还后可再次预约", func(t *testing.T) {
		f := newFixture(t, Options{})
		b := f.createBook(t, "Dune", 1)
		r, err := f.coordinator.CreateReservation(ctx, 1, b.ID)
		require.NoError(t, err)
		_, err = f.coordinator.UpdateReservationStatus(ctx, r.ID, "returned")
		require.NoError(t, err)

		_, err = f.coordinator.CreateReservation(ctx, 1, b.ID)
		assert.NoError(t, err)
	})
}

func TestCreateReservation_ConcurrentSingleBook(t *testing.T) {
	f := newFixture(t, Options{})
	b := f.createBook(t, "Dune", 3)

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for user := uint(1); user <= 20; user++ {
		wg.Add(1)
		go func(user uint) {
			defer wg.Done()
			_, err := f.coordinator.CreateReservation(context.Background(), user, b.ID)
			if err == nil {
				accepted.Add(1)
				return
			}
			assert.ErrorIs(t, err, book.ErrBookUnavailable)
		}(user)
	}
	wg.Wait()

	active, err := f.reservations.CountActive(context.Background(), reservation.ActiveFilter{BookID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, int32(3), accepted.Load())
	assert.Equal(t, 3, active)
	assert.Equal(t, 0, f.available(t, b.ID))
}

func TestCreateReservation_ConcurrentSingleUser(t *testing.T) {
	f := newFixture(t, Options{MaxActiveReservations: 3})
	var ids []uint
	for i := 0; i < 10; i++ {
		ids = append(ids, f.createBook(t, "Book", 1).ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, _ = f.coordinator.CreateReservation(context.Background(), 1, id)
		}(id)
	}
	wg.Wait()

	active, err := f.reservations.CountActive(context.Background(), reservation.ActiveFilter{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, active)

	// 每本书的可借副本与有效预约一致
	for _, id := range ids {
		n, err := f.reservations.CountActive(context.Background(), reservation.ActiveFilter{BookID: id})
		require.NoError(t, err)
		assert.Equal(t, 1-n, f.available(t, id))
	}
}

func TestConcurrentResizeAndReserve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{MaxBookStock: 50, MaxActiveReservations: 1})
	b := f.createBook(t, "Dune", 5)

	var wg sync.WaitGroup
	for user := uint(1); user <= 10; user++ {
		wg.Add(1)
		go func(user uint) {
			defer wg.Done()
			_, _ = f.coordinator.CreateReservation(ctx, user, b.ID)
		}(user)
	}
	for total := 3; total <= 8; total++ {
		wg.Add(1)
		go func(total int) {
			defer wg.Done()
			_, _ = f.coordinator.UpdateBook(ctx, b.ID, book.Patch{TotalCopies: intPtr(total)})
		}(total)
	}
	wg.Wait()

	got, err := f.books.FindByID(ctx, b.ID)
	require.NoError(t, err)
	active, err := f.reservations.CountActive(ctx, reservation.ActiveFilter{BookID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, got.TotalCopies-active, got.AvailableCopies)
	assert.GreaterOrEqual(t, got.AvailableCopies, 0)
}

func TestUpdateReservationStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	b := f.createBook(t, "Dune", 1)
	r, err := f.coordinator.CreateReservation(ctx, 1, b.ID)
	require.NoError(t, err)

	_, err = f.coordinator.UpdateReservationStatus(ctx, r.ID, "lost")
	assert.ErrorIs(t, err, reservation.ErrInvalidStatus)

	same, err := f.coordinator.UpdateReservationStatus(ctx, r.ID, "reserved")
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusReserved, same.Status)
	assert.Equal(t, 0, f.available(t, b.ID))

	returned, err := f.coordinator.UpdateReservationStatus(ctx, r.ID, "returned")
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusReturned, returned.Status)
	assert.NotNil(t, returned.ReturnedAt)
	assert.Equal(t, 1, f.available(t, b.ID))

	// 再次归还不会重复增加
	_, err = f.coordinator.UpdateReservationStatus(ctx, r.ID, "returned")
	require.NoError(t, err)
	assert.Equal(t, 1, f.available(t, b.ID))

	_, err = f.coordinator.UpdateReservationStatus(ctx, r.ID, "reserved")
	assert.ErrorIs(t, err, reservation.ErrInvalidStatusTransition)

	_, err = f.coordinator.UpdateReservationStatus(ctx, 99, "returned")
	assert.ErrorIs(t, err, reservation.ErrReservationNotFound)

	assert.Equal(t, []reservation.EventType{reservation.EventCreated, reservation.EventReturned}, f.events.types())
}

func TestDeleteReservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	b := f.createBook(t, "Dune", 2)

	active, err := f.coordinator.CreateReservation(ctx, 1, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.available(t, b.ID))

	require.NoError(t, f.coordinator.DeleteReservation(ctx, active.ID))
	assert.Equal(t, 2, f.available(t, b.ID))

	_, err = f.coordinator.GetReservation(ctx, active.ID)
	assert.ErrorIs(t, err, reservation.ErrReservationNotFound)
	assert.ErrorIs(t, f.coordinator.DeleteReservation(ctx, active.ID), reservation.ErrReservationNotFound)

	returned, err := f.coordinator.CreateReservation(ctx, 1, b.ID)
	require.NoError(t, err)
	_, err = f.coordinator.UpdateReservationStatus(ctx, returned.ID, "returned")
	require.NoError(t, err)

	require.NoError(t, f.coordinator.DeleteReservation(ctx, returned.ID))
	assert.Equal(t, 2, f.available(t, b.ID), "删除已归还的预约不改变可借副本")
}

func TestCreateReservation_CompensatesWhenRecordWriteFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	b := f.createBook(t, "Dune", 2)

	failing := &failingReservations{Repository: f.reservations, failCreate: true}
	c := f.build(t, failing, Options{})

	_, err := c.CreateReservation(ctx, 1, b.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, apperrors.KindUnavailable, apperrors.KindOf(err))

	assert.Equal(t, 2, f.available(t, b.ID), "补偿应归还已扣减的副本")
	assert.Empty(t, f.events.types())
}

func TestUpdateReservationStatus_CompensatesWhenStatusWriteFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	b := f.createBook(t, "Dune", 2)
	r, err := f.coordinator.CreateReservation(ctx, 1, b.ID)
	require.NoError(t, err)

	failing := &failingReservations{Repository: f.reservations, failUpdateStatus: true}
	c := f.build(t, failing, Options{})

	_, err = c.UpdateReservationStatus(ctx, r.ID, "returned")
	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, 1, f.available(t, b.ID))

	got, err := f.reservations.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusReserved, got.Status)
}

func TestLockTimeoutLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	b := f.createBook(t, "Dune", 2)

	c := f.build(t, f.reservations, Options{LockTimeout: 30 * time.Millisecond})

	unlock, err := f.locker.Lock(ctx, lock.BookKey(b.ID))
	require.NoError(t, err)

	_, err = c.CreateReservation(ctx, 1, b.ID)
	assert.ErrorIs(t, err, apperrors.ErrLockTimeout)
	assert.Equal(t, 503, apperrors.GetAppError(err).HTTPStatus())

	unlock()
	assert.Equal(t, 2, f.available(t, b.ID))

	n, err := f.reservations.CountActive(ctx, reservation.ActiveFilter{UserID: 1})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	dune := f.createBook(t, "Dune", 1)
	f.createBook(t, "Emma", 2)

	_, err := f.coordinator.CreateReservation(ctx, 1, dune.ID)
	require.NoError(t, err)

	all, total, err := f.coordinator.ListBooks(ctx, book.ListParams{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.EqualValues(t, 2, total)

	available, _, err := f.coordinator.ListAvailableBooks(ctx, book.ListParams{})
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Emma", available[0].Title)

	mine, err := f.coordinator.ListUserReservations(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = f.coordinator.ListReservations(ctx, reservation.Filter{Status: "lost"})
	assert.ErrorIs(t, err, reservation.ErrInvalidStatus)

	reserved, err := f.coordinator.ListReservations(ctx, reservation.Filter{Status: reservation.StatusReserved})
	require.NoError(t, err)
	assert.Len(t, reserved, 1)
}
