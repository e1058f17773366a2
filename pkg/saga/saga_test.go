package saga

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type ctxKey struct{}

func TestSaga_Execute_Success(t *testing.T) {
	executed := make([]string, 0)

	s := NewSaga(5 * time.Second)
	s.AddStep("扣减可借副本",
		func(ctx context.Context) error {
			executed = append(executed, "扣减可借副本")
			return nil
		},
		func(ctx context.Context) error {
			executed = append(executed, "恢复可借副本")
			return nil
		},
	)
	s.AddStep("创建预约记录",
		func(ctx context.Context) error {
			executed = append(executed, "创建预约记录")
			return nil
		},
		nil,
	)

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"扣减可借副本", "创建预约记录"}, executed)
}

func TestSaga_Execute_FailureAndCompensate(t *testing.T) {
	executed := make([]string, 0)
	errWrite := errors.New("写入预约失败")

	s := NewSaga(5*time.Second, WithLogger(zaptest.NewLogger(t)))
	s.AddStep("步骤A",
		func(ctx context.Context) error {
			executed = append(executed, "A")
			return nil
		},
		func(ctx context.Context) error {
			executed = append(executed, "补偿A")
			return nil
		},
	)
	s.AddStep("步骤B",
		func(ctx context.Context) error {
			executed = append(executed, "B")
			return nil
		},
		func(ctx context.Context) error {
			executed = append(executed, "补偿B")
			return nil
		},
	)
	s.AddStep("步骤C",
		func(ctx context.Context) error {
			return errWrite
		},
		func(ctx context.Context) error {
			executed = append(executed, "补偿C")
			return nil
		},
	)

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errWrite)
	// 失败步骤自身不补偿,已完成步骤逆序补偿
	assert.Equal(t, []string{"A", "B", "补偿B", "补偿A"}, executed)
}

func TestSaga_CompensationFailureIsReturned(t *testing.T) {
	errAction := errors.New("action failed")
	errCompensate := errors.New("compensate failed")
	compensatedA := false

	s := NewSaga(0, WithLogger(zaptest.NewLogger(t)))
	s.AddStep("A",
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error {
			compensatedA = true
			return nil
		},
	)
	s.AddStep("B",
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return errCompensate },
	)
	s.AddStep("C", func(ctx context.Context) error { return errAction }, nil)

	err := s.Execute(context.Background())
	assert.ErrorIs(t, err, errAction)
	assert.ErrorIs(t, err, errCompensate)
	assert.True(t, compensatedA, "某个补偿失败后仍应继续执行其余补偿")
}

func TestSaga_CompensateKeepsContextValues(t *testing.T) {
	var seen interface{}
	var compensateCtxErr error

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "tx"))

	s := NewSaga(0)
	s.AddStep("A",
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error {
			seen = ctx.Value(ctxKey{})
			compensateCtxErr = ctx.Err()
			return nil
		},
	)
	s.AddStep("B", func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	}, nil)

	err := s.Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "tx", seen, "补偿应能拿到原Context中的事务")
	assert.NoError(t, compensateCtxErr, "补偿不应受取消影响")
}

func TestSaga_Timeout(t *testing.T) {
	compensated := false

	s := NewSaga(20 * time.Millisecond)
	s.AddStep("慢步骤",
		func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		},
		func(ctx context.Context) error {
			compensated = true
			return nil
		},
	)
	s.AddStep("后续步骤", func(ctx context.Context) error {
		t.Fatal("超时后不应继续执行")
		return nil
	}, nil)

	err := s.Execute(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, compensated)
}
