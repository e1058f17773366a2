package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  *AppError
		want int
	}{
		{"参数错误", ErrInvalidParams, http.StatusBadRequest},
		{"业务拒绝", NewPolicy(ErrCodeBookUnavailable, "BOOK_UNAVAILABLE", "无可借副本"), http.StatusBadRequest},
		{"资源不存在", New(ErrCodeBookNotFound, "图书不存在"), http.StatusNotFound},
		{"未登录", ErrUnauthorized, http.StatusUnauthorized},
		{"无权限", ErrForbidden, http.StatusForbidden},
		{"存储不可用", Wrap(errors.New("connection refused"), "查询失败"), http.StatusInternalServerError},
		{"锁超时", ErrLockTimeout, http.StatusServiceUnavailable},
		{"内部错误", ErrInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.HTTPStatus())
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	base := NewPolicy(ErrCodeBookUnavailable, "BOOK_UNAVAILABLE", "无可借副本")
	custom := base.WithMessage("《%s》暂无可借副本", "Go语言实战")
	wrapped := fmt.Errorf("create reservation: %w", custom)

	assert.True(t, errors.Is(wrapped, base))
	assert.False(t, errors.Is(wrapped, ErrInvalidParams))
	assert.Equal(t, "BOOK_UNAVAILABLE", ReasonOf(wrapped))
	assert.Equal(t, KindPolicy, KindOf(wrapped))
	assert.Equal(t, "无可借副本", base.Message, "WithMessage不应修改原错误")
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("i/o timeout")
	err := Wrap(cause, "更新图书失败")

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.Equal(t, KindUnavailable, err.Kind)
}

func TestGetAppErrorWrapsPlainError(t *testing.T) {
	appErr := GetAppError(errors.New("boom"))

	assert.Equal(t, ErrCodeInternal, appErr.Code)
	assert.Equal(t, KindInternal, appErr.Kind)
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Empty(t, ReasonOf(errors.New("boom")))
}
