package book

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 业务拒绝原因码
const (
	ReasonStockLimitExceeded        = "STOCK_LIMIT_EXCEEDED"
	ReasonBookUnavailable           = "BOOK_UNAVAILABLE"
	ReasonBookHasActiveReservations = "BOOK_HAS_ACTIVE_RESERVATIONS"
)

// 图书领域错误定义
var (
	// ErrBookNotFound 图书不存在
	ErrBookNotFound = apperrors.New(apperrors.ErrCodeBookNotFound, "图书不存在")

	ErrTitleRequired          = apperrors.New(apperrors.ErrCodeInvalidParams, "书名不能为空")
	ErrAuthorRequired         = apperrors.New(apperrors.ErrCodeInvalidParams, "作者不能为空")
	ErrCategoryRequired       = apperrors.New(apperrors.ErrCodeInvalidParams, "分类不能为空")
	ErrInvalidTotalCopies     = apperrors.New(apperrors.ErrCodeInvalidParams, "副本总数必须大于等于1")
	ErrInvalidAvailableCopies = apperrors.New(apperrors.ErrCodeInvalidParams, "可借副本数必须在0到副本总数之间")

	// ErrAvailableCopiesMismatch 新书的可借副本数必须等于副本总数
	ErrAvailableCopiesMismatch = apperrors.New(apperrors.ErrCodeInvalidParams, "新书的可借副本数必须等于副本总数")

	// ErrAvailableCopiesReadOnly 可借副本数由系统维护,不允许直接修改
	ErrAvailableCopiesReadOnly = apperrors.New(apperrors.ErrCodeInvalidParams, "可借副本数由系统维护,不允许直接修改")

	// ErrStockLimitExceeded 超出全局馆藏上限
	ErrStockLimitExceeded = apperrors.NewPolicy(apperrors.ErrCodeStockLimitExceeded, ReasonStockLimitExceeded, "超出馆藏总量上限")

	// ErrBookUnavailable 无可借副本
	ErrBookUnavailable = apperrors.NewPolicy(apperrors.ErrCodeBookUnavailable, ReasonBookUnavailable, "该图书暂无可借副本")

	// ErrBookHasActiveReservations 图书仍有有效预约,不能删除
	ErrBookHasActiveReservations = apperrors.NewPolicy(apperrors.ErrCodeBookHasActiveReservations, ReasonBookHasActiveReservations, "图书仍有未归还的预约,不能删除")
)
