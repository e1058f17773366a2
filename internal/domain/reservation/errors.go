package reservation

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 业务拒绝原因码
const (
	ReasonTooManyReservations     = "TOO_MANY_RESERVATIONS"
	ReasonDuplicateReservation    = "DUPLICATE_RESERVATION"
	ReasonBelowReservedFloor      = "BELOW_RESERVED_FLOOR"
	ReasonInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
)

// 预约领域错误定义
var (
	// ErrReservationNotFound 预约不存在
	ErrReservationNotFound = apperrors.New(apperrors.ErrCodeReservationNotFound, "预约不存在")

	// ErrInvalidStatus 未知的预约状态
	ErrInvalidStatus = apperrors.New(apperrors.ErrCodeInvalidParams, "预约状态只能是reserved或returned")

	// ErrInvalidStatusTransition 非法的状态转换
	ErrInvalidStatusTransition = apperrors.NewPolicy(apperrors.ErrCodeInvalidStatusTransition, ReasonInvalidStatusTransition, "已归还的预约不能恢复")

	// ErrTooManyReservations 用户有效预约数已达上限
	ErrTooManyReservations = apperrors.NewPolicy(apperrors.ErrCodeTooManyReservations, ReasonTooManyReservations, "有效预约数已达上限")

	// ErrDuplicateReservation 用户已预约该图书
	ErrDuplicateReservation = apperrors.NewPolicy(apperrors.ErrCodeDuplicateReservation, ReasonDuplicateReservation, "您已预约过该图书")

	// ErrBelowReservedFloor 副本总数低于有效预约数
	ErrBelowReservedFloor = apperrors.NewPolicy(apperrors.ErrCodeBelowReservedFloor, ReasonBelowReservedFloor, "副本总数不能少于未归还的预约数")
)
