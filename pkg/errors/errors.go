package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误分类
// 决定HTTP状态码以及调用方是否可以重试
type Kind int

const (
	KindInternal    Kind = iota // 内部错误
	KindValidation              // 参数缺失或格式错误,不重试
	KindPolicy                  // 业务规则拒绝(库存上限、配额、重复预约等),不重试,不改变状态
	KindNotFound                // 资源不存在
	KindUnavailable             // 存储不可用/锁等待超时,调用方可重试
	KindAuth                    // 未登录或无权限
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code用于客户端判断错误类型
// 2. Message是用户友好的提示信息
// 3. Reason是业务拒绝原因码(如STOCK_LIMIT_EXCEEDED),仅KindPolicy使用
// 4. Err是内部错误，仅记录到日志，不返回给客户端
type AppError struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"-"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较,使包装后的预定义错误仍能被errors.Is识别
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// HTTPStatus 错误对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindPolicy:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth:
		if e.Code == ErrCodeForbidden {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case KindUnavailable:
		if e.Code == ErrCodeLockTimeout {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WithMessage 复制错误并替换提示信息(保留Code/Kind/Reason)
func (e *AppError) WithMessage(format string, args ...interface{}) *AppError {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// New 创建新的AppError,Kind由错误码区间推导
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kindOf(code),
		Message: message,
	}
}

// NewPolicy 创建业务规则拒绝错误
func NewPolicy(code int, reason, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    KindPolicy,
		Reason:  reason,
		Message: message,
	}
}

// Wrap 包装存储/网络等底层错误
// 包装结果视为StoreUnavailable,调用方可以安全重试
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeStoreUnavailable,
		Kind:    KindUnavailable,
		Message: message,
		Err:     err,
	}
}

// WrapInternal 包装不可重试的内部错误(如签名失败、序列化失败)
func WrapInternal(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Kind:    KindInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// =========================================
// 错误码定义
// =========================================
// 规范：
// - 4xxxx: 客户端错误（参数错误、业务规则校验失败）
// - 5xxxx: 服务端错误（存储异常、锁等待超时）

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal         = 50000 // 内部错误
	ErrCodeStoreUnavailable = 50001 // 存储不可用
	ErrCodeRedisError       = 50002 // Redis错误
	ErrCodeLockTimeout      = 50003 // 等待锁超时

	// 认证授权错误（40100-40199）
	ErrCodeUnauthorized = 40100 // 未登录
	ErrCodeInvalidToken = 40101 // Token无效
	ErrCodeTokenExpired = 40102 // Token过期
	ErrCodeForbidden    = 40104 // 无权限

	// 资源错误（40400-40499）
	ErrCodeNotFound            = 40400 // 资源不存在(通用)
	ErrCodeBookNotFound        = 40402 // 图书不存在
	ErrCodeReservationNotFound = 40403 // 预约不存在

	// 业务规则错误（40000-40099）
	ErrCodeBusinessError             = 40000 // 业务错误(通用)
	ErrCodeStockLimitExceeded        = 40010 // 超出馆藏总量上限
	ErrCodeTooManyReservations       = 40011 // 用户有效预约数已达上限
	ErrCodeBookUnavailable           = 40012 // 无可借副本
	ErrCodeDuplicateReservation      = 40013 // 重复预约同一本书
	ErrCodeBelowReservedFloor        = 40014 // 总数低于已预约数量
	ErrCodeBookHasActiveReservations = 40015 // 图书仍有有效预约
	ErrCodeInvalidStatusTransition   = 40016 // 预约状态不允许此操作

	// 参数错误（40900-40999）
	ErrCodeInvalidParams = 40900 // 参数错误
	ErrCodeBindError     = 40901 // 参数绑定失败
)

// kindOf 根据错误码区间推导错误分类
func kindOf(code int) Kind {
	switch {
	case code >= 40900 && code < 41000:
		return KindValidation
	case code >= 40400 && code < 40500:
		return KindNotFound
	case code >= 40000 && code < 40100:
		return KindPolicy
	case code >= 40100 && code < 40200:
		return KindAuth
	case code == ErrCodeStoreUnavailable, code == ErrCodeRedisError, code == ErrCodeLockTimeout:
		return KindUnavailable
	default:
		return KindInternal
	}
}

// =========================================
// 预定义错误
// =========================================

var (
	// 系统错误
	ErrInternal         = New(ErrCodeInternal, "系统内部错误")
	ErrStoreUnavailable = New(ErrCodeStoreUnavailable, "存储服务不可用")
	ErrLockTimeout      = New(ErrCodeLockTimeout, "系统繁忙,请稍后重试")

	// 认证授权
	ErrUnauthorized = New(ErrCodeUnauthorized, "请先登录")
	ErrInvalidToken = New(ErrCodeInvalidToken, "无效的Token")
	ErrTokenExpired = New(ErrCodeTokenExpired, "Token已过期")
	ErrForbidden    = New(ErrCodeForbidden, "无权限访问")

	// 参数错误
	ErrInvalidParams = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError     = New(ErrCodeBindError, "参数格式错误")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    ErrCodeInternal,
		Kind:    KindInternal,
		Message: "系统内部错误",
		Err:     err,
	}
}

// KindOf 返回错误分类,非AppError视为内部错误
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// ReasonOf 返回业务拒绝原因码
func ReasonOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}
