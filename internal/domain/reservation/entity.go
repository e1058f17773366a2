package reservation

import (
	"time"
)

// Status 预约状态
type Status string

const (
	StatusReserved Status = "reserved" // 已预约(有效预约,占用一本可借副本)
	StatusReturned Status = "returned" // 已归还(终态)
)

// String 实现Stringer接口(方便日志输出)
func (s Status) String() string {
	return string(s)
}

// Valid 是否为已知状态
func (s Status) Valid() bool {
	return s == StatusReserved || s == StatusReturned
}

// ParseStatus 解析客户端传入的状态
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// DefaultDuration 默认借阅期限
const DefaultDuration = 15 * 24 * time.Hour

// Reservation 预约实体
// 设计说明:
// 1. BookTitle是创建时的书名快照,图书改名不影响历史预约
// 2. 只保存BookID/UserID,不跨聚合引用实体
// 3. 状态只能经由库存协调器变更
type Reservation struct {
	ID              uint
	UserID          uint
	BookID          uint
	BookTitle       string
	ReservationDate time.Time
	ReturnByDate    time.Time
	Status          Status
	ReturnedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewReservation 创建新预约(工厂方法)
// 初始状态为reserved,ReturnByDate = ReservationDate + duration
func NewReservation(userID, bookID uint, bookTitle string, now time.Time, duration time.Duration) *Reservation {
	return &Reservation{
		UserID:          userID,
		BookID:          bookID,
		BookTitle:       bookTitle,
		ReservationDate: now,
		ReturnByDate:    now.Add(duration),
		Status:          StatusReserved,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// IsActive 是否为有效预约
func (r *Reservation) IsActive() bool {
	return r.Status == StatusReserved
}

// CanTransitionTo 检查是否可以转换到目标状态
// reserved→returned; 同状态改写视为无操作; returned为终态
func (r *Reservation) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusReserved: {StatusReserved, StatusReturned},
		StatusReturned: {StatusReturned},
	}

	for _, allowed := range transitions[r.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo 状态转换
// 返回true表示从有效预约变为已归还,调用方需要释放一本副本
func (r *Reservation) TransitionTo(target Status, now time.Time) (released bool, err error) {
	if !target.Valid() {
		return false, ErrInvalidStatus
	}
	if !r.CanTransitionTo(target) {
		return false, ErrInvalidStatusTransition
	}
	if r.Status == target {
		return false, nil
	}
	r.Status = target
	r.ReturnedAt = &now
	r.UpdatedAt = now
	return true, nil
}

// IsOwnedBy 检查预约是否属于指定用户
func (r *Reservation) IsOwnedBy(userID uint) bool {
	return r.UserID == userID
}

// IsOverdue 是否已超过应还日期且未归还
func (r *Reservation) IsOverdue(now time.Time) bool {
	return r.IsActive() && now.After(r.ReturnByDate)
}
