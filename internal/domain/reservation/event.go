package reservation

import "time"

// EventType 预约领域事件类型,同时用作消息的routing key
type EventType string

const (
	EventCreated  EventType = "reservation.created"
	EventReturned EventType = "reservation.returned"
	EventDeleted  EventType = "reservation.deleted"
)

// Event 预约领域事件
type Event struct {
	Type            EventType `json:"type"`
	ReservationID   uint      `json:"reservation_id"`
	UserID          uint      `json:"user_id"`
	BookID          uint      `json:"book_id"`
	BookTitle       string    `json:"book_title"`
	Status          Status    `json:"status"`
	ReservationDate time.Time `json:"reservation_date"`
	ReturnByDate    time.Time `json:"return_by_date"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewEvent 根据预约当前状态构建事件
func NewEvent(t EventType, r *Reservation, now time.Time) Event {
	return Event{
		Type:            t,
		ReservationID:   r.ID,
		UserID:          r.UserID,
		BookID:          r.BookID,
		BookTitle:       r.BookTitle,
		Status:          r.Status,
		ReservationDate: r.ReservationDate,
		ReturnByDate:    r.ReturnByDate,
		OccurredAt:      now,
	}
}
