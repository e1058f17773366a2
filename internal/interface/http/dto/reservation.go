package dto

import (
	"github.com/xiebiao/library/internal/domain/reservation"
)

// CreateReservationRequest HTTP预约请求
// user_id只有管理员可以指定,普通读者总是为自己预约
type CreateReservationRequest struct {
	BookID uint `json:"book_id" binding:"required" example:"1"`
	UserID uint `json:"user_id" example:"0"`
}

// UpdateReservationRequest HTTP修改预约状态请求
type UpdateReservationRequest struct {
	Status string `json:"status" binding:"required" example:"returned"`
}

// ListReservationsRequest HTTP预约列表请求
type ListReservationsRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=reserved returned" example:"reserved"`
	BookID uint   `form:"book_id"`
}

// ReservationResponse HTTP预约响应
type ReservationResponse struct {
	ID              uint   `json:"id" example:"1"`
	UserID          uint   `json:"user_id" example:"7"`
	BookID          uint   `json:"book_id" example:"1"`
	BookTitle       string `json:"book_title" example:"Go语言实战"`
	ReservationDate string `json:"reservation_date" example:"2024-01-15 10:30:00"`
	ReturnByDate    string `json:"return_by_date" example:"2024-01-30 10:30:00"`
	Status          string `json:"status" example:"reserved"`
	ReturnedAt      string `json:"returned_at,omitempty" example:"2024-01-20 09:00:00"`
}

// NewReservationResponse 领域对象 → 响应
func NewReservationResponse(r *reservation.Reservation) *ReservationResponse {
	resp := &ReservationResponse{
		ID:              r.ID,
		UserID:          r.UserID,
		BookID:          r.BookID,
		BookTitle:       r.BookTitle,
		ReservationDate: formatTime(r.ReservationDate),
		ReturnByDate:    formatTime(r.ReturnByDate),
		Status:          r.Status.String(),
	}
	if r.ReturnedAt != nil {
		resp.ReturnedAt = formatTime(*r.ReturnedAt)
	}
	return resp
}

// NewReservationList 批量转换
func NewReservationList(rs []*reservation.Reservation) []*ReservationResponse {
	list := make([]*ReservationResponse, 0, len(rs))
	for _, r := range rs {
		list = append(list, NewReservationResponse(r))
	}
	return list
}
