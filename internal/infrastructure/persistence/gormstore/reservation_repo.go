package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/reservation"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// reservationRepository 预约仓储实现(GORM)
type reservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建预约仓储
func NewReservationRepository(db *gorm.DB) reservation.Repository {
	return &reservationRepository{db: db}
}

// Create 创建预约
func (r *reservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	model := toReservationModel(res)

	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建预约失败")
	}

	res.ID = model.ID
	res.CreatedAt = model.CreatedAt
	res.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID 根据ID查找预约
func (r *reservationRepository) FindByID(ctx context.Context, id uint) (*reservation.Reservation, error) {
	var model ReservationModel
	err := getDB(ctx, r.db).First(&model, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, apperrors.Wrap(err, "查询预约失败")
	}

	return toReservationEntity(&model), nil
}

// List 按条件查询预约
func (r *reservationRepository) List(ctx context.Context, filter reservation.Filter) ([]*reservation.Reservation, error) {
	var models []ReservationModel

	query := getDB(ctx, r.db).Model(&ReservationModel{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.BookID != 0 {
		query = query.Where("book_id = ?", filter.BookID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	if err := query.Order("reservation_date DESC").Order("id DESC").Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询预约列表失败")
	}

	list := make([]*reservation.Reservation, len(models))
	for i := range models {
		list[i] = toReservationEntity(&models[i])
	}
	return list, nil
}

// CountActive 统计有效预约数
func (r *reservationRepository) CountActive(ctx context.Context, filter reservation.ActiveFilter) (int, error) {
	var count int64

	query := getDB(ctx, r.db).Model(&ReservationModel{}).
		Where("status = ?", string(reservation.StatusReserved))
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.BookID != 0 {
		query = query.Where("book_id = ?", filter.BookID)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, apperrors.Wrap(err, "统计有效预约失败")
	}
	return int(count), nil
}

// FindActive 查找用户对某本书的有效预约
func (r *reservationRepository) FindActive(ctx context.Context, userID, bookID uint) (*reservation.Reservation, error) {
	var model ReservationModel
	err := getDB(ctx, r.db).
		Where("user_id = ? AND book_id = ? AND status = ?", userID, bookID, string(reservation.StatusReserved)).
		First(&model).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, "查询有效预约失败")
	}
	return toReservationEntity(&model), nil
}

// UpdateStatus 写回预约状态
func (r *reservationRepository) UpdateStatus(ctx context.Context, res *reservation.Reservation) error {
	err := getDB(ctx, r.db).Model(&ReservationModel{}).
		Where("id = ?", res.ID).
		Updates(map[string]interface{}{
			"status":      string(res.Status),
			"returned_at": res.ReturnedAt,
			"updated_at":  res.UpdatedAt,
		}).Error

	if err != nil {
		return apperrors.Wrap(err, "更新预约状态失败")
	}
	return nil
}

// Delete 删除预约(物理删除)
func (r *reservationRepository) Delete(ctx context.Context, id uint) error {
	result := getDB(ctx, r.db).Delete(&ReservationModel{}, id)

	if result.Error != nil {
		return apperrors.Wrap(result.Error, "删除预约失败")
	}
	if result.RowsAffected == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

func toReservationModel(res *reservation.Reservation) *ReservationModel {
	return &ReservationModel{
		ID:              res.ID,
		UserID:          res.UserID,
		BookID:          res.BookID,
		BookTitle:       res.BookTitle,
		ReservationDate: res.ReservationDate,
		ReturnByDate:    res.ReturnByDate,
		Status:          string(res.Status),
		ReturnedAt:      res.ReturnedAt,
		CreatedAt:       res.CreatedAt,
		UpdatedAt:       res.UpdatedAt,
	}
}

func toReservationEntity(model *ReservationModel) *reservation.Reservation {
	return &reservation.Reservation{
		ID:              model.ID,
		UserID:          model.UserID,
		BookID:          model.BookID,
		BookTitle:       model.BookTitle,
		ReservationDate: model.ReservationDate,
		ReturnByDate:    model.ReturnByDate,
		Status:          reservation.Status(model.Status),
		ReturnedAt:      model.ReturnedAt,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}
