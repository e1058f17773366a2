package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/library/internal/application/inventory"
	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/response"
)

// ReservationHandler 预约HTTP处理器
// 普通读者只能操作自己的预约,管理员可以操作全部
type ReservationHandler struct {
	coordinator *inventory.Coordinator
}

// NewReservationHandler 创建预约处理器
func NewReservationHandler(coordinator *inventory.Coordinator) *ReservationHandler {
	return &ReservationHandler{coordinator: coordinator}
}

// CreateReservation 预约图书
// @Summary      预约图书
// @Description  扣减一本可借副本;受每人有效预约数上限约束,同一本书不能重复预约
// @Tags         预约
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateReservationRequest true "预约信息"
// @Success      201 {object} response.Response{data=dto.ReservationResponse}
// @Failure      400 {object} response.Response "超出配额/重复预约/无可借副本"
// @Failure      404 {object} response.Response "图书不存在"
// @Failure      503 {object} response.Response "系统繁忙"
// @Router       /reservations [post]
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	var req dto.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.ErrBindError.WithMessage("参数错误: %s", err.Error()))
		return
	}

	userID := middleware.GetUserID(c)
	if req.UserID != 0 && req.UserID != userID {
		if !middleware.IsAdmin(c) {
			response.Error(c, apperrors.ErrForbidden.WithMessage("不能为其他用户预约"))
			return
		}
		userID = req.UserID
	}

	r, err := h.coordinator.CreateReservation(c.Request.Context(), userID, req.BookID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewReservationResponse(r))
}

// ListReservations 全部预约
// @Summary      全部预约
// @Tags         预约
// @Produce      json
// @Security     BearerAuth
// @Param        status  query string false "状态" Enums(reserved, returned)
// @Param        book_id query int    false "图书ID"
// @Success      200 {object} response.Response{data=[]dto.ReservationResponse}
// @Failure      403 {object} response.Response "无权限"
// @Router       /reservations [get]
func (h *ReservationHandler) ListReservations(c *gin.Context) {
	var req dto.ListReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, apperrors.ErrBindError.WithMessage("参数错误: %s", err.Error()))
		return
	}

	list, err := h.coordinator.ListReservations(c.Request.Context(), reservation.Filter{
		BookID: req.BookID,
		Status: reservation.Status(req.Status),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.NewReservationList(list))
}

// ListMyReservations 我的预约
// @Summary      我的预约
// @Tags         预约
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=[]dto.ReservationResponse}
// @Router       /reservations/me [get]
func (h *ReservationHandler) ListMyReservations(c *gin.Context) {
	h.listForUser(c, middleware.GetUserID(c))
}

// ListUserReservations 指定用户的预约
// @Summary      指定用户的预约
// @Tags         预约
// @Produce      json
// @Security     BearerAuth
// @Param        userId path int true "用户ID"
// @Success      200 {object} response.Response{data=[]dto.ReservationResponse}
// @Failure      403 {object} response.Response "无权限"
// @Router       /reservations/user/{userId} [get]
func (h *ReservationHandler) ListUserReservations(c *gin.Context) {
	userID, ok := parseID(c, "userId")
	if !ok {
		return
	}
	if !middleware.CanAccessUser(c, userID) {
		response.Error(c, apperrors.ErrForbidden)
		return
	}
	h.listForUser(c, userID)
}

func (h *ReservationHandler) listForUser(c *gin.Context, userID uint) {
	list, err := h.coordinator.ListUserReservations(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewReservationList(list))
}

// GetReservation 预约详情
// @Summary      预约详情
// @Tags         预约
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "预约ID"
// @Success      200 {object} response.Response{data=dto.ReservationResponse}
// @Failure      404 {object} response.Response "预约不存在"
// @Router       /reservations/{id} [get]
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	r, ok := h.loadOwned(c)
	if !ok {
		return
	}
	response.Success(c, dto.NewReservationResponse(r))
}

// UpdateReservationStatus 修改预约状态
// @Summary      修改预约状态
// @Description  reserved → returned 归还一本副本;已归还的预约不能恢复
// @Tags         预约
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                          true "预约ID"
// @Param        request body dto.UpdateReservationRequest true "目标状态"
// @Success      200 {object} response.Response{data=dto.ReservationResponse}
// @Failure      400 {object} response.Response "非法状态或状态转换"
// @Failure      404 {object} response.Response "预约不存在"
// @Router       /reservations/{id} [put]
func (h *ReservationHandler) UpdateReservationStatus(c *gin.Context) {
	var req dto.UpdateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.ErrBindError.WithMessage("参数错误: %s", err.Error()))
		return
	}

	current, ok := h.loadOwned(c)
	if !ok {
		return
	}

	r, err := h.coordinator.UpdateReservationStatus(c.Request.Context(), current.ID, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.NewReservationResponse(r))
}

// DeleteReservation 删除预约
// @Summary      删除预约
// @Description  删除未归还的预约会归还一本副本
// @Tags         预约
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "预约ID"
// @Success      200 {object} response.Response
// @Failure      404 {object} response.Response "预约不存在"
// @Router       /reservations/{id} [delete]
func (h *ReservationHandler) DeleteReservation(c *gin.Context) {
	current, ok := h.loadOwned(c)
	if !ok {
		return
	}

	if err := h.coordinator.DeleteReservation(c.Request.Context(), current.ID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// loadOwned 读取预约并校验归属,失败时已写入响应
func (h *ReservationHandler) loadOwned(c *gin.Context) (*reservation.Reservation, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}

	r, err := h.coordinator.GetReservation(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if !middleware.CanAccessUser(c, r.UserID) {
		response.Error(c, apperrors.ErrForbidden)
		return nil, false
	}
	return r, true
}
