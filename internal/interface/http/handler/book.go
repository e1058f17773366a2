package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/library/internal/application/inventory"
	"github.com/xiebiao/library/internal/interface/http/dto"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/response"
)

// BookHandler 图书HTTP处理器
type BookHandler struct {
	coordinator *inventory.Coordinator
}

// NewBookHandler 创建图书处理器
func NewBookHandler(coordinator *inventory.Coordinator) *BookHandler {
	return &BookHandler{coordinator: coordinator}
}

// ListBooks 图书列表
// @Summary      图书列表
// @Description  按书名、作者、分类模糊查询(不区分大小写),分页返回
// @Tags         图书
// @Produce      json
// @Param        title     query string false "书名关键字"
// @Param        author    query string false "作者关键字"
// @Param        category  query string false "分类关键字"
// @Param        page      query int    false "页码"
// @Param        page_size query int    false "每页数量"
// @Param        sort_by   query string false "排序" Enums(title_asc, title_desc, created_at_desc)
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.BookResponse}}
// @Failure      400 {object} response.Response "参数错误"
// @Router       /books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	h.list(c, false)
}

// ListAvailableBooks 可借图书列表
// @Summary      可借图书列表
// @Description  只返回可借副本数大于0的图书
// @Tags         图书
// @Produce      json
// @Param        title     query string false "书名关键字"
// @Param        page      query int    false "页码"
// @Param        page_size query int    false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.BookResponse}}
// @Router       /books/available [get]
func (h *BookHandler) ListAvailableBooks(c *gin.Context) {
	h.list(c, true)
}

func (h *BookHandler) list(c *gin.Context, availableOnly bool) {
	var req dto.ListBooksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, apperrors.ErrBindError.WithMessage("参数错误: %s", err.Error()))
		return
	}

	params := req.ToParams()
	list := h.coordinator.ListBooks
	if availableOnly {
		list = h.coordinator.ListAvailableBooks
	}

	books, total, err := list(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPage(c, dto.NewBookList(books), total, params.Page, params.PageSize)
}

// GetBook 图书详情
// @Summary      图书详情
// @Tags         图书
// @Produce      json
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response{data=dto.BookResponse}
// @Failure      404 {object} response.Response "图书不存在"
// @Router       /books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	b, err := h.coordinator.GetBook(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.NewBookResponse(b))
}

// CreateBook 新增图书
// @Summary      新增图书
// @Description  管理员新增馆藏,所有图书副本总数之和不能超过馆藏上限
// @Tags         图书
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateBookRequest true "图书信息"
// @Success      201 {object} response.Response{data=dto.BookResponse}
// @Failure      400 {object} response.Response "参数错误或超出馆藏上限"
// @Failure      401 {object} response.Response "未登录"
// @Failure      403 {object} response.Response "无权限"
// @Failure      503 {object} response.Response "系统繁忙"
// @Router       /books [post]
func (h *BookHandler) CreateBook(c *gin.Context) {
	var req dto.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.ErrBindError.WithMessage("参数错误: %s", err.Error()))
		return
	}

	b, err := h.coordinator.CreateBook(c.Request.Context(), inventory.CreateBookInput{
		Title:           req.Title,
		Author:          req.Author,
		Category:        req.Category,
		Description:     req.Description,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.AvailableCopies,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewBookResponse(b))
}

// UpdateBook 修改图书
// @Summary      修改图书
// @Description  部分更新;修改total_copies时按未归还预约数重新计算可借副本
// @Tags         图书
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                   true "图书ID"
// @Param        request body dto.UpdateBookRequest true "修改内容"
// @Success      200 {object} response.Response{data=dto.BookResponse}
// @Failure      400 {object} response.Response "参数错误或业务规则拒绝"
// @Failure      404 {object} response.Response "图书不存在"
// @Router       /books/{id} [put]
func (h *BookHandler) UpdateBook(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.ErrBindError.WithMessage("参数错误: %s", err.Error()))
		return
	}

	b, err := h.coordinator.UpdateBook(c.Request.Context(), id, req.ToPatch())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.NewBookResponse(b))
}

// DeleteBook 删除图书
// @Summary      删除图书
// @Tags         图书
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response
// @Failure      400 {object} response.Response "仍有未归还的预约"
// @Failure      404 {object} response.Response "图书不存在"
// @Router       /books/{id} [delete]
func (h *BookHandler) DeleteBook(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.coordinator.DeleteBook(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// GetStockSummary 馆藏使用情况
// @Summary      馆藏使用情况
// @Tags         图书
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=inventory.StockSummary}
// @Router       /stock [get]
func (h *BookHandler) GetStockSummary(c *gin.Context) {
	summary, err := h.coordinator.GetStockSummary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}

// parseID 解析路径中的正整数ID,失败时已写入响应
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, apperrors.ErrInvalidParams.WithMessage("无效的%s", name))
		return 0, false
	}
	return uint(id), true
}
