package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"custody-core/internal/handler/request"
	"custody-core/internal/handler/response"
	"custody-core/internal/model"
	"custody-core/internal/service"
	"custody-core/pkg/errno"
)

type WithdrawHandler struct {
	withdraws *service.WithdrawService
}

func NewWithdrawHandler(withdraws *service.WithdrawService) *WithdrawHandler {
	return &WithdrawHandler{withdraws: withdraws}
}

// CreateWithdrawal 发起提现申请
func (h *WithdrawHandler) CreateWithdrawal(c *gin.Context) {
	var req request.CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	uid, ok := userID(c)
	if !ok {
		response.Error(c, errno.ErrBind)
		return
	}

	w, err := h.withdraws.Request(c.Request.Context(), uid, model.Network(req.Network), req.ToAddress, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, w)
}

// ListWithdrawals 用户提现历史
func (h *WithdrawHandler) ListWithdrawals(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		response.Error(c, errno.ErrBind)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	list, total, err := h.withdraws.ListByUser(c.Request.Context(), uid, page, pageSize)
	if err != nil {
		response.Error(c, errno.ErrDatabase)
		return
	}
	response.Success(c, gin.H{
		"total": total,
		"items": list,
	})
}
