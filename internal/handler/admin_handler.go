package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"custody-core/internal/handler/request"
	"custody-core/internal/handler/response"
	"custody-core/internal/service"
	"custody-core/pkg/errno"
)

type AdminHandler struct {
	withdraws *service.WithdrawService
	sweeper   *service.SweeperService
}

func NewAdminHandler(withdraws *service.WithdrawService, sweeper *service.SweeperService) *AdminHandler {
	return &AdminHandler{withdraws: withdraws, sweeper: sweeper}
}

// adminName 审核人标识，同样由网关注入
func adminName(c *gin.Context) string {
	if name := c.GetHeader("X-Admin-Name"); name != "" {
		return name
	}
	return "unknown"
}

// ListPendingWithdrawals 审核队列
func (h *AdminHandler) ListPendingWithdrawals(c *gin.Context) {
	list, err := h.withdraws.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, errno.ErrDatabase)
		return
	}
	response.Success(c, list)
}

// ReviewWithdrawal 审核一笔提现: approve 或 reject
func (h *AdminHandler) ReviewWithdrawal(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	var req request.ReviewWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	admin := adminName(c)
	switch req.Action {
	case "approve":
		err = h.withdraws.Approve(c.Request.Context(), id, admin, req.Remark)
	case "reject":
		err = h.withdraws.Reject(c.Request.Context(), id, admin, req.Remark)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "action": req.Action})
}

// HotWalletBalances 各链热钱包备付金
func (h *AdminHandler) HotWalletBalances(c *gin.Context) {
	response.Success(c, h.sweeper.HotWalletBalances(c.Request.Context()))
}

// TriggerSweep 手动触发一轮归集，返回逐地址结果和归集总额
func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	response.Success(c, h.sweeper.SweepAll(c.Request.Context()))
}

// AllDepositBalances 所有充值地址的链上余额快照
func (h *AdminHandler) AllDepositBalances(c *gin.Context) {
	snapshots, err := h.sweeper.AllDepositBalances(c.Request.Context())
	if err != nil {
		response.Error(c, errno.ErrDatabase)
		return
	}
	response.Success(c, snapshots)
}
