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

// userID 取网关注入的用户标识
// 鉴权在上游网关完成，这里只信任头里的 X-User-ID
func userID(c *gin.Context) (uint64, bool) {
	raw := c.GetHeader("X-User-ID")
	uid, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || uid == 0 {
		return 0, false
	}
	return uid, true
}

type WalletHandler struct {
	wallets *service.WalletService
	ledger  *service.LedgerService
}

func NewWalletHandler(wallets *service.WalletService, ledger *service.LedgerService) *WalletHandler {
	return &WalletHandler{wallets: wallets, ledger: ledger}
}

// CreateDepositAddress 获取 (必要时分配) 某条链的充值地址
func (h *WalletHandler) CreateDepositAddress(c *gin.Context) {
	var req request.CreateDepositAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	uid, ok := userID(c)
	if !ok {
		response.Error(c, errno.ErrBind)
		return
	}

	wallet, err := h.wallets.GetOrCreateWallet(c.Request.Context(), uid, model.Network(req.Network))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"network": wallet.Network,
		"address": wallet.DepositAddress,
	})
}

// RegenerateDepositAddress 换发新充值地址，旧地址继续监控
func (h *WalletHandler) RegenerateDepositAddress(c *gin.Context) {
	var req request.CreateDepositAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	uid, ok := userID(c)
	if !ok {
		response.Error(c, errno.ErrBind)
		return
	}

	wallet, err := h.wallets.RegenerateAddress(c.Request.Context(), uid, model.Network(req.Network))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"network": wallet.Network,
		"address": wallet.DepositAddress,
	})
}

// ListDepositAddresses 用户所有链的充值地址
func (h *WalletHandler) ListDepositAddresses(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		response.Error(c, errno.ErrBind)
		return
	}
	wallets, err := h.wallets.ListWallets(c.Request.Context(), uid)
	if err != nil {
		response.Error(c, errno.ErrDatabase)
		return
	}
	response.Success(c, wallets)
}

// GetBalance 平台内部余额
func (h *WalletHandler) GetBalance(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		response.Error(c, errno.ErrBind)
		return
	}
	balance, err := h.ledger.GetBalance(c.Request.Context(), uid)
	if err != nil {
		response.Error(c, errno.ErrDatabase)
		return
	}
	response.Success(c, gin.H{"balance": balance})
}

// ListTransactions 用户流水分页
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		response.Error(c, errno.ErrBind)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	txs, total, err := h.ledger.ListTransactions(c.Request.Context(), uid, page, pageSize)
	if err != nil {
		response.Error(c, errno.ErrDatabase)
		return
	}
	response.Success(c, gin.H{
		"total": total,
		"items": txs,
	})
}
