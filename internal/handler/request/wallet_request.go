package request

// CreateDepositAddressRequest 获取充值地址请求
type CreateDepositAddressRequest struct {
	Network string `json:"network" binding:"required,oneof=tron ethereum bsc polygon solana bitcoin"`
}
