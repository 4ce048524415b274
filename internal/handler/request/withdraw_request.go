package request

import "github.com/shopspring/decimal"

type CreateWithdrawalRequest struct {
	Network   string          `json:"network" binding:"required,oneof=tron ethereum bsc polygon solana bitcoin"`
	ToAddress string          `json:"to_address" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
}
