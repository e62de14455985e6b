package model

// BalanceResponse represents response for GET /wallet/balance
type BalanceResponse struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"` // decimal, 8 places
	Atomic  uint64 `json:"atomic"`
	Nonce   uint64 `json:"nonce"`
}
