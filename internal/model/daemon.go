package model

// DaemonInfo is the result of the daemon's get_info call.
type DaemonInfo struct {
	Height       uint64 `json:"height"`
	TopoHeight   uint64 `json:"topoheight"`
	StableHeight uint64 `json:"stableheight"`
	Network      string `json:"network"`
	Version      string `json:"version"`
}

// GetBalanceParams are the params of get_balance.
type GetBalanceParams struct {
	Address string `json:"address"`
	Asset   Asset  `json:"asset"`
}

// GetBalanceResult is the result of get_balance.
type GetBalanceResult struct {
	Balance    uint64 `json:"balance"`
	TopoHeight uint64 `json:"topoheight"`
}

// GetNonceParams are the params of get_nonce.
type GetNonceParams struct {
	Address string `json:"address"`
}

// GetNonceResult is the result of get_nonce.
type GetNonceResult struct {
	Nonce      uint64 `json:"nonce"`
	TopoHeight uint64 `json:"topoheight"`
}

// SubmitTransactionParams carries a hex-encoded signed transaction.
type SubmitTransactionParams struct {
	Data string `json:"data"`
}
