package model

// TransferRequest represents request for POST /wallet/transfer
type TransferRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`          // decimal, e.g. "1.5"
	Asset   string `json:"asset,omitempty"` // hex, native when empty
}

// TransferResponse represents response for POST /wallet/transfer
type TransferResponse struct {
	Hash      string `json:"hash"`
	Nonce     uint64 `json:"nonce"`
	Submitted bool   `json:"submitted"`
}

// PasswordRequest represents request for POST /wallet/password
type PasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// HistoryResponse represents response for GET /wallet/history
type HistoryResponse struct {
	Address      string         `json:"address"`
	Transactions []HistoryEntry `json:"transactions"`
}

// StatusResponse represents response for GET /wallet/status
type StatusResponse struct {
	Mode Mode      `json:"mode"`
	Sync SyncState `json:"sync"`
}
