package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AlexZinkM/xelis-wallet/internal/address"
	"github.com/AlexZinkM/xelis-wallet/internal/client"
	"github.com/AlexZinkM/xelis-wallet/internal/common"
	"github.com/AlexZinkM/xelis-wallet/internal/ledger"
	"github.com/AlexZinkM/xelis-wallet/internal/model"
	"github.com/AlexZinkM/xelis-wallet/internal/storage"
	"github.com/AlexZinkM/xelis-wallet/internal/txbuilder"
)

// WalletService is the open wallet as used by the HTTP handlers.
type WalletService interface {
	AddressInfo() *model.AddressResponse
	Balance(asset string) (*model.BalanceResponse, error)
	History() *model.HistoryResponse
	Status() *model.StatusResponse
	Transfer(ctx context.Context, toAddress, amount, asset string) (*model.TransferResponse, error)
	SetPassword(oldPassword, newPassword []byte) error
}

// WalletHandler serves the wallet API
type WalletHandler struct {
	wallet WalletService
}

// NewWalletHandler creates a new WalletHandler for an open wallet
func NewWalletHandler(wallet WalletService) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

// GetAddress handles GET /wallet/address
// @Summary      Get wallet address
// @Description  Returns the wallet address, its network and a base64 PNG QR code
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.AddressResponse
// @Router       /wallet/address [get]
func (h *WalletHandler) GetAddress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.wallet.AddressInfo())
}

// GetBalance handles GET /wallet/balance
// @Summary      Get wallet balance
// @Description  Gets the local balance of an asset (native asset when omitted)
// @Tags         wallet
// @Produce      json
// @Param        asset  query     string  false  "Asset id (hex)"
// @Success      200    {object}  model.BalanceResponse
// @Failure      400    {object}  model.ErrorResponse
// @Router       /wallet/balance [get]
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.wallet.Balance(r.URL.Query().Get("asset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// History handles GET /wallet/history
// @Summary      Get wallet transactions
// @Description  Gets the local transaction history, oldest first
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.HistoryResponse
// @Router       /wallet/history [get]
func (h *WalletHandler) History(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.wallet.History())
}

// Status handles GET /wallet/status
// @Summary      Get sync status
// @Description  Returns online/offline mode and the daemon sync state
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.StatusResponse
// @Router       /wallet/status [get]
func (h *WalletHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.wallet.Status())
}

// Transfer handles POST /wallet/transfer
// @Summary      Send a transfer
// @Description  Builds and signs a transfer, and submits it when the wallet is online
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.TransferRequest  true  "Transfer data"
// @Success      200      {object}  model.TransferResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      422      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /wallet/transfer [post]
func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req model.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeBadRequest, err)
		return
	}
	if req.Address == "" || req.Amount == "" {
		writeError(w, http.StatusBadRequest, model.CodeBadRequest, errors.New("address and amount are required"))
		return
	}

	resp, err := h.wallet.Transfer(r.Context(), req.Address, req.Amount, req.Asset)
	if err != nil {
		status, code := classifyError(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetPassword handles POST /wallet/password
// @Summary      Change wallet password
// @Description  Re-encrypts the wallet under a new password
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.PasswordRequest  true  "Old and new password"
// @Success      204
// @Failure      400      {object}  model.ErrorResponse
// @Failure      403      {object}  model.ErrorResponse
// @Router       /wallet/password [post]
func (h *WalletHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req model.PasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeBadRequest, err)
		return
	}

	// Get passwords as []byte, use them, then zero them immediately
	oldPassword, newPassword := []byte(req.OldPassword), []byte(req.NewPassword)
	defer clear(oldPassword)
	defer clear(newPassword)

	if len(newPassword) == 0 {
		writeError(w, http.StatusBadRequest, model.CodeBadRequest, errors.New("new password cannot be empty"))
		return
	}

	if err := h.wallet.SetPassword(oldPassword, newPassword); err != nil {
		status, code := classifyError(err)
		writeError(w, status, code, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// classifyError maps wallet errors onto HTTP statuses and error codes.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, address.ErrInvalidAddress):
		return http.StatusBadRequest, model.CodeInvalidAddress
	case errors.Is(err, common.ErrInvalidAmount),
		errors.Is(err, txbuilder.ErrInvalidAmount),
		errors.Is(err, txbuilder.ErrExtraDataTooLarge):
		return http.StatusBadRequest, model.CodeInvalidAmount
	case ledger.IsInsufficientBalance(err):
		return http.StatusUnprocessableEntity, model.CodeInsufficientBalance
	case errors.Is(err, storage.ErrWrongPassword):
		return http.StatusForbidden, model.CodeWrongPassword
	case client.IsNetworkError(err):
		return http.StatusBadGateway, model.CodeNetwork
	default:
		return http.StatusInternalServerError, model.CodeInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, model.ErrorResponse{Error: err.Error(), Code: code})
}
