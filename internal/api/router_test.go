package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/AlexZinkM/xelis-wallet/internal/handler"
	"github.com/AlexZinkM/xelis-wallet/internal/model"
)

type stubWallet struct{}

func (stubWallet) AddressInfo() *model.AddressResponse { return &model.AddressResponse{Address: "xet1me"} }
func (stubWallet) Balance(string) (*model.BalanceResponse, error) {
	return &model.BalanceResponse{}, nil
}
func (stubWallet) History() *model.HistoryResponse { return &model.HistoryResponse{} }
func (stubWallet) Status() *model.StatusResponse   { return &model.StatusResponse{} }
func (stubWallet) Transfer(context.Context, string, string, string) (*model.TransferResponse, error) {
	return &model.TransferResponse{}, nil
}
func (stubWallet) SetPassword([]byte, []byte) error { return nil }

func TestSetupRouter(t *testing.T) {
	srv := httptest.NewServer(SetupRouter(handler.NewWalletHandler(stubWallet{}), zap.NewNop()))
	defer srv.Close()

	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
		body        string
		want        int
	}{
		{"address", http.MethodGet, "/wallet/address", "", "", http.StatusOK},
		{"status", http.MethodGet, "/wallet/status", "", "", http.StatusOK},
		{"transfer json", http.MethodPost, "/wallet/transfer", "application/json", `{"address":"a","amount":"1"}`, http.StatusOK},
		{"transfer form", http.MethodPost, "/wallet/transfer", "text/plain", `address=a`, http.StatusUnsupportedMediaType},
		{"wrong method", http.MethodPost, "/wallet/address", "", "", http.StatusMethodNotAllowed},
		{"unknown", http.MethodGet, "/solana/balance", "", "", http.StatusNotFound},
		{"swagger doc", http.MethodGet, "/swagger/doc.json", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, bytes.NewBufferString(tt.body))
			assert.NoError(t, err)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			resp, err := http.DefaultClient.Do(req)
			assert.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
