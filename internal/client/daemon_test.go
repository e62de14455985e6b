package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/xelis-wallet/internal/model"
)

type rpcRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     any             `json:"id"`
}

type rpcHandler func(method string, params json.RawMessage) (any, *rpcError)

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newDaemon(t *testing.T, h rpcHandler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := h(req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDaemonClient_Queries(t *testing.T) {
	asset := model.Asset{0xaa}
	srv := newDaemon(t, func(method string, params json.RawMessage) (any, *rpcError) {
		switch method {
		case "get_info":
			return model.DaemonInfo{Height: 120, TopoHeight: 130, Network: "testnet"}, nil
		case "get_balance":
			var p model.GetBalanceParams
			require.NoError(t, json.Unmarshal(params, &p))
			assert.Equal(t, "xet1me", p.Address)
			assert.Equal(t, asset, p.Asset)
			return model.GetBalanceResult{Balance: 350, TopoHeight: 130}, nil
		case "get_nonce":
			var p model.GetNonceParams
			require.NoError(t, json.Unmarshal(params, &p))
			assert.Equal(t, "xet1me", p.Address)
			return model.GetNonceResult{Nonce: 4}, nil
		}
		return nil, &rpcError{Code: -32601, Message: "method not found"}
	})

	c := NewDaemonClient(srv.URL, time.Second)
	defer c.Close()
	ctx := context.Background()

	info, err := c.GetInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(130), info.TopoHeight)

	height, err := c.GetHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(120), height)

	balance, err := c.GetBalance(ctx, "xet1me", asset)
	require.NoError(t, err)
	assert.Equal(t, uint64(350), balance)

	nonce, err := c.GetNonce(ctx, "xet1me")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), nonce)
	assert.Equal(t, srv.URL, c.Endpoint())
}

func TestDaemonClient_Submit(t *testing.T) {
	var got model.SubmitTransactionParams
	srv := newDaemon(t, func(method string, params json.RawMessage) (any, *rpcError) {
		require.Equal(t, "submit_transaction", method)
		require.NoError(t, json.Unmarshal(params, &got))
		return true, nil
	})

	tx := &model.Transaction{Data: model.Burn{Amount: 1}, Nonce: 1}
	c := NewDaemonClient(srv.URL, time.Second)
	require.NoError(t, c.SubmitTransaction(context.Background(), tx))

	want, err := tx.Bytes()
	require.NoError(t, err)
	assert.Len(t, got.Data, 2*len(want))
}

func TestDaemonClient_Rejected(t *testing.T) {
	srv := newDaemon(t, func(string, json.RawMessage) (any, *rpcError) {
		return nil, &rpcError{Code: -32602, Message: "invalid address"}
	})

	_, err := NewDaemonClient(srv.URL, time.Second).GetNonce(context.Background(), "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)
	assert.True(t, IsNetworkError(err))
	assert.Contains(t, err.Error(), "invalid address")
}

func TestDaemonClient_SubmitNotAccepted(t *testing.T) {
	srv := newDaemon(t, func(string, json.RawMessage) (any, *rpcError) {
		return false, nil
	})

	err := NewDaemonClient(srv.URL, time.Second).SubmitTransaction(context.Background(),
		&model.Transaction{Data: model.Burn{Amount: 1}})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestDaemonClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewDaemonClient(url, time.Second).GetInfo(context.Background())
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestDaemonClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewDaemonClient(srv.URL, time.Second).GetInfo(context.Background())
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestDaemonClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewDaemonClient(srv.URL, 5*time.Second).GetInfo(ctx)
	assert.ErrorIs(t, err, ErrTimeout)
}
