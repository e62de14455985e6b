package client

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/AlexZinkM/xelis-wallet/internal/model"
)

const (
	methodGetInfo           = "get_info"
	methodGetBalance        = "get_balance"
	methodGetNonce          = "get_nonce"
	methodSubmitTransaction = "submit_transaction"

	defaultTimeout = 10 * time.Second
)

// Kinds of NetworkError. Test with errors.Is.
var (
	ErrUnreachable = errors.New("daemon unreachable")
	ErrTimeout     = errors.New("daemon request timed out")
	ErrRejected    = errors.New("daemon rejected request")
)

// NetworkError is any failed call to the daemon.
type NetworkError struct {
	Method string
	Kind   error
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Method, e.Kind, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// IsNetworkError checks if err is a NetworkError
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// DaemonClient is a JSON-RPC client for a remote node.
type DaemonClient struct {
	rpcClient jsonrpc.RPCClient
	endpoint  string
}

// NewDaemonClient creates a client for endpoint. timeout bounds every HTTP
// round trip on top of whatever deadline the caller's context carries.
func NewDaemonClient(endpoint string, timeout time.Duration) *DaemonClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &DaemonClient{
		rpcClient: jsonrpc.NewClientWithOpts(endpoint, &jsonrpc.RPCClientOpts{
			HTTPClient: &http.Client{Timeout: timeout},
		}),
		endpoint: endpoint,
	}
}

// Endpoint returns the daemon URL.
func (c *DaemonClient) Endpoint() string {
	return c.endpoint
}

// GetInfo returns chain heights and daemon metadata.
func (c *DaemonClient) GetInfo(ctx context.Context) (*model.DaemonInfo, error) {
	var info model.DaemonInfo
	if err := c.rpcClient.CallFor(ctx, &info, methodGetInfo); err != nil {
		return nil, classify(methodGetInfo, err)
	}
	return &info, nil
}

// GetHeight returns the current chain height.
func (c *DaemonClient) GetHeight(ctx context.Context) (uint64, error) {
	info, err := c.GetInfo(ctx)
	if err != nil {
		return 0, err
	}
	return info.Height, nil
}

// GetBalance returns the confirmed balance of asset for address.
func (c *DaemonClient) GetBalance(ctx context.Context, address string, asset model.Asset) (uint64, error) {
	var res model.GetBalanceResult
	params := model.GetBalanceParams{Address: address, Asset: asset}
	if err := c.rpcClient.CallFor(ctx, &res, methodGetBalance, params); err != nil {
		return 0, classify(methodGetBalance, err)
	}
	return res.Balance, nil
}

// GetNonce returns the last nonce the node has seen for address.
func (c *DaemonClient) GetNonce(ctx context.Context, address string) (uint64, error) {
	var res model.GetNonceResult
	params := model.GetNonceParams{Address: address}
	if err := c.rpcClient.CallFor(ctx, &res, methodGetNonce, params); err != nil {
		return 0, classify(methodGetNonce, err)
	}
	return res.Nonce, nil
}

// SubmitTransaction sends a signed transaction to the node's mempool.
func (c *DaemonClient) SubmitTransaction(ctx context.Context, tx *model.Transaction) error {
	data, err := tx.Bytes()
	if err != nil {
		return err
	}
	return c.SubmitRaw(ctx, data)
}

// SubmitRaw sends an already serialized signed transaction.
func (c *DaemonClient) SubmitRaw(ctx context.Context, data []byte) error {
	var accepted bool
	params := model.SubmitTransactionParams{Data: hex.EncodeToString(data)}
	if err := c.rpcClient.CallFor(ctx, &accepted, methodSubmitTransaction, params); err != nil {
		return classify(methodSubmitTransaction, err)
	}
	if !accepted {
		return &NetworkError{Method: methodSubmitTransaction, Kind: ErrRejected, Err: errors.New("transaction not accepted")}
	}
	return nil
}

// Close releases idle connections.
func (c *DaemonClient) Close() error {
	return c.rpcClient.Close()
}

// classify maps transport errors onto the NetworkError kinds. A timeout is
// reported separately but callers treat it like an unreachable daemon.
func classify(method string, err error) error {
	var (
		rpcErr  *jsonrpc.RPCError
		httpErr *jsonrpc.HTTPError
		netErr  net.Error
	)

	kind := ErrUnreachable
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ErrTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = ErrTimeout
	case errors.As(err, &rpcErr):
		kind = ErrRejected
		err = fmt.Errorf("code %d: %s", rpcErr.Code, rpcErr.Message)
	case errors.As(err, &httpErr):
		kind = ErrUnreachable
	}
	return &NetworkError{Method: method, Kind: kind, Err: err}
}
