package prompt

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/xelis-wallet/internal/model"
)

type fakeWallet struct {
	online      bool
	state       model.SyncState
	transferErr error
	submitted   bool
	onlineErr   error
	rescans     int
	resendErr   error

	transfers [][3]string
	passwords [][2]string
}

func (f *fakeWallet) DisplayAddress() (string, error) { return "xet1me\n[qr]", nil }

func (f *fakeWallet) Balance(asset string) (*model.BalanceResponse, error) {
	a, err := model.ParseAsset(asset)
	if err != nil {
		return nil, err
	}
	return &model.BalanceResponse{Asset: a.String(), Balance: "0.00000400", Atomic: 400}, nil
}

func (f *fakeWallet) History() *model.HistoryResponse {
	return &model.HistoryResponse{Transactions: []model.HistoryEntry{
		{Direction: model.DirectionIncoming, Amount: 500, Height: 7},
		{Direction: model.DirectionOutgoing, Amount: 100, Destination: "xet1dest", Nonce: 4, Status: model.TxStatusPending},
	}}
}

func (f *fakeWallet) SyncState() model.SyncState { return f.state }

func (f *fakeWallet) Transfer(ctx context.Context, toAddress, amount, asset string) (*model.TransferResponse, error) {
	f.transfers = append(f.transfers, [3]string{toAddress, amount, asset})
	if f.transferErr != nil {
		return nil, f.transferErr
	}
	return &model.TransferResponse{Hash: "abcd", Nonce: 4, Submitted: f.submitted}, nil
}

func (f *fakeWallet) SetPassword(oldPassword, newPassword []byte) error {
	f.passwords = append(f.passwords, [2]string{string(oldPassword), string(newPassword)})
	return nil
}

func (f *fakeWallet) SetOnlineMode(ctx context.Context, endpoint string) error {
	if f.onlineErr != nil {
		return f.onlineErr
	}
	f.online = true
	f.state = model.SyncState{Status: model.SyncStatusSynced, LastKnownHeight: 12, TopoHeight: 15, DaemonEndpoint: endpoint}
	return nil
}

func (f *fakeWallet) SetOfflineMode() {
	f.online = false
	f.state.Status = model.SyncStatusDisabled
}

func (f *fakeWallet) IsOnline() bool { return f.online }

func (f *fakeWallet) Resend(ctx context.Context) (int, error) {
	if f.resendErr != nil {
		return 1, f.resendErr
	}
	return 2, nil
}

func (f *fakeWallet) Rescan(ctx context.Context) error {
	if !f.online {
		return errors.New("wallet is offline")
	}
	f.rescans++
	return nil
}

func passwords(values ...string) PasswordReader {
	return func(string) ([]byte, error) {
		if len(values) == 0 {
			return nil, errors.New("no more input")
		}
		v := values[0]
		values = values[1:]
		return []byte(v), nil
	}
}

func run(t *testing.T, w *fakeWallet, input string, pw PasswordReader) string {
	t.Helper()
	var out bytes.Buffer
	p := New(w, strings.NewReader(input), &out, pw, nil)
	require.NoError(t, p.Run(context.Background()))
	return out.String()
}

func TestRun_PromptLine(t *testing.T) {
	w := &fakeWallet{}
	out := run(t, w, "online http://node:8080/json_rpc\nexit\n", nil)

	assert.Contains(t, out, "XELIS Wallet | 0/0 | Offline >> ")
	assert.Contains(t, out, "Wallet is now online")
	assert.Contains(t, out, "XELIS Wallet | 12/15 | Online >> ")
}

func TestRun_Transfer(t *testing.T) {
	w := &fakeWallet{}
	out := run(t, w, "transfer xet1dest 1.5\ntransfer xet1dest 2 aa\ntransfer xet1dest\n", nil)

	require.Len(t, w.transfers, 2)
	assert.Equal(t, [3]string{"xet1dest", "1.5", ""}, w.transfers[0])
	assert.Equal(t, [3]string{"xet1dest", "2", "aa"}, w.transfers[1])
	assert.Contains(t, out, "Transaction hash: abcd (nonce 4)")
	assert.Contains(t, out, "built but not submitted")
	assert.Contains(t, out, "Error: usage: transfer")
}

func TestRun_TransferError(t *testing.T) {
	w := &fakeWallet{transferErr: errors.New("insufficient balance")}
	out := run(t, w, "transfer xet1dest 1\n", nil)
	assert.Contains(t, out, "Error: insufficient balance")
	assert.NotContains(t, out, "Transaction hash")
}

func TestRun_SetPassword(t *testing.T) {
	w := &fakeWallet{}
	out := run(t, w, "set_password\nset_password\n", passwords("pw1", "pw2", "pw2", "pw1", "a", "b"))

	require.Len(t, w.passwords, 1)
	assert.Equal(t, [2]string{"pw1", "pw2"}, w.passwords[0])
	assert.Contains(t, out, "Password has been changed")
	assert.Contains(t, out, "Error: new password and confirmation do not match")
}

func TestRun_Queries(t *testing.T) {
	w := &fakeWallet{}
	out := run(t, w, "display_address\nbalance\nbalance zz\nhistory\nstatus\nhelp\nfoo\n", nil)

	assert.Contains(t, out, "xet1me\n[qr]")
	assert.Contains(t, out, "Balance for asset "+model.NativeAsset.String()+": 0.00000400")
	assert.Contains(t, out, "Error: invalid asset")
	assert.Contains(t, out, "Received 0.00000500")
	assert.Contains(t, out, "Sent 0.00000100")
	assert.Contains(t, out, "Mode: offline")
	assert.Contains(t, out, "transfer <address> <amount> [asset]")
	assert.Contains(t, out, `Error: unknown command "foo"`)
}

func TestRun_Offline(t *testing.T) {
	w := &fakeWallet{}
	out := run(t, w, "offline\nonline\noffline\n", nil)
	assert.Contains(t, out, "Error: wallet is already offline")
	assert.Contains(t, out, "Wallet is now offline")
	assert.False(t, w.online)
}

func TestRun_OnlineFailure(t *testing.T) {
	w := &fakeWallet{onlineErr: errors.New("daemon unreachable")}
	out := run(t, w, "online\n", nil)
	assert.Contains(t, out, "Error: daemon unreachable")
}

func TestRun_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	p := New(&fakeWallet{}, strings.NewReader("help\n"), &out, nil, nil)
	require.NoError(t, p.Run(ctx))
	assert.Empty(t, out.String())
}

func TestRun_Rescan(t *testing.T) {
	w := &fakeWallet{}
	out := run(t, w, "rescan\nonline\nrescan\n", nil)

	assert.Contains(t, out, "Error: wallet is offline")
	assert.Equal(t, 1, w.rescans)
	assert.Contains(t, out, "Height: 12 (topoheight 15)")
}

func TestRun_Resend(t *testing.T) {
	out := run(t, &fakeWallet{}, "resend\n", nil)
	assert.Contains(t, out, "2 transaction(s) accepted by the node")

	out = run(t, &fakeWallet{resendErr: errors.New("daemon request timed out")}, "resend\n", nil)
	assert.Contains(t, out, "1 transaction(s) accepted by the node")
	assert.Contains(t, out, "Error: daemon request timed out")
}
