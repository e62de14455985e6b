package wallet

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/AlexZinkM/xelis-wallet/internal/client"
	"github.com/AlexZinkM/xelis-wallet/internal/model"
	"github.com/AlexZinkM/xelis-wallet/internal/syncer"
)

var (
	ErrAlreadyOnline = errors.New("wallet is already online")
	ErrClosed        = errors.New("wallet is closed")
)

// connection is the daemon client and sync loop of an online wallet.
type connection struct {
	client *client.DaemonClient
	syncer *syncer.Syncer
}

// SetOnlineMode connects to the daemon at endpoint (the configured daemon
// when empty) and starts syncing. On failure the wallet stays offline.
// Transactions built while offline are resent once connected; a resend
// failure is logged and does not undo the connection.
func (w *Wallet) SetOnlineMode(ctx context.Context, endpoint string) error {
	if err := w.connect(ctx, endpoint); err != nil {
		return err
	}

	if len(w.ledger.Outbox()) == 0 {
		return nil
	}
	accepted, err := w.Resend(ctx)
	if err != nil {
		w.log.Warn("failed to resend outbox", zap.Int("accepted", accepted), zap.Error(err))
		return nil
	}
	w.log.Info("outbox resent", zap.Int("accepted", accepted))
	return nil
}

func (w *Wallet) connect(ctx context.Context, endpoint string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.online != nil {
		return ErrAlreadyOnline
	}
	if endpoint == "" {
		endpoint = w.opts.DaemonAddress
	}

	c := client.NewDaemonClient(endpoint, w.opts.Sync.RequestTimeout)
	s := syncer.New(w.opts.Sync, c, w.ledger, w.Address(), w.log)
	if err := s.Start(ctx); err != nil {
		w.lastSync = s.State()
		c.Close()
		w.log.Warn("failed to go online", zap.String("endpoint", endpoint), zap.Error(err))
		return err
	}

	w.online = &connection{client: c, syncer: s}
	return nil
}

// SetOfflineMode stops syncing. It waits for an in-flight poll to finish.
func (w *Wallet) SetOfflineMode() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.online == nil {
		return
	}
	w.online.syncer.Stop()
	w.lastSync = w.online.syncer.State()
	w.online.client.Close()
	w.online = nil
}

// IsOnline reports whether the sync loop is running.
func (w *Wallet) IsOnline() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.online != nil
}

// SyncState returns the current sync state, or the last one recorded
// before the wallet went offline.
func (w *Wallet) SyncState() model.SyncState {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.online != nil {
		return w.online.syncer.State()
	}
	return w.lastSync
}

// Status returns the mode and sync state.
func (w *Wallet) Status() *model.StatusResponse {
	st := w.SyncState()
	return &model.StatusResponse{Mode: st.Mode(), Sync: st}
}

// Rescan polls the daemon once, outside the regular interval.
func (w *Wallet) Rescan(ctx context.Context) error {
	conn := w.connection()
	if conn == nil {
		return ErrOffline
	}
	return conn.syncer.Poll(ctx)
}

func (w *Wallet) connection() *connection {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.online
}
