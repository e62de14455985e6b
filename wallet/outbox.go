package wallet

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/AlexZinkM/xelis-wallet/internal/client"
	"github.com/AlexZinkM/xelis-wallet/internal/model"
)

// ErrOffline is returned by operations that need a daemon connection.
var ErrOffline = errors.New("wallet is offline")

// Resend submits every transaction the node has not included yet, lowest
// nonce first, and returns how many the node accepted.
//
// A rejected transaction that was never sent is failed and refunded together
// with every later unsent one, since the node cannot accept them past the
// gap. A rejected transaction that was sent before stays pending: the node
// may already hold it, and the next merge settles it. A timeout or an
// unreachable daemon stops the run.
func (w *Wallet) Resend(ctx context.Context) (int, error) {
	conn := w.connection()
	if conn == nil {
		return 0, ErrOffline
	}

	outbox := w.ledger.Outbox()
	accepted := 0
	for i, e := range outbox {
		err := w.submit(ctx, conn, e)
		switch {
		case err == nil:
			accepted++
		case !errors.Is(err, client.ErrRejected):
			return accepted, err
		case e.Submitted:
			w.log.Warn("node rejected a resent transaction, keeping it pending",
				zap.Stringer("hash", e.Hash), zap.Uint64("nonce", e.Nonce), zap.Error(err))
		default:
			failed := []model.OutboxEntry{e}
			for _, later := range outbox[i+1:] {
				if !later.Submitted {
					failed = append(failed, later)
				}
			}
			w.failSpends(failed)
			return accepted, fmt.Errorf("transaction %s rejected, %d unsent transaction(s) refunded: %w",
				e.Hash, len(failed), err)
		}
	}
	return accepted, nil
}

// submit hands one signed transaction to the node. On success, and on any
// error other than a rejection, the transaction is recorded as submitted:
// after a timeout the node may have accepted it. Rejections are left to
// the caller.
func (w *Wallet) submit(ctx context.Context, conn *connection, e model.OutboxEntry) error {
	callCtx, cancel := context.WithTimeout(ctx, w.opts.Sync.RequestTimeout)
	defer cancel()

	err := conn.client.SubmitRaw(callCtx, e.Data)
	if errors.Is(err, client.ErrRejected) {
		return err
	}
	if merr := w.ledger.MarkSubmitted(e.Hash); merr != nil {
		// already settled by a merge
		w.log.Debug("transaction no longer in outbox", zap.Stringer("hash", e.Hash), zap.Error(merr))
	}
	if err != nil {
		w.log.Warn("transaction delivery unknown, keeping it pending",
			zap.Stringer("hash", e.Hash), zap.Uint64("nonce", e.Nonce), zap.Error(err))
		return err
	}
	w.log.Info("transaction submitted", zap.Stringer("hash", e.Hash), zap.Uint64("nonce", e.Nonce))
	return nil
}

// failSpends fails and refunds entries, given in ascending nonce order. When
// a later transaction still holds a higher nonce, the failed nonce cannot be
// handed back and the node will reject everything after the gap.
func (w *Wallet) failSpends(entries []model.OutboxEntry) {
	if len(entries) == 0 {
		return
	}
	hashes := make([]model.Hash, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		hashes = append(hashes, entries[i].Hash)
	}
	if err := w.ledger.FailSpend(hashes...); err != nil {
		w.log.Error("failed to mark transaction failed", zap.Error(err))
		return
	}

	lowest := entries[0].Nonce
	w.log.Info("transaction failed and refunded", zap.Stringer("hash", entries[0].Hash), zap.Uint64("nonce", lowest))
	if n := w.ledger.Nonce(); n >= lowest {
		w.log.Warn("failed transaction leaves a nonce gap, later transactions will be rejected by the node",
			zap.Uint64("failed_nonce", lowest),
			zap.Uint64("wallet_nonce", n),
		)
	}
}
