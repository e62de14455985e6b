package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AlexZinkM/xelis-wallet/internal/model"
)

// ErrInsufficientBalance matches every *InsufficientBalanceError.
var ErrInsufficientBalance = errors.New("insufficient balance")

// InsufficientBalanceError is returned when a spend exceeds the balance.
type InsufficientBalanceError struct {
	Asset     model.Asset
	Available uint64
	Required  uint64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for asset %s: have %d, need %d", e.Asset, e.Available, e.Required)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// IsInsufficientBalance checks if err is an InsufficientBalanceError
func IsInsufficientBalance(err error) bool {
	return errors.Is(err, ErrInsufficientBalance)
}

// Persister writes a complete wallet state to durable storage.
type Persister interface {
	Persist(state *model.WalletState) error
}

// Ledger owns the decrypted wallet state of an open wallet. All writes go
// through Update, which holds the lock for the whole operation including
// the persist that follows it.
type Ledger struct {
	mu    sync.RWMutex
	state *model.WalletState
	store Persister
}

// New wraps state. store is called after every successful Update.
func New(state *model.WalletState, store Persister) *Ledger {
	if state.Balances == nil {
		state.Balances = make(map[model.Asset]uint64)
	}
	return &Ledger{state: state, store: store}
}

// Balance returns the balance of asset (zero for untouched assets).
func (l *Ledger) Balance(asset model.Asset) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Balances[asset]
}

// Nonce returns the last nonce used by this wallet.
func (l *Ledger) Nonce() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Nonce
}

// SyncedHeight returns the height of the last merged sync.
func (l *Ledger) SyncedHeight() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.SyncedHeight
}

// Assets returns every asset the wallet has touched.
func (l *Ledger) Assets() []model.Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.Asset, 0, len(l.state.Balances))
	for a := range l.state.Balances {
		out = append(out, a)
	}
	return out
}

// History returns a copy of the transaction history, oldest first.
func (l *Ledger) History() []model.HistoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.HistoryEntry(nil), l.state.History...)
}

// Snapshot returns a deep copy of the whole state.
func (l *Ledger) Snapshot() *model.WalletState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Clone()
}

// Update runs fn under the write lock and persists the result. If fn or the
// persist fails, the state is restored to what it was before the call.
func (l *Ledger) Update(fn func(tx *Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := l.state.Clone()
	tx := &Tx{state: l.state}

	if err := fn(tx); err != nil {
		tx.rollbackOpen()
		l.state.Wipe()
		l.state = before
		return err
	}
	tx.closed = true

	if l.store != nil {
		if err := l.store.Persist(l.state); err != nil {
			l.state.Wipe()
			l.state = before
			return fmt.Errorf("failed to persist wallet: %w", err)
		}
	}
	before.Wipe()
	return nil
}

// Exclusive runs fn under the write lock with a copy of the state, without
// persisting. Used for operations such as password rotation that must not
// interleave with spends or sync merges.
func (l *Ledger) Exclusive(fn func(state *model.WalletState) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := l.state.Clone()
	defer snapshot.Wipe()
	return fn(snapshot)
}

// Wipe zeroes the private key held in the state. The ledger must not be
// used for signing afterwards.
func (l *Ledger) Wipe() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Wipe()
}

// ReserveSpend reserves and commits a single spend in its own Update.
func (l *Ledger) ReserveSpend(asset model.Asset, amount uint64) error {
	return l.Update(func(tx *Tx) error {
		r, err := tx.ReserveSpend(asset, amount)
		if err != nil {
			return err
		}
		r.Commit()
		return nil
	})
}

// Outbox returns the signed transactions the node has not included yet,
// lowest nonce first.
func (l *Ledger) Outbox() []model.OutboxEntry {
	l.mu.RLock()
	out := append([]model.OutboxEntry(nil), l.state.Outbox...)
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Nonce < out[j].Nonce })
	return out
}

// MarkSubmitted runs Tx.MarkSubmitted in its own Update.
func (l *Ledger) MarkSubmitted(hash model.Hash) error {
	return l.Update(func(tx *Tx) error {
		if !tx.MarkSubmitted(hash) {
			return fmt.Errorf("no outgoing transaction with hash %s", hash)
		}
		return nil
	})
}

// FailSpend runs Tx.FailSpend for every hash, in order, in one Update.
// Pass the highest nonce first so each release can hand its nonce back.
func (l *Ledger) FailSpend(hashes ...model.Hash) error {
	return l.Update(func(tx *Tx) error {
		for _, hash := range hashes {
			if !tx.FailSpend(hash) {
				return fmt.Errorf("no pending spend with hash %s", hash)
			}
		}
		return nil
	})
}

// MergeRemote merges a node view in its own Update.
func (l *Ledger) MergeRemote(balances map[model.Asset]uint64, remoteNonce, height uint64) error {
	return l.Update(func(tx *Tx) error {
		tx.MergeRemote(balances, remoteNonce, height)
		return nil
	})
}

// Tx is the mutable view handed to Update callbacks. It must not escape fn.
type Tx struct {
	state  *model.WalletState
	open   []*Reservation
	closed bool
}

// Balance returns the current (possibly reserved-down) balance of asset.
func (tx *Tx) Balance(asset model.Asset) uint64 {
	return tx.state.Balances[asset]
}

// Nonce returns the current nonce.
func (tx *Tx) Nonce() uint64 {
	return tx.state.Nonce
}

// ReserveSpend decrements the balance of asset by amount if it can be
// covered. Nothing changes when it cannot.
func (tx *Tx) ReserveSpend(asset model.Asset, amount uint64) (*Reservation, error) {
	have := tx.state.Balances[asset]
	if have < amount {
		return nil, &InsufficientBalanceError{Asset: asset, Available: have, Required: amount}
	}
	tx.state.Balances[asset] = have - amount

	r := &Reservation{tx: tx, asset: asset, amount: amount}
	tx.open = append(tx.open, r)
	return r, nil
}

// SetNonce advances the nonce. Only current+1 is accepted.
func (tx *Tx) SetNonce(n uint64) error {
	if n != tx.state.Nonce+1 {
		return fmt.Errorf("nonce must advance by one: have %d, got %d", tx.state.Nonce, n)
	}
	tx.state.Nonce = n
	return nil
}

// AppendHistory adds an entry to the end of the history.
func (tx *Tx) AppendHistory(e model.HistoryEntry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	tx.state.History = append(tx.state.History, e)
}

// SetHistoryStatus updates the status of the outgoing entries with hash.
func (tx *Tx) SetHistoryStatus(hash model.Hash, status model.TxStatus) bool {
	found := false
	for i := range tx.state.History {
		e := &tx.state.History[i]
		if e.Direction == model.DirectionOutgoing && e.Hash == hash {
			e.Status = status
			found = true
		}
	}
	return found
}

// QueueOutbox keeps a signed transaction until the node includes it.
func (tx *Tx) QueueOutbox(e model.OutboxEntry) {
	tx.state.Outbox = append(tx.state.Outbox, e)
}

// MarkSubmitted records that the transaction with hash was handed to the
// node: its unsubmitted entries become pending.
func (tx *Tx) MarkSubmitted(hash model.Hash) bool {
	found := false
	for i := range tx.state.Outbox {
		if tx.state.Outbox[i].Hash == hash {
			tx.state.Outbox[i].Submitted = true
			found = true
		}
	}
	for i := range tx.state.History {
		e := &tx.state.History[i]
		if e.Direction != model.DirectionOutgoing || e.Hash != hash {
			continue
		}
		if e.Status == model.TxStatusUnsubmitted {
			e.Status = model.TxStatusPending
		}
		found = true
	}
	return found
}

// FailSpend marks the pending outgoing entries with hash as failed, refunds
// their amounts and drops the transaction from the outbox. If the spend used
// the latest nonce, the nonce is handed back so the next transaction can
// reuse it.
func (tx *Tx) FailSpend(hash model.Hash) bool {
	found := false
	for i := range tx.state.History {
		e := &tx.state.History[i]
		if !e.IsPendingSpend() || e.Hash != hash {
			continue
		}
		e.Status = model.TxStatusFailed
		tx.state.Balances[e.Asset] += e.Amount
		if !found && e.Nonce == tx.state.Nonce && tx.state.Nonce > 0 {
			tx.state.Nonce--
		}
		found = true
	}
	if found {
		tx.dropOutbox(func(e model.OutboxEntry) bool { return e.Hash == hash })
	}
	return found
}

func (tx *Tx) dropOutbox(match func(model.OutboxEntry) bool) {
	kept := tx.state.Outbox[:0]
	for _, e := range tx.state.Outbox {
		if !match(e) {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	tx.state.Outbox = kept
}

// MergeRemote reconciles the node's view into local state.
//
// For each reported asset the local balance becomes the remote balance minus
// the local spends the node has not seen yet (pending, nonce > remoteNonce).
// Pending spends the node has seen are marked confirmed and leave the
// outbox. The nonce only ever moves up.
func (tx *Tx) MergeRemote(balances map[model.Asset]uint64, remoteNonce, height uint64) {
	unseen := make(map[model.Asset]uint64)
	for i := range tx.state.History {
		e := &tx.state.History[i]
		if !e.IsPendingSpend() {
			continue
		}
		if e.Nonce <= remoteNonce {
			e.Status = model.TxStatusConfirmed
			e.Height = height
			continue
		}
		unseen[e.Asset] += e.Amount
	}

	for asset, remote := range balances {
		var local uint64
		if remote > unseen[asset] {
			local = remote - unseen[asset]
		}

		if prev := tx.state.Balances[asset]; local > prev {
			tx.AppendHistory(model.HistoryEntry{
				Kind:      model.TxKindTransfer,
				Asset:     asset,
				Amount:    local - prev,
				Direction: model.DirectionIncoming,
				Height:    height,
				Status:    model.TxStatusConfirmed,
			})
		}
		tx.state.Balances[asset] = local
	}

	tx.dropOutbox(func(e model.OutboxEntry) bool { return e.Nonce <= remoteNonce })
	tx.state.RemoteNonce = remoteNonce
	if remoteNonce > tx.state.Nonce {
		tx.state.Nonce = remoteNonce
	}
	if height > tx.state.SyncedHeight {
		tx.state.SyncedHeight = height
	}
}

func (tx *Tx) rollbackOpen() {
	for i := len(tx.open) - 1; i >= 0; i-- {
		tx.open[i].Rollback()
	}
}

// Reservation is a provisional debit made inside an Update. It must be
// committed or rolled back before the callback returns; open reservations
// are rolled back when the callback fails.
type Reservation struct {
	tx     *Tx
	asset  model.Asset
	amount uint64
	done   bool
}

// Asset returns the reserved asset.
func (r *Reservation) Asset() model.Asset { return r.asset }

// Amount returns the reserved amount.
func (r *Reservation) Amount() uint64 { return r.amount }

// Commit keeps the debit.
func (r *Reservation) Commit() {
	r.done = true
}

// Rollback restores the exact reserved amount. Calling it after Commit or a
// previous Rollback does nothing.
func (r *Reservation) Rollback() {
	if r.done || r.tx.closed {
		return
	}
	r.tx.state.Balances[r.asset] += r.amount
	r.done = true
}
