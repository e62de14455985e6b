// Package wallet ties the encrypted store, the ledger, the transaction
// builder and the sync loop into one open wallet.
package wallet

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/AlexZinkM/xelis-wallet/internal/address"
	"github.com/AlexZinkM/xelis-wallet/internal/crypto"
	"github.com/AlexZinkM/xelis-wallet/internal/ledger"
	"github.com/AlexZinkM/xelis-wallet/internal/model"
	"github.com/AlexZinkM/xelis-wallet/internal/storage"
	"github.com/AlexZinkM/xelis-wallet/internal/syncer"
	"github.com/AlexZinkM/xelis-wallet/internal/txbuilder"
)

const (
	networkMainnet = "mainnet"
	networkTestnet = "testnet"

	defaultRequestTimeout = 10 * time.Second
)

// NetworkMismatchError is returned when a wallet file belongs to another network.
type NetworkMismatchError struct {
	Wallet   string
	Expected string
}

func (e *NetworkMismatchError) Error() string {
	return fmt.Sprintf("wallet was created for %s, not %s", e.Wallet, e.Expected)
}

// IsNetworkMismatchError checks if error is NetworkMismatchError
func IsNetworkMismatchError(err error) bool {
	var nme *NetworkMismatchError
	return errors.As(err, &nme)
}

// Options locate a wallet and configure its runtime.
type Options struct {
	Dir           string
	Name          string
	Mainnet       bool
	KDF           crypto.Params
	DaemonAddress string
	Sync          syncer.Config
	Log           *zap.Logger
}

func (o Options) network() string {
	if o.Mainnet {
		return networkMainnet
	}
	return networkTestnet
}

// Wallet is an open, decrypted wallet.
type Wallet struct {
	opts    Options
	log     *zap.Logger
	store   *storage.Store
	ledger  *ledger.Ledger
	builder *txbuilder.Builder
	address *address.Address

	// key is the wallet's own copy of the private key. The ledger state may
	// be wiped and replaced on a failed update, so the signer must not alias it.
	key solana.PrivateKey

	mu     sync.Mutex
	online *connection
	// lastSync keeps the state of the last stopped or failed sync loop.
	lastSync model.SyncState
	closed   bool
}

// Create generates a new keypair and writes a new wallet.
// password must be []byte for security (caller should zero it after use)
func Create(opts Options, password []byte) (*Wallet, error) {
	if storage.Exists(opts.Dir, opts.Name) {
		return nil, storage.ErrWalletExists
	}

	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	defer clear(key)

	addr := address.New(key.PublicKey(), opts.Mainnet)
	qr, err := generateQRCode(addr.String())
	if err != nil {
		return nil, err
	}

	state := model.NewWalletState(append([]byte(nil), key...))
	meta := model.EnvelopeMeta{Network: opts.network(), Address: addr.String(), QR: qr}

	store, err := storage.Create(opts.Dir, opts.Name, password, opts.KDF, state, meta)
	if err != nil {
		state.Wipe()
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	w := newWallet(opts, store, state, key, addr)
	w.log.Info("wallet created", zap.String("name", opts.Name), zap.String("address", addr.String()))
	return w, nil
}

// Open decrypts an existing wallet.
// password must be []byte for security (caller should zero it after use)
func Open(opts Options, password []byte) (*Wallet, error) {
	store, state, err := storage.Open(opts.Dir, opts.Name, password, opts.KDF)
	if err != nil {
		return nil, err
	}

	meta := store.Meta()
	if meta.Network != opts.network() {
		state.Wipe()
		store.Close()
		return nil, &NetworkMismatchError{Wallet: meta.Network, Expected: opts.network()}
	}

	// Verify private key length (we store full 64-byte key)
	if len(state.PrivateKey) != 64 {
		state.Wipe()
		store.Close()
		return nil, fmt.Errorf("invalid private key length")
	}
	key := solana.PrivateKey(append([]byte(nil), state.PrivateKey...))
	defer clear(key)

	addr := address.New(key.PublicKey(), opts.Mainnet)
	// Verify wallet matches the recorded address
	if addr.String() != meta.Address {
		state.Wipe()
		store.Close()
		return nil, fmt.Errorf("private key does not match address")
	}

	w := newWallet(opts, store, state, key, addr)
	w.log.Info("wallet opened",
		zap.String("name", opts.Name),
		zap.Uint64("nonce", state.Nonce),
		zap.Uint64("synced_height", state.SyncedHeight),
	)
	return w, nil
}

// OpenOrCreate opens the wallet if its directory exists and creates it otherwise.
func OpenOrCreate(opts Options, password []byte) (*Wallet, bool, error) {
	if storage.Exists(opts.Dir, opts.Name) {
		w, err := Open(opts, password)
		return w, false, err
	}
	w, err := Create(opts, password)
	return w, err == nil, err
}

func newWallet(opts Options, store *storage.Store, state *model.WalletState, key solana.PrivateKey, addr *address.Address) *Wallet {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Sync.RequestTimeout <= 0 {
		opts.Sync.RequestTimeout = defaultRequestTimeout
	}

	l := ledger.New(state, store)
	own := solana.PrivateKey(append([]byte(nil), key...))
	formatAddress := func(pub solana.PublicKey) string {
		return address.New(pub, opts.Mainnet).String()
	}

	return &Wallet{
		opts:     opts,
		log:      log.Named("wallet"),
		store:    store,
		ledger:   l,
		key:      own,
		address:  addr,
		builder:  txbuilder.New(l, own, txbuilder.WithAddressFormat(formatAddress)),
		lastSync: model.SyncState{Status: model.SyncStatusDisabled},
	}
}

// Address returns the wallet address text.
func (w *Wallet) Address() string {
	return w.address.String()
}

// AddressInfo returns the address with its network and QR code.
func (w *Wallet) AddressInfo() *model.AddressResponse {
	meta := w.store.Meta()
	return &model.AddressResponse{
		Address: w.Address(),
		Network: meta.Network,
		QR:      meta.QR,
	}
}

// DisplayAddress returns the address followed by a terminal QR code.
func (w *Wallet) DisplayAddress() (string, error) {
	qr, err := terminalQRCode(w.Address())
	if err != nil {
		return "", err
	}
	return w.Address() + "\n" + qr, nil
}

// Nonce returns the last nonce used by the wallet.
func (w *Wallet) Nonce() uint64 {
	return w.ledger.Nonce()
}

// History returns the wallet history, oldest first.
func (w *Wallet) History() *model.HistoryResponse {
	return &model.HistoryResponse{
		Address:      w.Address(),
		Transactions: w.ledger.History(),
	}
}

// SetPassword re-encrypts the wallet under newPassword. It holds the ledger
// lock throughout, so no spend or sync merge can interleave.
// password must be []byte for security (caller should zero it after use)
func (w *Wallet) SetPassword(oldPassword, newPassword []byte) error {
	if len(newPassword) == 0 {
		return errors.New("new password cannot be empty")
	}
	err := w.ledger.Exclusive(func(state *model.WalletState) error {
		return w.store.SetPassword(oldPassword, newPassword, state)
	})
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	w.log.Info("wallet password changed")
	return nil
}

// Close stops syncing, wipes the key and closes the store.
func (w *Wallet) Close() {
	w.SetOfflineMode()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true

	w.ledger.Wipe()
	w.store.Close()
	clear(w.key)
	w.log.Info("wallet closed")
}
