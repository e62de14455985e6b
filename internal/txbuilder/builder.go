package txbuilder

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/AlexZinkM/xelis-wallet/internal/ledger"
	"github.com/AlexZinkM/xelis-wallet/internal/model"
)

var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrExtraDataTooLarge = fmt.Errorf("extra data exceeds %d bytes", model.ExtraDataLimit)
	ErrEmptyTransaction  = errors.New("transaction has no outputs")
)

// SigningError is a serialization or keypair failure while building a
// transaction. Nothing was reserved or persisted when it is returned.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("failed to sign transaction: %v", e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// IsSigningError checks if err is a SigningError
func IsSigningError(err error) bool {
	var se *SigningError
	return errors.As(err, &se)
}

// Signer signs transaction payloads. solana.PrivateKey satisfies it.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(payload []byte) (solana.Signature, error)
}

// Builder turns spend intents into signed transactions against a ledger.
type Builder struct {
	ledger        *ledger.Ledger
	signer        Signer
	formatAddress func(solana.PublicKey) string
}

// Option configures a Builder.
type Option func(*Builder)

// WithAddressFormat sets how destinations are rendered in history entries.
// The default is the base58 public key.
func WithAddressFormat(fn func(solana.PublicKey) string) Option {
	return func(b *Builder) {
		b.formatAddress = fn
	}
}

// New creates a Builder spending from l and signing with signer.
func New(l *ledger.Ledger, signer Signer, opts ...Option) *Builder {
	b := &Builder{
		ledger:        l,
		signer:        signer,
		formatAddress: solana.PublicKey.String,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CreateTransfer validates and builds a single transfer output.
func (b *Builder) CreateTransfer(asset model.Asset, destination solana.PublicKey, extraData []byte, amount uint64) (model.Transfer, error) {
	if amount == 0 {
		return model.Transfer{}, ErrInvalidAmount
	}
	if len(extraData) > model.ExtraDataLimit {
		return model.Transfer{}, ErrExtraDataTooLarge
	}

	var extra []byte
	if len(extraData) > 0 {
		extra = append([]byte(nil), extraData...)
	}
	return model.Transfer{
		Asset:       asset,
		Destination: destination,
		Amount:      amount,
		ExtraData:   extra,
	}, nil
}

// CreateBurn builds a burn payload.
func (b *Builder) CreateBurn(asset model.Asset, amount uint64) (model.Burn, error) {
	if amount == 0 {
		return model.Burn{}, ErrInvalidAmount
	}
	return model.Burn{Asset: asset, Amount: amount}, nil
}

// CreateTransaction reserves every spend of data, signs the transaction with
// the next nonce and records it as unsubmitted, with its serialization queued
// in the outbox. Reservations and the nonce are committed and persisted
// together; on any error nothing changes.
func (b *Builder) CreateTransaction(data model.TransactionType) (*model.Transaction, error) {
	spends := data.Spends()
	if len(spends) == 0 {
		return nil, ErrEmptyTransaction
	}
	for _, s := range spends {
		if s.Amount == 0 {
			return nil, ErrInvalidAmount
		}
	}

	var tx *model.Transaction
	err := b.ledger.Update(func(ltx *ledger.Tx) error {
		reservations := make([]*ledger.Reservation, 0, len(spends))
		for _, s := range spends {
			r, err := ltx.ReserveSpend(s.Asset, s.Amount)
			if err != nil {
				return err
			}
			reservations = append(reservations, r)
		}

		nonce := ltx.Nonce() + 1
		signed, hash, err := b.sign(data, nonce)
		if err != nil {
			return err
		}
		raw, err := signed.Bytes()
		if err != nil {
			return err
		}

		for _, r := range reservations {
			r.Commit()
		}
		if err := ltx.SetNonce(nonce); err != nil {
			return err
		}
		b.recordSpend(ltx, signed, hash)
		ltx.QueueOutbox(model.OutboxEntry{Hash: hash, Nonce: nonce, Data: raw})

		tx = signed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (b *Builder) sign(data model.TransactionType, nonce uint64) (*model.Transaction, model.Hash, error) {
	tx := &model.Transaction{
		Version: model.TxVersion,
		Owner:   b.signer.PublicKey(),
		Data:    data,
		Nonce:   nonce,
	}

	payload, err := tx.SigningBytes()
	if err != nil {
		return nil, model.Hash{}, &SigningError{Err: err}
	}
	sig, err := b.signer.Sign(payload)
	if err != nil {
		return nil, model.Hash{}, &SigningError{Err: err}
	}
	tx.Signature = sig

	hash, err := tx.Hash()
	if err != nil {
		return nil, model.Hash{}, &SigningError{Err: err}
	}
	return tx, hash, nil
}

// recordSpend appends one outgoing entry per output.
func (b *Builder) recordSpend(ltx *ledger.Tx, tx *model.Transaction, hash model.Hash) {
	entry := model.HistoryEntry{
		Hash:      hash,
		Kind:      tx.Data.Kind(),
		Direction: model.DirectionOutgoing,
		Nonce:     tx.Nonce,
		Status:    model.TxStatusUnsubmitted,
	}

	switch data := tx.Data.(type) {
	case model.Transfers:
		for _, out := range data {
			e := entry
			e.Asset = out.Asset
			e.Amount = out.Amount
			e.Destination = b.formatAddress(out.Destination)
			ltx.AppendHistory(e)
		}
	default:
		for _, s := range data.Spends() {
			e := entry
			e.Asset = s.Asset
			e.Amount = s.Amount
			ltx.AppendHistory(e)
		}
	}
}
