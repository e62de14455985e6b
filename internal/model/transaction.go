package model

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"golang.org/x/crypto/sha3"
)

// TxVersion is the serialization version written into every transaction.
const TxVersion uint8 = 0

// ExtraDataLimit bounds the opaque payload a single transfer may carry.
const ExtraDataLimit = 1024

// TxKind tags the transaction payload variant.
type TxKind uint8

const (
	TxKindTransfer TxKind = iota
	TxKindBurn
)

func (k TxKind) String() string {
	switch k {
	case TxKindTransfer:
		return "transfer"
	case TxKindBurn:
		return "burn"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

func (k TxKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *TxKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "transfer":
		*k = TxKindTransfer
	case "burn":
		*k = TxKindBurn
	default:
		return fmt.Errorf("unknown transaction kind %q", text)
	}
	return nil
}

// Spend is an amount of one asset leaving the wallet.
type Spend struct {
	Asset  Asset
	Amount uint64
}

// TransactionType is the payload of a transaction: Transfers or Burn.
type TransactionType interface {
	Kind() TxKind
	// Spends lists the debits in output order.
	Spends() []Spend
	encode(enc *bin.Encoder) error
}

// Transfer is a single output of a transfer transaction.
type Transfer struct {
	Asset       Asset            `json:"asset"`
	Destination solana.PublicKey `json:"destination"`
	Amount      uint64           `json:"amount"`
	ExtraData   []byte           `json:"extraData,omitempty"`
}

// Transfers is the multi-output transfer payload.
type Transfers []Transfer

func (Transfers) Kind() TxKind { return TxKindTransfer }

func (t Transfers) Spends() []Spend {
	out := make([]Spend, 0, len(t))
	for _, tr := range t {
		out = append(out, Spend{Asset: tr.Asset, Amount: tr.Amount})
	}
	return out
}

func (t Transfers) encode(enc *bin.Encoder) error {
	if err := enc.WriteLength(len(t)); err != nil {
		return err
	}
	for _, tr := range t {
		if err := enc.WriteBytes(tr.Asset[:], false); err != nil {
			return err
		}
		if err := enc.WriteBytes(tr.Destination[:], false); err != nil {
			return err
		}
		if err := enc.WriteUint64(tr.Amount, bin.LE); err != nil {
			return err
		}
		if err := enc.WriteOption(len(tr.ExtraData) > 0); err != nil {
			return err
		}
		if len(tr.ExtraData) > 0 {
			if err := enc.WriteBytes(tr.ExtraData, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// Burn destroys an amount of an asset.
type Burn struct {
	Asset  Asset  `json:"asset"`
	Amount uint64 `json:"amount"`
}

func (Burn) Kind() TxKind { return TxKindBurn }

func (b Burn) Spends() []Spend {
	return []Spend{{Asset: b.Asset, Amount: b.Amount}}
}

func (b Burn) encode(enc *bin.Encoder) error {
	if err := enc.WriteBytes(b.Asset[:], false); err != nil {
		return err
	}
	return enc.WriteUint64(b.Amount, bin.LE)
}

// Transaction is a signed spend built by the wallet.
type Transaction struct {
	Version   uint8
	Owner     solana.PublicKey
	Data      TransactionType
	Nonce     uint64
	Signature solana.Signature
}

func (tx *Transaction) encodeBody(enc *bin.Encoder) error {
	if tx.Data == nil {
		return fmt.Errorf("transaction has no payload")
	}
	if err := enc.WriteUint8(tx.Version); err != nil {
		return err
	}
	if err := enc.WriteBytes(tx.Owner[:], false); err != nil {
		return err
	}
	if err := enc.WriteUint8(uint8(tx.Data.Kind())); err != nil {
		return err
	}
	if err := tx.Data.encode(enc); err != nil {
		return err
	}
	return enc.WriteUint64(tx.Nonce, bin.LE)
}

// MarshalWithEncoder writes the signed transaction in Borsh layout.
func (tx *Transaction) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := tx.encodeBody(enc); err != nil {
		return err
	}
	return enc.WriteBytes(tx.Signature[:], false)
}

// SigningBytes returns the payload covered by the signature.
func (tx *Transaction) SigningBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := tx.encodeBody(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("failed to encode transaction body: %w", err)
	}
	return buf.Bytes(), nil
}

// Bytes returns the full signed serialization, as submitted to the node.
func (tx *Transaction) Bytes() ([]byte, error) {
	b, err := bin.MarshalBorsh(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}
	return b, nil
}

// Hash is the SHA3-256 of the signed serialization.
func (tx *Transaction) Hash() (Hash, error) {
	b, err := tx.Bytes()
	if err != nil {
		return Hash{}, err
	}
	return Hash(sha3.Sum256(b)), nil
}

// VerifySignature checks the signature against Owner.
func (tx *Transaction) VerifySignature() bool {
	body, err := tx.SigningBytes()
	if err != nil {
		return false
	}
	return tx.Owner.Verify(body, tx.Signature)
}
