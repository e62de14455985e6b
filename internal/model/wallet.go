package model

import "time"

// Envelope is the on-disk wallet file. Everything except CipherText is
// readable without the password.
type Envelope struct {
	Version    int       `json:"version"`
	Network    string    `json:"network"`
	Address    string    `json:"address"`
	QR         string    `json:"QR"`
	KDF        KDFInfo   `json:"kdf"`
	Salt       string    `json:"salt"`
	CipherText string    `json:"cipherText"` // nonce || ciphertext, base64
	UpdatedAt  time.Time `json:"updatedAt"`
}

// KDFInfo records the cost parameters a wallet was encrypted with.
type KDFInfo struct {
	Algorithm   string `json:"algorithm"`
	Memory      uint32 `json:"memory"`
	Iterations  uint32 `json:"iterations"`
	Parallelism uint8  `json:"parallelism"`
}

// EnvelopeMeta is the public part of the envelope chosen at creation.
type EnvelopeMeta struct {
	Network string
	Address string
	QR      string
}

// WalletState is the decrypted wallet: the unit the store encrypts.
type WalletState struct {
	PrivateKey   []byte           `json:"privateKey"` // 64-byte ed25519 key (base64 in JSON)
	Balances     map[Asset]uint64 `json:"balances"`
	Nonce        uint64           `json:"nonce"`
	History      []HistoryEntry   `json:"history"`
	SyncedHeight uint64           `json:"syncedHeight"`
	RemoteNonce  uint64           `json:"remoteNonce"`
	Outbox       []OutboxEntry    `json:"outbox,omitempty"`
	CreatedAt    string           `json:"createdAt"`
}

// OutboxEntry is a signed transaction the node has not included yet. Data
// is the exact serialization, so a resend carries the same hash and nonce.
type OutboxEntry struct {
	Hash      Hash   `json:"hash"`
	Nonce     uint64 `json:"nonce"`
	Data      []byte `json:"data"`
	Submitted bool   `json:"submitted"`
}

// NewWalletState returns an empty state owning privateKey.
func NewWalletState(privateKey []byte) *WalletState {
	return &WalletState{
		PrivateKey: privateKey,
		Balances:   make(map[Asset]uint64),
		History:    []HistoryEntry{},
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

// Clone returns a deep copy of s.
func (s *WalletState) Clone() *WalletState {
	out := *s
	out.PrivateKey = append([]byte(nil), s.PrivateKey...)
	out.Balances = make(map[Asset]uint64, len(s.Balances))
	for k, v := range s.Balances {
		out.Balances[k] = v
	}
	out.History = append([]HistoryEntry{}, s.History...)
	if s.Outbox != nil {
		out.Outbox = append([]OutboxEntry{}, s.Outbox...)
	}
	return &out
}

// Wipe zeroes the key material held by s.
func (s *WalletState) Wipe() {
	clear(s.PrivateKey)
}

// Direction of a history entry relative to this wallet.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// TxStatus is the confirmation state of a history entry.
type TxStatus string

const (
	TxStatusUnsubmitted TxStatus = "unsubmitted"
	TxStatusPending     TxStatus = "pending"
	TxStatusConfirmed   TxStatus = "confirmed"
	TxStatusFailed      TxStatus = "failed"
)

// HistoryEntry summarizes one movement of funds.
type HistoryEntry struct {
	Hash        Hash      `json:"hash"`
	Kind        TxKind    `json:"kind"`
	Asset       Asset     `json:"asset"`
	Amount      uint64    `json:"amount"`
	Direction   Direction `json:"direction"`
	Destination string    `json:"destination,omitempty"`
	Nonce       uint64    `json:"nonce,omitempty"`
	Height      uint64    `json:"height,omitempty"`
	Status      TxStatus  `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// IsPendingSpend reports whether e is a local spend not yet seen by the node,
// sent or not.
func (e HistoryEntry) IsPendingSpend() bool {
	return e.Direction == DirectionOutgoing &&
		(e.Status == TxStatusPending || e.Status == TxStatusUnsubmitted)
}
