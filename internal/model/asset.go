package model

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HashSize is the length of asset identifiers and transaction hashes.
const HashSize = 32

// Asset identifies a fungible token by a 32-byte hash.
type Asset [HashSize]byte

// NativeAsset is the network's own coin: the zero hash.
var NativeAsset = Asset{}

// ParseAsset parses a hex asset id. An empty string selects the native asset.
func ParseAsset(s string) (Asset, error) {
	var a Asset
	s = strings.TrimSpace(s)
	if s == "" {
		return NativeAsset, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("invalid asset %q: %w", s, err)
	}
	if len(b) != HashSize {
		return a, fmt.Errorf("invalid asset %q: expected %d bytes, got %d", s, HashSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

func (a Asset) String() string {
	return hex.EncodeToString(a[:])
}

// IsNative reports whether a is the native asset.
func (a Asset) IsNative() bool {
	return a == NativeAsset
}

func (a Asset) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Asset) UnmarshalText(text []byte) error {
	parsed, err := ParseAsset(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Hash is a content digest, used for transaction ids.
type Hash [HashSize]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid hash: %w", err)
	}
	if len(b) != HashSize {
		return fmt.Errorf("invalid hash length %d", len(b))
	}
	copy(h[:], b)
	return nil
}
