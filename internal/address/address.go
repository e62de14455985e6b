// Package address encodes and parses wallet addresses.
//
// An address is bech32 text: hrp "xel" on mainnet or "xet" on testnet, and a
// payload of the 32-byte public key, one type byte and, for integrated
// addresses, the embedded data.
package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/gagliardetto/solana-go"

	"github.com/AlexZinkM/xelis-wallet/internal/model"
)

const (
	PrefixMainnet = "xel"
	PrefixTestnet = "xet"

	typeNormal byte = 0
	typeData   byte = 1
)

// ErrInvalidAddress is wrapped by every parse failure.
var ErrInvalidAddress = errors.New("invalid address")

// Address is a decoded wallet address.
type Address struct {
	Mainnet   bool
	PublicKey solana.PublicKey
	Data      []byte // nil for normal addresses
}

// New returns a normal address for pub.
func New(pub solana.PublicKey, mainnet bool) *Address {
	return &Address{Mainnet: mainnet, PublicKey: pub}
}

// NewIntegrated returns an address that carries data for the sender to
// attach to the transfer.
func NewIntegrated(pub solana.PublicKey, mainnet bool, data []byte) *Address {
	return &Address{Mainnet: mainnet, PublicKey: pub, Data: append([]byte(nil), data...)}
}

// IsIntegrated reports whether the address carries embedded data.
func (a *Address) IsIntegrated() bool {
	return len(a.Data) > 0
}

// IsMainnet reports whether the address belongs to mainnet.
func (a *Address) IsMainnet() bool {
	return a.Mainnet
}

// Prefix returns the human-readable part for the address network.
func (a *Address) Prefix() string {
	if a.Mainnet {
		return PrefixMainnet
	}
	return PrefixTestnet
}

// String encodes a as bech32 text.
func (a *Address) String() string {
	payload := make([]byte, 0, solana.PublicKeyLength+1+len(a.Data))
	payload = append(payload, a.PublicKey[:]...)
	if a.IsIntegrated() {
		payload = append(payload, typeData)
		payload = append(payload, a.Data...)
	} else {
		payload = append(payload, typeNormal)
	}

	s, err := bech32.EncodeFromBase256(a.Prefix(), payload)
	if err != nil {
		// only possible with an invalid hrp
		panic(fmt.Sprintf("address: encode: %v", err))
	}
	return s
}

// Parse decodes bech32 address text.
func Parse(text string) (*Address, error) {
	hrp, data, err := bech32.DecodeNoLimit(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	var mainnet bool
	switch hrp {
	case PrefixMainnet:
		mainnet = true
	case PrefixTestnet:
	default:
		return nil, fmt.Errorf("%w: unknown prefix %q", ErrInvalidAddress, hrp)
	}

	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(payload) < solana.PublicKeyLength+1 {
		return nil, fmt.Errorf("%w: payload too short", ErrInvalidAddress)
	}

	a := &Address{
		Mainnet:   mainnet,
		PublicKey: solana.PublicKeyFromBytes(payload[:solana.PublicKeyLength]),
	}

	rest := payload[solana.PublicKeyLength+1:]
	switch payload[solana.PublicKeyLength] {
	case typeNormal:
		if len(rest) != 0 {
			return nil, fmt.Errorf("%w: trailing bytes", ErrInvalidAddress)
		}
	case typeData:
		if len(rest) == 0 {
			return nil, fmt.Errorf("%w: integrated address without data", ErrInvalidAddress)
		}
		if len(rest) > model.ExtraDataLimit {
			return nil, fmt.Errorf("%w: embedded data exceeds %d bytes", ErrInvalidAddress, model.ExtraDataLimit)
		}
		a.Data = append([]byte(nil), rest...)
	default:
		return nil, fmt.Errorf("%w: unknown address type %d", ErrInvalidAddress, payload[solana.PublicKeyLength])
	}
	return a, nil
}

// ParseForNetwork parses text and checks it belongs to the given network.
func ParseForNetwork(text string, mainnet bool) (*Address, error) {
	a, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if a.Mainnet != mainnet {
		return nil, fmt.Errorf("%w: address is for another network", ErrInvalidAddress)
	}
	return a, nil
}
