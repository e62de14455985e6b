package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	// Argon2id parameters for local wallets.
	//
	// 15 MB of memory and 16 passes keep an unlock under a second on a desktop
	// while making every password guess pay the same memory cost.
	DefaultMemoryKiB   = 15 * 1000
	DefaultIterations  = 16
	DefaultParallelism = 1

	KeyLen  = 32
	SaltLen = 32
)

// Params holds the fixed KDF cost parameters. It is built once at startup
// and passed by value to everything that derives keys.
type Params struct {
	Memory      uint32 `json:"memory"` // KiB
	Iterations  uint32 `json:"iterations"`
	Parallelism uint8  `json:"parallelism"`
	KeyLen      uint32 `json:"keyLen"`
	SaltLen     int    `json:"saltLen"`
}

// DefaultParams returns the parameters every wallet is created with.
func DefaultParams() Params {
	return Params{
		Memory:      DefaultMemoryKiB,
		Iterations:  DefaultIterations,
		Parallelism: DefaultParallelism,
		KeyLen:      KeyLen,
		SaltLen:     SaltLen,
	}
}

// Validate reports a misconfigured parameter set.
func (p Params) Validate() error {
	switch {
	case p.Iterations == 0:
		return errors.New("kdf iterations must be positive")
	case p.Parallelism == 0:
		return errors.New("kdf parallelism must be positive")
	case p.Memory < 8*uint32(p.Parallelism):
		return fmt.Errorf("kdf memory must be at least %d KiB", 8*uint32(p.Parallelism))
	case p.KeyLen != KeyLen:
		return fmt.Errorf("kdf key length must be %d bytes", KeyLen)
	case p.SaltLen < 16:
		return errors.New("kdf salt must be at least 16 bytes")
	}
	return nil
}

// DeriveKey turns a password and salt into a symmetric key with Argon2id.
// The result is deterministic for the same password, salt and params.
// Panics on invalid params: callers validate them once at startup.
func DeriveKey(password, salt []byte, p Params) []byte {
	if err := p.Validate(); err != nil {
		panic(err)
	}
	return argon2.IDKey(password, salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLen)
}

// NewSalt returns n bytes from the system CSPRNG.
func NewSalt(n int) ([]byte, error) {
	salt := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}
