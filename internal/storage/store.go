package storage

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/AlexZinkM/xelis-wallet/internal/crypto"
	"github.com/AlexZinkM/xelis-wallet/internal/model"
)

const (
	envelopeVersion = 1
	envelopeFile    = "wallet.json"
	stagingSuffix   = ".tmp"
	kdfAlgorithm    = "argon2id"
)

var (
	ErrWalletExists   = errors.New("wallet already exists")
	ErrNotFound       = errors.New("wallet not found")
	ErrWrongPassword  = errors.New("invalid password or corrupted wallet")
	ErrCorrupted      = errors.New("wallet file is corrupted")
	ErrUnsupportedKDF = errors.New("wallet was encrypted with unsupported kdf parameters")
	ErrClosed         = errors.New("wallet store is closed")
)

// StorageError is an I/O failure on the wallet directory.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError checks if err is a StorageError
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// renameFile is swapped in tests to simulate a crash before the swap.
var renameFile = os.Rename

// Store is an open encrypted wallet file. It holds the derived key for the
// lifetime of the open wallet.
type Store struct {
	mu     sync.Mutex
	path   string
	params crypto.Params
	meta   model.EnvelopeMeta
	salt   []byte
	key    []byte
}

// Path returns the envelope location for a wallet name.
func Path(dir, name string) string {
	return filepath.Join(dir, name, envelopeFile)
}

// Exists reports whether a wallet directory exists for name.
func Exists(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && info.IsDir()
}

// Create writes a new wallet. It fails with ErrWalletExists if the wallet
// file is already present.
// password must be []byte for security (caller should zero it after use)
func Create(dir, name string, password []byte, params crypto.Params, state *model.WalletState, meta model.EnvelopeMeta) (*Store, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid wallet name %q", name)
	}

	path := Path(dir, name)
	if _, err := os.Stat(path); err == nil {
		return nil, ErrWalletExists
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, &StorageError{Op: "create", Path: filepath.Dir(path), Err: err}
	}

	salt, err := crypto.NewSalt(params.SaltLen)
	if err != nil {
		return nil, err
	}

	s := &Store{
		path:   path,
		params: params,
		meta:   meta,
		salt:   salt,
		key:    crypto.DeriveKey(password, salt, params),
	}

	if err := s.write(s.salt, s.key, state); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Open reads and decrypts a wallet.
// A wrong password and a tampered ciphertext both return ErrWrongPassword.
func Open(dir, name string, password []byte, params crypto.Params) (*Store, *model.WalletState, error) {
	path := Path(dir, name)
	env, err := readEnvelope(path)
	if err != nil {
		return nil, nil, err
	}

	if env.KDF.Algorithm != kdfAlgorithm ||
		env.KDF.Memory != params.Memory ||
		env.KDF.Iterations != params.Iterations ||
		env.KDF.Parallelism != params.Parallelism {
		return nil, nil, ErrUnsupportedKDF
	}

	salt, ciphertext, err := decodeEnvelope(env)
	if err != nil {
		return nil, nil, err
	}

	key := crypto.DeriveKey(password, salt, params)
	state, err := decryptState(key, ciphertext)
	if err != nil {
		clear(key)
		return nil, nil, err
	}

	s := &Store{
		path:   path,
		params: params,
		meta:   model.EnvelopeMeta{Network: env.Network, Address: env.Address, QR: env.QR},
		salt:   salt,
		key:    key,
	}
	return s, state, nil
}

// ReadEnvelope reads the public envelope fields without decryption.
func ReadEnvelope(dir, name string) (*model.Envelope, error) {
	return readEnvelope(Path(dir, name))
}

// Persist re-encrypts state under the current key and swaps it into place.
func (s *Store) Persist(state *model.WalletState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key == nil {
		return ErrClosed
	}
	return s.write(s.salt, s.key, state)
}

// SetPassword rotates the wallet to a new password. oldPassword must open the file
// currently on disk. The in-memory key only changes after the new file has
// replaced the old one, so any failure leaves the wallet as it was.
func (s *Store) SetPassword(oldPassword, newPassword []byte, state *model.WalletState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key == nil {
		return ErrClosed
	}

	env, err := readEnvelope(s.path)
	if err != nil {
		return err
	}
	salt, ciphertext, err := decodeEnvelope(env)
	if err != nil {
		return err
	}

	oldKey := crypto.DeriveKey(oldPassword, salt, s.params)
	defer clear(oldKey)
	current, err := decryptState(oldKey, ciphertext)
	if err != nil {
		return err
	}
	current.Wipe()

	newSalt, err := crypto.NewSalt(s.params.SaltLen)
	if err != nil {
		return err
	}
	newKey := crypto.DeriveKey(newPassword, newSalt, s.params)

	if err := s.write(newSalt, newKey, state); err != nil {
		clear(newKey)
		return err
	}

	clear(s.key)
	s.salt, s.key = newSalt, newKey
	return nil
}

// Address returns the address recorded in the envelope.
func (s *Store) Address() string {
	return s.meta.Address
}

// Meta returns the public envelope fields.
func (s *Store) Meta() model.EnvelopeMeta {
	return s.meta
}

// Close zeroes the key. The store cannot persist afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.key)
	s.key = nil
}

// write encrypts state and swaps it in through a staging file.
func (s *Store) write(salt, key []byte, state *model.WalletState) error {
	plaintext, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet state: %w", err)
	}
	defer clear(plaintext) // wipe plaintext bytes from memory

	ciphertext, err := crypto.Seal(key, plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt wallet: %w", err)
	}

	env := model.Envelope{
		Version: envelopeVersion,
		Network: s.meta.Network,
		Address: s.meta.Address,
		QR:      s.meta.QR,
		KDF: model.KDFInfo{
			Algorithm:   kdfAlgorithm,
			Memory:      s.params.Memory,
			Iterations:  s.params.Iterations,
			Parallelism: s.params.Parallelism,
		},
		Salt:       base64.StdEncoding.EncodeToString(salt),
		CipherText: base64.StdEncoding.EncodeToString(ciphertext),
		UpdatedAt:  time.Now().UTC(),
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal wallet file: %w", err)
	}

	return writeFileAtomic(s.path, data)
}

// writeFileAtomic writes data to path+".tmp", syncs it, and renames it over
// path. Readers see either the old file or the new one.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + stagingSuffix

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return &StorageError{Op: "create", Path: tmp, Err: err}
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return &StorageError{Op: "write", Path: tmp, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &StorageError{Op: "sync", Path: tmp, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &StorageError{Op: "close", Path: tmp, Err: err}
	}

	if err := renameFile(tmp, path); err != nil {
		os.Remove(tmp)
		return &StorageError{Op: "rename", Path: path, Err: err}
	}

	// Persist the rename itself.
	if dir, err := os.Open(filepath.Dir(path)); err == nil {
		dir.Sync()
		dir.Close()
	}
	return nil
}

func readEnvelope(path string) (*model.Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "read", Path: path, Err: err}
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrCorrupted)
	}

	var env model.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrCorrupted, env.Version)
	}
	return &env, nil
}

func decodeEnvelope(env *model.Envelope) (salt, ciphertext []byte, err error) {
	salt, err = base64.StdEncoding.DecodeString(env.Salt)
	if err != nil || len(salt) == 0 {
		return nil, nil, fmt.Errorf("%w: bad salt", ErrCorrupted)
	}
	ciphertext, err = base64.StdEncoding.DecodeString(env.CipherText)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: bad ciphertext", ErrCorrupted)
	}
	return salt, ciphertext, nil
}

func decryptState(key, ciphertext []byte) (*model.WalletState, error) {
	plaintext, err := crypto.Open(key, ciphertext)
	if err != nil {
		return nil, ErrWrongPassword
	}
	defer clear(plaintext) // wipe decrypted bytes from memory

	var state model.WalletState
	if err := json.Unmarshal(plaintext, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if state.Balances == nil {
		state.Balances = make(map[model.Asset]uint64)
	}
	if state.History == nil {
		state.History = []model.HistoryEntry{}
	}
	return &state, nil
}
