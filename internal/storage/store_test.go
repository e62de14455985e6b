package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/xelis-wallet/internal/crypto"
	"github.com/AlexZinkM/xelis-wallet/internal/model"
)

var testParams = crypto.Params{Memory: 64, Iterations: 1, Parallelism: 1, KeyLen: crypto.KeyLen, SaltLen: crypto.SaltLen}

var testMeta = model.EnvelopeMeta{Network: "testnet", Address: "xet1test", QR: "cXI="}

func testState() *model.WalletState {
	s := model.NewWalletState(make([]byte, 64))
	s.PrivateKey[0] = 42
	s.Balances[model.Asset{1}] = 500
	s.Nonce = 3
	return s
}

func createWallet(t *testing.T, dir, name, password string) *Store {
	t.Helper()
	s, err := Create(dir, name, []byte(password), testParams, testState(), testMeta)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestCreateOpen(t *testing.T) {
	dir := t.TempDir()
	createWallet(t, dir, "w1", "pw1")

	assert.True(t, Exists(dir, "w1"))
	assert.False(t, Exists(dir, "w2"))

	s, state, err := Open(dir, "w1", []byte("pw1"), testParams)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, testState().Balances, state.Balances)
	assert.Equal(t, uint64(3), state.Nonce)
	assert.Equal(t, byte(42), state.PrivateKey[0])
	assert.Equal(t, "xet1test", s.Address())
}

func TestCreate_Exists(t *testing.T) {
	dir := t.TempDir()
	createWallet(t, dir, "w1", "pw1")

	_, err := Create(dir, "w1", []byte("other"), testParams, testState(), testMeta)
	assert.ErrorIs(t, err, ErrWalletExists)
}

func TestCreate_InvalidName(t *testing.T) {
	_, err := Create(t.TempDir(), "../escape", []byte("pw"), testParams, testState(), testMeta)
	assert.Error(t, err)
}

func TestOpen_NotFound(t *testing.T) {
	_, _, err := Open(t.TempDir(), "missing", []byte("pw"), testParams)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_WrongPassword(t *testing.T) {
	dir := t.TempDir()
	createWallet(t, dir, "w1", "pw1")

	_, _, err := Open(dir, "w1", []byte("nope"), testParams)
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestOpen_Tampered(t *testing.T) {
	dir := t.TempDir()
	createWallet(t, dir, "w1", "pw1")

	env, err := ReadEnvelope(dir, "w1")
	require.NoError(t, err)
	// flip a character of the base64 ciphertext
	ct := []byte(env.CipherText)
	if ct[10] == 'A' {
		ct[10] = 'B'
	} else {
		ct[10] = 'A'
	}
	env.CipherText = string(ct)
	writeEnvelope(t, dir, "w1", env)

	_, _, err = Open(dir, "w1", []byte("pw1"), testParams)
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestOpen_Corrupted(t *testing.T) {
	dir := t.TempDir()
	createWallet(t, dir, "w1", "pw1")
	require.NoError(t, os.WriteFile(Path(dir, "w1"), []byte("{not json"), 0600))

	_, _, err := Open(dir, "w1", []byte("pw1"), testParams)
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestOpen_KDFMismatch(t *testing.T) {
	dir := t.TempDir()
	createWallet(t, dir, "w1", "pw1")

	other := testParams
	other.Iterations = 2
	_, _, err := Open(dir, "w1", []byte("pw1"), other)
	assert.ErrorIs(t, err, ErrUnsupportedKDF)
}

func TestPersist(t *testing.T) {
	dir := t.TempDir()
	s := createWallet(t, dir, "w1", "pw1")

	state := testState()
	state.Balances[model.Asset{1}] = 400
	state.Nonce = 4
	require.NoError(t, s.Persist(state))

	_, reopened, err := Open(dir, "w1", []byte("pw1"), testParams)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), reopened.Balances[model.Asset{1}])
	assert.Equal(t, uint64(4), reopened.Nonce)

	_, err = os.Stat(Path(dir, "w1") + stagingSuffix)
	assert.True(t, os.IsNotExist(err), "staging file must not remain")
}

func TestPersist_Closed(t *testing.T) {
	s := createWallet(t, t.TempDir(), "w1", "pw1")
	s.Close()
	assert.ErrorIs(t, s.Persist(testState()), ErrClosed)
}

func TestSetPassword(t *testing.T) {
	dir := t.TempDir()
	s := createWallet(t, dir, "w1", "pw1")

	before := testState()
	require.NoError(t, s.SetPassword([]byte("pw1"), []byte("pw2"), before))

	_, _, err := Open(dir, "w1", []byte("pw1"), testParams)
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, after, err := Open(dir, "w1", []byte("pw2"), testParams)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// the open handle now persists under the new password
	require.NoError(t, s.Persist(before))
	_, _, err = Open(dir, "w1", []byte("pw2"), testParams)
	assert.NoError(t, err)
}

func TestSetPassword_WrongOld(t *testing.T) {
	dir := t.TempDir()
	s := createWallet(t, dir, "w1", "pw1")

	err := s.SetPassword([]byte("bad"), []byte("pw2"), testState())
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, _, err = Open(dir, "w1", []byte("pw1"), testParams)
	assert.NoError(t, err)
}

func TestSetPassword_FailedSwapKeepsOldStore(t *testing.T) {
	dir := t.TempDir()
	s := createWallet(t, dir, "w1", "pw1")

	renameFile = func(string, string) error { return errors.New("disk gone") }
	defer func() { renameFile = os.Rename }()

	err := s.SetPassword([]byte("pw1"), []byte("pw2"), testState())
	require.Error(t, err)
	assert.True(t, IsStorageError(err))

	renameFile = os.Rename

	_, _, err = Open(dir, "w1", []byte("pw2"), testParams)
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, state, err := Open(dir, "w1", []byte("pw1"), testParams)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), state.Nonce)

	// the handle still holds the old key
	require.NoError(t, s.Persist(testState()))
	_, _, err = Open(dir, "w1", []byte("pw1"), testParams)
	assert.NoError(t, err)
}

func TestOpen_IgnoresLeftoverStaging(t *testing.T) {
	dir := t.TempDir()
	createWallet(t, dir, "w1", "pw1")

	// a crash after staging but before the swap leaves a partial temp file
	require.NoError(t, os.WriteFile(Path(dir, "w1")+stagingSuffix, []byte(`{"version":1,"sa`), 0600))

	_, state, err := Open(dir, "w1", []byte("pw1"), testParams)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), state.Balances[model.Asset{1}])
}

func TestReadEnvelope(t *testing.T) {
	dir := t.TempDir()
	createWallet(t, dir, "w1", "pw1")

	env, err := ReadEnvelope(dir, "w1")
	require.NoError(t, err)
	assert.Equal(t, "xet1test", env.Address)
	assert.Equal(t, "testnet", env.Network)
	assert.Equal(t, "argon2id", env.KDF.Algorithm)
	assert.Equal(t, filepath.Join(dir, "w1", "wallet.json"), Path(dir, "w1"))
}

func writeEnvelope(t *testing.T, dir, name string, env *model.Envelope) {
	t.Helper()
	data, err := json.MarshalIndent(env, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(Path(dir, name), data, 0600))
}
