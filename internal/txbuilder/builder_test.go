package txbuilder

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/xelis-wallet/internal/ledger"
	"github.com/AlexZinkM/xelis-wallet/internal/model"
)

var (
	assetA = model.Asset{0xaa}
	assetB = model.Asset{0xbb}
)

type countingStore struct {
	calls int
}

func (s *countingStore) Persist(*model.WalletState) error {
	s.calls++
	return nil
}

// testKey is a fixed keypair so hashes are reproducible.
func testKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	return solana.PrivateKey(ed25519.NewKeyFromSeed(bytes.Repeat([]byte{7}, ed25519.SeedSize)))
}

func newBuilder(t *testing.T, balances map[model.Asset]uint64, nonce uint64) (*Builder, *ledger.Ledger, *countingStore) {
	t.Helper()
	key := testKey(t)
	state := model.NewWalletState(append([]byte(nil), key...))
	for a, v := range balances {
		state.Balances[a] = v
	}
	state.Nonce = nonce
	store := &countingStore{}
	l := ledger.New(state, store)
	return New(l, key), l, store
}

func destination() solana.PublicKey {
	var pk solana.PublicKey
	pk[0] = 0xde
	return pk
}

func TestCreateTransaction_Transfer(t *testing.T) {
	b, l, store := newBuilder(t, map[model.Asset]uint64{assetA: 500}, 3)

	out, err := b.CreateTransfer(assetA, destination(), nil, 100)
	require.NoError(t, err)

	tx, err := b.CreateTransaction(model.Transfers{out})
	require.NoError(t, err)

	assert.Equal(t, uint64(400), l.Balance(assetA))
	assert.Equal(t, uint64(4), l.Nonce())
	assert.Equal(t, uint64(4), tx.Nonce)
	assert.True(t, tx.VerifySignature())
	assert.Equal(t, 1, store.calls)

	hash, err := tx.Hash()
	require.NoError(t, err)
	h := l.History()
	require.Len(t, h, 1)
	assert.Equal(t, hash, h[0].Hash)
	assert.Equal(t, model.TxStatusUnsubmitted, h[0].Status)
	assert.Equal(t, model.DirectionOutgoing, h[0].Direction)
	assert.Equal(t, uint64(4), h[0].Nonce)
	assert.Equal(t, destination().String(), h[0].Destination)

	raw, err := tx.Bytes()
	require.NoError(t, err)
	outbox := l.Outbox()
	require.Len(t, outbox, 1)
	assert.Equal(t, model.OutboxEntry{Hash: hash, Nonce: 4, Data: raw}, outbox[0])
}

func TestCreateTransaction_DeterministicHash(t *testing.T) {
	build := func() model.Hash {
		b, _, _ := newBuilder(t, map[model.Asset]uint64{assetA: 500}, 3)
		out, err := b.CreateTransfer(assetA, destination(), []byte("memo"), 100)
		require.NoError(t, err)
		tx, err := b.CreateTransaction(model.Transfers{out})
		require.NoError(t, err)
		h, err := tx.Hash()
		require.NoError(t, err)
		return h
	}
	assert.Equal(t, build(), build())
}

func TestCreateTransaction_MultiOutputAllOrNothing(t *testing.T) {
	b, l, store := newBuilder(t, map[model.Asset]uint64{assetA: 500, assetB: 50}, 3)

	outA, err := b.CreateTransfer(assetA, destination(), nil, 200)
	require.NoError(t, err)
	outB, err := b.CreateTransfer(assetB, destination(), nil, 60)
	require.NoError(t, err)

	_, err = b.CreateTransaction(model.Transfers{outA, outB})
	require.Error(t, err)
	assert.True(t, ledger.IsInsufficientBalance(err))

	assert.Equal(t, uint64(500), l.Balance(assetA))
	assert.Equal(t, uint64(50), l.Balance(assetB))
	assert.Equal(t, uint64(3), l.Nonce())
	assert.Empty(t, l.History())
	assert.Equal(t, 0, store.calls)
}

func TestCreateTransaction_SameAssetTwice(t *testing.T) {
	b, l, _ := newBuilder(t, map[model.Asset]uint64{assetA: 500}, 0)

	out, err := b.CreateTransfer(assetA, destination(), nil, 300)
	require.NoError(t, err)

	_, err = b.CreateTransaction(model.Transfers{out, out})
	assert.True(t, ledger.IsInsufficientBalance(err))
	assert.Equal(t, uint64(500), l.Balance(assetA))
}

type failingSigner struct {
	solana.PrivateKey
}

func (failingSigner) Sign([]byte) (solana.Signature, error) {
	return solana.Signature{}, errors.New("hsm unavailable")
}

func TestCreateTransaction_SigningFailureRollsBack(t *testing.T) {
	_, l, store := newBuilder(t, map[model.Asset]uint64{assetA: 500}, 3)
	b := New(l, failingSigner{testKey(t)})

	out, err := b.CreateTransfer(assetA, destination(), nil, 100)
	require.NoError(t, err)

	_, err = b.CreateTransaction(model.Transfers{out})
	require.Error(t, err)
	assert.True(t, IsSigningError(err))

	assert.Equal(t, uint64(500), l.Balance(assetA))
	assert.Equal(t, uint64(3), l.Nonce())
	assert.Empty(t, l.History())
	assert.Empty(t, l.Outbox())
	assert.Equal(t, 0, store.calls)
}

func TestCreateTransfer_Validation(t *testing.T) {
	b, _, _ := newBuilder(t, nil, 0)

	_, err := b.CreateTransfer(assetA, destination(), nil, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = b.CreateTransfer(assetA, destination(), make([]byte, model.ExtraDataLimit+1), 1)
	assert.ErrorIs(t, err, ErrExtraDataTooLarge)

	out, err := b.CreateTransfer(assetA, destination(), make([]byte, model.ExtraDataLimit), 1)
	require.NoError(t, err)
	assert.Len(t, out.ExtraData, model.ExtraDataLimit)

	_, err = b.CreateTransaction(model.Transfers{})
	assert.ErrorIs(t, err, ErrEmptyTransaction)
}

func TestCreateBurn(t *testing.T) {
	b, l, _ := newBuilder(t, map[model.Asset]uint64{model.NativeAsset: 10}, 0)

	_, err := b.CreateBurn(model.NativeAsset, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	burn, err := b.CreateBurn(model.NativeAsset, 4)
	require.NoError(t, err)
	tx, err := b.CreateTransaction(burn)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), tx.Nonce)
	assert.Equal(t, uint64(6), l.Balance(model.NativeAsset))
	h := l.History()
	require.Len(t, h, 1)
	assert.Equal(t, model.TxKindBurn, h[0].Kind)
	assert.Empty(t, h[0].Destination)
}

func TestWithAddressFormat(t *testing.T) {
	key := testKey(t)
	state := model.NewWalletState(append([]byte(nil), key...))
	state.Balances[assetA] = 10
	l := ledger.New(state, nil)
	b := New(l, key, WithAddressFormat(func(solana.PublicKey) string { return "xet1dest" }))

	out, err := b.CreateTransfer(assetA, destination(), nil, 1)
	require.NoError(t, err)
	_, err = b.CreateTransaction(model.Transfers{out})
	require.NoError(t, err)
	assert.Equal(t, "xet1dest", l.History()[0].Destination)
}
