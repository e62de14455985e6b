package wallet

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/AlexZinkM/xelis-wallet/internal/address"
	"github.com/AlexZinkM/xelis-wallet/internal/client"
	"github.com/AlexZinkM/xelis-wallet/internal/common"
	"github.com/AlexZinkM/xelis-wallet/internal/model"
)

// Balance returns the local balance of asset (hex, native when empty).
func (w *Wallet) Balance(asset string) (*model.BalanceResponse, error) {
	a, err := model.ParseAsset(asset)
	if err != nil {
		return nil, err
	}
	atomic := w.ledger.Balance(a)
	return &model.BalanceResponse{
		Address: w.Address(),
		Asset:   a.String(),
		Balance: common.FormatAmount(atomic),
		Atomic:  atomic,
		Nonce:   w.ledger.Nonce(),
	}, nil
}

// Transfer builds and signs a transfer of amount (decimal text) of asset to
// toAddress. Data embedded in an integrated address becomes the transfer's
// extra payload.
//
// The transaction is kept in the outbox. If the wallet is online it is
// submitted right away; otherwise it goes out with the next Resend. When the
// node rejects it, the spend is failed and refunded. On a timeout it stays
// pending, since the node may have accepted it. Either way the response is
// returned together with the error so the caller still learns the hash.
func (w *Wallet) Transfer(ctx context.Context, toAddress, amount, asset string) (*model.TransferResponse, error) {
	dest, err := address.ParseForNetwork(toAddress, w.opts.Mainnet)
	if err != nil {
		return nil, err
	}
	if dest.PublicKey.Equals(w.address.PublicKey) {
		return nil, fmt.Errorf("%w: cannot transfer to yourself", address.ErrInvalidAddress)
	}

	atomic, err := common.ParsePositiveAmount(amount)
	if err != nil {
		return nil, err
	}
	a, err := model.ParseAsset(asset)
	if err != nil {
		return nil, err
	}

	out, err := w.builder.CreateTransfer(a, dest.PublicKey, dest.Data, atomic)
	if err != nil {
		return nil, err
	}
	tx, err := w.builder.CreateTransaction(model.Transfers{out})
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, fmt.Errorf("failed to hash transaction: %w", err)
	}

	resp := &model.TransferResponse{Hash: hash.String(), Nonce: tx.Nonce}
	w.log.Info("transaction built",
		zap.Stringer("hash", hash),
		zap.Uint64("nonce", tx.Nonce),
		zap.String("amount", common.FormatAmount(atomic)),
		zap.Stringer("asset", a),
		zap.String("to", dest.String()),
	)

	conn := w.connection()
	if conn == nil {
		return resp, nil
	}

	raw, err := tx.Bytes()
	if err != nil {
		return resp, err
	}
	entry := model.OutboxEntry{Hash: hash, Nonce: tx.Nonce, Data: raw}
	if err := w.submit(ctx, conn, entry); err != nil {
		if errors.Is(err, client.ErrRejected) {
			w.failSpends([]model.OutboxEntry{entry})
			return resp, fmt.Errorf("failed to submit transaction %s: %w", hash, err)
		}
		return resp, fmt.Errorf("transaction %s may not have reached the node, it stays pending: %w", hash, err)
	}

	resp.Submitted = true
	return resp, nil
}
