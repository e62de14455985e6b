// Package prompt is the interactive command line of an open wallet.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/AlexZinkM/xelis-wallet/internal/common"
	"github.com/AlexZinkM/xelis-wallet/internal/model"
)

var errExit = errors.New("exit")

// Wallet is the open wallet as driven by the prompt.
type Wallet interface {
	DisplayAddress() (string, error)
	Balance(asset string) (*model.BalanceResponse, error)
	History() *model.HistoryResponse
	SyncState() model.SyncState
	Transfer(ctx context.Context, toAddress, amount, asset string) (*model.TransferResponse, error)
	SetPassword(oldPassword, newPassword []byte) error
	SetOnlineMode(ctx context.Context, endpoint string) error
	SetOfflineMode()
	IsOnline() bool
	Rescan(ctx context.Context) error
	Resend(ctx context.Context) (int, error)
}

// PasswordReader reads a secret without echo. The caller zeroes the result.
type PasswordReader func(prompt string) ([]byte, error)

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

// Prompt reads commands line by line and runs them against a wallet.
type Prompt struct {
	wallet       Wallet
	in           *bufio.Scanner
	out          io.Writer
	readPassword PasswordReader
	log          *zap.Logger
	commands     map[string]command
}

// New creates a Prompt reading from in and writing to out.
func New(wallet Wallet, in io.Reader, out io.Writer, readPassword PasswordReader, log *zap.Logger) *Prompt {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Prompt{
		wallet:       wallet,
		in:           bufio.NewScanner(in),
		out:          out,
		readPassword: readPassword,
		log:          log.Named("prompt"),
	}
	p.commands = map[string]command{
		"help":            {"help", "Show this help", p.help},
		"set_password":    {"set_password", "Set a new password to open your wallet", p.setPassword},
		"transfer":        {"transfer <address> <amount> [asset]", "Send an asset to a specified address", p.transfer},
		"display_address": {"display_address", "Show your wallet address", p.displayAddress},
		"balance":         {"balance [asset]", "List all non-zero balances or show the selected one", p.balance},
		"history":         {"history", "Show all your transactions", p.history},
		"status":          {"status", "Show the sync status", p.status},
		"online":          {"online [daemon address]", "Connect to a daemon and start syncing", p.online},
		"offline":         {"offline", "Stop syncing with the daemon", p.offline},
		"rescan":          {"rescan", "Sync with the daemon now", p.rescan},
		"resend":          {"resend", "Submit transactions the node has not included yet", p.resend},
		"exit":            {"exit", "Close the wallet", p.exit},
	}
	return p
}

// Run reads and executes commands until exit, end of input or ctx is done.
func (p *Prompt) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(p.out, p.promptLine())

		if !p.in.Scan() {
			fmt.Fprintln(p.out)
			return p.in.Err()
		}

		if err := p.Execute(ctx, p.in.Text()); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			fmt.Fprintf(p.out, "Error: %v\n", err)
		}
	}
}

// Execute runs a single command line.
func (p *Prompt) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	cmd, ok := p.commands[fields[0]]
	if !ok {
		return fmt.Errorf("unknown command %q, type help", fields[0])
	}
	p.log.Debug("command", zap.String("name", fields[0]))
	return cmd.run(ctx, fields[1:])
}

func (p *Prompt) promptLine() string {
	st := p.wallet.SyncState()
	mode := "Offline"
	if p.wallet.IsOnline() {
		mode = "Online"
	}
	return fmt.Sprintf("XELIS Wallet | %d/%d | %s >> ", st.LastKnownHeight, st.TopoHeight, mode)
}

func (p *Prompt) help(ctx context.Context, args []string) error {
	names := make([]string, 0, len(p.commands))
	for name := range p.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(p.out, "Available commands:")
	for _, name := range names {
		c := p.commands[name]
		fmt.Fprintf(p.out, "  %-36s %s\n", c.usage, c.help)
	}
	return nil
}

func (p *Prompt) setPassword(ctx context.Context, args []string) error {
	oldPassword, err := p.readPassword("Current Password: ")
	if err != nil {
		return err
	}
	defer clear(oldPassword)

	newPassword, err := p.readPassword("New Password: ")
	if err != nil {
		return err
	}
	defer clear(newPassword)

	confirm, err := p.readPassword("Confirm Password: ")
	if err != nil {
		return err
	}
	defer clear(confirm)

	if string(newPassword) != string(confirm) {
		return errors.New("new password and confirmation do not match")
	}

	if err := p.wallet.SetPassword(oldPassword, newPassword); err != nil {
		return err
	}
	fmt.Fprintln(p.out, "Password has been changed")
	return nil
}

func (p *Prompt) transfer(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.New("usage: transfer <address> <amount> [asset]")
	}
	var asset string
	if len(args) == 3 {
		asset = args[2]
	}

	resp, err := p.wallet.Transfer(ctx, args[0], args[1], asset)
	if resp != nil {
		fmt.Fprintf(p.out, "Transaction hash: %s (nonce %d)\n", resp.Hash, resp.Nonce)
	}
	if err != nil {
		return err
	}

	if resp.Submitted {
		fmt.Fprintln(p.out, "Transaction submitted")
	} else {
		fmt.Fprintln(p.out, "Wallet is offline, transaction was built but not submitted")
	}
	return nil
}

func (p *Prompt) displayAddress(ctx context.Context, args []string) error {
	text, err := p.wallet.DisplayAddress()
	if err != nil {
		return err
	}
	fmt.Fprintln(p.out, text)
	return nil
}

func (p *Prompt) balance(ctx context.Context, args []string) error {
	var asset string
	if len(args) > 0 {
		asset = args[0]
	}
	b, err := p.wallet.Balance(asset)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Balance for asset %s: %s\n", b.Asset, b.Balance)
	return nil
}

func (p *Prompt) history(ctx context.Context, args []string) error {
	h := p.wallet.History()
	if len(h.Transactions) == 0 {
		fmt.Fprintln(p.out, "No transactions available")
		return nil
	}
	for _, e := range h.Transactions {
		switch e.Direction {
		case model.DirectionIncoming:
			fmt.Fprintf(p.out, "[%d] Received %s of %s\n", e.Height, common.FormatAmount(e.Amount), e.Asset)
		default:
			fmt.Fprintf(p.out, "[%s] Sent %s of %s to %s (nonce %d, %s)\n",
				e.Hash, common.FormatAmount(e.Amount), e.Asset, e.Destination, e.Nonce, e.Status)
		}
	}
	return nil
}

func (p *Prompt) status(ctx context.Context, args []string) error {
	st := p.wallet.SyncState()
	fmt.Fprintf(p.out, "Mode: %s\n", st.Mode())
	fmt.Fprintf(p.out, "Sync: %s\n", st.Status)
	if st.DaemonEndpoint != "" {
		fmt.Fprintf(p.out, "Daemon: %s\n", st.DaemonEndpoint)
	}
	fmt.Fprintf(p.out, "Height: %d (topoheight %d)\n", st.LastKnownHeight, st.TopoHeight)
	if st.LastSyncError != "" {
		fmt.Fprintf(p.out, "Last error: %s (%d in a row)\n", st.LastSyncError, st.ConsecutiveFailures)
	}
	return nil
}

func (p *Prompt) online(ctx context.Context, args []string) error {
	var endpoint string
	if len(args) > 0 {
		endpoint = args[0]
	}
	if err := p.wallet.SetOnlineMode(ctx, endpoint); err != nil {
		return err
	}
	fmt.Fprintln(p.out, "Wallet is now online")
	return nil
}

func (p *Prompt) offline(ctx context.Context, args []string) error {
	if !p.wallet.IsOnline() {
		return errors.New("wallet is already offline")
	}
	p.wallet.SetOfflineMode()
	fmt.Fprintln(p.out, "Wallet is now offline")
	return nil
}

func (p *Prompt) rescan(ctx context.Context, args []string) error {
	if err := p.wallet.Rescan(ctx); err != nil {
		return err
	}
	return p.status(ctx, nil)
}

func (p *Prompt) resend(ctx context.Context, args []string) error {
	accepted, err := p.wallet.Resend(ctx)
	fmt.Fprintf(p.out, "%d transaction(s) accepted by the node\n", accepted)
	return err
}

func (p *Prompt) exit(ctx context.Context, args []string) error {
	return errExit
}
