// Command walletinfo prints the plaintext metadata of a wallet file and,
// with --check, verifies a password against it.
// Usage: go run ./cmd/walletinfo -n <name> [--check]
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/AlexZinkM/xelis-wallet/internal/common"
	"github.com/AlexZinkM/xelis-wallet/internal/config"
	"github.com/AlexZinkM/xelis-wallet/internal/crypto"
	"github.com/AlexZinkM/xelis-wallet/internal/model"
	"github.com/AlexZinkM/xelis-wallet/internal/storage"
)

type options struct {
	Dir      string `short:"w" long:"wallets-dir" description:"Directory holding the wallets" default:"wallets"`
	Name     string `short:"n" long:"name" description:"Wallet name" required:"true"`
	Check    bool   `short:"c" long:"check" description:"Verify the password by decrypting the wallet"`
	Password string `short:"p" long:"password" description:"Password for --check (prompted when omitted)"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	env, err := storage.ReadEnvelope(opts.Dir, opts.Name)
	if err != nil {
		return fmt.Errorf("failed to read wallet: %w", err)
	}
	printEnvelope(opts.Name, env)

	if !opts.Check {
		return nil
	}

	password := []byte(opts.Password)
	if len(password) == 0 {
		password, err = config.PromptForPassword("Password: ")
		if err != nil {
			return err
		}
	}
	defer clear(password) // Always clear password from memory

	params := crypto.DefaultParams()
	params.Memory = env.KDF.Memory
	params.Iterations = env.KDF.Iterations
	params.Parallelism = env.KDF.Parallelism
	if err := params.Validate(); err != nil {
		return fmt.Errorf("wallet has invalid kdf parameters: %w", err)
	}

	store, state, err := storage.Open(opts.Dir, opts.Name, password, params)
	if err != nil {
		return err
	}
	defer store.Close()
	defer state.Wipe()

	fmt.Println("Password:     OK")
	fmt.Printf("Nonce:        %d\n", state.Nonce)
	fmt.Printf("Synced:       %d\n", state.SyncedHeight)
	fmt.Printf("History:      %d entries\n", len(state.History))
	for asset, amount := range state.Balances {
		fmt.Printf("Balance:      %s %s\n", common.FormatAmount(amount), asset)
	}
	return nil
}

func printEnvelope(name string, env *model.Envelope) {
	fmt.Printf("Wallet:       %s\n", name)
	fmt.Printf("Network:      %s\n", env.Network)
	fmt.Printf("Address:      %s\n", env.Address)
	fmt.Printf("KDF:          %s (memory %d KiB, iterations %d, parallelism %d)\n",
		env.KDF.Algorithm, env.KDF.Memory, env.KDF.Iterations, env.KDF.Parallelism)
	fmt.Printf("Updated:      %s\n", env.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
}
