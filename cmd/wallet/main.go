// Command wallet opens (or creates) a local wallet and runs its interactive
// prompt, optionally serving the HTTP API next to it.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/AlexZinkM/xelis-wallet/internal/api"
	"github.com/AlexZinkM/xelis-wallet/internal/config"
	"github.com/AlexZinkM/xelis-wallet/internal/handler"
	"github.com/AlexZinkM/xelis-wallet/internal/logger"
	"github.com/AlexZinkM/xelis-wallet/internal/prompt"
	"github.com/AlexZinkM/xelis-wallet/internal/storage"
	"github.com/AlexZinkM/xelis-wallet/internal/syncer"
	"github.com/AlexZinkM/xelis-wallet/wallet"
)

var (
	// version holds the build version set via ldflags.
	version string
)

func main() {
	opts, err := config.ParseOptions(os.Args[1:])
	if err != nil {
		// go-flags has already printed the message or the help text
		if config.IsHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(opts *config.Options) error {
	envCfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg := opts.Apply(envCfg)
	if err := cfg.KDF.Validate(); err != nil {
		return err
	}

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Close() }()
	if err := log.Init(logger.Options{
		Level:       cfg.LogLevel,
		Filename:    cfg.LogFile,
		DisableFile: cfg.DisableFileLogging,
	}); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	zapLogger := log.Log
	zapLogger.Info("starting wallet",
		zap.String("version", cmp.Or(version, "N/A")),
		zap.String("network", cfg.Network),
		zap.String("name", opts.Name),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	password, err := readPassword(opts, !storage.Exists(cfg.WalletsDir, opts.Name))
	if err != nil {
		return err
	}

	w, created, err := wallet.OpenOrCreate(wallet.Options{
		Dir:           cfg.WalletsDir,
		Name:          opts.Name,
		Mainnet:       cfg.IsMainnet(),
		KDF:           cfg.KDF,
		DaemonAddress: cfg.DaemonAddress,
		Sync: syncer.Config{
			PollInterval:          cfg.PollInterval,
			RequestTimeout:        cfg.RequestTimeout,
			FailureAlertThreshold: cfg.FailureAlertThreshold,
		},
		Log: zapLogger,
	}, password)
	clear(password) // Always clear password from memory
	if err != nil {
		return fmt.Errorf("failed to open wallet: %w", err)
	}
	defer w.Close()

	if created {
		fmt.Printf("Wallet %q created\n", opts.Name)
	}
	fmt.Printf("Wallet address: %s\n", w.Address())

	if !opts.Offline {
		if err := w.SetOnlineMode(ctx, ""); err != nil {
			fmt.Printf("Could not connect to daemon %s, wallet stays offline\n", cfg.DaemonAddress)
		}
	}

	if cfg.APIAddr != "" {
		server := &http.Server{
			Addr:              cfg.APIAddr,
			Handler:           api.SetupRouter(handler.NewWalletHandler(w), zapLogger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			zapLogger.Info("starting HTTP API", zap.String("addr", cfg.APIAddr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLogger.Error("HTTP API stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	p := prompt.New(w, os.Stdin, os.Stdout, config.PromptForPassword, zapLogger)
	return p.Run(ctx)
}

// readPassword takes the password from the flag or the terminal. A new
// wallet asks for it twice.
func readPassword(opts *config.Options, creating bool) ([]byte, error) {
	if opts.Password != "" {
		return []byte(opts.Password), nil
	}

	password, err := config.PromptForPassword("Password: ")
	if err != nil {
		return nil, err
	}
	if !creating {
		return password, nil
	}

	confirm, err := config.PromptForPassword("Confirm Password: ")
	if err != nil {
		clear(password)
		return nil, err
	}
	defer clear(confirm)

	if string(password) != string(confirm) {
		clear(password)
		return nil, errors.New("passwords do not match")
	}
	return password, nil
}
