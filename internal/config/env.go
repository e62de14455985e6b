package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"

	"github.com/AlexZinkM/xelis-wallet/internal/crypto"
)

const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
)

// Config contains all configuration parameters for the application.
// It is built once by Load and passed by pointer; nothing mutates it after
// startup.
type Config struct {
	WalletsDir            string        `envconfig:"WALLETS_DIR" default:"wallets"`
	Network               string        `envconfig:"NETWORK" default:"mainnet"`
	DaemonAddress         string        `envconfig:"DAEMON_ADDRESS" default:"http://127.0.0.1:8080/json_rpc"`
	PollInterval          time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	RequestTimeout        time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	FailureAlertThreshold int           `envconfig:"FAILURE_ALERT_THRESHOLD" default:"5"`
	APIAddr               string        `envconfig:"API_ADDR"`
	LogLevel              string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFile               string        `envconfig:"LOG_FILE" default:"xelis-wallet.log"`
	DisableFileLogging    bool          `envconfig:"DISABLE_FILE_LOGGING" default:"false"`

	// KDF is fixed for every wallet and never read from the environment.
	KDF crypto.Params `ignored:"true"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	cfg.KDF = crypto.DefaultParams()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c.Network != NetworkMainnet && c.Network != NetworkTestnet {
		return fmt.Errorf("network must be %s or %s", NetworkMainnet, NetworkTestnet)
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.WalletsDir == "" {
		return errors.New("wallets dir cannot be empty")
	}
	return nil
}

// IsMainnet reports whether the wallet runs against mainnet.
func (c *Config) IsMainnet() bool {
	return c.Network == NetworkMainnet
}

// PromptForPassword prompts the user for a password in the terminal.
// The password is read without echoing (hidden input).
// Caller must zero the returned slice after use for security.
func PromptForPassword(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("stdin is not a terminal: pass the password with --password or run interactively")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("password cannot be empty")
	}

	password := make([]byte, len(raw))
	copy(password, raw)
	clear(raw)
	return password, nil
}
