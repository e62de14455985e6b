package config

import (
	"github.com/jessevdk/go-flags"
)

// Options are the command line flags of the wallet binary. Flags override
// the matching environment values.
type Options struct {
	Name               string `short:"n" long:"name" description:"Name of the wallet to open or create" required:"true"`
	Password           string `short:"p" long:"password" description:"Wallet password (prompted when omitted)"`
	DaemonAddress      string `short:"a" long:"daemon-address" description:"Daemon JSON-RPC endpoint"`
	Offline            bool   `short:"o" long:"offline" description:"Do not connect to a daemon at startup"`
	Debug              bool   `short:"d" long:"debug" description:"Enable debug logging"`
	DisableFileLogging bool   `short:"f" long:"disable-file-logging" description:"Only log to stderr"`
	LogFilename        string `short:"l" long:"filename-log" description:"Log file path"`
	APIAddr            string `long:"api" description:"Serve the HTTP API on this address, e.g. 127.0.0.1:8081"`
	Testnet            bool   `long:"testnet" description:"Use testnet addresses"`
}

// ParseOptions parses args (without the program name).
func ParseOptions(args []string) (*Options, error) {
	opts := &Options{}
	if _, err := flags.NewParser(opts, flags.Default).ParseArgs(args); err != nil {
		return nil, err
	}
	return opts, nil
}

// IsHelp reports whether err is the parser's --help result.
func IsHelp(err error) bool {
	e, ok := err.(*flags.Error)
	return ok && e.Type == flags.ErrHelp
}

// Apply returns a copy of cfg with every flag that was set applied on top.
func (o *Options) Apply(cfg *Config) *Config {
	out := *cfg
	if o.DaemonAddress != "" {
		out.DaemonAddress = o.DaemonAddress
	}
	if o.Debug {
		out.LogLevel = "debug"
	}
	if o.DisableFileLogging {
		out.DisableFileLogging = true
	}
	if o.LogFilename != "" {
		out.LogFile = o.LogFilename
	}
	if o.APIAddr != "" {
		out.APIAddr = o.APIAddr
	}
	if o.Testnet {
		out.Network = NetworkTestnet
	}
	return &out
}
