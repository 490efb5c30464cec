package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/learnportal/internal/flagx"
)

var knownFlags = []string{"-a", "-l", "-d", "-m", "-i", "-t", "-w", "-n", "-log-level", "-log-format"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   backend base URL
//	-l string   listen address of the web front-end
//	-d string   SQLite database path
//	-m string   auth mode: password or wallet
//	-i int      online check interval in seconds
//	-t int      request timeout in seconds
//	-w string   wallet key file
//	-n int      wallet chain id
//	-log-level, -log-format
//
// The function filters args to the flags it knows about, using
// flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "backend base url")
	fs.StringVar(&cfg.ListenAddr, "l", cfg.ListenAddr, "listen address of the web front-end")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local database")
	fs.StringVar(&cfg.AuthMode, "m", cfg.AuthMode, "auth mode: password or wallet")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.WalletKeyFile, "w", cfg.WalletKeyFile, "wallet key file")
	fs.Int64Var(&cfg.ChainID, "n", cfg.ChainID, "wallet chain id")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
