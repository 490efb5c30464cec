package main

import (
	"context"
	"log"
	"os"
	"slices"

	"github.com/dmitrijs2005/learnportal/internal/client/cli"
	"github.com/dmitrijs2005/learnportal/internal/client/config"
	"github.com/dmitrijs2005/learnportal/internal/logging"
)

func main() {

	cfg := config.LoadConfig()

	// "keygen" writes a new wallet key to the -w file and exits.
	if slices.Contains(os.Args[1:], "keygen") {
		if err := cli.GenerateWalletKey(cfg.WalletKeyFile, cfg.ChainID, os.Stdout); err != nil {
			log.Fatalf("keygen: %v", err)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
