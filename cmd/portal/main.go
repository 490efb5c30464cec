package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/learnportal/internal/client/cli"
	"github.com/dmitrijs2005/learnportal/internal/client/config"
	"github.com/dmitrijs2005/learnportal/internal/logging"
)

func main() {

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Serve(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
