package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/learnportal/internal/client/client"
	"github.com/dmitrijs2005/learnportal/internal/client/config"
	"github.com/dmitrijs2005/learnportal/internal/client/guard"
	"github.com/dmitrijs2005/learnportal/internal/client/services"
	"github.com/dmitrijs2005/learnportal/internal/client/store"
	"github.com/dmitrijs2005/learnportal/internal/filex"
	"github.com/dmitrijs2005/learnportal/internal/logging"
	"github.com/dmitrijs2005/learnportal/internal/wallet"

	_ "modernc.org/sqlite"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const pingTimeout = 3 * time.Second

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	authService    services.AuthService
	contentService services.ContentService
	signer         wallet.Signer
	reader         *bufio.Reader
	out            io.Writer

	mu   sync.Mutex
	Mode Mode
}

// NewApp wires the local store, the API client and the session services.
// A database that cannot be opened is logged and the app runs without
// persistence.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if _, err := filex.EnsureParentDir(c.DatabasePath); err != nil {
		logger.Warn(ctx, "cannot create database directory", "path", c.DatabasePath, "error", err)
	}

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Warn(ctx, "local store unavailable, the session will not persist", "path", c.DatabasePath, "error", err)
		db = nil
	}

	apiClient, err := client.NewHTTPClient(c.ServerURL, logger, client.WithTimeout(c.RequestTimeout))
	if err != nil {
		closeDB(db)
		return nil, err
	}

	var signer wallet.Signer
	if c.WalletKeyFile != "" {
		ks, err := wallet.LoadKeyFile(c.WalletKeyFile, c.ChainID)
		if err != nil {
			closeDB(db)
			return nil, fmt.Errorf("wallet: %w", err)
		}
		signer = ks
		logger.Info(ctx, "wallet loaded", "address", ks.Address(), "chain", wallet.ChainName(ks.ChainID()))
	}

	if !c.RequireWalletSignature {
		logger.Warn(ctx, "wallet logins without a signature are accepted")
	}

	as := services.NewAuthService(apiClient, store.New(db, logger), logger,
		services.WithRequireSignature(c.RequireWalletSignature))
	apiClient.AttachSession(as)
	cs := services.NewContentService(apiClient, as)

	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		authService:    as,
		contentService: cs,
		signer:         signer,
		reader:         bufio.NewReader(os.Stdin),
		out:            os.Stdout,
	}, nil
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		a.logger.Info(ctx, "connectivity changed", "mode", mode)
	}
}

func (a *App) mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode
}

// Close releases the API client, the subscriptions and the database.
func (a *App) Close(ctx context.Context) {
	if err := a.authService.Close(ctx); err != nil {
		a.logger.Warn(ctx, "close api client", "error", err)
	}
	closeDB(a.db)
}

// Restore rebuilds the persisted session in the background. Guarded
// commands and pages wait for it through the session's Ready channel.
func (a *App) Restore(ctx context.Context) {
	go func() {
		if err := a.authService.Restore(ctx); err != nil {
			a.logger.Warn(ctx, "session restore failed", "error", err)
		}
	}()
}

func (a *App) isLoggedIn() bool {
	return a.authService != nil && a.authService.IsAuthenticated()
}

func (a *App) guardOptions() guard.Options {
	return guard.Options{Mode: a.config.AuthMode, RestoreWait: a.config.RestoreWait, Logger: a.logger}
}

// StartOnlineStatusWatcher pings the backend every interval and picks up a
// logout or login made by another process sharing the local store.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := a.authService.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ctx, ModeOffline)
			} else {
				a.setMode(ctx, ModeOnline)
			}

			a.authService.Sync(ctx)

		case <-ctx.Done():
			return
		}
	}
}
