package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/learnportal/internal/client/web"
)

const shutdownTimeout = 5 * time.Second

func (a *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// WebHandler builds the portal's web front-end over the app's services.
func (a *App) WebHandler() (http.Handler, error) {
	ui, err := web.New(a.authService, a.contentService, a.logger, web.Config{
		AuthMode:    a.config.AuthMode,
		RestoreWait: a.config.RestoreWait,
	})
	if err != nil {
		return nil, err
	}
	if a.signer != nil {
		ui.WithSigner(a.signer)
	}
	return ui.Handler(), nil
}

// Serve restores the session and serves the web front-end on the configured
// address until ctx is done or a termination signal arrives.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.initSignalHandler(cancel)
	defer a.Close(context.WithoutCancel(ctx))

	handler, err := a.WebHandler()
	if err != nil {
		return err
	}

	a.Restore(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	srv := &http.Server{
		Addr:              a.config.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "portal listening", "addr", srv.Addr, "backend", a.config.ServerURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info(ctx, "shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
