package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/learnportal/internal/client/models"
	"github.com/dmitrijs2005/learnportal/internal/common"
)

func (a *App) getStatus() string {
	s := ""
	if a.authService != nil {
		if sess := a.authService.Session(); sess.Authenticated() {
			s = sess.User.DisplayName() + " "
		}
	}
	if mode := a.mode(); mode != "" {
		s = s + string(mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// notifySessionEnd prints a notice when an authenticated session ends
// without the user asking for it (expired token, logout in another process).
func (a *App) notifySessionEnd(ctx context.Context) {
	ch, cancel := a.authService.Subscribe()
	defer cancel()

	wasAuthenticated := a.authService.IsAuthenticated()
	for {
		select {
		case sess, ok := <-ch:
			if !ok {
				return
			}
			if wasAuthenticated && sess.State == models.StateAnonymous {
				printlnFn("\nSession ended")
			}
			wasAuthenticated = sess.Authenticated()
		case <-ctx.Done():
			return
		}
	}
}

// Root restores the session, starts the background watchers and runs the
// REPL until the user exits.
func (a *App) Root(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printlnFn(fmt.Sprintf("Welcome to the %s CLI (type 'help' for commands)", common.AppName))

	a.Restore(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	go a.notifySessionEnd(ctx)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}

// Run runs the REPL and releases every resource when it returns.
func (a *App) Run(ctx context.Context) {
	defer a.Close(context.WithoutCancel(ctx))
	a.Root(ctx)
}
