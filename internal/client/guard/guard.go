// Package guard gates protected views on the session state.
//
// Evaluate holds the decision shared by the web front-end and the CLI:
// wait until session restoration has settled, then allow an authenticated
// session or name the entry flow to send the user to. Middleware applies it
// to HTTP handlers.
package guard

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/learnportal/internal/client/models"
	"github.com/dmitrijs2005/learnportal/internal/logging"
)

// Entry flows for unauthenticated users.
const (
	PasswordEntry = "/login"
	WalletEntry   = "/connect2wallet"
)

const (
	ModePassword = "password"
	ModeWallet   = "wallet"
)

const defaultRestoreWait = 5 * time.Second

// SessionSource is the part of the session service the guard reads.
type SessionSource interface {
	Ready() <-chan struct{}
	Session() models.Session
}

type Options struct {
	// Mode selects the entry flow: ModePassword or ModeWallet.
	Mode string
	// RestoreWait bounds how long a request waits for restoration to settle.
	RestoreWait time.Duration
	Logger      logging.Logger
}

// Entry returns the entry flow path for mode.
func Entry(mode string) string {
	if mode == ModeWallet {
		return WalletEntry
	}
	return PasswordEntry
}

// Decision is the outcome of Evaluate. When Allow is false, Redirect holds
// the entry flow URL including the next parameter.
type Decision struct {
	Allow    bool
	Session  models.Session
	Redirect string
}

// Evaluate decides whether the session may see the view at next. It blocks
// until restoration settles, the wait elapses or ctx is done; a session still
// restoring after that is treated as unauthenticated.
func Evaluate(ctx context.Context, src SessionSource, opts Options, next string) Decision {
	wait := opts.RestoreWait
	if wait <= 0 {
		wait = defaultRestoreWait
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-src.Ready():
	case <-timer.C:
	case <-ctx.Done():
	}

	sess := src.Session()
	if sess.Authenticated() {
		return Decision{Allow: true, Session: sess}
	}
	return Decision{Session: sess, Redirect: RedirectURL(Entry(opts.Mode), next)}
}

// RedirectURL builds entry?next=<next>, dropping next when it is not a local path.
func RedirectURL(entry, next string) string {
	next = SafeNext(next, "")
	if next == "" || next == entry {
		return entry
	}
	return entry + "?next=" + url.QueryEscape(next)
}

// SafeNext returns next when it is a local absolute path, def otherwise.
func SafeNext(next, def string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return def
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return def
	}
	return next
}

type contextKey string

const sessionContextKey contextKey = "session"

// SessionFromContext returns the snapshot stored by Middleware.
func SessionFromContext(ctx context.Context) (models.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(models.Session)
	return sess, ok
}

// Middleware redirects unauthenticated requests to the entry flow once and
// renders nothing; authenticated requests reach next unchanged, with the
// session snapshot added to the request context.
func Middleware(src SessionSource, opts Options) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Evaluate(r.Context(), src, opts, r.URL.RequestURI())
			if !d.Allow {
				logger.Debug(r.Context(), "guard redirect", "path", r.URL.Path, "to", d.Redirect, "state", d.Session.State)

				status := http.StatusSeeOther
				if r.Method == http.MethodGet || r.Method == http.MethodHead {
					status = http.StatusFound
				}
				http.Redirect(w, r, d.Redirect, status)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, d.Session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
