// Package web serves the portal pages: home, about and doc, the password and
// wallet entry flows, and the guarded learning, tools and profile views.
// Every page reads the shared session; none of them keep state of their own.
package web

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/learnportal/internal/client/guard"
	"github.com/dmitrijs2005/learnportal/internal/client/models"
	"github.com/dmitrijs2005/learnportal/internal/client/services"
	"github.com/dmitrijs2005/learnportal/internal/common"
	"github.com/dmitrijs2005/learnportal/internal/logging"
	"github.com/dmitrijs2005/learnportal/internal/wallet"
)

// Config holds UI settings.
type Config struct {
	// AuthMode picks the entry flow for guarded pages: "password" or "wallet".
	AuthMode    string
	RestoreWait time.Duration
}

// UI handles the web user interface.
type UI struct {
	auth    services.AuthService
	content services.ContentService
	signer  wallet.Signer
	logger  logging.Logger
	cfg     Config
	pages   map[string]*template.Template
}

// New creates the UI and parses its templates.
func New(auth services.AuthService, content services.ContentService, logger logging.Logger, cfg Config) (*UI, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &UI{
		auth:    auth,
		content: content,
		logger:  logger.With("component", "web"),
		cfg:     cfg,
		pages:   pages,
	}, nil
}

// WithSigner sets the wallet used by the connect-wallet page.
func (ui *UI) WithSigner(s wallet.Signer) {
	ui.signer = s
}

func (ui *UI) guardOptions() guard.Options {
	return guard.Options{Mode: ui.cfg.AuthMode, RestoreWait: ui.cfg.RestoreWait, Logger: ui.logger}
}

// Handler returns the router with every page registered.
func (ui *UI) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(ui.loggingMiddleware)
	r.Use(middleware.Recoverer)

	ui.RegisterRoutes(r)
	r.NotFound(ui.HandleNotFound)
	return r
}

// RegisterRoutes registers all UI routes on the given router.
func (ui *UI) RegisterRoutes(r chi.Router) {
	// Public routes.
	r.Get("/", ui.HandleHome)
	r.Get("/about", ui.HandleAbout)
	r.Get("/doc", ui.HandleDoc)
	r.Get("/login", ui.HandleLogin)
	r.Post("/login", ui.HandleLoginPost)
	r.Post("/register", ui.HandleRegisterPost)
	r.Get("/connect2wallet", ui.HandleConnectWallet)
	r.Post("/connect2wallet", ui.HandleConnectWalletPost)
	r.Post("/logout", ui.HandleLogout)

	// Protected routes.
	r.Group(func(r chi.Router) {
		r.Use(guard.Middleware(ui.auth, ui.guardOptions()))

		r.Get("/learning", ui.HandleLearning)
		r.Get("/tools", ui.HandleTools)
		r.Get("/profile", ui.HandleProfile)
		r.Post("/profile", ui.HandleProfilePost)
	})
}

// loggingMiddleware logs every request at DEBUG (method, path, status, duration).
func (ui *UI) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		ui.logger.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// session returns the guard's snapshot when present, the live one otherwise.
func (ui *UI) session(r *http.Request) models.Session {
	if sess, ok := guard.SessionFromContext(r.Context()); ok {
		return sess
	}
	return ui.auth.Session()
}

func (ui *UI) pageData(r *http.Request, title string) map[string]any {
	sess := ui.session(r)
	data := map[string]any{
		"Title":   title + " - " + common.AppName,
		"AppName": common.AppName,
		"Mode":    ui.cfg.AuthMode,
		"Entry":   guard.Entry(ui.cfg.AuthMode),
	}
	if sess.Authenticated() {
		data["Session"] = sess
	}
	return data
}

func (ui *UI) render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any) {
	tmpl, ok := ui.pages[page]
	if !ok {
		ui.logger.Error(r.Context(), "template not found", "template", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		ui.logger.Error(r.Context(), "template render failed", "template", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
