// Package services contains the application services of the portal client.
// This file defines the authentication service: the session state machine
// behind every front-end.
package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/learnportal/internal/client/client"
	"github.com/dmitrijs2005/learnportal/internal/client/models"
	"github.com/dmitrijs2005/learnportal/internal/client/store"
	"github.com/dmitrijs2005/learnportal/internal/logging"
	"github.com/dmitrijs2005/learnportal/internal/wallet"
)

// AuthService owns the client session.
//
// Contract:
//   - Restore: rebuild the session from the persisted token; Ready closes once
//     this (or any other transition) has settled.
//   - Login / LoginWithWallet / ConnectWallet: authenticate, persist, then
//     validate the token with the current-user endpoint.
//   - Register: create the account and log in with the same credentials.
//   - Logout / Teardown: drop the session everywhere. Idempotent.
//   - Unauthorized: the 401 hook; drops the session only if the rejected
//     token is still the current one.
//   - Subscribe: receive a snapshot after every transition.
//   - Sync: pick up a logout or login made by another process sharing the store.
//
// AuthService also satisfies client.Session, so it can be attached to the API
// client as its token source and 401 hook.
type AuthService interface {
	Restore(ctx context.Context) error
	Ready() <-chan struct{}

	Login(ctx context.Context, username string, password []byte) error
	LoginWithWallet(ctx context.Context, address, signature string) error
	ConnectWallet(ctx context.Context, signer wallet.Signer) error
	Register(ctx context.Context, req RegisterRequest) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context)
	Teardown(ctx context.Context)
	Unauthorized(ctx context.Context, token string)

	Token() string
	Session() models.Session
	IsAuthenticated() bool
	Subscribe() (<-chan models.Session, func())
	Sync(ctx context.Context)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// RegisterRequest carries the registration form. Confirm is checked against
// Password when it is non-nil.
type RegisterRequest struct {
	Username string
	Email    string
	Password []byte
	Confirm  []byte
}

type Option func(*authService)

// WithRequireSignature controls whether wallet logins without a signature are
// refused. It is on by default.
func WithRequireSignature(v bool) Option {
	return func(s *authService) { s.requireSignature = v }
}

// WithClock overrides the clock used to check token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *authService) { s.now = now }
}

type authService struct {
	client           client.Client
	store            *store.Store
	logger           logging.Logger
	requireSignature bool
	now              func() time.Time

	mu     sync.Mutex
	state  models.State
	token  string
	user   *models.UserProfile
	wallet string
	// epoch grows on every teardown; work started in an older epoch is stale.
	epoch uint64

	subs    map[int]chan models.Session
	nextSub int

	ready       chan struct{}
	readyClosed bool
}

// NewAuthService constructs an AuthService over the API client and the local
// store. It does not attach itself to the client; callers do that with
// c.AttachSession.
func NewAuthService(c client.Client, st *store.Store, logger logging.Logger, opts ...Option) AuthService {
	s := &authService{
		client:           c,
		store:            st,
		logger:           logger.With("component", "session"),
		requireSignature: true,
		now:              time.Now,
		state:            models.StateAnonymous,
		subs:             make(map[int]chan models.Session),
		ready:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *authService) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *authService) markReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markReadyLocked()
}

func (s *authService) markReadyLocked() {
	if !s.readyClosed {
		s.readyClosed = true
		close(s.ready)
	}
}

// unsettleLocked hands out a fresh Ready channel for a restoration that
// starts after the first one has settled.
func (s *authService) unsettleLocked() {
	if s.readyClosed {
		s.ready = make(chan struct{})
		s.readyClosed = false
	}
}

// Restore hydrates the session from the store. Anything short of a validated
// profile leaves the session anonymous with the store cleared. The returned
// error explains why a persisted session was dropped; the session state is
// already settled either way.
func (s *authService) Restore(ctx context.Context) error {
	defer s.markReady()

	rec := s.store.Load(ctx)
	if rec.Empty() {
		s.mu.Lock()
		s.setStateLocked(ctx, models.StateAnonymous)
		s.mu.Unlock()
		return nil
	}

	if reason := s.rejectRecord(rec); reason != "" {
		s.logger.Warn(ctx, "dropping persisted session", "reason", reason)
		s.mu.Lock()
		s.teardownLocked(ctx)
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	epoch := s.epoch
	s.token = rec.Token
	s.wallet = rec.WalletAddress
	s.user = nil
	s.setStateLocked(ctx, models.StateRestoring)
	s.mu.Unlock()

	profile, err := s.client.GetCurrentUser(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.epoch != epoch && err != nil:
		// A 401 has already torn the session down through the client hook.
		return fmt.Errorf("restore session: %w", err)
	case s.epoch != epoch:
		return ErrSessionReset
	case err != nil:
		s.teardownLocked(ctx)
		return fmt.Errorf("restore session: %w", err)
	}
	s.acceptProfileLocked(ctx, profile)
	return nil
}

// rejectRecord returns why rec cannot be restored, or "".
func (s *authService) rejectRecord(rec store.Record) string {
	if !rec.Valid() {
		return "incomplete record"
	}
	if exp, ok := tokenExpiry(rec.Token); ok && !exp.After(s.now()) {
		return "token expired"
	}
	return ""
}

// tokenExpiry reads the exp claim of a JWT without verifying it. Tokens are
// opaque to the client, so anything unparseable is simply not checked.
func tokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// TokenExpiry exposes the exp claim of the current token, for display.
func TokenExpiry(token string) (time.Time, bool) {
	return tokenExpiry(token)
}

func (s *authService) Login(ctx context.Context, username string, password []byte) error {
	username = strings.TrimSpace(username)
	if username == "" || len(password) == 0 {
		return ErrMissingCredentials
	}

	return s.authenticate(ctx, store.Record{Username: username}, func(ctx context.Context) (string, error) {
		return s.client.LoginWithPassword(ctx, username, password)
	})
}

func (s *authService) LoginWithWallet(ctx context.Context, address, signature string) error {
	address = strings.TrimSpace(address)
	if _, err := wallet.NormalizeAddress(address); err != nil {
		return ErrInvalidAddress
	}
	switch {
	case signature != "":
		if !wallet.Verify(address, []byte(wallet.LoginMessage(address)), signature) {
			return ErrInvalidSignature
		}
	case s.requireSignature:
		return ErrSignatureRequired
	default:
		s.logger.Warn(ctx, "wallet login without signature, address ownership is not proven", "address", address)
	}

	return s.authenticate(ctx, store.Record{WalletAddress: address}, func(ctx context.Context) (string, error) {
		return s.client.LoginWithWallet(ctx, address, signature)
	})
}

// ConnectWallet signs the login message with signer and logs in with it.
func (s *authService) ConnectWallet(ctx context.Context, signer wallet.Signer) error {
	if err := wallet.CheckChain(signer.ChainID()); err != nil {
		return err
	}

	address := signer.Address()
	sig, err := signer.SignMessage(ctx, []byte(wallet.LoginMessage(address)))
	if err != nil {
		return fmt.Errorf("sign login message: %w", err)
	}

	s.logger.Info(ctx, "wallet connected", "address", models.ShortAddress(address), "chain", wallet.ChainName(signer.ChainID()))
	return s.LoginWithWallet(ctx, address, sig)
}

// authenticate runs one login attempt: fetch the token, persist it, then
// validate it through the current-user endpoint. Any failure tears the
// session down so that nothing of the attempt survives.
func (s *authService) authenticate(ctx context.Context, rec store.Record, fetch func(context.Context) (string, error)) error {
	s.mu.Lock()
	epoch := s.epoch
	s.setStateLocked(ctx, models.StateAuthenticating)
	s.mu.Unlock()

	token, err := fetch(ctx)
	if err != nil {
		s.failAttempt(ctx, epoch)
		return err
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrSessionReset
	}
	rec.Token = token
	rec.Authenticated = true
	s.token = token
	s.wallet = rec.WalletAddress
	s.user = nil
	s.store.Save(ctx, rec)
	s.mu.Unlock()

	profile, err := s.client.GetCurrentUser(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		if err != nil {
			return err
		}
		return ErrSessionReset
	}
	if err != nil {
		s.teardownLocked(ctx)
		return err
	}
	s.acceptProfileLocked(ctx, profile)
	return nil
}

func (s *authService) failAttempt(ctx context.Context, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch {
		s.teardownLocked(ctx)
	}
}

func (s *authService) acceptProfileLocked(ctx context.Context, profile *models.UserProfile) {
	s.user = profile
	if s.wallet == "" && profile.WalletAddress != "" {
		s.wallet = profile.WalletAddress
	}
	s.store.Save(ctx, store.Record{
		Token:         s.token,
		WalletAddress: s.wallet,
		Username:      profile.Username,
		Authenticated: true,
	})
	s.setStateLocked(ctx, models.StateAuthenticated)
}

// Register creates the account, then logs in with the same credentials. A
// failed registration leaves the session alone; a failed auto-login is
// reported as the registration failure, carrying the login's message.
func (s *authService) Register(ctx context.Context, req RegisterRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" || len(req.Password) == 0 {
		return ErrMissingCredentials
	}
	if req.Confirm != nil && !bytes.Equal(req.Password, req.Confirm) {
		return ErrPasswordMismatch
	}
	if req.Email != "" && !validEmail(req.Email) {
		return ErrInvalidEmail
	}

	if _, err := s.client.Register(ctx, req.Username, req.Email, req.Password); err != nil {
		return err
	}
	s.logger.Info(ctx, "registered", "username", req.Username)

	if err := s.Login(ctx, req.Username, req.Password); err != nil {
		return fmt.Errorf("login after registration: %w", err)
	}
	return nil
}

// Refresh re-reads the profile of the current session, e.g. after an update.
func (s *authService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	epoch := s.epoch
	authenticated := s.state == models.StateAuthenticated
	s.mu.Unlock()

	if !authenticated {
		return nil
	}

	profile, err := s.client.GetCurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.state != models.StateAuthenticated {
		return ErrSessionReset
	}
	s.acceptProfileLocked(ctx, profile)
	return nil
}

func (s *authService) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != models.StateAnonymous {
		s.logger.Info(ctx, "logout", "username", s.usernameLocked())
	}
	s.teardownLocked(ctx)
}

// Teardown drops the session in memory and in the store.
func (s *authService) Teardown(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked(ctx)
}

// Unauthorized is the 401 hook. A rejection of a token the session no longer
// holds answers an older session and is ignored.
func (s *authService) Unauthorized(ctx context.Context, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		s.logger.Debug(ctx, "ignoring 401 for a previous session")
		return
	}
	s.teardownLocked(ctx)
}

func (s *authService) teardownLocked(ctx context.Context) {
	s.epoch++
	s.token = ""
	s.user = nil
	s.wallet = ""
	s.store.ClearAll(ctx)
	s.setStateLocked(ctx, models.StateAnonymous)
}

func (s *authService) usernameLocked() string {
	if s.user != nil {
		return s.user.DisplayName()
	}
	return models.ShortAddress(s.wallet)
}

func (s *authService) setStateLocked(ctx context.Context, to models.State) {
	from := s.state
	s.state = to
	if from != to {
		s.logger.Info(ctx, "session transition", "from", from, "to", to)
	}
	if to == models.StateAnonymous || to == models.StateAuthenticated {
		s.markReadyLocked()
	}
	s.publishLocked()
}

func (s *authService) snapshotLocked() models.Session {
	var user *models.UserProfile
	if s.user != nil {
		u := *s.user
		user = &u
	}
	return models.Session{
		State:         s.state,
		User:          user,
		WalletAddress: s.wallet,
		Token:         s.token,
	}
}

// publishLocked hands the current snapshot to every subscriber. Channels hold
// one value; an unread older snapshot is replaced.
func (s *authService) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Subscribe returns a channel that receives the current snapshot immediately
// and then one after every transition, plus a function that unsubscribes.
func (s *authService) Subscribe() (<-chan models.Session, func()) {
	ch := make(chan models.Session, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *authService) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *authService) Session() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *authService) IsAuthenticated() bool {
	return s.Session().Authenticated()
}

// Sync compares the in-memory session with the shared store. A session that
// disappeared from the store was ended by another process and is dropped
// here too; a different valid session in the store is adopted via Restore.
func (s *authService) Sync(ctx context.Context) {
	if !s.store.Available() {
		return
	}
	rec := s.store.Load(ctx)

	s.mu.Lock()
	if s.state == models.StateAuthenticating || s.state == models.StateRestoring {
		s.mu.Unlock()
		return
	}
	current := s.token

	switch {
	case current != "" && !rec.Valid():
		s.logger.Info(ctx, "session ended by another process")
		s.teardownLocked(ctx)
		s.mu.Unlock()
	case rec.Valid() && rec.Token != current:
		s.unsettleLocked()
		s.mu.Unlock()
		s.logger.Info(ctx, "session changed by another process")
		if err := s.Restore(ctx); err != nil {
			s.logger.Warn(ctx, "adopting shared session failed", "error", err)
		}
	default:
		s.mu.Unlock()
	}
}

func (s *authService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close releases the client and closes every subscription channel.
func (s *authService) Close(ctx context.Context) error {
	s.mu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.mu.Unlock()
	return s.client.Close()
}
