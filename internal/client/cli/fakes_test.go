package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/learnportal/internal/client/client"
	"github.com/dmitrijs2005/learnportal/internal/client/config"
	"github.com/dmitrijs2005/learnportal/internal/client/models"
	"github.com/dmitrijs2005/learnportal/internal/client/services"
	"github.com/dmitrijs2005/learnportal/internal/logging"
	"github.com/dmitrijs2005/learnportal/internal/wallet"
)

type fakeAuth struct {
	mu    sync.Mutex
	sess  models.Session
	ready chan struct{}

	loginErr    error
	registerErr error
	walletErr   error

	loginUser    string
	loginPass    []byte
	register     services.RegisterRequest
	walletAddr   string
	walletSig    string
	connected    wallet.Signer
	logoutCalled bool
	syncCalls    int
	pingErr      error
	updates      chan models.Session
}

func newFakeAuth() *fakeAuth {
	f := &fakeAuth{sess: models.Session{State: models.StateAnonymous}, ready: make(chan struct{})}
	close(f.ready)
	return f
}

func (f *fakeAuth) signIn(user *models.UserProfile, addr, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sess = models.Session{State: models.StateAuthenticated, User: user, WalletAddress: addr, Token: token}
}

func (f *fakeAuth) Restore(context.Context) error { return nil }
func (f *fakeAuth) Ready() <-chan struct{}        { return f.ready }

func (f *fakeAuth) Login(_ context.Context, username string, password []byte) error {
	f.loginUser, f.loginPass = username, append([]byte(nil), password...)
	if f.loginErr != nil {
		return f.loginErr
	}
	f.signIn(&models.UserProfile{ID: "1", Username: username}, "", "tok")
	return nil
}

func (f *fakeAuth) LoginWithWallet(_ context.Context, address, signature string) error {
	f.walletAddr, f.walletSig = address, signature
	if f.walletErr != nil {
		return f.walletErr
	}
	f.signIn(&models.UserProfile{ID: "2", WalletAddress: address}, address, "tok")
	return nil
}

func (f *fakeAuth) ConnectWallet(ctx context.Context, signer wallet.Signer) error {
	f.connected = signer
	return f.LoginWithWallet(ctx, signer.Address(), "0xsig")
}

func (f *fakeAuth) Register(_ context.Context, req services.RegisterRequest) error {
	f.register = services.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: append([]byte(nil), req.Password...),
		Confirm:  append([]byte(nil), req.Confirm...),
	}
	if f.registerErr != nil {
		return f.registerErr
	}
	f.signIn(&models.UserProfile{ID: "3", Username: req.Username}, "", "tok")
	return nil
}

func (f *fakeAuth) Refresh(context.Context) error { return nil }

func (f *fakeAuth) Logout(ctx context.Context) {
	f.logoutCalled = true
	f.Teardown(ctx)
}

func (f *fakeAuth) Teardown(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sess = models.Session{State: models.StateAnonymous}
}

func (f *fakeAuth) Unauthorized(ctx context.Context, token string) {
	if token == f.Token() {
		f.Teardown(ctx)
	}
}

func (f *fakeAuth) Token() string { return f.Session().Token }

func (f *fakeAuth) Session() models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sess
}

func (f *fakeAuth) IsAuthenticated() bool { return f.Session().Authenticated() }

func (f *fakeAuth) Subscribe() (<-chan models.Session, func()) {
	if f.updates != nil {
		return f.updates, func() {}
	}
	return make(chan models.Session, 1), func() {}
}

func (f *fakeAuth) Sync(context.Context) {
	f.mu.Lock()
	f.syncCalls++
	f.mu.Unlock()
}

func (f *fakeAuth) syncs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncCalls
}

func (f *fakeAuth) Ping(context.Context) error  { return f.pingErr }
func (f *fakeAuth) Close(context.Context) error { return nil }

type fakeContent struct {
	topics    []models.Topic
	tools     []models.Tool
	err       error
	reloadErr error
	lastEmail string
}

func (f *fakeContent) LearningTopics(context.Context) ([]models.Topic, error) {
	return f.topics, f.err
}

func (f *fakeContent) Tools(context.Context) ([]models.Tool, error) { return f.tools, f.err }

func (f *fakeContent) Profile(context.Context) (*models.UserProfile, error) { return nil, f.err }

func (f *fakeContent) UpdateEmail(_ context.Context, email string) (string, error) {
	f.lastEmail = email
	if f.err != nil {
		return "", f.err
	}
	return "Profile updated", f.reloadErr
}

type fakeSigner struct{ addr string }

func (s fakeSigner) Address() string                                     { return s.addr }
func (s fakeSigner) ChainID() int64                                      { return wallet.ChainMainnet }
func (s fakeSigner) SignMessage(context.Context, []byte) (string, error) { return "0xsig", nil }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.RestoreWait = time.Second
	return cfg
}

func newTestApp(auth *fakeAuth, content *fakeContent) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{
		config:         testConfig(),
		logger:         logging.Discard(),
		authService:    auth,
		contentService: content,
		reader:         bufio.NewReader(strings.NewReader("")),
		out:            &out,
	}, &out
}

// stubInputs feeds answers to the text prompts and passwords to the password
// prompts, in order.
func stubInputs(t *testing.T, answers []string, passwords ...[]byte) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(answers) == 0 {
			return "", io.EOF
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
	getPassword = func(_ io.Writer, _ string) ([]byte, error) {
		if len(passwords) == 0 {
			return nil, io.EOF
		}
		p := append([]byte(nil), passwords[0]...)
		passwords = passwords[1:]
		return p, nil
	}
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

func authErr(msg string) error {
	return &client.Error{Op: "login", Kind: client.KindAuth, Status: 401, Message: msg}
}
