package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/learnportal/internal/client/client"
	"github.com/dmitrijs2005/learnportal/internal/client/guard"
	"github.com/dmitrijs2005/learnportal/internal/client/services"
	"github.com/dmitrijs2005/learnportal/internal/wallet"
)

var errNoWallet = errors.New("no wallet is configured, start the portal with a wallet key file")

func (ui *UI) HandleHome(w http.ResponseWriter, r *http.Request) {
	ui.render(w, r, http.StatusOK, "home", ui.pageData(r, "Home"))
}

func (ui *UI) HandleAbout(w http.ResponseWriter, r *http.Request) {
	ui.render(w, r, http.StatusOK, "about", ui.pageData(r, "About"))
}

func (ui *UI) HandleDoc(w http.ResponseWriter, r *http.Request) {
	ui.render(w, r, http.StatusOK, "doc", ui.pageData(r, "Documentation"))
}

func (ui *UI) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	ui.render(w, r, http.StatusNotFound, "notfound", ui.pageData(r, "Not Found"))
}

// HandleLogin renders the login and registration forms.
func (ui *UI) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if ui.auth.IsAuthenticated() {
		http.Redirect(w, r, guard.SafeNext(r.URL.Query().Get("next"), "/"), http.StatusSeeOther)
		return
	}

	data := ui.pageData(r, "Login")
	data["Next"] = r.URL.Query().Get("next")
	ui.render(w, r, http.StatusOK, "login", data)
}

// HandleLoginPost processes the login form.
func (ui *UI) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		ui.renderLoginError(w, r, "", "Invalid request", false)
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := []byte(r.PostFormValue("password"))
	next := r.PostFormValue("next")

	if err := ui.auth.Login(r.Context(), username, password); err != nil {
		ui.logger.Warn(r.Context(), "login failed", "username", username, "error", err)
		ui.renderLoginError(w, r, next, client.Message(err), false)
		return
	}

	http.Redirect(w, r, guard.SafeNext(next, "/"), http.StatusSeeOther)
}

// HandleRegisterPost creates the account and logs straight in.
func (ui *UI) HandleRegisterPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		ui.renderLoginError(w, r, "", "Invalid request", true)
		return
	}

	req := services.RegisterRequest{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: []byte(r.PostFormValue("password")),
		Confirm:  []byte(r.PostFormValue("confirm")),
	}
	next := r.PostFormValue("next")

	if err := ui.auth.Register(r.Context(), req); err != nil {
		ui.logger.Warn(r.Context(), "registration failed", "username", req.Username, "error", err)
		ui.renderLoginError(w, r, next, client.Message(err), true)
		return
	}

	http.Redirect(w, r, guard.SafeNext(next, "/"), http.StatusSeeOther)
}

func (ui *UI) renderLoginError(w http.ResponseWriter, r *http.Request, next, msg string, register bool) {
	data := ui.pageData(r, "Login")
	data["Next"] = next
	data["Error"] = msg
	data["Register"] = register
	ui.render(w, r, http.StatusOK, "login", data)
}

// HandleConnectWallet renders the wallet entry flow.
func (ui *UI) HandleConnectWallet(w http.ResponseWriter, r *http.Request) {
	sess := ui.auth.Session()
	if sess.Authenticated() && sess.WalletAddress != "" {
		http.Redirect(w, r, guard.SafeNext(r.URL.Query().Get("next"), "/"), http.StatusSeeOther)
		return
	}

	data := ui.walletData(r)
	data["Next"] = r.URL.Query().Get("next")
	ui.render(w, r, http.StatusOK, "connect2wallet", data)
}

// HandleConnectWalletPost logs in with a wallet. A form carrying an address
// and signature was signed elsewhere; an empty form uses the configured key.
func (ui *UI) HandleConnectWalletPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		ui.renderWalletError(w, r, "", "Invalid request")
		return
	}
	next := r.PostFormValue("next")
	address := strings.TrimSpace(r.PostFormValue("address"))

	var err error
	switch {
	case address != "":
		err = ui.auth.LoginWithWallet(r.Context(), address, strings.TrimSpace(r.PostFormValue("signature")))
	case ui.signer != nil:
		err = ui.auth.ConnectWallet(r.Context(), ui.signer)
	default:
		err = errNoWallet
	}
	if err != nil {
		ui.logger.Warn(r.Context(), "wallet login failed", "error", err)
		ui.renderWalletError(w, r, next, client.Message(err))
		return
	}

	http.Redirect(w, r, guard.SafeNext(next, "/"), http.StatusSeeOther)
}

func (ui *UI) walletData(r *http.Request) map[string]any {
	data := ui.pageData(r, "Connect Wallet")
	data["ManualMessage"] = wallet.LoginMessage("<your address>")
	if ui.signer != nil {
		data["Signer"] = ui.signer.Address()
		data["Chain"] = wallet.ChainName(ui.signer.ChainID())
		data["SignMessage"] = wallet.LoginMessage(ui.signer.Address())
	}
	return data
}

func (ui *UI) renderWalletError(w http.ResponseWriter, r *http.Request, next, msg string) {
	data := ui.walletData(r)
	data["Next"] = next
	data["Error"] = msg
	ui.render(w, r, http.StatusOK, "connect2wallet", data)
}

func (ui *UI) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ui.auth.Logout(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// apiFailed handles a failed backend call on a guarded page. A 401 has
// already torn the session down, so the user is sent back to the entry flow;
// anything else is rendered inline by the caller.
func (ui *UI) apiFailed(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, client.ErrUnauthorized) {
		return false
	}
	http.Redirect(w, r, guard.RedirectURL(guard.Entry(ui.cfg.AuthMode), r.URL.RequestURI()), http.StatusSeeOther)
	return true
}

// HandleLearning lists the learning topics. An empty list is a normal state.
func (ui *UI) HandleLearning(w http.ResponseWriter, r *http.Request) {
	data := ui.pageData(r, "Learning")

	topics, err := ui.content.LearningTopics(r.Context())
	if err != nil {
		if ui.apiFailed(w, r, err) {
			return
		}
		ui.logger.Warn(r.Context(), "load topics failed", "error", err)
		data["Error"] = client.Message(err)
	} else {
		data["Topics"] = topics
	}
	ui.render(w, r, http.StatusOK, "learning", data)
}

func (ui *UI) HandleTools(w http.ResponseWriter, r *http.Request) {
	data := ui.pageData(r, "Tools")

	tools, err := ui.content.Tools(r.Context())
	if err != nil {
		if ui.apiFailed(w, r, err) {
			return
		}
		ui.logger.Warn(r.Context(), "load tools failed", "error", err)
		data["Error"] = client.Message(err)
	} else {
		data["Tools"] = tools
	}
	ui.render(w, r, http.StatusOK, "tools", data)
}

func (ui *UI) profileData(r *http.Request) map[string]any {
	data := ui.pageData(r, "Profile")
	sess := ui.auth.Session()
	if sess.Authenticated() {
		data["Session"] = sess
	}
	if exp, ok := services.TokenExpiry(sess.Token); ok {
		data["Expires"] = exp
	}
	return data
}

func (ui *UI) HandleProfile(w http.ResponseWriter, r *http.Request) {
	ui.render(w, r, http.StatusOK, "profile", ui.profileData(r))
}

// HandleProfilePost updates the email address.
func (ui *UI) HandleProfilePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		data := ui.profileData(r)
		data["Error"] = "Invalid request"
		ui.render(w, r, http.StatusOK, "profile", data)
		return
	}

	msg, err := ui.content.UpdateEmail(r.Context(), r.PostFormValue("email"))
	if err != nil && msg == "" && ui.apiFailed(w, r, err) {
		return
	}

	// A non-empty msg means the update was saved even if reloading the
	// profile afterwards failed.
	data := ui.profileData(r)
	if msg != "" {
		data["Message"] = msg
	}
	switch {
	case err != nil && msg != "":
		ui.logger.Warn(r.Context(), "profile reload failed", "error", err)
		data["Error"] = "Could not reload the profile: " + client.Message(err)
	case err != nil:
		ui.logger.Warn(r.Context(), "profile update failed", "error", err)
		data["Error"] = client.Message(err)
	}
	ui.render(w, r, http.StatusOK, "profile", data)
}
