package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/learnportal/internal/client/client"
	"github.com/dmitrijs2005/learnportal/internal/client/services"
	"github.com/dmitrijs2005/learnportal/internal/common"
	"github.com/dmitrijs2005/learnportal/internal/wallet"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a username, an optional email and the password twice,
// creates the account and logs in with it.
//
// The password byte slices are wiped before returning. Input errors are
// returned; service errors are printed and returned.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	email, err := getSimpleText(a.reader, "Enter email (optional)", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := getPassword(a.out, "Confirm password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	req := services.RegisterRequest{Username: username, Email: email, Password: password, Confirm: confirm}
	if err := a.authService.Register(ctx, req); err != nil {
		a.logger.Warn(ctx, "registration failed", "username", username, "error", err)
		fmt.Fprintln(a.out, "Registration failed:", client.Message(err))
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s!\n", a.authService.Session().Username())
	return nil
}

// Login prompts for credentials and authenticates with them.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Login(ctx, username, password); err != nil {
		a.logger.Warn(ctx, "login failed", "username", username, "error", err)
		fmt.Fprintln(a.out, "Login failed:", client.Message(err))
		return err
	}

	fmt.Fprintln(a.out, "Logged in as", a.authService.Session().Username())
	return nil
}

// Wallet logs in with the configured wallet key. Without one it asks for an
// address and a signature of the login message made elsewhere.
func (a *App) Wallet(ctx context.Context) error {
	var err error
	if a.signer != nil {
		fmt.Fprintf(a.out, "Signing in with %s on %s\n", a.signer.Address(), wallet.ChainName(a.signer.ChainID()))
		err = a.authService.ConnectWallet(ctx, a.signer)
	} else {
		err = a.walletManual(ctx)
	}

	if err != nil {
		a.logger.Warn(ctx, "wallet login failed", "error", err)
		fmt.Fprintln(a.out, "Wallet login failed:", client.Message(err))
		return err
	}

	fmt.Fprintln(a.out, "Connected wallet", a.authService.Session().WalletAddress)
	return nil
}

func (a *App) walletManual(ctx context.Context) error {
	address, err := getSimpleText(a.reader, "Enter wallet address", a.out)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Sign this message with your wallet:\n%s\n", wallet.LoginMessage(address))

	signature, err := getSimpleText(a.reader, "Enter signature", a.out)
	if err != nil {
		return err
	}
	return a.authService.LoginWithWallet(ctx, address, signature)
}

// Logout ends the session here and in every process sharing the store.
func (a *App) Logout(ctx context.Context) error {
	a.authService.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
