package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/dmitrijs2005/learnportal/internal/client/client"
	"github.com/dmitrijs2005/learnportal/internal/client/guard"
	"github.com/dmitrijs2005/learnportal/internal/client/models"
	"github.com/dmitrijs2005/learnportal/internal/client/services"
)

var ErrNotLoggedIn = errors.New("not logged in")

// requireSession applies the route guard to a command: it waits for session
// restoration and prints where to go when nobody is logged in.
func (a *App) requireSession(ctx context.Context) (models.Session, error) {
	d := guard.Evaluate(ctx, a.authService, a.guardOptions(), "")
	if d.Allow {
		return d.Session, nil
	}

	hint := "login"
	if guard.Entry(a.config.AuthMode) == guard.WalletEntry {
		hint = "wallet"
	}
	fmt.Fprintf(a.out, "Please log in first (type '%s')\n", hint)
	return d.Session, ErrNotLoggedIn
}

func (a *App) reportError(ctx context.Context, what string, err error) {
	a.logger.Warn(ctx, what+" failed", "error", err)
	if errors.Is(err, client.ErrUnauthorized) {
		fmt.Fprintln(a.out, "Your session has ended, please log in again")
		return
	}
	fmt.Fprintln(a.out, "Error:", client.Message(err))
}

// WhoAmI prints the current profile and when the token expires.
func (a *App) WhoAmI(ctx context.Context) error {
	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	u := sess.User
	fmt.Fprintln(a.out, "Username:", u.Username)
	if u.Email != "" {
		fmt.Fprintln(a.out, "Email:   ", u.Email)
	}
	if sess.WalletAddress != "" {
		fmt.Fprintln(a.out, "Wallet:  ", sess.WalletAddress)
	}
	if exp, ok := services.TokenExpiry(sess.Token); ok {
		fmt.Fprintln(a.out, "Expires: ", humanize.Time(exp))
	}
	return nil
}

// Learning lists the learning topics with their progress.
func (a *App) Learning(ctx context.Context) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	topics, err := a.contentService.LearningTopics(ctx)
	if err != nil {
		a.reportError(ctx, "load topics", err)
		return err
	}
	if len(topics) == 0 {
		fmt.Fprintln(a.out, "No learning topics yet.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, t := range topics {
		fmt.Fprintf(tw, "%d\t%s\t%s %3d%%\n", t.ID, t.Title, progressBar(t.Progress), t.Progress)
	}
	return tw.Flush()
}

// Tools lists the tools and their status.
func (a *App) Tools(ctx context.Context) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	tools, err := a.contentService.Tools(ctx)
	if err != nil {
		a.reportError(ctx, "load tools", err)
		return err
	}
	if len(tools) == 0 {
		fmt.Fprintln(a.out, "No tools available.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, t := range tools {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.ID, t.Name, t.Status, t.Description)
	}
	return tw.Flush()
}

// UpdateEmail prompts for a new email address and saves it.
func (a *App) UpdateEmail(ctx context.Context) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	email, err := getSimpleText(a.reader, "Enter new email", a.out)
	if err != nil {
		return err
	}

	msg, err := a.contentService.UpdateEmail(ctx, email)
	if msg != "" {
		fmt.Fprintln(a.out, msg)
	}
	if err != nil {
		a.reportError(ctx, "update profile", err)
		return err
	}
	return nil
}
