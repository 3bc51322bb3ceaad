package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fleet-admin-console/internal/client"
	"fleet-admin-console/internal/view"
)

func (e *env) login(ctx context.Context, args []string) error {
	fs := e.flags("login")
	username := fs.String("username", "", "account name")
	password := fs.String("password", "", "password; read from stdin when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("%w: login needs -username", errUsage)
	}
	if *password == "" {
		fmt.Fprint(e.out, "Password: ")
		line, _ := e.in.ReadString('\n')
		*password = strings.TrimRight(line, "\r\n")
	}

	if err := e.api.Login(ctx, strings.TrimSpace(*username), *password); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			fmt.Fprintln(e.errOut, view.LoginMessage(err))
			return errReported
		}
		return err
	}
	fmt.Fprintf(e.out, "Logged in as %s.\n", strings.TrimSpace(*username))
	return nil
}

func (e *env) logout() error {
	if err := e.api.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "Logged out.")
	return nil
}

// status reports the stored session. A stored token is checked with one
// authenticated call, which also clears it when the backend rejects it.
func (e *env) status(ctx context.Context) error {
	fmt.Fprintf(e.out, "backend:  %s\n", e.cfg.API.BaseURL)
	fmt.Fprintf(e.out, "session:  %s\n", e.store.Path())
	if e.sess.Authenticated() {
		if _, err := e.api.ListDevices(ctx); err != nil && !errors.Is(err, client.ErrUnauthorized) {
			fmt.Fprintf(e.out, "state:    %s (backend check failed: %s)\n", e.sess.State(), describe(err))
			return nil
		}
	}
	fmt.Fprintf(e.out, "state:    %s\n", e.sess.State())
	return nil
}

func (e *env) stats(ctx context.Context) error {
	if !e.sess.Authenticated() {
		return client.ErrUnauthorized
	}
	stats := view.LoadStats(ctx, e.api, e.logger)
	if !e.sess.Authenticated() {
		return client.ErrUnauthorized
	}
	w := e.table()
	fmt.Fprintf(w, "Users\t%d\n", stats.Users)
	fmt.Fprintf(w, "Machines\t%d\n", stats.Machines)
	fmt.Fprintf(w, "Devices\t%d\n", stats.Devices)
	return w.Flush()
}

func (e *env) runTUI(ctx context.Context) error {
	if e.tui == nil {
		return fmt.Errorf("the interactive console is not available in this build")
	}
	console := view.NewConsole(e.api, e.sess, view.Options{
		NoticeTTL: e.cfg.Console.NoticeTTL,
		Settle:    settlePolicy(e.cfg),
		Confirm:   view.Preconfirmed,
		Logger:    e.logger,
	})
	defer console.Close()
	return e.tui(ctx, console)
}
