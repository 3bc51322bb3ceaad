// Package cli implements fleetctl, the command-line front end of the console.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"fleet-admin-console/config"
	"fleet-admin-console/internal/client"
	"fleet-admin-console/internal/session"
	"fleet-admin-console/internal/view"
)

const usage = `usage: fleetctl [-config file] [-base-url url] [-session-file file] [-v] <command> [args]

commands:
  login -username u [-password p]      log in and store the session token
  logout                               forget the stored session
  status                               show the session state
  stats                                count users, machines and devices
  users list | create | role | delete
  machines list | create | rename | delete | history | push-status
  devices list | create | delete
  permissions list | grant | revoke
  tui                                  interactive console
`

// errUsage marks argument errors; they exit with status 2.
var errUsage = errors.New("usage error")

// TUIFunc runs the interactive console. It is injected by main to keep the
// terminal UI out of this package's dependencies.
type TUIFunc func(ctx context.Context, c *view.Console) error

// env is the per-invocation state shared by every command.
type env struct {
	cfg    *config.Config
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	logger *log.Logger
	store  *session.FileStore
	sess   *session.Session
	api    *client.Client
	tui    TUIFunc
}

// Run executes fleetctl with args (without the program name) and returns the
// process exit status.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, tui TUIFunc) int {
	fs := flag.NewFlagSet("fleetctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", os.Getenv("FLEET_CONFIG"), "config file")
	baseURL := fs.String("base-url", "", "backend base URL")
	sessionFile := fs.String("session-file", "", "session token file")
	verbose := fs.Bool("v", false, "log every API request")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	logger := log.New(io.Discard, "fleetctl ", log.LstdFlags)
	if *verbose {
		logger.SetOutput(stderr)
	}

	cfg, err := loadConfig(*configPath, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if *baseURL != "" {
		cfg.API.BaseURL = *baseURL
	}
	if *sessionFile != "" {
		cfg.Session.File = *sessionFile
	}

	store := session.NewFileStore(cfg.Session.File)
	sess, err := session.New(store)
	if err != nil {
		fmt.Fprintf(stderr, "error: reading session: %v\n", err)
		return 1
	}
	sess.SetLogger(logger)
	api := client.New(cfg.API, sess)
	api.SetLogger(logger)

	e := &env{
		cfg:    cfg,
		in:     bufio.NewReader(stdin),
		out:    stdout,
		errOut: stderr,
		logger: logger,
		store:  store,
		sess:   sess,
		api:    api,
		tui:    tui,
	}
	return e.exit(e.dispatch(ctx, fs.Arg(0), fs.Args()[1:]))
}

func loadConfig(path string, logger *log.Logger) (*config.Config, error) {
	if path != "" {
		return config.LoadWithLogger(path, false, logger)
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return config.Default(), nil
	}
	return config.LoadWithLogger(filepath.Join(dir, "fleet-admin", "config.yaml"), true, logger)
}

func (e *env) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return e.login(ctx, args)
	case "logout":
		return e.logout()
	case "status":
		return e.status(ctx)
	case "stats":
		return e.stats(ctx)
	case "users":
		return e.users(ctx, args)
	case "machines":
		return e.machines(ctx, args)
	case "devices":
		return e.devices(ctx, args)
	case "permissions":
		return e.permissions(ctx, args)
	case "tui":
		return e.runTUI(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(e.out, usage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (e *env) exit(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(e.errOut, "%v\n\n%s", err, usage)
		return 2
	case errors.Is(err, flag.ErrHelp):
		return 2
	case errors.Is(err, view.ErrNotConfirmed):
		fmt.Fprintln(e.errOut, "aborted")
		return 1
	case errors.Is(err, errReported):
		return 1
	default:
		fmt.Fprintf(e.errOut, "error: %s\n", describe(err))
		return 1
	}
}

// errReported means the failure was already printed as a notice.
var errReported = errors.New("reported")

func describe(err error) string {
	if errors.Is(err, client.ErrUnauthorized) {
		return "not logged in or session expired; run 'fleetctl login'"
	}
	return client.Reason(err, err.Error())
}

// notices returns a fresh notifier for one command.
func (e *env) notices() *view.Notifier {
	return view.NewNotifier(e.cfg.Console.NoticeTTL)
}

// report prints the notice left by a view action and folds err into an
// exit-status error.
func (e *env) report(n *view.Notifier, err error) error {
	notice, ok := n.Current()
	if ok {
		if notice.Kind == view.NoticeError {
			fmt.Fprintln(e.errOut, notice.Text)
		} else {
			fmt.Fprintln(e.out, notice.Text)
		}
	}
	if err == nil {
		return nil
	}
	if ok && notice.Kind == view.NoticeError && !errors.Is(err, client.ErrUnauthorized) {
		return errReported
	}
	return err
}

// confirmer prompts on stdin unless yes is set.
func (e *env) confirmer(yes bool) view.Confirmer {
	if yes {
		return view.Preconfirmed
	}
	return view.ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(e.out, "%s [y/N]: ", prompt)
		line, _ := e.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	})
}

func (e *env) table() *tabwriter.Writer {
	return tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
}

// flags returns a sub-command flag set writing errors to stderr.
func (e *env) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.errOut)
	return fs
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s id %q", errUsage, what, s)
	}
	return id, nil
}

func wantArgs(args []string, n int, form string) error {
	if len(args) != n {
		return fmt.Errorf("%w: expected %s", errUsage, form)
	}
	return nil
}
