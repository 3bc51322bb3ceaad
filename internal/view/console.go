package view

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"fleet-admin-console/internal/client"
	"fleet-admin-console/internal/session"
)

// Tab is a top-level screen of the console.
type Tab int

const (
	TabDashboard Tab = iota
	TabUsers
	TabMachines
	TabDevices
	TabPermissions
)

// Tabs lists the tabs in display order.
var Tabs = []Tab{TabDashboard, TabUsers, TabMachines, TabDevices, TabPermissions}

func (t Tab) String() string {
	switch t {
	case TabDashboard:
		return "Dashboard"
	case TabUsers:
		return "Users"
	case TabMachines:
		return "Machines"
	case TabDevices:
		return "Devices"
	case TabPermissions:
		return "Permissions"
	default:
		return fmt.Sprintf("Tab(%d)", int(t))
	}
}

// ConsoleAPI is everything the console calls on the backend.
type ConsoleAPI interface {
	Login(ctx context.Context, username, password string) error
	Logout() error
	UserAPI
	MachineAPI
	StatusAPI
	DeviceAPI
	PermissionAPI
}

// Options tune a Console.
type Options struct {
	NoticeTTL time.Duration
	Settle    SettlePolicy
	Confirm   Confirmer
	// Logger receives console diagnostics; nil means the standard logger.
	Logger *log.Logger
}

// Console is the authenticated shell: one session, one notifier and a view
// per tab. When the session is invalidated the console falls back to the
// login screen.
type Console struct {
	api     ConsoleAPI
	session *session.Session
	notices *Notifier
	logger  *log.Logger

	Users       *UsersView
	Machines    *MachinesView
	Devices     *DevicesView
	Permissions *PermissionsView

	mu        sync.Mutex
	tab       Tab
	stats     Stats
	loggedOut []func()
}

func NewConsole(api ConsoleAPI, sess *session.Session, opts Options) *Console {
	if opts.Confirm == nil {
		opts.Confirm = Preconfirmed
	}
	if opts.Settle.MaxAttempts == 0 {
		opts.Settle = DefaultSettlePolicy
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	notices := NewNotifier(opts.NoticeTTL)
	c := &Console{
		api:         api,
		session:     sess,
		notices:     notices,
		logger:      opts.Logger,
		Users:       NewUsersView(api, notices, opts.Confirm),
		Machines:    NewMachinesView(api, api, notices, opts.Confirm),
		Devices:     NewDevicesView(api, notices, opts.Confirm, opts.Settle),
		Permissions: NewPermissionsView(api, notices, opts.Confirm),
	}
	sess.OnInvalidate(func() {
		c.logger.Printf("console: session invalidated, returning to login")
		c.reset()
		notices.Error("Your session has expired. Please log in again.")
		c.fireLoggedOut()
	})
	return c
}

// Notices returns the shared notifier.
func (c *Console) Notices() *Notifier { return c.notices }

// Authenticated reports whether the console shows the authenticated shell.
func (c *Console) Authenticated() bool { return c.session.Authenticated() }

// OnLoggedOut registers fn to run after logout or session invalidation.
func (c *Console) OnLoggedOut(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggedOut = append(c.loggedOut, fn)
}

// Login authenticates and lands on the dashboard.
func (c *Console) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("login: %w", ErrInvalidInput)
	}
	if err := c.api.Login(ctx, username, password); err != nil {
		return err
	}
	c.reset()
	c.RefreshStats(ctx)
	return nil
}

// LoginMessage is the text shown on the login screen for a failed login.
func LoginMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "Username and password are required."
	case errors.Is(err, client.ErrUnauthorized):
		return "Invalid username or password."
	default:
		return client.Reason(err, "Login failed. Is the backend reachable?")
	}
}

// Logout clears the session and returns to the login screen.
func (c *Console) Logout() error {
	err := c.api.Logout()
	c.reset()
	c.fireLoggedOut()
	return err
}

// reset forgets everything the previous account loaded and stops pending
// device polling.
func (c *Console) reset() {
	c.mu.Lock()
	c.tab = TabDashboard
	c.stats = Stats{}
	c.mu.Unlock()
	c.Users.Reset()
	c.Machines.Reset()
	c.Devices.Reset()
	c.Permissions.Reset()
}

func (c *Console) fireLoggedOut() {
	c.mu.Lock()
	fns := append([]func(){}, c.loggedOut...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (c *Console) Tab() Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tab
}

func (c *Console) SetTab(t Tab) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tab = t
}

// RefreshStats reloads the dashboard counters.
func (c *Console) RefreshStats(ctx context.Context) Stats {
	stats := LoadStats(ctx, c.api, c.logger)
	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()
	return stats
}

func (c *Console) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// LoadTab loads the data behind tab t.
func (c *Console) LoadTab(ctx context.Context, t Tab) error {
	switch t {
	case TabUsers:
		return c.Users.Load(ctx)
	case TabMachines:
		return c.Machines.Load(ctx)
	case TabDevices:
		return c.Devices.Load(ctx)
	case TabPermissions:
		return c.Permissions.Load(ctx)
	default:
		c.RefreshStats(ctx)
		return nil
	}
}

// Close stops background work.
func (c *Console) Close() {
	c.Devices.Close()
}
