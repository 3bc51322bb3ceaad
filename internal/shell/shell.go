// Package shell is the interactive terminal front end of the console.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"fleet-admin-console/internal/model"
	"fleet-admin-console/internal/view"
)

// Run shows the console until the user quits or ctx is cancelled.
func Run(ctx context.Context, c *view.Console) error {
	// The alt screen owns the terminal; package log output would tear it.
	prev := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(prev)

	p := tea.NewProgram(newModel(ctx, c), tea.WithAltScreen(), tea.WithContext(ctx))

	// Listeners fire from view goroutines and from Update itself, so Send
	// must never block the caller.
	c.Notices().OnChange(func() { go p.Send(refreshMsg{}) })
	c.OnLoggedOut(func() { go p.Send(loggedOutMsg{}) })

	if _, err := p.Run(); err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return err
	}
	return nil
}

// --- Messages ---

type refreshMsg struct{}

type loggedOutMsg struct{}

type tickMsg struct{}

type loginDoneMsg struct{ err error }

type loadedMsg struct {
	tab view.Tab
	err error
}

type formDoneMsg struct{ err error }

type actionDoneMsg struct{ err error }

type historyOpenedMsg struct {
	history *view.HistoryView
	err     error
}

// --- Model ---

type mode int

const (
	modeLogin mode = iota
	modeMain
	modeForm
	modeConfirm
	modeHistory
	modeFilter
)

// permPane is the focused column of the permissions tab.
type permPane int

const (
	paneUsers permPane = iota
	paneMachines
	paneBindings
	paneCount
)

type uiModel struct {
	ctx     context.Context
	console *view.Console

	mode   mode
	width  int
	height int

	cursor     [5]int
	pane       permPane
	permCursor [paneCount]int

	login         *loginForm
	form          *form
	formReturn    mode
	confirm       *confirmation
	confirmReturn mode
	history       *view.HistoryView
	historyCursor int
	filter        textinput.Model

	help     help.Model
	showHelp bool
}

func newModel(ctx context.Context, c *view.Console) uiModel {
	m := uiModel{
		ctx:     ctx,
		console: c,
		login:   newLoginForm(),
		filter:  newInput("filter"),
		help:    help.New(),
	}
	if c.Authenticated() {
		m.mode = modeMain
	}
	return m
}

func (m uiModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, tickEvery()}
	if m.mode == modeMain {
		cmds = append(cmds, m.loadTab(view.TabDashboard))
	}
	return tea.Batch(cmds...)
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return tickMsg{} })
}

// --- Commands ---

func (m uiModel) loadTab(t view.Tab) tea.Cmd {
	c, ctx := m.console, m.ctx
	return func() tea.Msg {
		return loadedMsg{tab: t, err: c.LoadTab(ctx, t)}
	}
}

func (m uiModel) action(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg { return actionDoneMsg{err: fn(ctx)} }
}

func (m uiModel) formAction(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg { return formDoneMsg{err: fn(ctx)} }
}

// --- Update ---

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		return m, tickEvery()

	case refreshMsg, loadedMsg, actionDoneMsg:
		return m, nil

	case loggedOutMsg:
		m.toLogin()
		return m, textinput.Blink

	case loginDoneMsg:
		m.login.pending = false
		if msg.err != nil {
			m.login.err = view.LoginMessage(msg.err)
			return m, nil
		}
		m.login = newLoginForm()
		m.mode = modeMain
		m.cursor = [5]int{}
		return m, nil

	case formDoneMsg:
		if m.form == nil {
			return m, nil
		}
		m.form.pending = false
		if msg.err != nil {
			m.form.err = m.form.errText(msg.err)
			return m, nil
		}
		m.form = nil
		m.mode = m.formReturn
		return m, nil

	case historyOpenedMsg:
		if msg.err != nil || m.mode != modeMain {
			return m, nil
		}
		m.history = msg.history
		m.historyCursor = 0
		m.mode = modeHistory
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeLogin:
			return m.updateLogin(msg)
		case modeForm:
			return m.updateForm(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		case modeFilter:
			return m.updateFilter(msg)
		case modeHistory:
			return m.updateHistory(msg)
		default:
			return m.updateMain(msg)
		}
	}

	switch m.mode {
	case modeLogin:
		return m, m.login.update(msg)
	case modeForm:
		return m, m.form.update(msg)
	case modeFilter:
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *uiModel) toLogin() {
	m.mode = modeLogin
	m.form = nil
	m.confirm = nil
	m.history = nil
	m.filter.Blur()
	m.login = newLoginForm()
}

func (m uiModel) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "down":
		m.login.focusOn((m.login.focus + 1) % len(m.login.inputs))
		return m, nil
	case "shift+tab", "up":
		m.login.focusOn((m.login.focus + len(m.login.inputs) - 1) % len(m.login.inputs))
		return m, nil
	case "enter":
		if m.login.focus == 0 {
			m.login.focusOn(1)
			return m, nil
		}
		if m.login.pending {
			return m, nil
		}
		m.login.pending = true
		m.login.err = ""
		username, password := m.login.values()
		c, ctx := m.console, m.ctx
		return m, func() tea.Msg {
			return loginDoneMsg{err: c.Login(ctx, username, password)}
		}
	}
	return m, m.login.update(msg)
}

func (m uiModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.form
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		if f.cancel != nil {
			f.cancel()
		}
		m.form = nil
		m.mode = m.formReturn
		return m, nil
	case "tab", "down":
		f.next()
		return m, nil
	case "shift+tab", "up":
		f.prev()
		return m, nil
	case "enter":
		if f.next() {
			return m, nil
		}
		if f.pending {
			return m, nil
		}
		f.pending = true
		f.err = ""
		return m, f.submit(f.values())
	}
	return m, f.update(msg)
}

func (m uiModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.confirm
	m.confirm = nil
	m.mode = m.confirmReturn
	if s := strings.ToLower(msg.String()); s == "y" {
		return m, c.run
	}
	return m, nil
}

func (m uiModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.filter.SetValue("")
		m.applyFilter()
		m.filter.Blur()
		m.mode = modeMain
		return m, nil
	case "enter":
		m.filter.Blur()
		m.mode = modeMain
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	m.permCursor[m.pane] = 0
	return m, cmd
}

func (m uiModel) applyFilter() {
	p := m.console.Permissions
	if m.pane == paneMachines {
		p.SetMachineFilter(m.filter.Value())
	} else {
		p.SetUserFilter(m.filter.Value())
	}
}

func (m uiModel) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	h := m.history
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, keys.Esc), key.Matches(msg, keys.Quit):
		m.history = nil
		m.mode = modeMain
		return m, nil
	case key.Matches(msg, keys.Up):
		if m.historyCursor > 0 {
			m.historyCursor--
		}
	case key.Matches(msg, keys.Down):
		if m.historyCursor < len(h.Snapshot().Items)-1 {
			m.historyCursor++
		}
	case key.Matches(msg, keys.Refresh):
		return m, m.action(h.Open)
	case key.Matches(msg, keys.New):
		m.openStatusForm(modeHistory)
	case key.Matches(msg, keys.Dismiss):
		m.console.Notices().Dismiss()
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m uiModel) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.console
	tab := c.Tab()

	if i, ok := tabKeys[msg.String()]; ok {
		return m.switchTab(view.Tabs[i])
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Tab):
		return m.switchTab(view.Tabs[(int(tab)+1)%len(view.Tabs)])
	case key.Matches(msg, keys.BackTab):
		return m.switchTab(view.Tabs[(int(tab)+len(view.Tabs)-1)%len(view.Tabs)])
	case key.Matches(msg, keys.Refresh):
		return m, m.loadTab(tab)
	case key.Matches(msg, keys.Dismiss):
		c.Notices().Dismiss()
		return m, nil
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	case key.Matches(msg, keys.Logout):
		return m, func() tea.Msg {
			c.Logout()
			return nil
		}
	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
		return m, nil
	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
		return m, nil
	}

	switch tab {
	case view.TabUsers:
		return m.updateUsers(msg)
	case view.TabMachines:
		return m.updateMachines(msg)
	case view.TabDevices:
		return m.updateDevices(msg)
	case view.TabPermissions:
		return m.updatePermissions(msg)
	}
	return m, nil
}

func (m uiModel) switchTab(t view.Tab) (tea.Model, tea.Cmd) {
	m.console.SetTab(t)
	return m, m.loadTab(t)
}

func (m *uiModel) moveCursor(delta int) {
	tab := m.console.Tab()
	if tab == view.TabPermissions {
		n := m.paneLen(m.pane)
		m.permCursor[m.pane] = clamp(m.permCursor[m.pane]+delta, n)
		return
	}
	m.cursor[tab] = clamp(m.cursor[tab]+delta, m.tabLen(tab))
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (m uiModel) tabLen(t view.Tab) int {
	c := m.console
	switch t {
	case view.TabUsers:
		return len(c.Users.Snapshot().Items)
	case view.TabMachines:
		return len(c.Machines.Snapshot().Items)
	case view.TabDevices:
		return len(c.Devices.Snapshot().Items)
	}
	return 0
}

func (m uiModel) paneLen(p permPane) int {
	v := m.console.Permissions
	switch p {
	case paneUsers:
		return len(v.Users())
	case paneMachines:
		return len(v.Machines())
	default:
		return len(v.Bindings().Items)
	}
}

func (m *uiModel) ask(prompt string, run tea.Cmd) {
	m.confirm = &confirmation{prompt: prompt, run: run}
	m.confirmReturn = m.mode
	m.mode = modeConfirm
}

func (m *uiModel) openForm(f *form, back mode) {
	m.form = f
	m.formReturn = back
	m.mode = modeForm
}

// --- Tabs ---

func (m uiModel) selectedUser() (model.User, bool) {
	items := m.console.Users.Snapshot().Items
	i := m.cursor[view.TabUsers]
	if i < 0 || i >= len(items) {
		return model.User{}, false
	}
	return items[i], true
}

func (m uiModel) selectedMachine() (model.Machine, bool) {
	items := m.console.Machines.Snapshot().Items
	i := m.cursor[view.TabMachines]
	if i < 0 || i >= len(items) {
		return model.Machine{}, false
	}
	return items[i], true
}

func (m uiModel) selectedDevice() (model.Device, bool) {
	items := m.console.Devices.Snapshot().Items
	i := m.cursor[view.TabDevices]
	if i < 0 || i >= len(items) {
		return model.Device{}, false
	}
	return items[i], true
}

func (m uiModel) updateUsers(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.console.Users
	switch {
	case key.Matches(msg, keys.New):
		v.OpenForm()
		f := newForm("New user", "Username", "Password", "Role").prefill("", "", string(model.RoleUser))
		f.fields[1].input.EchoMode = textinput.EchoPassword
		f.submit = func(vals []string) tea.Cmd {
			req := model.CreateUserRequest{Username: vals[0], Password: vals[1], Role: model.Role(strings.TrimSpace(vals[2]))}
			return m.formAction(func(ctx context.Context) error { return v.Create(ctx, req) })
		}
		f.errText = func(error) string { return v.Form().Error }
		f.cancel = v.CloseForm
		m.openForm(f, modeMain)

	case key.Matches(msg, keys.Role):
		u, ok := m.selectedUser()
		if !ok {
			break
		}
		role := model.RoleAdmin
		if u.Role == model.RoleAdmin {
			role = model.RoleUser
		}
		return m, m.action(func(ctx context.Context) error {
			_, err := v.UpdateRole(ctx, u.ID, role)
			return err
		})

	case key.Matches(msg, keys.Delete):
		u, ok := m.selectedUser()
		if !ok {
			break
		}
		m.ask(fmt.Sprintf("Delete user %s?", u.Username), m.action(func(ctx context.Context) error {
			return v.Delete(ctx, u.ID)
		}))
	}
	return m, nil
}

func (m uiModel) updateMachines(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.console.Machines
	switch {
	case key.Matches(msg, keys.New):
		v.OpenCreate()
		m.openForm(m.machineForm("New machine", ""), modeMain)

	case key.Matches(msg, keys.Edit):
		mc, ok := m.selectedMachine()
		if !ok || v.OpenEdit(mc.ID) != nil {
			break
		}
		m.openForm(m.machineForm("Rename machine", mc.Name), modeMain)

	case key.Matches(msg, keys.Delete):
		mc, ok := m.selectedMachine()
		if !ok {
			break
		}
		m.ask(fmt.Sprintf("Delete machine %s and its history?", mc.Name), m.action(func(ctx context.Context) error {
			return v.Delete(ctx, mc.ID)
		}))

	case key.Matches(msg, keys.Enter):
		mc, ok := m.selectedMachine()
		if !ok {
			break
		}
		ctx := m.ctx
		return m, func() tea.Msg {
			h, err := v.OpenHistory(mc.ID)
			if err != nil {
				return historyOpenedMsg{err: err}
			}
			h.Open(ctx)
			return historyOpenedMsg{history: h}
		}
	}
	return m, nil
}

func (m uiModel) machineForm(title, name string) *form {
	v := m.console.Machines
	f := newForm(title, "Name").prefill(name)
	f.submit = func(vals []string) tea.Cmd {
		return m.formAction(func(ctx context.Context) error { return v.Submit(ctx, vals[0]) })
	}
	f.errText = func(error) string { return v.Form().Error }
	f.cancel = v.CloseForm
	return f
}

var errNotNumber = errors.New("not a number")

// openStatusForm edits the history draft. Fields left as they are keep the
// current status values.
func (m *uiModel) openStatusForm(back mode) {
	h := m.history
	d := h.Draft()
	f := newForm("New status for "+h.Machine().Name,
		"IMEI", "Main speed (rpm)", "Machine cycles", "Processing time", "Remaining time", "Fan (on/off)").
		prefill(d.IMEI, strconv.Itoa(d.MainSpeedRPM), strconv.Itoa(d.MachineCycles), d.ProcessingTime, d.RemainingTime, onOff(d.FanOn))
	f.submit = func(vals []string) tea.Cmd {
		return m.formAction(func(ctx context.Context) error {
			draft := h.Draft()
			rpm, err1 := strconv.Atoi(strings.TrimSpace(vals[1]))
			cycles, err2 := strconv.Atoi(strings.TrimSpace(vals[2]))
			if err1 != nil || err2 != nil {
				return errNotNumber
			}
			draft.IMEI = strings.TrimSpace(vals[0])
			draft.MainSpeedRPM = rpm
			draft.MachineCycles = cycles
			draft.ProcessingTime = vals[3]
			draft.RemainingTime = vals[4]
			draft.FanOn = parseOn(vals[5])
			h.SetDraft(draft)
			return h.Submit(ctx)
		})
	}
	f.errText = func(err error) string {
		if errors.Is(err, errNotNumber) {
			return "Speed and cycles must be whole numbers."
		}
		return ""
	}
	f.hints = func(vals []string) []string {
		return view.TimeHints(model.StatusFields{ProcessingTime: vals[3], RemainingTime: vals[4]})
	}
	m.openForm(f, back)
}

func parseOn(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes", "y", "true", "1":
		return true
	}
	return false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (m uiModel) updateDevices(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.console.Devices
	switch {
	case key.Matches(msg, keys.New):
		v.OpenForm()
		f := newForm("Register device", "IMEI", "Info", "Note")
		f.submit = func(vals []string) tea.Cmd {
			req := model.CreateDeviceRequest{IMEI: vals[0], Info: vals[1], Note: vals[2]}
			return m.formAction(func(ctx context.Context) error {
				_, err := v.Create(ctx, req)
				return err
			})
		}
		f.errText = func(error) string { return v.Form().Error }
		f.cancel = v.CloseForm
		m.openForm(f, modeMain)

	case key.Matches(msg, keys.Delete):
		d, ok := m.selectedDevice()
		if !ok {
			break
		}
		m.ask(fmt.Sprintf("Delete device %s?", d.IMEI), m.action(func(ctx context.Context) error {
			_, err := v.Delete(ctx, d.IMEI)
			return err
		}))
	}
	return m, nil
}

func (m uiModel) updatePermissions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.console.Permissions
	switch {
	case key.Matches(msg, keys.Left):
		m.pane = (m.pane + paneCount - 1) % paneCount
	case key.Matches(msg, keys.Right):
		m.pane = (m.pane + 1) % paneCount

	case key.Matches(msg, keys.Enter):
		i := m.permCursor[m.pane]
		switch m.pane {
		case paneUsers:
			if users := v.Users(); i < len(users) {
				v.SelectUser(users[i].ID)
			}
		case paneMachines:
			if machines := v.Machines(); i < len(machines) {
				v.SelectMachine(machines[i].ID)
			}
		}

	case key.Matches(msg, keys.Filter):
		if m.pane == paneBindings {
			break
		}
		user, machine := v.Filters()
		if m.pane == paneMachines {
			m.filter.SetValue(machine)
		} else {
			m.filter.SetValue(user)
		}
		m.filter.CursorEnd()
		m.mode = modeFilter
		return m, m.filter.Focus()

	case key.Matches(msg, keys.Grant):
		return m, m.action(v.Grant)

	case key.Matches(msg, keys.Revoke):
		if !v.CanGrant() {
			return m, m.action(v.Revoke)
		}
		m.ask("Revoke this permission?", m.action(v.Revoke))

	case key.Matches(msg, keys.Delete):
		bindings := v.Bindings().Items
		i := m.permCursor[paneBindings]
		if m.pane != paneBindings || i >= len(bindings) {
			break
		}
		b := bindings[i]
		m.ask(fmt.Sprintf("Revoke %s's access to %s?", b.Username, b.MachineName), m.action(func(ctx context.Context) error {
			return v.RevokeBinding(ctx, b.UserID, b.MachineID)
		}))
	}
	return m, nil
}
