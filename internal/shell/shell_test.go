package shell

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-admin-console/internal/client"
	"fleet-admin-console/internal/model"
	"fleet-admin-console/internal/session"
	"fleet-admin-console/internal/view"
)

// stubAPI serves a fixed user list and records deletions.
type stubAPI struct {
	mu       sync.Mutex
	users    []model.User
	usersErr error
	deleted  []int64
	machines []model.Machine
	statuses []model.StatusFields
}

func (s *stubAPI) Login(_ context.Context, username, password string) error {
	if username == "admin" && password == "secret" {
		return nil
	}
	return client.ErrUnauthorized
}

func (s *stubAPI) Logout() error { return nil }

func (s *stubAPI) ListUsers(context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.User(nil), s.users...), s.usersErr
}

func (s *stubAPI) CreateUser(_ context.Context, req model.CreateUserRequest) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := model.User{ID: int64(len(s.users) + 1), Username: req.Username, Role: req.Role}
	s.users = append(s.users, u)
	return &u, nil
}

func (s *stubAPI) UpdateUserRole(context.Context, int64, model.Role) error { return nil }

func (s *stubAPI) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubAPI) ListMachines(context.Context) ([]model.Machine, error) { return s.machines, nil }
func (s *stubAPI) CreateMachine(_ context.Context, name string) (*model.Machine, error) {
	return &model.Machine{ID: 1, Name: name}, nil
}
func (s *stubAPI) UpdateMachine(context.Context, int64, string) error { return nil }
func (s *stubAPI) DeleteMachine(context.Context, int64) error { return nil }
func (s *stubAPI) ListMachineStatuses(context.Context, int64) ([]model.MachineStatus, error) {
	return nil, nil
}
func (s *stubAPI) CreateMachineStatus(_ context.Context, id int64, f model.StatusFields) (*model.MachineStatus, error) {
	s.mu.Lock()
	s.statuses = append(s.statuses, f)
	s.mu.Unlock()
	return &model.MachineStatus{MachineID: id, StatusFields: f}, nil
}
func (s *stubAPI) ListDevices(context.Context) ([]model.Device, error) { return nil, nil }
func (s *stubAPI) CreateDevice(context.Context, model.CreateDeviceRequest) (client.Ack, error) {
	return client.Ack{StatusCode: http.StatusAccepted}, nil
}
func (s *stubAPI) DeleteDevice(context.Context, string) (client.Ack, error) {
	return client.Ack{StatusCode: http.StatusAccepted}, nil
}
func (s *stubAPI) ListPermissions(context.Context) ([]model.PermissionDetail, error) {
	return nil, nil
}
func (s *stubAPI) GrantPermission(context.Context, model.PermissionRequest) error { return nil }
func (s *stubAPI) RevokePermission(context.Context, model.PermissionRequest) error { return nil }

func newTestModel(t *testing.T, api *stubAPI, token string) (uiModel, *view.Console, *session.Session) {
	sess, err := session.New(session.NewMemoryStore(token))
	require.NoError(t, err)
	c := view.NewConsole(api, sess, view.Options{NoticeTTL: time.Minute})
	t.Cleanup(c.Close)
	m := newModel(context.Background(), c)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(uiModel), c, sess
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var enter = tea.KeyMsg{Type: tea.KeyEnter}

// send feeds msg to m and then delivers whatever the returned command
// produces, once.
func send(m uiModel, msg tea.Msg) uiModel {
	next, cmd := m.Update(msg)
	m = next.(uiModel)
	if cmd == nil {
		return m
	}
	if out := cmd(); out != nil {
		if _, isBatch := out.(tea.BatchMsg); !isBatch {
			next, _ = m.Update(out)
			m = next.(uiModel)
		}
	}
	return m
}

// typeIn types text into the focused input. The cursor blink command it
// returns is dropped.
func typeIn(m uiModel, text string) uiModel {
	next, _ := m.Update(runes(text))
	return next.(uiModel)
}

func TestShell_Login(t *testing.T) {
	m, c, _ := newTestModel(t, &stubAPI{}, "")
	require.Equal(t, modeLogin, m.mode)

	m = typeIn(m, "admin")
	m = send(m, enter)
	assert.Equal(t, 1, m.login.focus, "enter on the username moves to the password")

	m = typeIn(m, "wrong")
	m = send(m, enter)
	assert.Equal(t, modeLogin, m.mode)
	assert.Equal(t, "Invalid username or password.", m.login.err)
	assert.Contains(t, m.View(), "Invalid username or password.")

	m.login = newLoginForm()
	m = typeIn(m, "admin")
	m = send(m, enter)
	m = typeIn(m, "secret")
	m = send(m, enter)
	assert.Equal(t, modeMain, m.mode)
	assert.Equal(t, view.TabDashboard, c.Tab())
}

func TestShell_RestoredSessionStartsInMain(t *testing.T) {
	m, _, _ := newTestModel(t, &stubAPI{}, "stored")
	assert.Equal(t, modeMain, m.mode)
	assert.Contains(t, m.View(), "Dashboard")
}

func TestShell_TabKeysLoadTab(t *testing.T) {
	api := &stubAPI{users: []model.User{{ID: 1, Username: "admin", Role: model.RoleAdmin}}}
	m, c, _ := newTestModel(t, api, "stored")

	m = send(m, runes("2"))
	assert.Equal(t, view.TabUsers, c.Tab())
	assert.Equal(t, view.PhaseLoaded, c.Users.Snapshot().Phase)
	assert.Contains(t, m.View(), "admin")

	m = send(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, view.TabDashboard, c.Tab())
}

func TestShell_FailedAndEmptyListsDiffer(t *testing.T) {
	api := &stubAPI{usersErr: errors.New("boom")}
	m, _, _ := newTestModel(t, api, "stored")

	m = send(m, runes("2"))
	assert.Contains(t, m.View(), "Failed to load users")

	api.mu.Lock()
	api.usersErr = nil
	api.mu.Unlock()
	m = send(m, runes("r"))
	assert.Contains(t, m.View(), "No users yet.")
}

func TestShell_DeleteAsksFirst(t *testing.T) {
	api := &stubAPI{users: []model.User{{ID: 1, Username: "admin"}, {ID: 2, Username: "operator"}}}
	m, _, _ := newTestModel(t, api, "stored")
	m = send(m, runes("2"))
	m = send(m, runes("j"))

	m = send(m, runes("d"))
	require.Equal(t, modeConfirm, m.mode)
	assert.Contains(t, m.View(), "Delete user operator? [y/N]")

	m = send(m, runes("n"))
	assert.Equal(t, modeMain, m.mode)
	assert.Empty(t, api.deleted)

	m = send(m, runes("d"))
	m = send(m, runes("y"))
	assert.Equal(t, modeMain, m.mode)
	assert.Equal(t, []int64{2}, api.deleted)
	n, ok := m.console.Notices().Current()
	require.True(t, ok)
	assert.Equal(t, "User deleted.", n.Text)
}

func TestShell_CreateUserFormKeepsValidationError(t *testing.T) {
	api := &stubAPI{}
	m, c, _ := newTestModel(t, api, "stored")
	m = send(m, runes("2"))

	m = send(m, runes("n"))
	require.Equal(t, modeForm, m.mode)
	m = send(m, enter)
	m = send(m, enter)
	m = send(m, enter)
	assert.Equal(t, modeForm, m.mode, "an empty username keeps the form open")
	assert.NotEmpty(t, m.form.err)

	m = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeMain, m.mode)
	assert.False(t, c.Users.Form().Open)
}

func TestShell_InvalidationReturnsToLogin(t *testing.T) {
	m, c, sess := newTestModel(t, &stubAPI{}, "stored")
	require.Equal(t, modeMain, m.mode)

	sess.Invalidate("stored")
	m = send(m, loggedOutMsg{})
	assert.Equal(t, modeLogin, m.mode)

	n, ok := c.Notices().Current()
	require.True(t, ok)
	assert.Equal(t, "Your session has expired. Please log in again.", n.Text)
	assert.Contains(t, m.View(), "Your session has expired.")
}

func TestShell_StatusFormSendsFreeFormTimes(t *testing.T) {
	api := &stubAPI{machines: []model.Machine{{ID: 1, Name: "Washer"}}}
	m, _, _ := newTestModel(t, api, "stored")
	m = send(m, runes("3"))
	m = send(m, enter)
	require.Equal(t, modeHistory, m.mode)

	m = send(m, runes("n"))
	require.Equal(t, modeForm, m.mode)
	m = send(m, enter)
	m = send(m, enter)
	m = send(m, enter)
	m = typeIn(m, "later")
	assert.Contains(t, m.View(), `Processing time "later" is not HH:MM[:SS]`)

	m = send(m, enter)
	m = send(m, enter)
	m = send(m, enter)
	assert.Equal(t, modeHistory, m.mode)
	require.Len(t, api.statuses, 1)
	assert.Equal(t, "later", api.statuses[0].ProcessingTime)
}
