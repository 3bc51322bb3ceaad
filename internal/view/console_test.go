package view

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-admin-console/internal/client"
	"fleet-admin-console/internal/model"
	"fleet-admin-console/internal/session"
)

func TestLoadStats_FailureCountsAsZero(t *testing.T) {
	api := newFakeAPI()
	api.users = []model.User{{ID: 1}, {ID: 2}}
	api.devices = []model.Device{{ID: 1}}
	api.fail("ListMachines", assert.AnError)

	var buf bytes.Buffer
	stats := LoadStats(context.Background(), api, log.New(&buf, "", 0))
	assert.Equal(t, Stats{Users: 2, Machines: 0, Devices: 1}, stats)
	assert.Contains(t, buf.String(), "dashboard: loading machines")
}

func TestConsole_InvalidationReturnsToLogin(t *testing.T) {
	sess, err := session.New(session.NewMemoryStore("tok"))
	require.NoError(t, err)
	c := NewConsole(newFakeAPI(), sess, Options{NoticeTTL: time.Minute, Settle: fastSettle})
	defer c.Close()

	loggedOut := 0
	c.OnLoggedOut(func() { loggedOut++ })
	c.SetTab(TabDevices)

	sess.Invalidate("tok")
	assert.False(t, c.Authenticated())
	assert.Equal(t, TabDashboard, c.Tab())
	assert.Equal(t, 1, loggedOut)
	notice, ok := c.Notices().Current()
	require.True(t, ok)
	assert.Equal(t, NoticeError, notice.Kind)
}

func TestConsole_LoginAndLogout(t *testing.T) {
	sess, err := session.New(session.NewMemoryStore(""))
	require.NoError(t, err)
	api := newFakeAPI()
	api.machines = []model.Machine{{ID: 1}}
	c := NewConsole(api, sess, Options{NoticeTTL: time.Minute})
	defer c.Close()

	assert.ErrorIs(t, c.Login(context.Background(), " ", "pw"), ErrInvalidInput)
	assert.Zero(t, api.count("Login"))

	require.NoError(t, c.Login(context.Background(), "admin", "pw"))
	assert.Equal(t, 1, c.Stats().Machines)

	loggedOut := false
	c.OnLoggedOut(func() { loggedOut = true })
	c.SetTab(TabUsers)
	require.NoError(t, c.Logout())
	assert.True(t, loggedOut)
	assert.Equal(t, TabDashboard, c.Tab())
}

func TestLoginMessage(t *testing.T) {
	assert.Empty(t, LoginMessage(nil))
	assert.Equal(t, "Invalid username or password.", LoginMessage(client.ErrUnauthorized))
	assert.Equal(t, "Username and password are required.", LoginMessage(ErrInvalidInput))
	assert.Equal(t, "Login failed. Is the backend reachable?", LoginMessage(&client.TransportError{Op: "login", Err: assert.AnError}))
}

func TestTab_String(t *testing.T) {
	var names []string
	for _, tab := range Tabs {
		names = append(names, tab.String())
	}
	assert.Equal(t, []string{"Dashboard", "Users", "Machines", "Devices", "Permissions"}, names)
}

func TestConsole_LogoutStopsDevicePolling(t *testing.T) {
	sess, err := session.New(session.NewMemoryStore("tok"))
	require.NoError(t, err)
	api := newFakeAPI()
	api.applyDevices = false
	api.fail("ListDevices", client.ErrUnauthorized)
	c := NewConsole(api, sess, Options{NoticeTTL: time.Minute, Settle: SettlePolicy{InitialDelay: time.Millisecond, Interval: time.Millisecond, MaxAttempts: 1}})
	defer c.Close()

	release := api.hold("ListDevices")
	op, err := c.Devices.Create(context.Background(), model.CreateDeviceRequest{IMEI: "7"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return api.count("ListDevices") == 1 }, time.Second, time.Millisecond)

	require.NoError(t, c.Logout())
	close(release)
	waitDone(t, op)

	assert.Equal(t, OpUnsettled, op.State())
	notice, ok := c.Notices().Current()
	if ok {
		assert.NotContains(t, notice.Text, "still being processed")
	}
	assert.Empty(t, c.Devices.Pending())
}

func TestConsole_ResetForgetsPreviousAccount(t *testing.T) {
	sess, err := session.New(session.NewMemoryStore("tok"))
	require.NoError(t, err)
	api := newFakeAPI()
	api.users = []model.User{{ID: 1, Username: "alice"}}
	api.machines = []model.Machine{{ID: 2, Name: "Washer"}}
	api.devices = []model.Device{{ID: 3, IMEI: "42"}}
	c := NewConsole(api, sess, Options{NoticeTTL: time.Minute, Settle: fastSettle})
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Users.Load(ctx))
	require.NoError(t, c.Machines.Load(ctx))
	require.NoError(t, c.Devices.Load(ctx))
	require.NoError(t, c.Permissions.Load(ctx))
	c.Users.OpenForm()
	c.Permissions.SelectUser(1)
	c.Permissions.SelectMachine(2)
	c.Permissions.SetUserFilter("ali")

	sess.Invalidate("tok")

	assert.Equal(t, PhaseIdle, c.Users.Snapshot().Phase)
	assert.Empty(t, c.Users.Snapshot().Items)
	assert.False(t, c.Users.Form().Open)
	assert.Empty(t, c.Machines.Snapshot().Items)
	assert.Empty(t, c.Devices.Snapshot().Items)
	assert.Empty(t, c.Permissions.UsersSnapshot().Items)
	assert.Empty(t, c.Permissions.Bindings().Items)
	u, m := c.Permissions.Selection()
	assert.Zero(t, u)
	assert.Zero(t, m)
	uf, mf := c.Permissions.Filters()
	assert.Empty(t, uf)
	assert.Empty(t, mf)
}
