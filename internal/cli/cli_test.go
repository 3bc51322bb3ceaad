package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-admin-console/config"
	"fleet-admin-console/internal/api"
	"fleet-admin-console/internal/db"
	"fleet-admin-console/internal/mw"
	"fleet-admin-console/internal/provision"
	"fleet-admin-console/internal/store"
	"fleet-admin-console/internal/view"
)

type harness struct {
	t          *testing.T
	configPath string
	session    string
}

type result struct {
	code   int
	stdout string
	stderr string
}

// newHarness starts a sqlite-backed backend and writes a config file that
// points fleetctl at it.
func newHarness(t *testing.T) *harness {
	gin.SetMode(gin.TestMode)

	gormDB, err := db.Open(&config.DatabaseConfig{DSN: "file:" + uuid.NewString() + "?mode=memory&cache=shared"})
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))
	require.NoError(t, db.BootstrapAdmin(gormDB, config.BootstrapConfig{AdminUsername: "admin", AdminPassword: "secret"}))

	s := store.NewGormStore(gormDB)
	pool := provision.NewWorkerPool(1, 8, 10*time.Millisecond, s)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	pool.Start(ctx)

	serverCfg := config.Default().Server
	serverCfg.RateLimitPerSec = 1000
	serverCfg.RateLimitBurst = 1000
	server := httptest.NewServer(api.NewRouter(s, mw.NewTokenRegistry(time.Hour), pool, serverCfg))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	h := &harness{t: t, configPath: filepath.Join(dir, "config.yaml"), session: filepath.Join(dir, "session.json")}
	yaml := fmt.Sprintf(`api:
  base_url: %s
session:
  file: %s
console:
  device_settle:
    initial_delay_ms: 5
    interval_ms: 10
    max_attempts: 50
`, server.URL, h.session)
	require.NoError(t, os.WriteFile(h.configPath, []byte(yaml), 0o600))
	return h
}

func (h *harness) run(stdin string, args ...string) result {
	var stdout, stderr bytes.Buffer
	full := append([]string{"-config", h.configPath}, args...)
	code := Run(context.Background(), full, strings.NewReader(stdin), &stdout, &stderr, nil)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func (h *harness) login() {
	r := h.run("", "login", "-username", "admin", "-password", "secret")
	require.Equal(h.t, 0, r.code, r.stderr)
}

func TestRun_Usage(t *testing.T) {
	h := newHarness(t)

	r := h.run("")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, "usage: fleetctl")

	r = h.run("", "reboot")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, `unknown command "reboot"`)

	r = h.run("", "users", "role", "abc", "admin")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, `invalid user id "abc"`)
}

func TestRun_QuietUnlessVerbose(t *testing.T) {
	h := newHarness(t)

	r := h.run("", "status")
	require.Equal(t, 0, r.code)
	assert.Empty(t, r.stderr)

	r = h.run("", "-v", "status")
	require.Equal(t, 0, r.code)
	assert.Contains(t, r.stderr, "provisioning.workers is not set")
}

func TestRun_LoginStatusLogout(t *testing.T) {
	h := newHarness(t)

	r := h.run("", "status")
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, "anonymous")
	assert.Contains(t, r.stdout, "session:  "+h.session)

	other := filepath.Join(t.TempDir(), "other.json")
	r = h.run("", "-session-file", other, "status")
	assert.Contains(t, r.stdout, "session:  "+other, "status names the file actually read")

	r = h.run("", "login", "-username", "admin", "-password", "wrong")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "Invalid username or password.")
	_, err := os.Stat(h.session)
	assert.True(t, os.IsNotExist(err), "a failed login stores nothing")

	r = h.run("secret\n", "login", "-username", "admin")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Logged in as admin.")

	r = h.run("", "status")
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, "verified_authenticated")

	r = h.run("", "logout")
	assert.Equal(t, 0, r.code)

	r = h.run("", "users", "list")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "not logged in")
}

func TestRun_UsersLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login()

	r := h.run("", "users", "create", "-username", "operator", "-password", "pw")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "User operator created.")

	r = h.run("", "users", "create", "-username", "operator", "-password", "pw")
	assert.Equal(t, 1, r.code)
	assert.NotEmpty(t, r.stderr)

	r = h.run("", "users", "create", "-password", "pw")
	assert.Equal(t, 1, r.code)
	assert.NotEmpty(t, r.stderr, "the form error is printed")

	r = h.run("", "users", "list")
	require.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, "operator")

	r = h.run("", "users", "role", "2", "admin")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "operator is now admin.")

	r = h.run("n\n", "users", "delete", "2")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stdout, "[y/N]")
	assert.Contains(t, r.stderr, "aborted")

	r = h.run("y\n", "users", "delete", "2")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "User deleted.")

	r = h.run("", "users", "list")
	assert.NotContains(t, r.stdout, "operator")
}

func TestRun_MachinesAndHistory(t *testing.T) {
	h := newHarness(t)
	h.login()

	r := h.run("", "machines", "create", "Washer", "North")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Machine Washer North created.")

	r = h.run("", "machines", "list")
	require.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, "never")

	r = h.run("", "machines", "push-status", "-rpm", "1200", "-fan", "-remaining", "0:45", "1")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Status recorded.")

	r = h.run("", "machines", "push-status", "-processing", "later", "1")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Status recorded.")
	assert.Contains(t, r.stderr, `Processing time "later" is not HH:MM[:SS]; it is sent as entered.`)

	r = h.run("", "machines", "push-status", "-cycles", "3", "1")
	require.Equal(t, 0, r.code, r.stderr)

	r = h.run("", "machines", "history", "1")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Washer North (id 1)")
	lines := strings.Split(strings.TrimSpace(r.stdout), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[2], "1200", "unset flags keep the previous status")
	assert.Contains(t, lines[2], "0:45")
	assert.Contains(t, lines[2], "later")

	r = h.run("", "machines", "rename", "1", "Washer", "South")
	require.Equal(t, 0, r.code, r.stderr)

	r = h.run("", "machines", "list")
	assert.Contains(t, r.stdout, "Washer South")
	assert.Contains(t, r.stdout, "1200")

	r = h.run("", "machines", "delete", "-yes", "1")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Machine deleted.")
}

func TestRun_DevicesWait(t *testing.T) {
	h := newHarness(t)
	h.login()

	r := h.run("", "devices", "create", "-imei", "356938035643809", "-info", "gateway", "-wait")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Device creation queued successfully.")
	assert.Contains(t, r.stdout, "Device 356938035643809 registered.")

	r = h.run("", "devices", "list")
	require.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, "356938035643809")
	assert.Contains(t, r.stdout, "provisioned")

	r = h.run("", "devices", "create", "-imei", "356938035643809")
	assert.Equal(t, 1, r.code, "a duplicate is rejected when queued")

	r = h.run("", "devices", "create")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "IMEI is required.")

	r = h.run("", "devices", "delete", "-yes", "-wait", "356938035643809")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Device 356938035643809 removed.")

	r = h.run("", "devices", "list")
	assert.NotContains(t, r.stdout, "356938035643809")
}

func TestRun_Permissions(t *testing.T) {
	h := newHarness(t)
	h.login()
	require.Equal(t, 0, h.run("", "users", "create", "-username", "operator", "-password", "pw").code)
	require.Equal(t, 0, h.run("", "machines", "create", "Dryer").code)

	r := h.run("", "permissions", "grant", "2", "1")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Permission successfully GRANTED.")

	r = h.run("", "permissions", "grant", "2", "1")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "User already has access to this machine.")

	r = h.run("", "permissions", "list")
	require.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, "operator (2)")
	assert.Contains(t, r.stdout, "Dryer (1)")

	r = h.run("", "permissions", "revoke", "-yes", "2", "1")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Permission successfully REVOKED.")

	r = h.run("", "permissions", "list")
	assert.NotContains(t, r.stdout, "operator")
}

func TestRun_TUIUsesInjectedRunner(t *testing.T) {
	h := newHarness(t)

	var stdout, stderr bytes.Buffer
	called := false
	tui := func(ctx context.Context, c *view.Console) error {
		called = true
		assert.False(t, c.Authenticated())
		return nil
	}
	code := Run(context.Background(), []string{"-config", h.configPath, "tui"}, strings.NewReader(""), &stdout, &stderr, tui)
	assert.Equal(t, 0, code)
	assert.True(t, called)
}
