package view

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"fleet-admin-console/internal/client"
	"fleet-admin-console/internal/model"
)

// PermissionAPI is the slice of the backend the permission matrix needs.
type PermissionAPI interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	ListMachines(ctx context.Context) ([]model.Machine, error)
	ListPermissions(ctx context.Context) ([]model.PermissionDetail, error)
	GrantPermission(ctx context.Context, req model.PermissionRequest) error
	RevokePermission(ctx context.Context, req model.PermissionRequest) error
}

// PermissionsView is the user x machine matrix with the list of active bindings.
type PermissionsView struct {
	api      PermissionAPI
	notices  *Notifier
	confirm  Confirmer
	users    *List[model.User]
	machines *List[model.Machine]
	bindings *List[model.PermissionDetail]
	guard    guard

	mu            sync.Mutex
	selUser       int64
	selMachine    int64
	userFilter    string
	machineFilter string
}

func NewPermissionsView(api PermissionAPI, notices *Notifier, confirm Confirmer) *PermissionsView {
	return &PermissionsView{
		api:      api,
		notices:  notices,
		confirm:  confirm,
		users:    NewList(api.ListUsers),
		machines: NewList(api.ListMachines),
		bindings: NewList(api.ListPermissions),
	}
}

// Load fetches the three lists in parallel. A failure in one leaves the
// others intact; the first error is returned.
func (v *PermissionsView) Load(ctx context.Context) error {
	release, err := v.guard.begin("load permissions")
	if err != nil {
		return err
	}
	defer release()

	var g errgroup.Group
	g.Go(func() error { return v.users.Load(ctx) })
	g.Go(func() error { return v.machines.Load(ctx) })
	g.Go(func() error { return v.bindings.Load(ctx) })
	return g.Wait()
}

// Reset drops the three lists and clears selections and filters.
func (v *PermissionsView) Reset() {
	v.users.Reset()
	v.machines.Reset()
	v.bindings.Reset()
	v.mu.Lock()
	v.selUser, v.selMachine = 0, 0
	v.userFilter, v.machineFilter = "", ""
	v.mu.Unlock()
}

func (v *PermissionsView) UsersSnapshot() Snapshot[model.User] { return v.users.Snapshot() }
func (v *PermissionsView) MachinesSnapshot() Snapshot[model.Machine] { return v.machines.Snapshot() }
func (v *PermissionsView) Bindings() Snapshot[model.PermissionDetail] { return v.bindings.Snapshot() }

// SelectUser toggles the user selection.
func (v *PermissionsView) SelectUser(id int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selUser == id {
		v.selUser = 0
		return
	}
	v.selUser = id
}

// SelectMachine toggles the machine selection.
func (v *PermissionsView) SelectMachine(id int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selMachine == id {
		v.selMachine = 0
		return
	}
	v.selMachine = id
}

// Selection returns the selected ids; zero means nothing selected.
func (v *PermissionsView) Selection() (userID, machineID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selUser, v.selMachine
}

// CanGrant reports whether both a user and a machine are selected.
func (v *PermissionsView) CanGrant() bool {
	u, m := v.Selection()
	return u != 0 && m != 0
}

func (v *PermissionsView) SetUserFilter(q string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.userFilter = q
}

func (v *PermissionsView) SetMachineFilter(q string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.machineFilter = q
}

func (v *PermissionsView) Filters() (user, machine string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.userFilter, v.machineFilter
}

// Users returns the loaded users matching the user filter.
func (v *PermissionsView) Users() []model.User {
	q, _ := v.Filters()
	var out []model.User
	for _, u := range v.users.Items() {
		if matchesFilter(q, u.Username, u.ID) {
			out = append(out, u)
		}
	}
	return out
}

// Machines returns the loaded machines matching the machine filter.
func (v *PermissionsView) Machines() []model.Machine {
	_, q := v.Filters()
	var out []model.Machine
	for _, m := range v.machines.Items() {
		if matchesFilter(q, m.Name, m.ID) {
			out = append(out, m)
		}
	}
	return out
}

// matchesFilter is a case-insensitive substring match over name and id.
func matchesFilter(q, name string, id int64) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), q) || strings.Contains(strconv.FormatInt(id, 10), q)
}

// Granted reports whether the last-loaded bindings contain the pair.
func (v *PermissionsView) Granted(userID, machineID int64) bool {
	for _, b := range v.bindings.Items() {
		if b.Matches(userID, machineID) {
			return true
		}
	}
	return false
}

// Grant binds the selected user to the selected machine. An existing binding
// is rejected without calling the backend.
func (v *PermissionsView) Grant(ctx context.Context) error {
	userID, machineID := v.Selection()
	if userID == 0 || machineID == 0 {
		v.notices.Error("Select both a user and a machine.")
		return ErrSelectionIncomplete
	}
	if v.Granted(userID, machineID) {
		v.notices.Error("User already has access to this machine.")
		return ErrAlreadyGranted
	}

	release, err := v.guard.begin("grant permission")
	if err != nil {
		return err
	}
	defer release()

	req := model.PermissionRequest{UserID: userID, MachineID: machineID}
	if err := v.api.GrantPermission(ctx, req); err != nil {
		v.notices.Error(client.Reason(err, "Failed to grant permission."))
		return err
	}
	v.notices.Success("Permission successfully GRANTED.")
	v.bindings.Load(ctx)
	return nil
}

// Revoke unbinds the selected pair. The selection itself is the confirmation.
func (v *PermissionsView) Revoke(ctx context.Context) error {
	userID, machineID := v.Selection()
	if userID == 0 || machineID == 0 {
		v.notices.Error("Select both a user and a machine.")
		return ErrSelectionIncomplete
	}
	return v.revoke(ctx, userID, machineID)
}

// RevokeBinding unbinds a row of the bindings list after confirmation.
func (v *PermissionsView) RevokeBinding(ctx context.Context, userID, machineID int64) error {
	if !v.confirm.Confirm("Revoke this permission?") {
		return ErrNotConfirmed
	}
	return v.revoke(ctx, userID, machineID)
}

func (v *PermissionsView) revoke(ctx context.Context, userID, machineID int64) error {
	release, err := v.guard.begin("revoke permission")
	if err != nil {
		return err
	}
	defer release()

	req := model.PermissionRequest{UserID: userID, MachineID: machineID}
	if err := v.api.RevokePermission(ctx, req); err != nil {
		v.notices.Error(client.Reason(err, "Failed to revoke permission."))
		v.bindings.Load(ctx)
		return fmt.Errorf("revoke user %d from machine %d: %w", userID, machineID, err)
	}
	v.notices.Success("Permission successfully REVOKED.")
	v.bindings.Load(ctx)
	return nil
}
