package view

import (
	"context"
	"net/http"
	"sync"

	"fleet-admin-console/internal/client"
	"fleet-admin-console/internal/model"
)

// fakeAPI is an in-memory backend that counts calls.
type fakeAPI struct {
	mu sync.Mutex

	users       []model.User
	machines    []model.Machine
	statuses    map[int64][]model.MachineStatus
	devices     []model.Device
	permissions []model.PermissionDetail

	calls map[string]int
	errs  map[string]error

	// deviceAck is the status returned by device create and delete.
	deviceAck int
	// applyDevices makes queued device operations visible immediately.
	applyDevices bool
	// block, when set for a call, is waited on before it returns.
	block map[string]chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		statuses:     make(map[int64][]model.MachineStatus),
		calls:        make(map[string]int),
		errs:         make(map[string]error),
		block:        make(map[string]chan struct{}),
		deviceAck:    http.StatusAccepted,
		applyDevices: true,
	}
}

func (f *fakeAPI) enter(name string) error {
	f.mu.Lock()
	f.calls[name]++
	ch := f.block[name]
	err := f.errs[name]
	f.mu.Unlock()
	if ch != nil {
		<-ch
	}
	return err
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) fail(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[name] = err
}

func (f *fakeAPI) hold(name string) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.block[name] = ch
	f.mu.Unlock()
	return ch
}

func conflict(msg string) error {
	return &client.ServerError{Op: "test", StatusCode: http.StatusConflict, Message: msg}
}

func (f *fakeAPI) Login(ctx context.Context, username, password string) error {
	return f.enter("Login")
}

func (f *fakeAPI) Logout() error { return f.enter("Logout") }

func (f *fakeAPI) ListUsers(ctx context.Context) ([]model.User, error) {
	if err := f.enter("ListUsers"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.User(nil), f.users...), nil
}

func (f *fakeAPI) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	if err := f.enter("CreateUser"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := model.User{ID: int64(len(f.users) + 1), Username: req.Username, Role: req.Role}
	f.users = append(f.users, u)
	return &u, nil
}

func (f *fakeAPI) UpdateUserRole(ctx context.Context, id int64, role model.Role) error {
	if err := f.enter("UpdateUserRole"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.users {
		if f.users[i].ID == id {
			f.users[i].Role = role
		}
	}
	return nil
}

func (f *fakeAPI) DeleteUser(ctx context.Context, id int64) error {
	if err := f.enter("DeleteUser"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.ID == id {
			f.users = append(f.users[:i], f.users[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeAPI) ListMachines(ctx context.Context) ([]model.Machine, error) {
	if err := f.enter("ListMachines"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Machine(nil), f.machines...), nil
}

func (f *fakeAPI) CreateMachine(ctx context.Context, name string) (*model.Machine, error) {
	if err := f.enter("CreateMachine"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m := model.Machine{ID: int64(len(f.machines) + 1), Name: name}
	f.machines = append(f.machines, m)
	return &m, nil
}

func (f *fakeAPI) UpdateMachine(ctx context.Context, id int64, name string) error {
	if err := f.enter("UpdateMachine"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.machines {
		if f.machines[i].ID == id {
			f.machines[i].Name = name
		}
	}
	return nil
}

func (f *fakeAPI) DeleteMachine(ctx context.Context, id int64) error {
	return f.enter("DeleteMachine")
}

func (f *fakeAPI) ListMachineStatuses(ctx context.Context, machineID int64) ([]model.MachineStatus, error) {
	if err := f.enter("ListMachineStatuses"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.MachineStatus(nil), f.statuses[machineID]...), nil
}

func (f *fakeAPI) CreateMachineStatus(ctx context.Context, machineID int64, fields model.StatusFields) (*model.MachineStatus, error) {
	if err := f.enter("CreateMachineStatus"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s := model.MachineStatus{ID: int64(len(f.statuses[machineID]) + 100), MachineID: machineID, StatusFields: fields}
	f.statuses[machineID] = append(f.statuses[machineID], s)
	return &s, nil
}

func (f *fakeAPI) ListDevices(ctx context.Context) ([]model.Device, error) {
	if err := f.enter("ListDevices"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Device(nil), f.devices...), nil
}

func (f *fakeAPI) CreateDevice(ctx context.Context, req model.CreateDeviceRequest) (client.Ack, error) {
	if err := f.enter("CreateDevice"); err != nil {
		return client.Ack{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyDevices {
		f.devices = append(f.devices, model.Device{ID: int64(len(f.devices) + 1), IMEI: req.IMEI, Status: model.DeviceStatusProvisioned})
	}
	return client.Ack{StatusCode: f.deviceAck}, nil
}

func (f *fakeAPI) DeleteDevice(ctx context.Context, imei string) (client.Ack, error) {
	if err := f.enter("DeleteDevice"); err != nil {
		return client.Ack{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyDevices {
		for i, d := range f.devices {
			if d.IMEI == imei {
				f.devices = append(f.devices[:i], f.devices[i+1:]...)
				break
			}
		}
	}
	return client.Ack{StatusCode: f.deviceAck}, nil
}

func (f *fakeAPI) ListPermissions(ctx context.Context) ([]model.PermissionDetail, error) {
	if err := f.enter("ListPermissions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.PermissionDetail(nil), f.permissions...), nil
}

func (f *fakeAPI) GrantPermission(ctx context.Context, req model.PermissionRequest) error {
	if err := f.enter("GrantPermission"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permissions = append(f.permissions, model.PermissionDetail{ID: int64(len(f.permissions) + 1), UserID: req.UserID, MachineID: req.MachineID})
	return nil
}

func (f *fakeAPI) RevokePermission(ctx context.Context, req model.PermissionRequest) error {
	if err := f.enter("RevokePermission"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.permissions {
		if p.Matches(req.UserID, req.MachineID) {
			f.permissions = append(f.permissions[:i], f.permissions[i+1:]...)
			break
		}
	}
	return nil
}

// declining records prompts and always answers no.
type declining struct{ prompts []string }

func (d *declining) Confirm(prompt string) bool {
	d.prompts = append(d.prompts, prompt)
	return false
}
