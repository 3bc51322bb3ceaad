package view

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"fleet-admin-console/internal/client"
	"fleet-admin-console/internal/model"
)

// DeviceAPI is the slice of the backend the devices screen needs. Create and
// delete are asynchronous on the backend.
type DeviceAPI interface {
	ListDevices(ctx context.Context) ([]model.Device, error)
	CreateDevice(ctx context.Context, req model.CreateDeviceRequest) (client.Ack, error)
	DeleteDevice(ctx context.Context, imei string) (client.Ack, error)
}

// OpKind is the kind of a queued device operation.
type OpKind int

const (
	OpCreate OpKind = iota
	OpDelete
)

func (k OpKind) String() string {
	if k == OpDelete {
		return "delete"
	}
	return "create"
}

// OpState tracks a queued device operation until the list reflects it.
type OpState int

const (
	OpQueued OpState = iota
	OpPolling
	OpSettled
	// OpUnsettled means polling gave up; the backend may still apply the op.
	OpUnsettled
)

func (s OpState) String() string {
	switch s {
	case OpQueued:
		return "queued"
	case OpPolling:
		return "polling"
	case OpSettled:
		return "settled"
	case OpUnsettled:
		return "unsettled"
	default:
		return fmt.Sprintf("OpState(%d)", int(s))
	}
}

// SettlePolicy bounds how long the view polls for a queued operation.
type SettlePolicy struct {
	InitialDelay time.Duration
	Interval     time.Duration
	MaxAttempts  int
}

// DefaultSettlePolicy waits two seconds, then polls every two seconds up to
// five times.
var DefaultSettlePolicy = SettlePolicy{InitialDelay: 2 * time.Second, Interval: 2 * time.Second, MaxAttempts: 5}

// PendingOp is a device operation the backend accepted but may not have applied.
type PendingOp struct {
	Kind OpKind
	IMEI string

	mu       sync.Mutex
	state    OpState
	attempts int
	done     chan struct{}
}

func newPendingOp(kind OpKind, imei string) *PendingOp {
	return &PendingOp{Kind: kind, IMEI: imei, done: make(chan struct{})}
}

func (op *PendingOp) State() OpState {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.state
}

func (op *PendingOp) Attempts() int {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.attempts
}

// Done is closed once the op is settled or unsettled.
func (op *PendingOp) Done() <-chan struct{} { return op.done }

func (op *PendingOp) setPolling(attempt int) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.state = OpPolling
	op.attempts = attempt
}

func (op *PendingOp) finish(state OpState) {
	op.mu.Lock()
	op.state = state
	op.mu.Unlock()
	close(op.done)
}

// visible reports whether devices reflect the op.
func (op *PendingOp) visible(devices []model.Device) bool {
	present := false
	for _, d := range devices {
		if d.IMEI == op.IMEI {
			present = true
			break
		}
	}
	if op.Kind == OpDelete {
		return !present
	}
	return present
}

// DevicesView is the devices screen. Queued operations are polled in the
// background until the list reflects them or the policy gives up.
type DevicesView struct {
	api     DeviceAPI
	notices *Notifier
	confirm Confirmer
	policy  SettlePolicy
	list    *List[model.Device]
	guard   guard

	wg sync.WaitGroup

	mu      sync.Mutex
	form    Form
	pending []*PendingOp
	// cancel stops the pollers started since the last reset.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewDevicesView(api DeviceAPI, notices *Notifier, confirm Confirmer, policy SettlePolicy) *DevicesView {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DevicesView{
		api:     api,
		notices: notices,
		confirm: confirm,
		policy:  policy,
		list:    NewList(api.ListDevices),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Close stops background polling and waits for it to exit.
func (v *DevicesView) Close() {
	v.mu.Lock()
	v.cancel()
	v.mu.Unlock()
	v.wg.Wait()
}

// Reset abandons pending operations without a notice, drops the loaded
// devices and closes the form. It does not wait for the pollers; one of them
// may be the caller, through a session listener.
func (v *DevicesView) Reset() {
	v.mu.Lock()
	v.cancel()
	v.ctx, v.cancel = context.WithCancel(context.Background())
	v.pending = nil
	v.form = Form{}
	v.mu.Unlock()
	v.list.Reset()
}

func (v *DevicesView) Load(ctx context.Context) error {
	release, err := v.guard.begin("load devices")
	if err != nil {
		return err
	}
	defer release()
	return v.list.Load(ctx)
}

func (v *DevicesView) Snapshot() Snapshot[model.Device] { return v.list.Snapshot() }

func (v *DevicesView) Form() Form {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.form
}

func (v *DevicesView) OpenForm() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.form = Form{Open: true}
}

func (v *DevicesView) CloseForm() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.form = Form{}
}

// Pending returns the operations still waiting to show up in the list.
func (v *DevicesView) Pending() []*PendingOp {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]*PendingOp(nil), v.pending...)
}

// Create queues a device registration. The returned op is already settled
// when the backend applied the registration synchronously.
func (v *DevicesView) Create(ctx context.Context, req model.CreateDeviceRequest) (*PendingOp, error) {
	req.IMEI = strings.TrimSpace(req.IMEI)
	if req.IMEI == "" {
		v.mu.Lock()
		v.form.Open = true
		v.form.Error = "IMEI is required."
		v.mu.Unlock()
		return nil, fmt.Errorf("create device: %w", ErrInvalidInput)
	}

	release, err := v.guard.begin("create device")
	if err != nil {
		return nil, err
	}
	defer release()

	ack, err := v.api.CreateDevice(ctx, req)
	if err != nil {
		v.notices.Error(client.Reason(err, "Failed to queue device creation"))
		return nil, err
	}
	v.CloseForm()

	op := newPendingOp(OpCreate, req.IMEI)
	if !ack.Pending() {
		op.finish(OpSettled)
		v.notices.Success(fmt.Sprintf("Device %s registered.", req.IMEI))
		v.list.Load(ctx)
		return op, nil
	}
	v.notices.Success("Device creation queued successfully.")
	v.track(op)
	return op, nil
}

// Delete queues a device removal after confirmation.
func (v *DevicesView) Delete(ctx context.Context, imei string) (*PendingOp, error) {
	if !v.confirm.Confirm("Delete this device?") {
		return nil, ErrNotConfirmed
	}

	release, err := v.guard.begin("delete device")
	if err != nil {
		return nil, err
	}
	defer release()

	ack, err := v.api.DeleteDevice(ctx, imei)
	if err != nil {
		v.notices.Error(client.Reason(err, "Failed to queue device deletion"))
		return nil, err
	}

	op := newPendingOp(OpDelete, imei)
	if !ack.Pending() {
		op.finish(OpSettled)
		v.notices.Success(fmt.Sprintf("Device %s removed.", imei))
		v.list.Load(ctx)
		return op, nil
	}
	v.notices.Success("Device deletion queued.")
	v.track(op)
	return op, nil
}

func (v *DevicesView) track(op *PendingOp) {
	v.mu.Lock()
	v.pending = append(v.pending, op)
	ctx := v.ctx
	v.mu.Unlock()

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		v.settle(ctx, op)
	}()
}

// done removes op from the pending set before marking it finished.
func (v *DevicesView) done(op *PendingOp, state OpState) {
	v.mu.Lock()
	for i, p := range v.pending {
		if p == op {
			v.pending = append(v.pending[:i], v.pending[i+1:]...)
			break
		}
	}
	v.mu.Unlock()
	op.finish(state)
}

// settle re-lists with bounded retries until op is visible. A cancelled ctx
// ends polling quietly.
func (v *DevicesView) settle(ctx context.Context, op *PendingOp) {
	if !sleep(ctx, v.policy.InitialDelay) {
		v.done(op, OpUnsettled)
		return
	}

	for attempt := 1; attempt <= v.policy.MaxAttempts; attempt++ {
		op.setPolling(attempt)
		err := v.list.Load(ctx)
		if ctx.Err() != nil {
			v.done(op, OpUnsettled)
			return
		}
		if err == nil && op.visible(v.list.Items()) {
			if op.Kind == OpCreate {
				v.notices.Success(fmt.Sprintf("Device %s registered.", op.IMEI))
			} else {
				v.notices.Success(fmt.Sprintf("Device %s removed.", op.IMEI))
			}
			v.done(op, OpSettled)
			return
		}
		if attempt < v.policy.MaxAttempts && !sleep(ctx, v.policy.Interval) {
			v.done(op, OpUnsettled)
			return
		}
	}

	v.notices.Error(fmt.Sprintf("Device %s %s is still being processed; refresh later.", op.IMEI, op.Kind))
	v.done(op, OpUnsettled)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
