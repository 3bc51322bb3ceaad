package view

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"fleet-admin-console/internal/client"
	"fleet-admin-console/internal/model"
)

// MachineAPI is the slice of the backend the machines screen needs.
type MachineAPI interface {
	ListMachines(ctx context.Context) ([]model.Machine, error)
	CreateMachine(ctx context.Context, name string) (*model.Machine, error)
	UpdateMachine(ctx context.Context, id int64, name string) error
	DeleteMachine(ctx context.Context, id int64) error
}

// MachinesView is the machines screen. The same form serves create and rename.
type MachinesView struct {
	api     MachineAPI
	status  StatusAPI
	notices *Notifier
	confirm Confirmer
	list    *List[model.Machine]
	guard   guard

	mu   sync.Mutex
	form Form
}

func NewMachinesView(api MachineAPI, status StatusAPI, notices *Notifier, confirm Confirmer) *MachinesView {
	return &MachinesView{
		api:     api,
		status:  status,
		notices: notices,
		confirm: confirm,
		list:    NewList(api.ListMachines),
	}
}

func (v *MachinesView) Reset() {
	v.list.Reset()
	v.CloseForm()
}

func (v *MachinesView) Load(ctx context.Context) error {
	release, err := v.guard.begin("load machines")
	if err != nil {
		return err
	}
	defer release()
	return v.list.Load(ctx)
}

func (v *MachinesView) Snapshot() Snapshot[model.Machine] { return v.list.Snapshot() }

func (v *MachinesView) Form() Form {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.form
}

// OpenCreate opens an empty form.
func (v *MachinesView) OpenCreate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.form = Form{Open: true}
}

// OpenEdit opens the form keyed by id, pre-filled with the current name.
func (v *MachinesView) OpenEdit(id int64) error {
	m, ok := v.find(id)
	if !ok {
		return fmt.Errorf("edit machine %d: %w", id, ErrNotFound)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.form = Form{Open: true, EditID: id, Name: m.Name}
	return nil
}

func (v *MachinesView) CloseForm() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.form = Form{}
}

// Submit creates or renames depending on the form mode.
func (v *MachinesView) Submit(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	form := v.Form()
	if name == "" {
		v.mu.Lock()
		v.form.Open = true
		v.form.Error = "Machine name is required."
		v.mu.Unlock()
		return fmt.Errorf("submit machine: %w", ErrInvalidInput)
	}

	release, err := v.guard.begin("submit machine")
	if err != nil {
		return err
	}
	defer release()

	if form.Editing() {
		err = v.api.UpdateMachine(ctx, form.EditID, name)
	} else {
		_, err = v.api.CreateMachine(ctx, name)
	}
	if err != nil {
		msg := client.Reason(err, "Operation failed")
		v.mu.Lock()
		v.form.Open = true
		v.form.Error = msg
		v.mu.Unlock()
		v.notices.Error(msg)
		return err
	}

	v.CloseForm()
	if form.Editing() {
		v.notices.Success(fmt.Sprintf("Machine renamed to %s.", name))
	} else {
		v.notices.Success(fmt.Sprintf("Machine %s created.", name))
	}
	v.list.Load(ctx)
	return nil
}

// Delete removes a machine after confirmation.
func (v *MachinesView) Delete(ctx context.Context, id int64) error {
	if !v.confirm.Confirm("Delete this machine? This action is irreversible.") {
		return ErrNotConfirmed
	}

	release, err := v.guard.begin("delete machine")
	if err != nil {
		return err
	}
	defer release()

	if err := v.api.DeleteMachine(ctx, id); err != nil {
		v.notices.Error(client.Reason(err, "Failed to delete machine"))
		return err
	}
	v.notices.Success("Machine deleted.")
	v.list.Load(ctx)
	return nil
}

// OpenHistory returns the status history view of a listed machine. The caller
// still has to Open it.
func (v *MachinesView) OpenHistory(id int64) (*HistoryView, error) {
	m, ok := v.find(id)
	if !ok {
		return nil, fmt.Errorf("open history of machine %d: %w", id, ErrNotFound)
	}
	return newHistoryView(v.status, v.notices, m, v.list.Load), nil
}

func (v *MachinesView) find(id int64) (model.Machine, bool) {
	for _, m := range v.list.Items() {
		if m.ID == id {
			return m, true
		}
	}
	return model.Machine{}, false
}
