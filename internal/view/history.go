package view

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"fleet-admin-console/internal/client"
	"fleet-admin-console/internal/model"
	"fleet-admin-console/internal/parse"
)

// StatusAPI is the status sub-resource of a machine.
type StatusAPI interface {
	ListMachineStatuses(ctx context.Context, machineID int64) ([]model.MachineStatus, error)
	CreateMachineStatus(ctx context.Context, machineID int64, fields model.StatusFields) (*model.MachineStatus, error)
}

// HistoryView shows the append-only status history of one machine and a
// draft for the next record.
type HistoryView struct {
	api          StatusAPI
	notices      *Notifier
	list         *List[model.MachineStatus]
	reloadParent func(context.Context) error
	guard        guard

	mu      sync.Mutex
	machine model.Machine
	draft   model.StatusFields
}

func newHistoryView(api StatusAPI, notices *Notifier, m model.Machine, reloadParent func(context.Context) error) *HistoryView {
	v := &HistoryView{
		api:          api,
		notices:      notices,
		machine:      m,
		reloadParent: reloadParent,
	}
	v.list = NewList(func(ctx context.Context) ([]model.MachineStatus, error) {
		statuses, err := api.ListMachineStatuses(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		SortNewestFirst(statuses)
		return statuses, nil
	})
	return v
}

// SortNewestFirst orders statuses by creation time, newest first, breaking
// ties by id.
func SortNewestFirst(statuses []model.MachineStatus) {
	sort.SliceStable(statuses, func(i, j int) bool {
		a, b := statuses[i], statuses[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// Open loads the history and pre-fills the draft from the current status.
func (v *HistoryView) Open(ctx context.Context) error {
	v.mu.Lock()
	if v.machine.Status != nil {
		v.draft = v.machine.Status.StatusFields
	} else {
		v.draft = model.StatusFields{}
	}
	v.mu.Unlock()
	return v.list.Load(ctx)
}

func (v *HistoryView) Machine() model.Machine {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.machine
}

func (v *HistoryView) Snapshot() Snapshot[model.MachineStatus] { return v.list.Snapshot() }

func (v *HistoryView) Draft() model.StatusFields {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

func (v *HistoryView) SetDraft(f model.StatusFields) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.draft = f
}

// TimeHints lists the time fields of f that do not read as HH:MM[:SS]. They
// are informational only; Submit sends the values as entered.
func TimeHints(f model.StatusFields) []string {
	var hints []string
	if !parse.IsTimeOfDay(f.ProcessingTime) {
		hints = append(hints, fmt.Sprintf("Processing time %q is not HH:MM[:SS]; it is sent as entered.", strings.TrimSpace(f.ProcessingTime)))
	}
	if !parse.IsTimeOfDay(f.RemainingTime) {
		hints = append(hints, fmt.Sprintf("Remaining time %q is not HH:MM[:SS]; it is sent as entered.", strings.TrimSpace(f.RemainingTime)))
	}
	return hints
}

// Submit appends the draft as a new status record, then reloads the history
// and the parent machine list.
func (v *HistoryView) Submit(ctx context.Context) error {
	draft := v.Draft()
	draft.ProcessingTime = strings.TrimSpace(draft.ProcessingTime)
	draft.RemainingTime = strings.TrimSpace(draft.RemainingTime)

	release, err := v.guard.begin("add status")
	if err != nil {
		return err
	}
	defer release()

	machine := v.Machine()
	created, err := v.api.CreateMachineStatus(ctx, machine.ID, draft)
	if err != nil {
		v.notices.Error(client.Reason(err, "Failed to add status"))
		return err
	}

	v.mu.Lock()
	v.draft = draft
	if created != nil {
		v.machine.Status = created
	}
	v.mu.Unlock()

	v.notices.Success("Status recorded.")
	v.list.Load(ctx)
	if v.reloadParent != nil {
		v.reloadParent(ctx)
	}
	return nil
}
