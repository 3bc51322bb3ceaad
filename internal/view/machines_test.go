package view

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-admin-console/internal/model"
)

func TestMachinesView_CreateAndRename(t *testing.T) {
	api := newFakeAPI()
	v := NewMachinesView(api, api, NewNotifier(time.Minute), Preconfirmed)
	ctx := context.Background()

	v.OpenCreate()
	require.NoError(t, v.Submit(ctx, "Washer 1"))
	require.Len(t, v.Snapshot().Items, 1)

	require.NoError(t, v.OpenEdit(1))
	assert.Equal(t, Form{Open: true, EditID: 1, Name: "Washer 1"}, v.Form())

	require.NoError(t, v.Submit(ctx, "Washer A"))
	assert.Equal(t, 1, api.count("CreateMachine"))
	assert.Equal(t, 1, api.count("UpdateMachine"))
	assert.Equal(t, "Washer A", v.Snapshot().Items[0].Name)
	assert.False(t, v.Form().Open)

	assert.ErrorIs(t, v.OpenEdit(99), ErrNotFound)
}

func TestMachinesView_SubmitFailureKeepsForm(t *testing.T) {
	api := newFakeAPI()
	v := NewMachinesView(api, api, NewNotifier(time.Minute), Preconfirmed)
	api.fail("CreateMachine", assert.AnError)

	v.OpenCreate()
	require.Error(t, v.Submit(context.Background(), "Dryer"))
	assert.Equal(t, "Operation failed", v.Form().Error)

	assert.ErrorIs(t, v.Submit(context.Background(), "  "), ErrInvalidInput)
	assert.Equal(t, 1, api.count("CreateMachine"))
}

func TestMachinesView_DeclinedDelete(t *testing.T) {
	api := newFakeAPI()
	v := NewMachinesView(api, api, NewNotifier(time.Minute), &declining{})

	assert.ErrorIs(t, v.Delete(context.Background(), 1), ErrNotConfirmed)
	assert.Zero(t, api.count("DeleteMachine"))
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	statuses := []model.MachineStatus{
		{ID: 1, CreatedAt: base},
		{ID: 3, CreatedAt: base.Add(time.Minute)},
		{ID: 2, CreatedAt: base},
	}
	SortNewestFirst(statuses)

	var ids []int64
	for _, s := range statuses {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []int64{3, 2, 1}, ids)
}

func TestHistoryView_OpenAndSubmit(t *testing.T) {
	api := newFakeAPI()
	current := &model.MachineStatus{ID: 5, MachineID: 1, StatusFields: model.StatusFields{IMEI: "123", MainSpeedRPM: 900}}
	api.machines = []model.Machine{{ID: 1, Name: "Washer", Status: current}}
	v := NewMachinesView(api, api, NewNotifier(time.Minute), Preconfirmed)
	ctx := context.Background()
	require.NoError(t, v.Load(ctx))

	h, err := v.OpenHistory(1)
	require.NoError(t, err)
	require.NoError(t, h.Open(ctx))
	assert.Equal(t, 900, h.Draft().MainSpeedRPM, "the draft starts from the current status")
	assert.True(t, h.Snapshot().Empty())

	draft := h.Draft()
	draft.MainSpeedRPM = 1200
	draft.ProcessingTime = "1:05"
	h.SetDraft(draft)
	require.NoError(t, h.Submit(ctx))

	assert.Equal(t, "1:05", h.Draft().ProcessingTime)
	require.NotNil(t, h.Machine().Status)
	assert.Equal(t, 1200, h.Machine().Status.MainSpeedRPM)
	assert.Len(t, h.Snapshot().Items, 1)
	assert.Equal(t, 2, api.count("ListMachines"), "the machine list is refreshed too")
}

func TestHistoryView_SendsTimesAsEntered(t *testing.T) {
	api := newFakeAPI()
	api.machines = []model.Machine{{ID: 1, Name: "Washer"}}
	v := NewMachinesView(api, api, NewNotifier(time.Minute), Preconfirmed)
	require.NoError(t, v.Load(context.Background()))

	h, err := v.OpenHistory(1)
	require.NoError(t, err)
	require.NoError(t, h.Open(context.Background()))
	assert.Equal(t, model.StatusFields{}, h.Draft())

	for _, raw := range []string{"36:00:00", "1:05 PM", " 00:45 "} {
		h.SetDraft(model.StatusFields{ProcessingTime: raw, RemainingTime: raw})
		require.NoError(t, h.Submit(context.Background()), raw)
	}
	sent := api.statuses[1]
	require.Len(t, sent, 3)
	assert.Equal(t, "36:00:00", sent[0].RemainingTime)
	assert.Equal(t, "1:05 PM", sent[1].ProcessingTime)
	assert.Equal(t, "00:45", sent[2].RemainingTime, "only surrounding whitespace is trimmed")
}

func TestTimeHints(t *testing.T) {
	assert.Empty(t, TimeHints(model.StatusFields{ProcessingTime: "0:45"}))
	hints := TimeHints(model.StatusFields{ProcessingTime: "later", RemainingTime: "25:00"})
	require.Len(t, hints, 2)
	assert.Contains(t, hints[0], `"later"`)
	assert.Contains(t, hints[1], `"25:00"`)
}
