package client

import (
	"context"
	"fmt"
	"net/http"

	"fleet-admin-console/internal/model"
)

func (c *Client) ListMachines(ctx context.Context) ([]model.Machine, error) {
	var machines []model.Machine
	_, err := c.do(ctx, request{op: "list machines", method: http.MethodGet, path: "/api/admin/machines", out: &machines})
	return machines, err
}

func (c *Client) CreateMachine(ctx context.Context, name string) (*model.Machine, error) {
	var machine model.Machine
	_, err := c.do(ctx, request{
		op:     "create machine",
		method: http.MethodPost,
		path:   "/api/admin/machines",
		body:   model.MachineRequest{Name: name},
		out:    &machine,
	})
	if err != nil {
		return nil, err
	}
	return &machine, nil
}

func (c *Client) UpdateMachine(ctx context.Context, id int64, name string) error {
	_, err := c.do(ctx, request{
		op:     "update machine",
		method: http.MethodPut,
		path:   fmt.Sprintf("/api/admin/machines/%d", id),
		body:   model.MachineRequest{Name: name},
	})
	return err
}

func (c *Client) DeleteMachine(ctx context.Context, id int64) error {
	_, err := c.do(ctx, request{op: "delete machine", method: http.MethodDelete, path: fmt.Sprintf("/api/admin/machines/%d", id)})
	return err
}

// ListMachineStatuses returns the status history of a machine in server order.
func (c *Client) ListMachineStatuses(ctx context.Context, machineID int64) ([]model.MachineStatus, error) {
	var statuses []model.MachineStatus
	_, err := c.do(ctx, request{
		op:     "list machine statuses",
		method: http.MethodGet,
		path:   fmt.Sprintf("/api/admin/machines/%d/status", machineID),
		out:    &statuses,
	})
	return statuses, err
}

// CreateMachineStatus appends a status record with the full payload.
func (c *Client) CreateMachineStatus(ctx context.Context, machineID int64, fields model.StatusFields) (*model.MachineStatus, error) {
	var status model.MachineStatus
	_, err := c.do(ctx, request{
		op:     "create machine status",
		method: http.MethodPost,
		path:   fmt.Sprintf("/api/admin/machines/%d/status", machineID),
		body:   fields,
		out:    &status,
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}
