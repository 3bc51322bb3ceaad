package view

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"fleet-admin-console/internal/model"
)

// StatsAPI lists every entity the dashboard counts.
type StatsAPI interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	ListMachines(ctx context.Context) ([]model.Machine, error)
	ListDevices(ctx context.Context) ([]model.Device, error)
}

// Stats are the dashboard counters.
type Stats struct {
	Users    int
	Machines int
	Devices  int
}

// LoadStats fetches the three lists in parallel. A list that fails to load
// counts as zero and is reported to logger.
func LoadStats(ctx context.Context, api StatsAPI, logger *log.Logger) Stats {
	var (
		stats Stats
		g     errgroup.Group
	)
	g.Go(func() error {
		users, err := api.ListUsers(ctx)
		if err != nil {
			logger.Printf("dashboard: loading users: %v", err)
			return nil
		}
		stats.Users = len(users)
		return nil
	})
	g.Go(func() error {
		machines, err := api.ListMachines(ctx)
		if err != nil {
			logger.Printf("dashboard: loading machines: %v", err)
			return nil
		}
		stats.Machines = len(machines)
		return nil
	})
	g.Go(func() error {
		devices, err := api.ListDevices(ctx)
		if err != nil {
			logger.Printf("dashboard: loading devices: %v", err)
			return nil
		}
		stats.Devices = len(devices)
		return nil
	})
	g.Wait()
	return stats
}
