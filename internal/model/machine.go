package model

import "time"

// Machine is a piece of production equipment. Status is the most recently
// created MachineStatus, or nil when no telemetry was ever received.
type Machine struct {
	ID        int64          `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:256;not null" json:"name"`
	Status    *MachineStatus `gorm:"-" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// MachineRequest is the body of machine create and rename calls.
type MachineRequest struct {
	Name string `json:"name" binding:"required"`
}
