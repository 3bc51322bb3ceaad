package model

import "time"

// DeviceStatusProvisioned is the server-computed status of an applied device.
const DeviceStatusProvisioned = "provisioned"

// Device is an IoT gateway identified by its IMEI.
type Device struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	IMEI      string    `gorm:"uniqueIndex;size:64;not null" json:"imei"`
	Info      string    `gorm:"size:512" json:"info"`
	Status    string    `gorm:"size:32" json:"status"`
	Note      string    `gorm:"size:512" json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateDeviceRequest is the body of POST /api/devices.
type CreateDeviceRequest struct {
	IMEI string `json:"imei" binding:"required"`
	Info string `json:"info"`
	Note string `json:"note"`
}
