package model

import "time"

// StatusFields is the telemetry/control payload of a status record. It is the
// full body of a status create; records are appended, never patched.
type StatusFields struct {
	IMEI           string   `gorm:"size:64" json:"imei"`
	FanOn          bool     `json:"fan_on"`
	PowderMotorOn  bool     `json:"powder_motor_on"`
	PowderOn       bool     `json:"powder_on"`
	PowderOff      bool     `json:"powder_off"`
	PumpInOn       bool     `json:"pump_in_on"`
	PumpOutOn      bool     `json:"pump_out_on"`
	MainSpeedRPM   int      `json:"main_speed_rpm"`
	MachineCycles  int      `json:"machine_cycles"`
	RunTestSet     bool     `json:"run_test_set"`
	RunTestSetG    *float64 `json:"run_test_set_g,omitempty"`
	ProcessingTime string   `gorm:"size:16" json:"processing_time"`
	RemainingTime  string   `gorm:"size:16" json:"remaining_time"`
	Min            int      `json:"min"`
}

// MachineStatus is a point-in-time snapshot tied to exactly one machine.
type MachineStatus struct {
	ID        int64 `gorm:"primaryKey" json:"id"`
	MachineID int64 `gorm:"index;not null" json:"machine_id"`
	StatusFields
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
