package model

import "time"

// Permission binds one user to one machine. A pair is bound at most once.
type Permission struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_permission_user_machine" json:"user_id"`
	MachineID int64     `gorm:"not null;uniqueIndex:idx_permission_user_machine;index" json:"machine_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PermissionRequest is the body of grant and revoke calls.
type PermissionRequest struct {
	UserID    int64 `json:"user_id" binding:"required"`
	MachineID int64 `json:"machine_id" binding:"required"`
}

// PermissionDetail is the denormalized listing form of a binding.
type PermissionDetail struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	MachineID   int64     `json:"machine_id"`
	Username    string    `json:"username"`
	MachineName string    `json:"machine_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Matches reports whether the binding ties the given pair.
func (p PermissionDetail) Matches(userID, machineID int64) bool {
	return p.UserID == userID && p.MachineID == machineID
}
