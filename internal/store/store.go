package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fleet-admin-console/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	CreateUser(ctx context.Context, u *model.User) error
	UpdateUserRole(ctx context.Context, id int64, role model.Role) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error

	ListMachines(ctx context.Context) ([]model.Machine, error)
	CreateMachine(ctx context.Context, name string) (*model.Machine, error)
	RenameMachine(ctx context.Context, id int64, name string) (*model.Machine, error)
	DeleteMachine(ctx context.Context, id int64) error
	ListStatuses(ctx context.Context, machineID int64) ([]model.MachineStatus, error)
	AddStatus(ctx context.Context, machineID int64, fields model.StatusFields) (*model.MachineStatus, error)

	ListDevices(ctx context.Context) ([]model.Device, error)
	DeviceExists(ctx context.Context, imei string) (bool, error)
	ApplyDevice(ctx context.Context, spec DeviceSpec) error
	RemoveDevice(ctx context.Context, imei string) error

	ListPermissions(ctx context.Context) ([]model.PermissionDetail, error)
	Grant(ctx context.Context, userID, machineID int64) (*model.Permission, error)
	Revoke(ctx context.Context, userID, machineID int64) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- users ---

func (s *gormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *gormStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *gormStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// CreateUser inserts u. A taken username yields ErrConflict.
func (s *gormStore) CreateUser(ctx context.Context, u *model.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.User{}).Where("username = ?", u.Username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("username %q: %w", u.Username, ErrConflict)
		}
		if err := tx.Create(u).Error; err != nil {
			return fmt.Errorf("failed to create user %q: %w", u.Username, err)
		}
		return nil
	})
}

func (s *gormStore) UpdateUserRole(ctx context.Context, id int64, role model.Role) (*model.User, error) {
	res := s.db.WithContext(ctx).Model(&model.User{ID: id}).Update("role", role)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update role of user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetUser(ctx, id)
}

// DeleteUser removes the user and every binding that references it.
func (s *gormStore) DeleteUser(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&model.Permission{}).Error; err != nil {
			return fmt.Errorf("failed to delete bindings of user %d: %w", id, err)
		}
		res := tx.Delete(&model.User{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete user %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- machines ---

// ListMachines returns every machine with its most recent status attached.
func (s *gormStore) ListMachines(ctx context.Context) ([]model.Machine, error) {
	db := s.db.WithContext(ctx)
	var machines []model.Machine
	if err := db.Order("id").Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	if len(machines) == 0 {
		return machines, nil
	}

	latest, err := s.fetchLatestStatuses(db)
	if err != nil {
		log.Printf("Warning: could not fetch current machine statuses: %v", err)
		return machines, nil
	}
	for i := range machines {
		if st, ok := latest[machines[i].ID]; ok {
			machines[i].Status = &st
		}
	}
	return machines, nil
}

// fetchLatestStatuses maps machine id to its newest status. Ids grow with
// insertion, so the max id per machine is the newest record.
func (s *gormStore) fetchLatestStatuses(db *gorm.DB) (map[int64]model.MachineStatus, error) {
	newest := db.Model(&model.MachineStatus{}).Select("MAX(id)").Group("machine_id")
	var statuses []model.MachineStatus
	if err := db.Where("id IN (?)", newest).Find(&statuses).Error; err != nil {
		return nil, err
	}
	out := make(map[int64]model.MachineStatus, len(statuses))
	for _, st := range statuses {
		out[st.MachineID] = st
	}
	return out, nil
}

func (s *gormStore) getMachine(db *gorm.DB, id int64) (*model.Machine, error) {
	var m model.Machine
	if err := db.First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *gormStore) CreateMachine(ctx context.Context, name string) (*model.Machine, error) {
	m := model.Machine{Name: name}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, fmt.Errorf("failed to create machine %q: %w", name, err)
	}
	return &m, nil
}

func (s *gormStore) RenameMachine(ctx context.Context, id int64, name string) (*model.Machine, error) {
	db := s.db.WithContext(ctx)
	res := db.Model(&model.Machine{ID: id}).Update("name", name)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to rename machine %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	m, err := s.getMachine(db, id)
	if err != nil {
		return nil, err
	}
	var st model.MachineStatus
	if err := db.Where("machine_id = ?", id).Order("id DESC").Limit(1).Find(&st).Error; err == nil && st.ID != 0 {
		m.Status = &st
	}
	return m, nil
}

// DeleteMachine removes the machine with its status history and bindings.
func (s *gormStore) DeleteMachine(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("machine_id = ?", id).Delete(&model.Permission{}).Error; err != nil {
			return fmt.Errorf("failed to delete bindings of machine %d: %w", id, err)
		}
		if err := tx.Where("machine_id = ?", id).Delete(&model.MachineStatus{}).Error; err != nil {
			return fmt.Errorf("failed to delete status history of machine %d: %w", id, err)
		}
		res := tx.Delete(&model.Machine{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete machine %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListStatuses returns the machine's history, newest first.
func (s *gormStore) ListStatuses(ctx context.Context, machineID int64) ([]model.MachineStatus, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.getMachine(db, machineID); err != nil {
		return nil, err
	}
	var statuses []model.MachineStatus
	if err := db.Where("machine_id = ?", machineID).Order("created_at DESC").Order("id DESC").Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("failed to list statuses of machine %d: %w", machineID, err)
	}
	return statuses, nil
}

// AddStatus appends a status record. History is never rewritten.
func (s *gormStore) AddStatus(ctx context.Context, machineID int64, fields model.StatusFields) (*model.MachineStatus, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.getMachine(db, machineID); err != nil {
		return nil, err
	}
	st := model.MachineStatus{MachineID: machineID, StatusFields: fields}
	if err := db.Create(&st).Error; err != nil {
		return nil, fmt.Errorf("failed to add status to machine %d: %w", machineID, err)
	}
	return &st, nil
}

// --- devices ---

func (s *gormStore) ListDevices(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	if err := s.db.WithContext(ctx).Order("id").Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

func (s *gormStore) DeviceExists(ctx context.Context, imei string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Device{}).Where("imei = ?", imei).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ApplyDevice upserts a device by IMEI and marks it provisioned.
func (s *gormStore) ApplyDevice(ctx context.Context, spec DeviceSpec) error {
	d := model.Device{
		IMEI:   spec.IMEI,
		Info:   spec.Info,
		Note:   spec.Note,
		Status: model.DeviceStatusProvisioned,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "imei"}},
		DoUpdates: clause.AssignmentColumns([]string{"info", "note", "status", "updated_at"}),
	}).Create(&d).Error
}

// RemoveDevice deletes a device by IMEI. A missing device is not an error.
func (s *gormStore) RemoveDevice(ctx context.Context, imei string) error {
	if err := s.db.WithContext(ctx).Where("imei = ?", imei).Delete(&model.Device{}).Error; err != nil {
		return fmt.Errorf("failed to remove device %s: %w", imei, err)
	}
	return nil
}

// --- permissions ---

// ListPermissions returns every binding with user and machine names.
func (s *gormStore) ListPermissions(ctx context.Context) ([]model.PermissionDetail, error) {
	var out []model.PermissionDetail
	err := s.db.WithContext(ctx).
		Table("permissions AS p").
		Select("p.id, p.user_id, p.machine_id, u.username, m.name AS machine_name, p.created_at").
		Joins("JOIN users u ON u.id = p.user_id").
		Joins("JOIN machines m ON m.id = p.machine_id").
		Order("p.id").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return out, nil
}

// Grant binds a user to a machine. Both must exist and the pair must be new.
func (s *gormStore) Grant(ctx context.Context, userID, machineID int64) (*model.Permission, error) {
	var p model.Permission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&model.User{}, userID).Error; err != nil {
			return fmt.Errorf("user %d: %w", userID, notFound(err))
		}
		if _, err := s.getMachine(tx, machineID); err != nil {
			return fmt.Errorf("machine %d: %w", machineID, err)
		}
		var n int64
		if err := tx.Model(&model.Permission{}).Where("user_id = ? AND machine_id = ?", userID, machineID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("user %d on machine %d: %w", userID, machineID, ErrConflict)
		}
		p = model.Permission{UserID: userID, MachineID: machineID}
		return tx.Create(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Revoke removes exactly the one matching binding.
func (s *gormStore) Revoke(ctx context.Context, userID, machineID int64) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND machine_id = ?", userID, machineID).Delete(&model.Permission{})
	if res.Error != nil {
		return fmt.Errorf("failed to revoke user %d from machine %d: %w", userID, machineID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
