package view

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"fleet-admin-console/internal/client"
	"fleet-admin-console/internal/model"
)

// UserAPI is the slice of the backend the users screen needs.
type UserAPI interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error)
	UpdateUserRole(ctx context.Context, id int64, role model.Role) error
	DeleteUser(ctx context.Context, id int64) error
}

// UsersView is the users screen: list, create, role edit, delete.
type UsersView struct {
	api     UserAPI
	notices *Notifier
	confirm Confirmer
	list    *List[model.User]
	guard   guard

	mu   sync.Mutex
	form Form
}

func NewUsersView(api UserAPI, notices *Notifier, confirm Confirmer) *UsersView {
	return &UsersView{
		api:     api,
		notices: notices,
		confirm: confirm,
		list:    NewList(api.ListUsers),
	}
}

// Reset drops the loaded users and closes the form.
func (v *UsersView) Reset() {
	v.list.Reset()
	v.CloseForm()
}

// Load refreshes the list.
func (v *UsersView) Load(ctx context.Context) error {
	release, err := v.guard.begin("load users")
	if err != nil {
		return err
	}
	defer release()
	return v.list.Load(ctx)
}

func (v *UsersView) Snapshot() Snapshot[model.User] { return v.list.Snapshot() }

func (v *UsersView) Form() Form {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.form
}

func (v *UsersView) OpenForm() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.form = Form{Open: true}
}

func (v *UsersView) CloseForm() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.form = Form{}
}

func (v *UsersView) setFormError(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.form.Open = true
	v.form.Error = msg
}

// Create submits the new-user form and refreshes the list on success.
func (v *UsersView) Create(ctx context.Context, req model.CreateUserRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if req.Username == "" || req.Password == "" || !req.Role.Valid() {
		v.setFormError("Username, password and a role of admin or user are required.")
		return fmt.Errorf("create user: %w", ErrInvalidInput)
	}

	release, err := v.guard.begin("create user")
	if err != nil {
		return err
	}
	defer release()

	if _, err := v.api.CreateUser(ctx, req); err != nil {
		msg := client.Reason(err, "Failed to create user. Username might exist.")
		v.setFormError(msg)
		v.notices.Error(msg)
		return err
	}

	v.CloseForm()
	v.notices.Success(fmt.Sprintf("User %s created.", req.Username))
	v.list.Load(ctx)
	return nil
}

// UpdateRole changes a user's role. An empty or unchanged role is a no-op and
// reports false.
func (v *UsersView) UpdateRole(ctx context.Context, id int64, role model.Role) (bool, error) {
	role = model.Role(strings.TrimSpace(string(role)))
	current, ok := v.find(id)
	if !ok {
		return false, fmt.Errorf("update role of user %d: %w", id, ErrNotFound)
	}
	if role == "" || role == current.Role {
		return false, nil
	}
	if !role.Valid() {
		v.notices.Error("Role must be admin or user.")
		return false, fmt.Errorf("update role %q: %w", role, ErrInvalidInput)
	}

	release, err := v.guard.begin("update user role")
	if err != nil {
		return false, err
	}
	defer release()

	if err := v.api.UpdateUserRole(ctx, id, role); err != nil {
		v.notices.Error(client.Reason(err, "Failed to update role"))
		return false, err
	}
	v.notices.Success(fmt.Sprintf("%s is now %s.", current.Username, role))
	v.list.Load(ctx)
	return true, nil
}

// Delete removes a user after confirmation.
func (v *UsersView) Delete(ctx context.Context, id int64) error {
	if !v.confirm.Confirm("Delete user? This cannot be undone.") {
		return ErrNotConfirmed
	}

	release, err := v.guard.begin("delete user")
	if err != nil {
		return err
	}
	defer release()

	if err := v.api.DeleteUser(ctx, id); err != nil {
		v.notices.Error(client.Reason(err, "Failed to delete user"))
		return err
	}
	v.notices.Success("User deleted.")
	v.list.Load(ctx)
	return nil
}

func (v *UsersView) find(id int64) (model.User, bool) {
	for _, u := range v.list.Items() {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}
