package client

import (
	"context"
	"fmt"
	"net/http"

	"fleet-admin-console/internal/model"
)

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	_, err := c.do(ctx, request{op: "list users", method: http.MethodGet, path: "/api/admin/users", out: &users})
	return users, err
}

func (c *Client) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	var user model.User
	_, err := c.do(ctx, request{op: "create user", method: http.MethodPost, path: "/api/admin/users", body: req, out: &user})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateUserRole(ctx context.Context, id int64, role model.Role) error {
	_, err := c.do(ctx, request{
		op:     "update user role",
		method: http.MethodPut,
		path:   fmt.Sprintf("/api/admin/users/%d", id),
		body:   model.UpdateUserRoleRequest{Role: role},
	})
	return err
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	_, err := c.do(ctx, request{op: "delete user", method: http.MethodDelete, path: fmt.Sprintf("/api/admin/users/%d", id)})
	return err
}
