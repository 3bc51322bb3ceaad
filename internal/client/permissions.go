package client

import (
	"context"
	"net/http"

	"fleet-admin-console/internal/model"
)

func (c *Client) ListPermissions(ctx context.Context) ([]model.PermissionDetail, error) {
	var perms []model.PermissionDetail
	_, err := c.do(ctx, request{op: "list permissions", method: http.MethodGet, path: "/api/admin/permissions", out: &perms})
	return perms, err
}

func (c *Client) GrantPermission(ctx context.Context, req model.PermissionRequest) error {
	_, err := c.do(ctx, request{op: "grant permission", method: http.MethodPost, path: "/api/admin/permissions", body: req})
	return err
}

// RevokePermission sends the pair in the body of a DELETE request.
func (c *Client) RevokePermission(ctx context.Context, req model.PermissionRequest) error {
	_, err := c.do(ctx, request{op: "revoke permission", method: http.MethodDelete, path: "/api/admin/permissions", body: req})
	return err
}
