package client

import (
	"context"
	"net/http"
	"net/url"

	"fleet-admin-console/internal/model"
)

func (c *Client) ListDevices(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	_, err := c.do(ctx, request{op: "list devices", method: http.MethodGet, path: "/api/devices", out: &devices})
	return devices, err
}

// CreateDevice queues a device registration. The returned Ack is pending when
// the backend accepted the request without applying it.
func (c *Client) CreateDevice(ctx context.Context, req model.CreateDeviceRequest) (Ack, error) {
	status, err := c.do(ctx, request{op: "create device", method: http.MethodPost, path: "/api/devices", body: req})
	if err != nil {
		return Ack{}, err
	}
	return Ack{StatusCode: status}, nil
}

// DeleteDevice queues a device removal.
func (c *Client) DeleteDevice(ctx context.Context, imei string) (Ack, error) {
	status, err := c.do(ctx, request{op: "delete device", method: http.MethodDelete, path: "/api/devices/" + url.PathEscape(imei)})
	if err != nil {
		return Ack{}, err
	}
	return Ack{StatusCode: status}, nil
}
