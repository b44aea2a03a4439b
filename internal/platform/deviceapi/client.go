// Package deviceapi talks to the vendor HTTP bridge in front of a biometric
// terminal. Every call carries the Device-ID header; failures are wrapped in
// attendance.ErrRemoteUnavailable and never retried here.
package deviceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hrsync/internal/domain/attendance"
)

const (
	DeviceIDHeader = "Device-ID"
	maxErrorBody   = 512
)

type Client struct {
	baseURL  string
	deviceID string
	http     *http.Client
}

func New(baseURL, deviceID string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		deviceID: deviceID,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) DeviceID() string {
	return c.deviceID
}

// FetchAttendances lists punches; filters are passed through as query
// parameters.
func (c *Client) FetchAttendances(ctx context.Context, filters map[string]string) ([]RawAttendance, error) {
	var out []RawAttendance
	if err := c.do(ctx, http.MethodGet, "/attendances", filters, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []RawAttendance{}
	}
	return out, nil
}

func (c *Client) DeleteAttendances(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/attendances", nil, nil, nil)
}

func (c *Client) FetchUsers(ctx context.Context) ([]RawUser, error) {
	var out []RawUser
	if err := c.do(ctx, http.MethodGet, "/users", nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []RawUser{}
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, user NewUser) error {
	return c.do(ctx, http.MethodPost, "/users", nil, user, nil)
}

func (c *Client) DeleteUser(ctx context.Context, uid string) error {
	return c.do(ctx, http.MethodDelete, "/user/"+url.PathEscape(uid), nil, nil, nil)
}

// Status probes the bridge. A down device is reported in the returned
// Status as well as the error.
func (c *Client) Status(ctx context.Context) (Status, error) {
	status := Status{DeviceID: c.deviceID, State: StateDown}
	code, err := c.send(ctx, http.MethodGet, "/status", nil, nil, nil)
	status.HTTPStatus = code
	if err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.State = StateActive
	return status, nil
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, out any) error {
	_, err := c.send(ctx, method, path, query, body, out)
	return err
}

func (c *Client) send(ctx context.Context, method, path string, query map[string]string, body, out any) (int, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + encodeQuery(query)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("deviceapi: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, fmt.Errorf("%w: build %s %s: %w", attendance.ErrRemoteUnavailable, method, path, err)
	}
	req.Header.Set(DeviceIDHeader, c.deviceID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %w", attendance.ErrRemoteUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, fmt.Errorf("%w: %s %s: status %d: %s",
			attendance.ErrRemoteUnavailable, method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: decode %s %s: %w", attendance.ErrRemoteUnavailable, method, path, err)
	}
	return resp.StatusCode, nil
}

func encodeQuery(params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}
