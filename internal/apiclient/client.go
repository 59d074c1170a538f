// Package apiclient is a Go client for the availability endpoints. Calendar
// reads go through a cache.Cache with query supersession, so a slow response
// for a week the caller has already navigated away from is dropped instead of
// overwriting the newer one.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rainbowtourguides/backend/internal/cache"
	"github.com/rainbowtourguides/backend/internal/domain"
	"github.com/rainbowtourguides/backend/internal/handler"
	"github.com/rainbowtourguides/backend/internal/middleware"
)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apiclient: %d %s: %s", e.Status, e.Code, e.Message)
}

// Client calls the API over HTTP.
type Client struct {
	baseURL   string
	http      *http.Client
	cache     *cache.Cache
	token     string
	visitorID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithVisitorID sets the anonymous visitor id header.
func WithVisitorID(id string) Option {
	return func(c *Client) { c.visitorID = id }
}

// New constructs a Client for baseURL (scheme and host, no trailing slash).
// c caches calendar responses; pass one with a short TTL for interactive use.
func New(baseURL string, c *cache.Cache, opts ...Option) *Client {
	cl := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		cache:   c,
	}
	for _, o := range opts {
		o(cl)
	}
	return cl
}

// ListAvailability returns the guide's calendar for [from, to). status may be
// empty. When a newer ListAvailability for the same guide with a different
// range starts before this one returns, this call fails with cache.ErrSuperseded.
func (c *Client) ListAvailability(ctx context.Context, guideID uuid.UUID, from, to time.Time, status domain.SlotStatus) (handler.CalendarResponse, error) {
	q := url.Values{}
	q.Set("guideId", guideID.String())
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("to", to.UTC().Format(time.RFC3339))
	if status != "" {
		q.Set("status", string(status))
	}

	raw, err := c.cache.Query(ctx, cache.AvailabilityResource(guideID),
		cache.AvailabilityParams(from, to, string(status)),
		func(ctx context.Context) ([]byte, error) {
			return c.do(ctx, http.MethodGet, "/api/availability?"+q.Encode(), nil, http.StatusOK)
		})
	if err != nil {
		return handler.CalendarResponse{}, fmt.Errorf("apiclient.ListAvailability: %w", err)
	}

	var cal handler.CalendarResponse
	if err := json.Unmarshal(raw, &cal); err != nil {
		return handler.CalendarResponse{}, fmt.Errorf("apiclient.ListAvailability: decode: %w", err)
	}
	return cal, nil
}

// CreateSlot publishes a new open slot and drops the guide's cached calendars.
func (c *Client) CreateSlot(ctx context.Context, req handler.CreateSlotRequest) (handler.SlotResponse, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/guides/availability", req, http.StatusCreated)
	if err != nil {
		return handler.SlotResponse{}, fmt.Errorf("apiclient.CreateSlot: %w", err)
	}
	c.invalidate(ctx, req.GuideID)

	var sl handler.SlotResponse
	if err := json.Unmarshal(raw, &sl); err != nil {
		return handler.SlotResponse{}, fmt.Errorf("apiclient.CreateSlot: decode: %w", err)
	}
	return sl, nil
}

// DeleteSlot removes an open slot of guideID and drops the guide's cached calendars.
func (c *Client) DeleteSlot(ctx context.Context, guideID, slotID uuid.UUID) error {
	if _, err := c.do(ctx, http.MethodDelete, "/api/availability/"+slotID.String(), nil, http.StatusNoContent); err != nil {
		return fmt.Errorf("apiclient.DeleteSlot: %w", err)
	}
	c.invalidate(ctx, guideID)
	return nil
}

// CloseSlot marks a slot of guideID closed and drops the guide's cached calendars.
func (c *Client) CloseSlot(ctx context.Context, guideID, slotID uuid.UUID) (handler.SlotResponse, error) {
	raw, err := c.do(ctx, http.MethodPatch, "/api/availability/"+slotID.String(),
		handler.PatchSlotRequest{Status: domain.SlotClosed}, http.StatusOK)
	if err != nil {
		return handler.SlotResponse{}, fmt.Errorf("apiclient.CloseSlot: %w", err)
	}
	c.invalidate(ctx, guideID)

	var sl handler.SlotResponse
	if err := json.Unmarshal(raw, &sl); err != nil {
		return handler.SlotResponse{}, fmt.Errorf("apiclient.CloseSlot: decode: %w", err)
	}
	return sl, nil
}

// invalidate never fails the mutation that triggered it. A failed store delete
// leaves entries to expire with the cache TTL.
func (c *Client) invalidate(ctx context.Context, guideID uuid.UUID) {
	_ = c.cache.InvalidatePrefix(ctx, cache.AvailabilityPrefix(guideID))
}

// do sends one request and returns the response body when the status matches want.
func (c *Client) do(ctx context.Context, method, path string, body any, want int) ([]byte, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.visitorID != "" {
		req.Header.Set(middleware.VisitorHeader, c.visitorID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != want {
		return nil, decodeError(resp.StatusCode, raw)
	}
	return raw, nil
}

func decodeError(status int, raw []byte) error {
	var env handler.ErrorResponse
	if err := json.Unmarshal(raw, &env); err != nil || env.Error.Code == "" {
		return &APIError{Status: status, Code: "unexpected_response", Message: http.StatusText(status)}
	}
	return &APIError{Status: status, Code: env.Error.Code, Message: env.Error.Message}
}

// IsConflict reports whether err is a 409 from the API.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}
