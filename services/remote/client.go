// Package remote talks to the REST booking source.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"metisconnect/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client is the booking source API client.
type Client struct {
	http      *resty.Client
	healthURL string
	logger    *zap.Logger
}

// Options configures NewClient.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")
	if opts.Token != "" {
		rc.SetAuthToken(opts.Token)
	}
	return &Client{http: rc, healthURL: healthURL(opts.BaseURL), logger: logger}
}

// healthURL points at /health on the API host; the booking API serves
// it outside its /api prefix.
func healthURL(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return strings.TrimRight(base, "/") + "/health"
	}
	u.Path = "/health"
	u.RawQuery = ""
	return u.String()
}

// errorBody is the FastAPI error envelope; detail may be a string or a
// list of validation problems.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func (b *errorBody) text() string {
	if len(b.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Detail, &s); err == nil {
		return s
	}
	return string(b.Detail)
}

// GetAvailability queries slots between start and end at the given
// granularity.
func (c *Client) GetAvailability(ctx context.Context, start, end time.Time, durationMinutes int) ([]models.RemoteSlot, error) {
	var out models.AvailabilityResponse
	var apiErr errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"start_date":       start.Format(time.RFC3339),
			"end_date":         end.Format(time.RFC3339),
			"duration_minutes": strconv.Itoa(durationMinutes),
		}).
		SetResult(&out).
		SetError(&apiErr).
		Get("/appointments/availability")
	if err := c.check("availability", resp, err, &apiErr); err != nil {
		return nil, err
	}
	return out.AvailableSlots, nil
}

// CreateAppointment issues POST /appointments.
func (c *Client) CreateAppointment(ctx context.Context, req models.CreateAppointmentRequest) (*models.Appointment, error) {
	var out models.Appointment
	var apiErr errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/appointments")
	if err := c.check("create appointment", resp, err, &apiErr); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &APIError{Status: resp.StatusCode(), Detail: "response carried no appointment id"}
	}
	return &out, nil
}

// ListAppointments issues GET /appointments. An empty status lists all.
func (c *Client) ListAppointments(ctx context.Context, status models.AppointmentStatus) ([]models.Appointment, error) {
	var out []models.Appointment
	var apiErr errorBody
	r := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", "100").
		SetResult(&out).
		SetError(&apiErr)
	if status != "" {
		r.SetQueryParam("status_filter", string(status))
	}
	resp, err := r.Get("/appointments")
	if err := c.check("list appointments", resp, err, &apiErr); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Appointment{}
	}
	return out, nil
}

// UpdateStatus issues PUT /appointments/{id}/status. Servers that only
// acknowledge the change return nil without error; the caller echoes the
// status itself.
func (c *Client) UpdateStatus(ctx context.Context, id models.AppointmentID, status models.AppointmentStatus) (*models.Appointment, error) {
	var apiErr errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id.String()).
		SetQueryParam("new_status", string(status)).
		SetBody(map[string]string{"new_status": string(status)}).
		SetError(&apiErr).
		Put("/appointments/{id}/status")
	if err := c.check("update status", resp, err, &apiErr); err != nil {
		return nil, err
	}

	var updated models.Appointment
	if jsonErr := json.Unmarshal(resp.Body(), &updated); jsonErr != nil || updated.ID == "" {
		return nil, nil
	}
	return &updated, nil
}

// CancelAppointment issues DELETE /appointments/{id}.
func (c *Client) CancelAppointment(ctx context.Context, id models.AppointmentID) error {
	var apiErr errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id.String()).
		SetError(&apiErr).
		Delete("/appointments/{id}")
	return c.check("cancel appointment", resp, err, &apiErr)
}

// Ping reports whether the booking API answers at all.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get(c.healthURL)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("health returned %d", resp.StatusCode())
	}
	return nil
}

func (c *Client) check(op string, resp *resty.Response, err error, body *errorBody) error {
	if err != nil {
		c.logger.Warn("booking api call failed", zap.String("op", op), zap.Error(err))
		return &TransientNetworkError{Op: op, Err: err}
	}
	if !resp.IsError() {
		return nil
	}

	detail := body.text()
	status := resp.StatusCode()
	c.logger.Warn("booking api rejected call",
		zap.String("op", op), zap.Int("status", status), zap.String("detail", detail))

	switch {
	case status == http.StatusConflict, mentionsSlotTaken(detail):
		return fmt.Errorf("%s: %w", op, ErrSlotTaken)
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case status >= http.StatusInternalServerError:
		return &TransientNetworkError{Op: op, Err: &APIError{Status: status, Detail: detail}}
	default:
		return &APIError{Status: status, Detail: detail}
	}
}

// The booking API reports a lost slot race as a 400 (sometimes wrapped in
// a 500) whose detail says the slot is not available.
func mentionsSlotTaken(detail string) bool {
	d := strings.ToLower(detail)
	return strings.Contains(d, "slot") && strings.Contains(d, "not available")
}
