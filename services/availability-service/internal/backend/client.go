// Package backend talks to the clinic booking backend: the clinic directory,
// the list of scheduled appointments and the pre-appointment endpoint.
package backend

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

	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	clinicsPath   = "/clinic/"
	scheduledPath = "/appointment/get_scheduled/"
	schedulePath  = "/appointment/schedule/"
	patientPath   = "/patient/"

	maxResponseBytes = 8 << 20
)

// StatusError is returned for any non-2xx backend answer.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s: unexpected status %d: %s", e.Op, e.Status, e.Body)
}

// IsConflict reports a backend refusal because the slot is already taken.
func IsConflict(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusConflict
}

type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

type Client struct {
	baseURL  *url.URL
	http     *http.Client
	username string
	password string
}

func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = "http://localhost:8000"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: u,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		username: cfg.Username,
		password: cfg.Password,
	}, nil
}

func (c *Client) ListClinics(ctx context.Context) ([]model.Clinic, error) {
	var clinics []model.Clinic
	if err := c.do(ctx, "list clinics", http.MethodGet, clinicsPath, nil, nil, &clinics); err != nil {
		return nil, err
	}
	return clinics, nil
}

// ListScheduled returns the appointments booked at clinicID. The backend only
// exposes every clinic's appointments at once, so they are filtered here.
func (c *Client) ListScheduled(ctx context.Context, clinicID int64) ([]model.ScheduledAppointment, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "list scheduled", http.MethodGet, scheduledPath, nil, nil, &raw); err != nil {
		return nil, err
	}
	entries, err := decodeScheduled(raw)
	if err != nil {
		return nil, fmt.Errorf("backend list scheduled: %w", err)
	}

	out := make([]model.ScheduledAppointment, 0, len(entries))
	for _, e := range entries {
		appt, ok := e.toModel()
		if !ok || appt.ClinicID != clinicID {
			continue
		}
		out = append(out, appt)
	}
	return out, nil
}

// ScheduleRequest is the pre-appointment request the widget submits.
type ScheduleRequest struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	CountryCode string    `json:"country_code"`
	ClinicID    int64     `json:"clinic"`
	PlanID      int64     `json:"plan"`
	Time        time.Time `json:"time"`
}

func (c *Client) SchedulePreAppointment(ctx context.Context, req ScheduleRequest, idempotencyKey string) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	headers := http.Header{}
	if idempotencyKey != "" {
		headers.Set("Idempotency-Key", idempotencyKey)
	}
	return c.do(ctx, "schedule appointment", http.MethodPost, schedulePath, headers, body, nil)
}

// Ping succeeds when the backend answers the clinic listing at all.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, clinicsPath, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, headers http.Header, body []byte, out any) error {
	u := *c.baseURL
	u.Path += path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s: %w", op, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("backend %s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, Status: resp.StatusCode, Body: truncate(string(payload), 256)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("backend %s: decode: %w", op, err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
