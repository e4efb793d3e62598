package garagedesksdk

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
)

// Client is a minimal Garagedesk HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Repair represents the API repair model.
type Repair struct {
	ID            string  `json:"id"`
	RequesterID   string  `json:"requester_id"`
	Vehicle       string  `json:"vehicle"`
	Problem       string  `json:"problem"`
	Tier          string  `json:"tier"`
	Status        string  `json:"status"`
	AssignedTo    *string `json:"assigned_to,omitempty"`
	CreatedAt     string  `json:"created_at"`
	LastUpdatedAt string  `json:"last_updated_at"`
}

// Invoice represents the API invoice model.
type Invoice struct {
	ID          string   `json:"id"`
	IssuerID    string   `json:"issuer_id"`
	PayerID     string   `json:"payer_id"`
	Vehicle     string   `json:"vehicle"`
	Description string   `json:"description"`
	Amount      int64    `json:"amount"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at"`
	PaidAt      *string  `json:"paid_at,omitempty"`
	DisputedAt  *string  `json:"disputed_at,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// StaffMember represents a roster entry.
type StaffMember struct {
	ActorID   string `json:"actor_id"`
	Rank      string `json:"rank"`
	Specialty string `json:"specialty,omitempty"`
	HiredBy   string `json:"hired_by"`
	HiredAt   string `json:"hired_at"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// Report represents a period summary.
type Report struct {
	Period   string         `json:"period"`
	Since    string         `json:"since"`
	Until    string         `json:"until"`
	Repairs  map[string]int `json:"repairs"`
	Invoices struct {
		Total    int   `json:"total"`
		Paid     int   `json:"paid"`
		Disputed int   `json:"disputed"`
		Pending  int   `json:"pending"`
		Revenue  int64 `json:"revenue"`
	} `json:"invoices"`
}

// Announcement represents a posted announcement.
type Announcement struct {
	ID       string `json:"id"`
	ActorID  string `json:"actor_id"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Surface  string `json:"surface"`
	PostedAt string `json:"posted_at"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// CreateRepair creates a repair request.
func (c *Client) CreateRepair(ctx context.Context, vehicle, problem, tier string) (Repair, error) {
	body := map[string]any{
		"vehicle": vehicle,
		"problem": problem,
	}
	if tier != "" {
		body["tier"] = tier
	}
	var resp Repair
	err := c.do(ctx, http.MethodPost, "v0/repairs", body, &resp)
	return resp, err
}

// GetRepair fetches a repair by id.
func (c *Client) GetRepair(ctx context.Context, id string) (Repair, error) {
	var resp Repair
	err := c.do(ctx, http.MethodGet, "v0/repairs/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListRepairs lists repairs, optionally filtered by status.
func (c *Client) ListRepairs(ctx context.Context, status string) ([]Repair, error) {
	endpoint := "v0/repairs"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp []Repair
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// TransitionRepair applies a lifecycle action (accept, reject, progress, complete).
func (c *Client) TransitionRepair(ctx context.Context, id, action string) (Repair, error) {
	var resp Repair
	endpoint := fmt.Sprintf("v0/repairs/%s/transition", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"action": action}, &resp)
	return resp, err
}

// IssueInvoice issues an invoice against a payer.
func (c *Client) IssueInvoice(ctx context.Context, payerID, vehicle, description string, amount int64) (Invoice, error) {
	body := map[string]any{
		"payer_id":    payerID,
		"vehicle":     vehicle,
		"description": description,
		"amount":      amount,
	}
	var resp Invoice
	err := c.do(ctx, http.MethodPost, "v0/invoices", body, &resp)
	return resp, err
}

// PayInvoice marks an invoice paid. Only the designated payer may call it.
func (c *Client) PayInvoice(ctx context.Context, id string) (Invoice, error) {
	var resp Invoice
	endpoint := fmt.Sprintf("v0/invoices/%s/pay", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// DisputeInvoice marks an invoice disputed. Only the designated payer may call it.
func (c *Client) DisputeInvoice(ctx context.Context, id string) (Invoice, error) {
	var resp Invoice
	endpoint := fmt.Sprintf("v0/invoices/%s/dispute", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// Roster lists the staff roster.
func (c *Client) Roster(ctx context.Context) ([]StaffMember, error) {
	var resp []StaffMember
	err := c.do(ctx, http.MethodGet, "v0/staff", nil, &resp)
	return resp, err
}

// Report fetches the activity summary for a period (daily, weekly, monthly).
func (c *Client) Report(ctx context.Context, period string) (Report, error) {
	var resp Report
	err := c.do(ctx, http.MethodGet, "v0/reports/"+url.PathEscape(period), nil, &resp)
	return resp, err
}

// Announce posts an announcement. Staff rank mechanic or above is required.
func (c *Client) Announce(ctx context.Context, title, body, kind string) (Announcement, error) {
	req := map[string]any{"body": body}
	if title != "" {
		req["title"] = title
	}
	if kind != "" {
		req["kind"] = kind
	}
	var resp Announcement
	err := c.do(ctx, http.MethodPost, "v0/announcements", req, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	if cursor != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint = fmt.Sprintf("%s%scursor=%s", endpoint, sep, url.QueryEscape(cursor))
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
