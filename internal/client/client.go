package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/publicmapping/planwatch/internal/model"

	"github.com/goccy/go-json"
)

// RequestError is an application-level rejection: the server answered the
// request but reported success=false.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return "client: request rejected by server"
	}
	return "client: " + e.Message
}

// Config holds the client's endpoint surface. Zero values fall back to the
// shared defaults.
type Config struct {
	BaseURL     string
	StatusPath  string
	PlansPath   string
	ReaggPrefix string
	ReaggSuffix string
	Username    string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client talks to the plan service over HTTP. It implements model.PlanAPI.
type Client struct {
	base        string
	statusPath  string
	plansPath   string
	reaggPrefix string
	reaggSuffix string
	username    string
	http        *http.Client
}

// New creates a plan-service client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = model.DefaultServerURL
	}
	if cfg.StatusPath == "" {
		cfg.StatusPath = model.DefaultStatusPath
	}
	if cfg.PlansPath == "" {
		cfg.PlansPath = model.DefaultPlansPath
	}
	if cfg.ReaggPrefix == "" {
		cfg.ReaggPrefix = model.DefaultReaggPrefix
	}
	if cfg.ReaggSuffix == "" {
		cfg.ReaggSuffix = model.DefaultReaggSuffix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		base:        strings.TrimRight(cfg.BaseURL, "/"),
		statusPath:  cfg.StatusPath,
		plansPath:   cfg.PlansPath,
		reaggPrefix: cfg.ReaggPrefix,
		reaggSuffix: cfg.ReaggSuffix,
		username:    cfg.Username,
		http:        httpClient,
	}
}

// statusResponse is the wire shape of the status query. Status keys arrive
// as decimal strings because JSON object keys are always strings.
type statusResponse struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Statuses map[string]string `json:"statuses"`
}

// PlanStatuses queries current processing state for the given plans.
func (c *Client) PlanStatuses(ctx context.Context, ids []model.PlanID) (model.StatusSnapshot, error) {
	params := url.Values{}
	params.Set("ids", joinIDs(ids))

	var resp statusResponse
	if err := c.getJSON(ctx, c.statusPath+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &RequestError{Message: resp.Message}
	}

	snap := make(model.StatusSnapshot, len(resp.Statuses))
	for key, state := range resp.Statuses {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("client: bad plan id %q in status response: %w", key, err)
		}
		snap[model.PlanID(id)] = model.ProcessingState(state)
	}
	return snap, nil
}

// reaggResponse is the wire shape of the reaggregation trigger.
type reaggResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Reaggregate triggers reaggregation of one plan.
func (c *Client) Reaggregate(ctx context.Context, id model.PlanID) error {
	path := c.reaggPrefix + strconv.FormatInt(int64(id), 10) + c.reaggSuffix

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}

	var resp reaggResponse
	if err := c.do(req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &RequestError{Message: resp.Message}
	}
	return nil
}

// plansResponse is the wire shape of the plan listing.
type plansResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Plans   []model.Plan `json:"plans"`
}

// ListPlans fetches the plan rows for the given filter.
func (c *Client) ListPlans(ctx context.Context, filter model.FilterID) ([]model.Plan, error) {
	params := url.Values{}
	if filter != "" {
		params.Set("filter", string(filter))
	}
	if c.username != "" {
		params.Set("owner", c.username)
	}
	path := c.plansPath
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp plansResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &RequestError{Message: resp.Message}
	}
	return resp.Plans, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("client: %s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

func joinIDs(ids []model.PlanID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(int64(id), 10)
	}
	return strings.Join(parts, ",")
}
