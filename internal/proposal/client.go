package proposal

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
)

// Client is the surface of the change-tracking system the gate needs:
// append a comment and mutate the proposal's label set.
type Client interface {
	PostComment(ctx context.Context, body string) error
	AddLabel(ctx context.Context, name string) error
	RemoveLabel(ctx context.Context, name string) error
	Labels(ctx context.Context) ([]string, error)
}

// ErrLabelNotFound is returned by RemoveLabel when the label is not on
// the proposal. Reconciliation treats this as success; every other API
// failure propagates.
var ErrLabelNotFound = errors.New("label not found on change proposal")

type HTTPConfig struct {
	// BaseURL overrides the API endpoint, mainly for tests.
	// Empty means https://api.github.com.
	BaseURL string
	Token   string
	// Repo is the owner/name slug of the hosting repository.
	Repo string
	// Number is the change proposal (pull request / issue) number.
	Number int
}

// HTTPClient talks to a GitHub-style REST API. Comments and labels on a
// pull request go through the issues endpoints.
type HTTPClient struct {
	cfg  HTTPConfig
	http *http.Client
}

func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("proposal api token is required")
	}
	repo := strings.Trim(strings.TrimSpace(cfg.Repo), "/")
	if repo == "" || !strings.Contains(repo, "/") {
		return nil, fmt.Errorf("proposal repo must be an owner/name slug, got %q", cfg.Repo)
	}
	cfg.Repo = repo
	if cfg.Number <= 0 {
		return nil, fmt.Errorf("proposal number is required")
	}
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *HTTPClient) baseURL() string {
	if strings.TrimSpace(c.cfg.BaseURL) != "" {
		return strings.TrimRight(c.cfg.BaseURL, "/")
	}
	return "https://api.github.com"
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL()+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "cigate")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, raw, nil
}

func (c *HTTPClient) issuePath(suffix string) string {
	return fmt.Sprintf("/repos/%s/issues/%d%s", c.cfg.Repo, c.cfg.Number, suffix)
}

// PostComment creates one new comment on every call; there are no edit
// semantics, each gate run appends its own report.
func (c *HTTPClient) PostComment(ctx context.Context, body string) error {
	status, raw, err := c.do(ctx, http.MethodPost, c.issuePath("/comments"), map[string]string{"body": body})
	if err != nil {
		return fmt.Errorf("post comment: %w", err)
	}
	if status != http.StatusCreated {
		return fmt.Errorf("post comment: api status %d: %s", status, strings.TrimSpace(string(raw)))
	}
	return nil
}

// AddLabel is idempotent: the API treats adding an already-present label
// as success.
func (c *HTTPClient) AddLabel(ctx context.Context, name string) error {
	status, raw, err := c.do(ctx, http.MethodPost, c.issuePath("/labels"), map[string][]string{"labels": {name}})
	if err != nil {
		return fmt.Errorf("add label %q: %w", name, err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("add label %q: api status %d: %s", name, status, strings.TrimSpace(string(raw)))
	}
	return nil
}

// RemoveLabel maps a 404 to ErrLabelNotFound so callers can distinguish
// the one recoverable condition from real API failures.
func (c *HTTPClient) RemoveLabel(ctx context.Context, name string) error {
	status, raw, err := c.do(ctx, http.MethodDelete, c.issuePath("/labels/"+url.PathEscape(name)), nil)
	if err != nil {
		return fmt.Errorf("remove label %q: %w", name, err)
	}
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrLabelNotFound
	default:
		return fmt.Errorf("remove label %q: api status %d: %s", name, status, strings.TrimSpace(string(raw)))
	}
}

func (c *HTTPClient) Labels(ctx context.Context) ([]string, error) {
	status, raw, err := c.do(ctx, http.MethodGet, c.issuePath("/labels"), nil)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list labels: api status %d: %s", status, strings.TrimSpace(string(raw)))
	}
	var entries []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("list labels: parse response: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names, nil
}
