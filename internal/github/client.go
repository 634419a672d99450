// Package github is a small token-authenticated client for the GitHub REST API
// plus the token format pre-check used by the dashboard.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aatumaykin/ghbackup/internal/logger"
	"github.com/aatumaykin/ghbackup/internal/retry"
)

const (
	DefaultBaseURL   = "https://api.github.com"
	DefaultUserAgent = "GitHub-Backup-App/1.0"
	maxPerPage       = 100
)

// Config represents client configuration.
type Config struct {
	BaseURL       string
	Token         string
	UserAgent     string
	Timeout       time.Duration
	PerPage       int
	RetryAttempts int
	RetryBackoff  time.Duration
	HTTPClient    *http.Client
	Logger        *logger.Logger
}

// Client talks to the GitHub REST API on behalf of one token.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	perPage   int
	retry     retry.Config
	http      *http.Client
	logger    *logger.Logger
}

// NewClient creates a client, applying defaults for empty fields.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PerPage <= 0 || cfg.PerPage > maxPerPage {
		cfg.PerPage = maxPerPage
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	log := cfg.Logger.Component("github")
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.Token,
		userAgent: cfg.UserAgent,
		perPage:   cfg.PerPage,
		retry: retry.Config{
			MaxAttempts:    cfg.RetryAttempts,
			InitialBackoff: cfg.RetryBackoff,
			Logger:         log,
		},
		http:   httpClient,
		logger: log,
	}
}

// TestConnection checks that the token is accepted by GitHub.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.User(ctx)
	return err
}

// User returns the authenticated user.
func (c *Client) User(ctx context.Context) (*User, error) {
	var u User
	if err := c.get(ctx, "/user", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListRepositories returns every repository visible to the token, most recently updated first.
// Paging stops on an empty or short page.
func (c *Client) ListRepositories(ctx context.Context) ([]Repository, error) {
	var all []Repository
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(c.perPage))
		q.Set("sort", "updated")
		q.Set("direction", "desc")

		var batch []Repository
		if err := c.get(ctx, "/user/repos", q, &batch); err != nil {
			return nil, fmt.Errorf("failed to fetch repositories from GitHub: %w", err)
		}
		all = append(all, batch...)

		if len(batch) < c.perPage {
			break
		}
	}

	c.logger.InfoCtx(ctx, "retrieved repositories", logger.Field{Key: "count", Value: len(all)})
	return all, nil
}

// Repository returns details of one repository by "owner/name".
func (c *Client) Repository(ctx context.Context, fullName string) (*Repository, error) {
	var r Repository
	if err := c.get(ctx, "/repos/"+fullName, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Branches returns the branches of a repository.
func (c *Client) Branches(ctx context.Context, fullName string) ([]Branch, error) {
	var branches []Branch
	if err := c.get(ctx, "/repos/"+fullName+"/branches", nil, &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

// RateLimit returns the core API quota for the token.
func (c *Client) RateLimit(ctx context.Context) (*RateLimit, error) {
	var resp struct {
		Resources struct {
			Core RateLimit `json:"core"`
		} `json:"resources"`
	}
	if err := c.get(ctx, "/rate_limit", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Resources.Core, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := retry.Do(ctx, c.retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.do(ctx, http.MethodGet, path, query, out)
	})
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &msg)
		return &APIError{StatusCode: resp.StatusCode, Method: method, Path: path, Message: msg.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
