// Package gh implements the GitHub REST client the resolver depends on:
// CODEOWNERS content retrieval with ETag revalidation, team membership
// listing, and file existence probes.
package gh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/toto-dev/mcp-server-github-codeowners/internal/model"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/ownership"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/util"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/worker"
)

// ErrNotFound is returned when the requested content, file or team does not
// exist (or is not visible with the configured token).
var ErrNotFound = errors.New("not found")

const maxBodyBytes = 1 << 20 // CODEOWNERS files and member pages are small

// codeownersLocations are the paths GitHub consults, in precedence order.
var codeownersLocations = []string{".github/CODEOWNERS", "CODEOWNERS", "docs/CODEOWNERS"}

// Client is a minimal GitHub REST API client. It keeps ETags per fetched
// content URL so callers can revalidate cached bodies cheaply.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userAgent  string
	limiter    *worker.Limiter

	mu    sync.Mutex
	etags map[string]string
}

// NewClient creates a client from the GitHub configuration
func NewClient(cfg model.GitHubConfig) *Client {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy),
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		token:     cfg.Token,
		userAgent: cfg.UserAgent,
		limiter:   worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		etags:     make(map[string]string),
	}
}

// FetchResult is the outcome of a conditional content fetch
type FetchResult struct {
	Source      ownership.Source
	NotModified bool // Cached body is still valid (HTTP 304)
}

// FetchCodeowners retrieves the repository's CODEOWNERS file, trying
// GitHub's supported locations in precedence order. When revalidate is true
// a stored ETag is sent so an unchanged file comes back as NotModified with
// an empty body.
func (c *Client) FetchCodeowners(ctx context.Context, owner, repo, branch string, revalidate bool) (*FetchResult, error) {
	for _, location := range codeownersLocations {
		res, err := c.fetchContent(ctx, owner, repo, location, branch, revalidate)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return res, nil
	}
	return nil, fmt.Errorf("no CODEOWNERS file in %s/%s@%s: %w", owner, repo, branch, ErrNotFound)
}

// fetchContent performs a conditional raw-content request for one path
func (c *Client) fetchContent(ctx context.Context, owner, repo, path, branch string, revalidate bool) (*FetchResult, error) {
	rawURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		c.baseURL, owner, repo, path, url.QueryEscape(branch))

	req, err := c.newRequest(ctx, rawURL, "application/vnd.github.v3.raw")
	if err != nil {
		return nil, err
	}

	etagKey := rawURL
	if revalidate {
		if etag := c.etag(etagKey); etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		slog.Debug("codeowners not modified", "url", rawURL)
		return &FetchResult{
			Source:      ownership.Source{Path: path},
			NotModified: true,
		}, nil
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		c.setETag(etagKey, resp.Header.Get("ETag"))
		slog.Debug("fetched codeowners", "url", rawURL, "bytes", len(body))
		return &FetchResult{
			Source: ownership.Source{Path: path, Content: string(body)},
		}, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}
}

// FileExists reports whether the given path exists on the branch
func (c *Client) FileExists(ctx context.Context, owner, repo, path, branch string) (bool, error) {
	rawURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		c.baseURL, owner, repo, path, url.QueryEscape(branch))

	req, err := c.newRequest(ctx, rawURL, "application/vnd.github.v3+json")
	if err != nil {
		return false, err
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("check existence of %s: unexpected status %d", path, resp.StatusCode)
	}
}

func (c *Client) newRequest(ctx context.Context, rawURL, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx, req.URL.Host); err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL, err)
	}
	return resp, nil
}

func (c *Client) etag(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.etags[key]
}

func (c *Client) setETag(key, value string) {
	if value == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.etags[key] = value
}
