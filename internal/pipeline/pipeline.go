// Package pipeline wires the GitHub client, the declaration parser and the
// resolution engine together, with TTL plus ETag caching of CODEOWNERS
// content keyed by owner/repo@branch.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/toto-dev/mcp-server-github-codeowners/internal/cache"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/gh"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/model"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/ownership"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/resolve"
)

// ErrFileNotFound is returned by FileOwners when the queried path has no
// owners and does not exist on the branch either.
var ErrFileNotFound = errors.New("file not found in repository")

// Pipeline orchestrates the complete resolution flow for one process
type Pipeline struct {
	client  *gh.Client
	engine  *resolve.Engine
	store   cache.Cache
	ttl     time.Duration
	cacheOn bool
}

// New creates a pipeline from the given configuration
func New(cfg *model.Config) *Pipeline {
	var store cache.Cache
	if cfg.Cache.Dir != "" {
		store = cache.NewLayeredCache(cache.NoExpiration, cfg.Cache.Dir, cache.NoExpiration)
	} else {
		store = cache.NewMemoryCache(cache.NoExpiration, 10*time.Minute)
	}

	return &Pipeline{
		client:  gh.NewClient(cfg.GitHub),
		engine:  resolve.NewEngine(cfg.Resolve.MaxDepth, cfg.Resolve.Workers),
		store:   store,
		ttl:     cfg.Cache.TTL,
		cacheOn: cfg.Cache.Enabled,
	}
}

// cachedSource is the cache envelope for one repository's CODEOWNERS file.
// Entries never expire out of the store; FetchedAt drives the freshness
// check so that stale content survives long enough to be revalidated by
// ETag and reused on a 304.
type cachedSource struct {
	Path      string    `json:"path"`
	Content   string    `json:"content"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ResolveFiles resolves a batch of paths for the given repository. It
// returns per-path ownership records plus the parse-time diagnostics of the
// declaration file.
func (p *Pipeline) ResolveFiles(ctx context.Context, owner, repo, branch string, paths []string) (map[string]model.ResolvedOwnership, []model.Diagnostic, error) {
	rs, err := p.ruleSet(ctx, owner, repo, branch)
	if err != nil {
		return nil, nil, err
	}

	results, err := p.engine.ResolveOwners(ctx, rs, paths, p.client)
	if err != nil {
		return nil, nil, err
	}
	return results, rs.Diagnostics, nil
}

// FileOwners resolves a single path and mirrors the strict tool contract:
// when the path has no owners and is absent from the branch, the result is
// ErrFileNotFound rather than an empty owner set.
func (p *Pipeline) FileOwners(ctx context.Context, owner, repo, branch, path string) (model.ResolvedOwnership, error) {
	results, _, err := p.ResolveFiles(ctx, owner, repo, branch, []string{path})
	if err != nil {
		return model.ResolvedOwnership{}, err
	}

	res := results[path]
	if len(res.Owners) > 0 {
		return res, nil
	}

	exists, err := p.client.FileExists(ctx, owner, repo, path, branch)
	if err != nil {
		return model.ResolvedOwnership{}, fmt.Errorf("check file existence: %w", err)
	}
	if !exists {
		return model.ResolvedOwnership{}, fmt.Errorf("%q in %s/%s@%s: %w", path, owner, repo, branch, ErrFileNotFound)
	}

	return res, nil
}

// FileExists reports whether the path exists on the branch
func (p *Pipeline) FileExists(ctx context.Context, owner, repo, path, branch string) (bool, error) {
	return p.client.FileExists(ctx, owner, repo, path, branch)
}

// ResolveLocal resolves paths against already-fetched declaration sources,
// bypassing GitHub entirely. Sources are merged in the order given, broadest
// first, so later sources win under last-match-wins.
func (p *Pipeline) ResolveLocal(ctx context.Context, sources []ownership.Source, paths []string) (map[string]model.ResolvedOwnership, []model.Diagnostic, error) {
	rs := ownership.ParseAll(sources...)
	results, err := p.engine.ResolveOwners(ctx, rs, paths, p.client)
	if err != nil {
		return nil, nil, err
	}
	return results, rs.Diagnostics, nil
}

// ruleSet returns the parsed rule set for a repository, consulting the cache
// first. Fresh entries are served directly; stale entries are revalidated
// with the stored ETag and reused when GitHub answers 304.
func (p *Pipeline) ruleSet(ctx context.Context, owner, repo, branch string) (*ownership.RuleSet, error) {
	key := cache.Key(owner + "/" + repo + "@" + branch)

	var cached *cachedSource
	if p.cacheOn {
		if data, ok := p.store.Get(key); ok {
			var entry cachedSource
			if err := json.Unmarshal(data, &entry); err == nil {
				cached = &entry
			}
		}
	}

	if cached != nil && time.Since(cached.FetchedAt) < p.ttl {
		slog.Debug("codeowners cache hit", "repo", owner+"/"+repo, "branch", branch)
		return ownership.Parse(ownership.Source{Path: cached.Path, Content: cached.Content}), nil
	}

	res, err := p.client.FetchCodeowners(ctx, owner, repo, branch, cached != nil)
	if err != nil {
		return nil, err
	}

	src := res.Source
	if res.NotModified && cached != nil {
		src = ownership.Source{Path: cached.Path, Content: cached.Content}
	}

	if p.cacheOn {
		entry := cachedSource{Path: src.Path, Content: src.Content, FetchedAt: time.Now()}
		if data, err := json.Marshal(entry); err == nil {
			_ = p.store.Set(key, data, cache.NoExpiration)
		}
	}

	return ownership.Parse(src), nil
}
