// Package resolve implements the ownership resolution engine: last-match-wins
// rule selection over a parsed rule set, with team owners expanded into
// individuals through an external membership collaborator.
package resolve

import (
	"context"
	"sort"

	"github.com/toto-dev/mcp-server-github-codeowners/internal/model"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/ownership"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/pattern"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/worker"
)

const (
	defaultMaxDepth = 10
	defaultWorkers  = 8
)

// Engine resolves paths to owner sets. It holds only configuration; every
// resolution call carries its own memoization state, so a single Engine is
// safe for concurrent use.
type Engine struct {
	maxDepth int
	workers  int
}

// NewEngine creates an engine with the given expansion depth limit and
// membership fan-out width. Non-positive values fall back to defaults.
func NewEngine(maxDepth, workers int) *Engine {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Engine{maxDepth: maxDepth, workers: workers}
}

// expandJob expands one distinct team reference on the worker pool
type expandJob struct {
	engine *Engine
	lookup MembershipLookup
	team   string
}

// expandOutcome carries one team's expansion back from the pool
type expandOutcome struct {
	team string
	exp  expansion
	err  error
}

func (o *expandOutcome) GetError() error { return o.err }

func (j *expandJob) Execute(ctx context.Context) worker.Result {
	members, diag, err := j.engine.expandTeam(ctx, j.lookup, j.team, nil)
	if err != nil {
		return &expandOutcome{team: j.team, err: err}
	}

	out := &expandOutcome{team: j.team, exp: expansion{diag: diag}}
	if diag == nil {
		out.exp.members = setToSorted(members)
	}
	return out
}

// ResolveOwners resolves a batch of paths against a rule set. Each path is
// resolved independently under last-match-wins; the distinct team references
// of all winning rules are expanded once, concurrently, and shared across the
// batch. Failures scoped to one line, owner or path surface as diagnostics on
// the affected result; only context cancellation fails the whole call.
func (e *Engine) ResolveOwners(ctx context.Context, rs *ownership.RuleSet, paths []string, lookup MembershipLookup) (map[string]model.ResolvedOwnership, error) {
	results := make(map[string]model.ResolvedOwnership, len(paths))

	type target struct {
		queried string
		rule    *ownership.Rule
	}

	var targets []target
	var teams []string
	seen := make(map[string]struct{})

	for _, p := range paths {
		norm, err := pattern.NormalizePath(p)
		if err != nil {
			results[p] = model.ResolvedOwnership{
				Path:      p,
				Owners:    []string{},
				RuleIndex: -1,
				Diagnostics: []model.Diagnostic{{
					Code:    model.DiagInvalidPath,
					Subject: p,
					Message: err.Error(),
				}},
			}
			continue
		}

		rule := rs.Match(norm)
		targets = append(targets, target{queried: p, rule: rule})

		if rule == nil {
			continue
		}
		for _, ref := range rule.Owners {
			if ref.Kind != ownership.OwnerTeam {
				continue
			}
			if _, dup := seen[ref.Name]; dup {
				continue
			}
			seen[ref.Name] = struct{}{}
			teams = append(teams, ref.Name)
		}
	}

	expansions, err := e.expandAll(ctx, teams, newLookupMemo(lookup))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, tgt := range targets {
		res := model.ResolvedOwnership{
			Path:      tgt.queried,
			Owners:    []string{},
			RuleIndex: -1,
		}

		if tgt.rule != nil {
			res.RuleIndex = tgt.rule.Index
			res.Pattern = tgt.rule.RawPattern
			res.Line = tgt.rule.Line

			owners := make(map[string]struct{})
			for _, ref := range tgt.rule.Owners {
				if ref.Kind == ownership.OwnerIndividual {
					owners[ref.Name] = struct{}{}
					continue
				}
				exp := expansions[ref.Name]
				if exp.diag != nil {
					res.Diagnostics = append(res.Diagnostics, *exp.diag)
					continue
				}
				for _, id := range exp.members {
					owners[id] = struct{}{}
				}
			}
			res.Owners = setToSorted(owners)
		}

		results[tgt.queried] = res
	}

	return results, nil
}

// expandAll expands each distinct top-level team exactly once, fanning out
// on the worker pool. The caller passes a lookupMemo so nested teams shared
// between expansions are fetched once too; nothing is shared across
// resolution calls.
func (e *Engine) expandAll(ctx context.Context, teams []string, lookup MembershipLookup) (map[string]expansion, error) {
	expansions := make(map[string]expansion, len(teams))
	if len(teams) == 0 {
		return expansions, nil
	}

	pool := worker.NewPool(ctx, e.workers)
	pool.Start()

	go func() {
		defer pool.Close()
		for _, team := range teams {
			pool.Submit(&expandJob{engine: e, lookup: lookup, team: team})
		}
	}()

	for _, result := range pool.Wait() {
		out := result.(*expandOutcome)
		if out.err != nil {
			return nil, out.err
		}
		expansions[out.team] = out.exp
	}

	return expansions, nil
}

func setToSorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
