package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/toto-dev/mcp-server-github-codeowners/internal/model"
)

// ErrNotFound is returned by a MembershipLookup when a team does not exist
// or is not visible to the caller.
var ErrNotFound = errors.New("team not found")

// MembershipLookup supplies direct team membership. Returned members are
// owner tokens: individuals (@login) or nested team references (@org/team),
// which the engine expands recursively.
type MembershipLookup interface {
	Members(ctx context.Context, team string) ([]string, error)
}

// lookupMemo wraps a MembershipLookup and memoizes it for the duration of
// one resolution call: each distinct team is fetched from the collaborator
// at most once, and concurrent expansions reaching the same team share the
// single in-flight fetch instead of issuing a duplicate. Only the raw lookup
// is memoized; expansion outcomes depend on the ancestor stack (cycle
// detection) and stay per-expansion.
type lookupMemo struct {
	lookup MembershipLookup

	mu      sync.Mutex
	entries map[string]*lookupEntry
}

type lookupEntry struct {
	done    chan struct{}
	members []string
	err     error
}

func newLookupMemo(lookup MembershipLookup) *lookupMemo {
	return &lookupMemo{
		lookup:  lookup,
		entries: make(map[string]*lookupEntry),
	}
}

func (m *lookupMemo) Members(ctx context.Context, team string) ([]string, error) {
	m.mu.Lock()
	if e, ok := m.entries[team]; ok {
		m.mu.Unlock()
		select {
		case <-e.done:
			return e.members, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	e := &lookupEntry{done: make(chan struct{})}
	m.entries[team] = e
	m.mu.Unlock()

	e.members, e.err = m.lookup.Members(ctx, team)
	close(e.done)
	return e.members, e.err
}

// expansion is the outcome of fully expanding one team reference. A team
// either expands cleanly to a set of individuals or fails as a whole: any
// cycle, depth overrun or lookup failure anywhere beneath it empties the set
// and yields a single diagnostic for that owner.
type expansion struct {
	members []string
	diag    *model.Diagnostic
}

// expandTeam recursively expands a team into individuals. The stack holds
// the teams on the current expansion path; it is value-passed so concurrent
// expansions never share mutable state.
func (e *Engine) expandTeam(ctx context.Context, lookup MembershipLookup, team string, stack []string) (map[string]struct{}, *model.Diagnostic, error) {
	for _, ancestor := range stack {
		if ancestor == team {
			return nil, &model.Diagnostic{
				Code:    model.DiagMembershipCycle,
				Subject: team,
				Message: fmt.Sprintf("team %s references itself through %s", team, strings.Join(stack, " -> ")),
			}, nil
		}
	}
	if len(stack) >= e.maxDepth {
		return nil, &model.Diagnostic{
			Code:    model.DiagMembershipDepthExceeded,
			Subject: team,
			Message: fmt.Sprintf("expansion of %s exceeded the depth limit of %d", team, e.maxDepth),
		}, nil
	}

	direct, err := lookup.Members(ctx, team)
	if err != nil {
		// Cancellation aborts the whole batch; anything else is scoped to
		// this owner.
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, &model.Diagnostic{
			Code:    model.DiagMembershipLookupFailed,
			Subject: team,
			Message: fmt.Sprintf("membership lookup for %s failed: %v", team, err),
		}, nil
	}

	members := make(map[string]struct{})
	stack = append(stack, team)

	for _, m := range direct {
		if !isTeamRef(m) {
			members[m] = struct{}{}
			continue
		}
		nested, diag, err := e.expandTeam(ctx, lookup, m, stack)
		if err != nil {
			return nil, nil, err
		}
		if diag != nil {
			return nil, diag, nil
		}
		for id := range nested {
			members[id] = struct{}{}
		}
	}

	return members, nil, nil
}

// isTeamRef reports whether a member token is itself a team reference
func isTeamRef(token string) bool {
	return strings.HasPrefix(token, "@") && strings.Contains(token, "/")
}
