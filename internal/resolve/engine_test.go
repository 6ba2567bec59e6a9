package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/toto-dev/mcp-server-github-codeowners/internal/model"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/ownership"
)

// fakeLookup serves membership from a fixed map and counts lookups
type fakeLookup struct {
	mu      sync.Mutex
	members map[string][]string
	errs    map[string]error
	calls   map[string]int
}

func newFakeLookup(members map[string][]string) *fakeLookup {
	return &fakeLookup{
		members: members,
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeLookup) Members(ctx context.Context, team string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls[team]++
	f.mu.Unlock()

	if err, ok := f.errs[team]; ok {
		return nil, err
	}
	m, ok := f.members[team]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

func (f *fakeLookup) callCount(team string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[team]
}

func parseRules(t *testing.T, content string) *ownership.RuleSet {
	t.Helper()
	rs := ownership.Parse(ownership.Source{Path: "CODEOWNERS", Content: content})
	if len(rs.Diagnostics) != 0 {
		t.Fatalf("unexpected parse diagnostics: %v", rs.Diagnostics)
	}
	return rs
}

func TestResolveOwners_LastMatchWins(t *testing.T) {
	rs := parseRules(t, "* @a\n*.go @b\n")
	engine := NewEngine(0, 0)

	results, err := engine.ResolveOwners(context.Background(), rs, []string{"main.go", "main.txt"}, newFakeLookup(nil))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	goRes := results["main.go"]
	if !reflect.DeepEqual(goRes.Owners, []string{"@b"}) {
		t.Errorf("expected main.go owned by @b, got %v", goRes.Owners)
	}
	if goRes.RuleIndex != 1 {
		t.Errorf("expected winning rule 1 for main.go, got %d", goRes.RuleIndex)
	}

	txtRes := results["main.txt"]
	if !reflect.DeepEqual(txtRes.Owners, []string{"@a"}) {
		t.Errorf("expected main.txt owned by @a, got %v", txtRes.Owners)
	}
	if txtRes.RuleIndex != 0 {
		t.Errorf("expected winning rule 0 for main.txt, got %d", txtRes.RuleIndex)
	}
}

func TestResolveOwners_ExplicitUnassignment(t *testing.T) {
	rs := parseRules(t, "* @a\nsecrets/*\n")
	engine := NewEngine(0, 0)

	results, err := engine.ResolveOwners(context.Background(), rs, []string{"secrets/key.pem"}, newFakeLookup(nil))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	res := results["secrets/key.pem"]
	if len(res.Owners) != 0 {
		t.Errorf("expected no owners, got %v", res.Owners)
	}
	if res.RuleIndex != 1 {
		t.Errorf("expected the unassignment rule to win, got index %d", res.RuleIndex)
	}
	if !res.Owned() {
		t.Error("expected explicit unassignment to still count as owned")
	}
}

func TestResolveOwners_UnmatchedPath(t *testing.T) {
	engine := NewEngine(0, 0)

	results, err := engine.ResolveOwners(context.Background(), &ownership.RuleSet{}, []string{"anything.txt"}, newFakeLookup(nil))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	res := results["anything.txt"]
	if len(res.Owners) != 0 {
		t.Errorf("expected no owners, got %v", res.Owners)
	}
	if res.RuleIndex != -1 {
		t.Errorf("expected rule index -1, got %d", res.RuleIndex)
	}
	if res.Owned() {
		t.Error("expected unmatched path to be unowned")
	}
}

func TestResolveOwners_TeamExpansion(t *testing.T) {
	rs := parseRules(t, "* @org/team\n")
	lookup := newFakeLookup(map[string][]string{
		"@org/team": {"@x", "@org/sub"},
		"@org/sub":  {"@z"},
	})
	engine := NewEngine(0, 0)

	results, err := engine.ResolveOwners(context.Background(), rs, []string{"main.go"}, lookup)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	res := results["main.go"]
	if !reflect.DeepEqual(res.Owners, []string{"@x", "@z"}) {
		t.Errorf("expected nested team expansion {@x, @z}, got %v", res.Owners)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("expected no diagnostics, got %v", res.Diagnostics)
	}
}

func TestResolveOwners_MixedIndividualAndTeam(t *testing.T) {
	rs := parseRules(t, "* @alice @org/team\n")
	lookup := newFakeLookup(map[string][]string{
		"@org/team": {"@bob", "@alice"},
	})
	engine := NewEngine(0, 0)

	results, err := engine.ResolveOwners(context.Background(), rs, []string{"main.go"}, lookup)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	// Duplicates collapse, output is sorted
	if !reflect.DeepEqual(results["main.go"].Owners, []string{"@alice", "@bob"}) {
		t.Errorf("expected {@alice, @bob}, got %v", results["main.go"].Owners)
	}
}

func TestResolveOwners_CycleSafety(t *testing.T) {
	rs := parseRules(t, "* @org/a\n")
	lookup := newFakeLookup(map[string][]string{
		"@org/a": {"@org/b"},
		"@org/b": {"@org/a"},
	})
	engine := NewEngine(0, 0)

	results, err := engine.ResolveOwners(context.Background(), rs, []string{"main.go"}, lookup)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	res := results["main.go"]
	if len(res.Owners) != 0 {
		t.Errorf("expected cycling owner to contribute nothing, got %v", res.Owners)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != model.DiagMembershipCycle {
		t.Fatalf("expected a membership_cycle diagnostic, got %v", res.Diagnostics)
	}
	if res.RuleIndex != 0 {
		t.Errorf("expected the rule to still win, got index %d", res.RuleIndex)
	}
}

func TestResolveOwners_DepthLimit(t *testing.T) {
	members := make(map[string][]string)
	for i := 0; i < 12; i++ {
		members[fmt.Sprintf("@org/t%d", i)] = []string{fmt.Sprintf("@org/t%d", i+1)}
	}
	members["@org/t12"] = []string{"@deep"}

	rs := parseRules(t, "* @org/t0\n")
	engine := NewEngine(10, 0)

	results, err := engine.ResolveOwners(context.Background(), rs, []string{"main.go"}, newFakeLookup(members))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	res := results["main.go"]
	if len(res.Owners) != 0 {
		t.Errorf("expected depth-limited owner to contribute nothing, got %v", res.Owners)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != model.DiagMembershipDepthExceeded {
		t.Fatalf("expected a membership_depth_exceeded diagnostic, got %v", res.Diagnostics)
	}
}

func TestResolveOwners_LookupFailureIsScopedToOwner(t *testing.T) {
	rs := parseRules(t, "* @alice @org/ghost\n")
	lookup := newFakeLookup(nil)
	lookup.errs["@org/ghost"] = errors.New("boom")
	engine := NewEngine(0, 0)

	results, err := engine.ResolveOwners(context.Background(), rs, []string{"main.go"}, lookup)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	res := results["main.go"]
	if !reflect.DeepEqual(res.Owners, []string{"@alice"}) {
		t.Errorf("expected the individual owner to survive, got %v", res.Owners)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != model.DiagMembershipLookupFailed {
		t.Fatalf("expected a membership_lookup_failed diagnostic, got %v", res.Diagnostics)
	}
}

func TestResolveOwners_UnknownTeamIsScopedToOwner(t *testing.T) {
	rs := parseRules(t, "* @org/missing @bob\n")
	engine := NewEngine(0, 0)

	results, err := engine.ResolveOwners(context.Background(), rs, []string{"main.go"}, newFakeLookup(nil))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	res := results["main.go"]
	if !reflect.DeepEqual(res.Owners, []string{"@bob"}) {
		t.Errorf("expected {@bob}, got %v", res.Owners)
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", res.Diagnostics)
	}
}

func TestResolveOwners_InvalidPathIsScopedToPath(t *testing.T) {
	rs := parseRules(t, "* @a\n")
	engine := NewEngine(0, 0)

	results, err := engine.ResolveOwners(context.Background(), rs, []string{"../escape", "ok.txt"}, newFakeLookup(nil))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	bad := results["../escape"]
	if len(bad.Diagnostics) != 1 || bad.Diagnostics[0].Code != model.DiagInvalidPath {
		t.Fatalf("expected an invalid_path diagnostic, got %v", bad.Diagnostics)
	}
	if bad.RuleIndex != -1 {
		t.Errorf("expected no winning rule for the invalid path, got %d", bad.RuleIndex)
	}

	good := results["ok.txt"]
	if !reflect.DeepEqual(good.Owners, []string{"@a"}) {
		t.Errorf("expected the valid path to resolve normally, got %v", good.Owners)
	}
}

func TestResolveOwners_MemoizedAcrossBatch(t *testing.T) {
	rs := parseRules(t, "*.go @org/backend\n*.md @org/backend\n")
	lookup := newFakeLookup(map[string][]string{
		"@org/backend": {"@x", "@y"},
	})
	engine := NewEngine(0, 4)

	paths := []string{"a.go", "b.go", "c.go", "docs.md"}
	if _, err := engine.ResolveOwners(context.Background(), rs, paths, lookup); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if n := lookup.callCount("@org/backend"); n != 1 {
		t.Errorf("expected exactly 1 membership lookup for the batch, got %d", n)
	}
}

func TestResolveOwners_SharedNestedTeamLookedUpOnce(t *testing.T) {
	rs := parseRules(t, "*.go @org/a\n*.md @org/b\n")
	lookup := newFakeLookup(map[string][]string{
		"@org/a":      {"@org/shared"},
		"@org/b":      {"@org/shared", "@y"},
		"@org/shared": {"@x"},
	})
	engine := NewEngine(0, 4)

	results, err := engine.ResolveOwners(context.Background(), rs, []string{"main.go", "notes.md"}, lookup)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	// Both top-level teams reach @org/shared; the nested lookup is shared
	// across their concurrent expansions.
	if n := lookup.callCount("@org/shared"); n != 1 {
		t.Errorf("expected exactly 1 lookup for the shared nested team, got %d", n)
	}

	if !reflect.DeepEqual(results["main.go"].Owners, []string{"@x"}) {
		t.Errorf("expected main.go owned by {@x}, got %v", results["main.go"].Owners)
	}
	if !reflect.DeepEqual(results["notes.md"].Owners, []string{"@x", "@y"}) {
		t.Errorf("expected notes.md owned by {@x, @y}, got %v", results["notes.md"].Owners)
	}
}

func TestResolveOwners_Idempotent(t *testing.T) {
	rs := parseRules(t, "* @org/team @alice\ndocs/ @org/sub\n")
	members := map[string][]string{
		"@org/team": {"@c", "@a", "@org/sub"},
		"@org/sub":  {"@b"},
	}
	engine := NewEngine(0, 4)
	paths := []string{"main.go", "docs/readme.md", "src/util.go"}

	first, err := engine.ResolveOwners(context.Background(), rs, paths, newFakeLookup(members))
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	second, err := engine.ResolveOwners(context.Background(), rs, paths, newFakeLookup(members))
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("expected byte-identical results across calls:\n%s\n%s", a, b)
	}
}

func TestResolveOwners_Cancellation(t *testing.T) {
	rs := parseRules(t, "* @org/team\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(0, 2)
	_, err := engine.ResolveOwners(ctx, rs, []string{"main.go"}, newFakeLookup(nil))
	if err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
