// Package ownership parses CODEOWNERS-style declarations into an ordered
// rule set. Declaration order is precedence order: the engine resolves a
// path by taking the last rule whose pattern matches it.
package ownership

import (
	"fmt"
	"strings"

	"github.com/toto-dev/mcp-server-github-codeowners/internal/model"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/pattern"
)

// OwnerKind distinguishes the two kinds of owner reference
type OwnerKind string

const (
	OwnerIndividual OwnerKind = "individual"
	OwnerTeam       OwnerKind = "team"
)

// OwnerRef is a single owner token: an individual identity (@alice or an
// email address) or a team reference (@org/team). Exactly one kind applies.
type OwnerRef struct {
	Kind OwnerKind `json:"kind"`
	Name string    `json:"name"`
}

// ParseOwner classifies an owner token syntactically. A token starting with
// `@` is a team when it contains a slash and an individual otherwise; a bare
// email address counts as an individual. Anything else is rejected.
func ParseOwner(token string) (OwnerRef, error) {
	if strings.HasPrefix(token, "@") {
		rest := token[1:]
		if rest == "" {
			return OwnerRef{}, fmt.Errorf("owner token %q has no name", token)
		}
		if strings.Contains(rest, "/") {
			org, team, _ := strings.Cut(rest, "/")
			if org == "" || team == "" || strings.Contains(team, "/") {
				return OwnerRef{}, fmt.Errorf("team token %q is not of the form @org/team", token)
			}
			return OwnerRef{Kind: OwnerTeam, Name: token}, nil
		}
		return OwnerRef{Kind: OwnerIndividual, Name: token}, nil
	}

	// Email owners: local@domain with a non-empty local part.
	if at := strings.Index(token, "@"); at > 0 && at < len(token)-1 {
		return OwnerRef{Kind: OwnerIndividual, Name: token}, nil
	}

	return OwnerRef{}, fmt.Errorf("owner token %q is neither @user, @org/team nor an email", token)
}

// Source is one raw ownership declaration file: its content plus the path it
// was fetched from. Immutable once created.
type Source struct {
	Path    string
	Content string
}

// Rule is one parsed declaration: a compiled pattern plus its owner list.
// Index is the rule's position across all merged sources and doubles as its
// precedence; rules are immutable after parse.
type Rule struct {
	Index      int
	RawPattern string
	Pattern    *pattern.Pattern
	Owners     []OwnerRef
	SourcePath string
	Line       int
}

// RuleSet is the full ordered rule list for one resolution context, together
// with any per-line diagnostics recorded while parsing. Never mutated after
// construction; re-parse to update.
type RuleSet struct {
	Rules       []Rule
	Diagnostics []model.Diagnostic
}

// Match returns the winning rule for a normalized path under last-match-wins
// precedence, or nil when no rule matches.
func (rs *RuleSet) Match(path string) *Rule {
	for i := len(rs.Rules) - 1; i >= 0; i-- {
		if rs.Rules[i].Pattern.Matches(path) {
			return &rs.Rules[i]
		}
	}
	return nil
}
