package model

// ResolvedOwnership is the result of resolving a single queried path against
// a rule set: the final flat set of individual identities (teams fully
// expanded) plus the winning rule for explainability.
type ResolvedOwnership struct {
	Path        string       `json:"path"`
	Owners      []string     `json:"owners"`            // Sorted individual identities; empty when unowned
	RuleIndex   int          `json:"rule_index"`        // Index of the winning rule, -1 when no rule matched
	Pattern     string       `json:"pattern,omitempty"` // Raw pattern of the winning rule
	Line        int          `json:"line,omitempty"`    // Source line of the winning rule
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Owned reports whether any rule matched the path. A matching rule with zero
// owners still counts as owned (explicit unassignment).
func (r ResolvedOwnership) Owned() bool {
	return r.RuleIndex >= 0
}
