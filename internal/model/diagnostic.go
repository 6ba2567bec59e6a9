package model

import "fmt"

// DiagnosticCode classifies a recoverable failure surfaced alongside results
type DiagnosticCode string

const (
	DiagMalformedDeclaration    DiagnosticCode = "malformed_declaration"     // Unparseable declaration line
	DiagInvalidOwner            DiagnosticCode = "invalid_owner"             // Owner token failed the syntactic check
	DiagMembershipCycle         DiagnosticCode = "membership_cycle"          // Team references itself, directly or transitively
	DiagMembershipDepthExceeded DiagnosticCode = "membership_depth_exceeded" // Nested team expansion exceeded the depth limit
	DiagMembershipLookupFailed  DiagnosticCode = "membership_lookup_failed"  // Membership collaborator errored or returned not-found
	DiagInvalidPath             DiagnosticCode = "invalid_path"              // Query path failed normalization
)

// Diagnostic records a failure scoped to a single declaration line, owner
// token, or queried path. Failures never abort a whole parse or batch; the
// diagnostic travels with the partial result instead.
type Diagnostic struct {
	Code    DiagnosticCode `json:"code"`
	Source  string         `json:"source,omitempty"`  // Declaration source path, when applicable
	Line    int            `json:"line,omitempty"`    // 1-based line number in the source
	Subject string         `json:"subject,omitempty"` // Offending token, team, or path
	Message string         `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Source != "" && d.Line > 0 {
		return fmt.Sprintf("%s: %s:%d: %s", d.Code, d.Source, d.Line, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}
