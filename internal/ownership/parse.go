package ownership

import (
	"fmt"
	"strings"

	"github.com/toto-dev/mcp-server-github-codeowners/internal/model"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/pattern"
)

// Parse parses a single declaration source into a rule set.
func Parse(src Source) *RuleSet {
	return ParseAll(src)
}

// ParseAll parses and merges multiple declaration sources by concatenation.
// Callers pass broader sources first so that more specific sources still win
// under last-match-wins. Unparseable lines and invalid owner tokens are
// recorded as diagnostics and skipped; they never abort the parse.
func ParseAll(sources ...Source) *RuleSet {
	rs := &RuleSet{}

	for _, src := range sources {
		// Normalize Windows line endings before splitting.
		lines := strings.Split(strings.ReplaceAll(src.Content, "\r\n", "\n"), "\n")

		for i, line := range lines {
			lineNo := i + 1
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}

			patTok, ownerToks := splitDeclaration(trimmed)

			compiled, err := pattern.Compile(patTok)
			if err != nil {
				rs.Diagnostics = append(rs.Diagnostics, model.Diagnostic{
					Code:    model.DiagMalformedDeclaration,
					Source:  src.Path,
					Line:    lineNo,
					Subject: patTok,
					Message: fmt.Sprintf("invalid pattern: %v", err),
				})
				continue
			}

			// Zero owners is legal: it marks the pattern explicitly unowned,
			// overriding any earlier match. Invalid tokens drop individually.
			var owners []OwnerRef
			for _, tok := range strings.Fields(ownerToks) {
				ref, err := ParseOwner(tok)
				if err != nil {
					rs.Diagnostics = append(rs.Diagnostics, model.Diagnostic{
						Code:    model.DiagInvalidOwner,
						Source:  src.Path,
						Line:    lineNo,
						Subject: tok,
						Message: err.Error(),
					})
					continue
				}
				owners = append(owners, ref)
			}

			rs.Rules = append(rs.Rules, Rule{
				Index:      len(rs.Rules),
				RawPattern: patTok,
				Pattern:    compiled,
				Owners:     owners,
				SourcePath: src.Path,
				Line:       lineNo,
			})
		}
	}

	return rs
}

// splitDeclaration splits a declaration line at the first unescaped space or
// tab: pattern on the left, owner tokens on the right. Escaped whitespace
// stays part of the pattern.
func splitDeclaration(line string) (pat string, owners string) {
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) {
			i++
			continue
		}
		if c == ' ' || c == '\t' {
			return line[:i], line[i+1:]
		}
	}
	return line, ""
}
