// Package pattern compiles CODEOWNERS-style glob patterns into an explicit
// segment representation and matches them against repository-relative paths.
//
// Matching semantics follow the CODEOWNERS grammar: a pattern without a
// leading slash matches at any directory depth, a trailing slash restricts
// the pattern to directories (and everything beneath them), `*` matches
// within a single path segment, and `**` spans segments.
package pattern

import (
	"fmt"
	"strings"
)

// Pattern is a compiled ownership pattern. It is pure data plus a Matches
// operation; compile once, match many times.
type Pattern struct {
	raw      string
	anchored bool // Leading slash: matches only from the repository root
	dirOnly  bool // Trailing slash: matches only directories and their contents
	segments []segment
}

// segment is one compiled path segment: either a literal chunk (which may
// contain single-segment wildcards) or a double-star spanning segments.
type segment struct {
	doubleStar bool
	chunk      string
}

// Compile parses a raw pattern into its segment representation. The empty
// pattern is invalid, as are patterns with empty segments ("a//b").
func Compile(raw string) (*Pattern, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty pattern")
	}

	p := &Pattern{raw: trimmed}

	body := trimmed
	if strings.HasPrefix(body, "/") {
		p.anchored = true
		body = strings.TrimPrefix(body, "/")
	}
	if strings.HasSuffix(body, "/") {
		p.dirOnly = true
		body = strings.TrimSuffix(body, "/")
	}
	if body == "" {
		return nil, fmt.Errorf("pattern %q has no path segments", trimmed)
	}

	for _, part := range strings.Split(body, "/") {
		if part == "" {
			return nil, fmt.Errorf("pattern %q contains an empty segment", trimmed)
		}
		if part == "**" {
			// Consecutive double-stars collapse to one.
			if n := len(p.segments); n > 0 && p.segments[n-1].doubleStar {
				continue
			}
			p.segments = append(p.segments, segment{doubleStar: true})
			continue
		}
		p.segments = append(p.segments, segment{chunk: part})
	}

	// An unanchored pattern matches at any depth.
	if !p.anchored && !p.segments[0].doubleStar {
		p.segments = append([]segment{{doubleStar: true}}, p.segments...)
	}

	return p, nil
}

// String returns the original pattern text.
func (p *Pattern) String() string { return p.raw }

// Anchored reports whether the pattern had a leading slash.
func (p *Pattern) Anchored() bool { return p.anchored }

// DirOnly reports whether the pattern had a trailing slash.
func (p *Pattern) DirOnly() bool { return p.dirOnly }

// Matches reports whether the pattern matches the given normalized,
// repository-relative path. A pattern that matches a leading directory of
// the path matches the path itself; directory-only patterns match only
// beneath the directory, never a plain file of the same name.
func (p *Pattern) Matches(path string) bool {
	parts := strings.Split(path, "/")
	table := p.matchTable(parts)

	// Full match: every pattern segment consumed against every path segment.
	if !p.dirOnly && table[len(parts)] {
		return true
	}
	// Prefix match at a segment boundary: the pattern names a directory the
	// path lives under.
	for j := 0; j < len(parts); j++ {
		if table[j] {
			return true
		}
	}
	return false
}

// matchTable computes, for each j, whether the full segment sequence matches
// parts[:j]. The dynamic program is unambiguous: no backtracking over the
// whole path, every cell derived from earlier cells exactly once.
func (p *Pattern) matchTable(parts []string) []bool {
	prev := make([]bool, len(parts)+1)
	cur := make([]bool, len(parts)+1)
	prev[0] = true

	for _, seg := range p.segments {
		for j := range cur {
			cur[j] = false
		}
		if seg.doubleStar {
			// `**` consumes zero or more path segments.
			carry := false
			for j := 0; j <= len(parts); j++ {
				carry = carry || prev[j]
				cur[j] = carry
			}
		} else {
			for j := 1; j <= len(parts); j++ {
				cur[j] = prev[j-1] && chunkMatch(seg.chunk, parts[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev
}

// chunkMatch matches a single literal chunk against one path segment.
// `*` matches any run of characters within the segment, `?` matches one
// character, and a backslash escapes the following character. Matching is
// case-sensitive.
func chunkMatch(pat, s string) bool {
	px, sx := 0, 0
	star, mark := -1, 0

	for sx < len(s) {
		if px < len(pat) {
			c := pat[px]
			esc := false
			if c == '\\' && px+1 < len(pat) {
				c = pat[px+1]
				esc = true
			}
			if !esc && c == '*' {
				star, mark = px, sx
				px++
				continue
			}
			if (!esc && c == '?') || c == s[sx] {
				sx++
				if esc {
					px += 2
				} else {
					px++
				}
				continue
			}
		}
		if star < 0 {
			return false
		}
		// Retry the last star against one more character.
		px = star + 1
		mark++
		sx = mark
	}

	for px < len(pat) && pat[px] == '*' {
		px++
	}
	return px == len(pat)
}
