package security

import (
	"regexp"
	"strings"

	"scout/internal/scouterr"
)

const (
	// maxPatternLength bounds user-supplied regex patterns.
	maxPatternLength = 500
	// maxNestingDepth bounds group nesting.
	maxNestingDepth = 5
)

// dangerousFragments are known catastrophic-backtracking shapes rejected
// outright.
var dangerousFragments = []string{
	"(a+)+", "(a*)*", "(a|a)*", "(.*)*", "(.+)+", "(.*)+",
	"([a-z]+)*", "([a-z]*)+",
}

// nestedQuantifier approximates a quantified group that itself contains
// a quantifier, the classic ReDoS shape.
var nestedQuantifier = regexp.MustCompile(`\([^)]*[+*][^)]*\)[+*?]`)

// CheckPattern rejects regex patterns that could trigger catastrophic
// backtracking or exhaust the engine, before any compilation happens.
func CheckPattern(pattern string) error {
	if len(pattern) > maxPatternLength {
		return scouterr.New(scouterr.PatternRejected,
			"pattern exceeds %d bytes", maxPatternLength)
	}

	depth, maxDepth := 0, 0
	escaped := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '(':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')':
			if depth > 0 {
				depth--
			}
		}
	}
	if maxDepth > maxNestingDepth {
		return scouterr.New(scouterr.PatternRejected,
			"pattern nesting exceeds depth %d", maxNestingDepth)
	}

	for _, frag := range dangerousFragments {
		if strings.Contains(pattern, frag) {
			return scouterr.New(scouterr.PatternRejected,
				"pattern contains a nested quantifier: %s", frag)
		}
	}
	if nestedQuantifier.MatchString(pattern) {
		return scouterr.New(scouterr.PatternRejected,
			"pattern contains a quantified group with an inner quantifier")
	}
	return nil
}
