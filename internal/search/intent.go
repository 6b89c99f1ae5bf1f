package search

import "strings"

// Intent classifies what a query is asking for, which decides the
// backends it is routed to.
type Intent int

const (
	// IntentExactSymbol is a single identifier-shaped token.
	IntentExactSymbol Intent = iota
	// IntentShortToken is a token too short for the substring index;
	// routed to ranked full-text only.
	IntentShortToken
	// IntentNaturalLanguage has multiple words; ranked full-text leads.
	IntentNaturalLanguage
	// IntentRegex contains pattern metacharacters; the scan backend leads.
	IntentRegex
)

// shortTokenMaxLen: tokens shorter than this are short tokens.
const shortTokenMaxLen = 4

// regexMetas are the metacharacters whose bare presence marks a query as
// a regex. Parentheses and dots are excluded: they show up in ordinary
// symbol queries like "foo.bar()".
const regexMetas = `\+?{}|^$[]`

func (i Intent) String() string {
	switch i {
	case IntentExactSymbol:
		return "exact-symbol"
	case IntentShortToken:
		return "short-token"
	case IntentNaturalLanguage:
		return "natural-language"
	case IntentRegex:
		return "regex"
	}
	return "unknown"
}

// Classify maps a raw query string to its intent. Pure function, no
// backend knowledge.
func Classify(query string) Intent {
	q := strings.TrimSpace(query)
	if q == "" {
		return IntentShortToken
	}
	if strings.ContainsAny(q, regexMetas) ||
		strings.Contains(q, ".*") || strings.Contains(q, ".+") {
		return IntentRegex
	}
	if len(strings.Fields(q)) >= 2 {
		return IntentNaturalLanguage
	}
	if len(q) < shortTokenMaxLen {
		return IntentShortToken
	}
	return IntentExactSymbol
}
