// Package tools implements the tool surface: each tool has explicit
// input and output types validated at the boundary, and every response
// is JSON capped at a fixed byte ceiling.
package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// MaxResponseBytes caps one serialized tool response.
const MaxResponseBytes = 512 << 10

const (
	// defaultLimit applies to search-shaped tools when the caller
	// passes nothing.
	defaultLimit = 20
	maxLimit     = 200
	maxRefs      = 500
	maxDepth     = 10
	maxContext   = 500
)

// truncationNotice is appended when a response is cut at the ceiling.
const truncationNotice = "\n[TRUNCATED: response exceeded the size limit; refine the query or lower the limit]"

// MarshalResponse serializes a tool output and enforces the byte ceiling.
func MarshalResponse(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal response: %w", err)
	}
	return Truncate(string(data), MaxResponseBytes), nil
}

// Truncate cuts s at max bytes, backing up to a newline or comma so the
// cut lands on a readable boundary, and appends the truncation notice.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	budget := max - len(truncationNotice)
	if budget < 0 {
		budget = 0
	}
	cut := s[:budget]
	if idx := strings.LastIndexAny(cut, "\n,"); idx > budget/2 {
		cut = cut[:idx]
	}
	return cut + truncationNotice
}

// clampLimit applies the default and the cap for search-shaped tools.
func clampLimit(limit, def, cap int) int {
	if limit <= 0 {
		return def
	}
	if limit > cap {
		return cap
	}
	return limit
}

// round2 rounds scores to two decimals for the wire.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
