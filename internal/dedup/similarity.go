// File: internal/dedup/similarity.go
package dedup

import (
	"net/url"
	"strings"

	"github.com/agnivade/levenshtein"
)

// TextSimilarity returns a normalized edit-distance ratio in [0,1] between
// two strings, case-insensitive. An empty string compared against anything
// (including another empty string) scores 0: absent fields must not count as
// evidence of similarity.
func TextSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}

	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(maxLen)
}

// sameDomain reports whether two URLs share an exact host. Unparseable or
// hostless URLs never match.
func sameDomain(rawA, rawB string) bool {
	hostA := hostOf(rawA)
	if hostA == "" {
		return false
	}
	return hostA == hostOf(rawB)
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
