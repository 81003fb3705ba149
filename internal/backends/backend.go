// File: internal/backends/backend.go
// Description: Scanner backends produce canonical findings for one target,
// either by driving a remote scanning engine's job protocol or by running the
// built-in probe bundles. Each backend owns the normalizer for its engine's
// native result shape; native shapes never escape this package.
package backends

import (
	"errors"
	"fmt"
	"strings"

	"github.com/obsidiansec/bountyhound/api/schemas"
)

// ErrBackendUnavailable marks a scanner engine that could not be reached at
// all. Backends recover from it by returning a simulated, clearly-tagged
// sample result set instead of an error.
var ErrBackendUnavailable = errors.New("scanner engine unreachable")

// BackendError is a per-backend failure surfaced in the aggregate result. It
// never aborts sibling backends.
type BackendError struct {
	Scanner string
	Err     error
}

func (e BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Scanner, e.Err)
}

func (e BackendError) Unwrap() error { return e.Err }

// Dedup merges findings sharing the (type, url, parameter) key, first-seen
// wins. It returns a new slice and never mutates its input, which makes it
// idempotent: Dedup(Dedup(f)) == Dedup(f).
func Dedup(findings []schemas.Finding) []schemas.Finding {
	seen := make(map[schemas.FindingKey]struct{}, len(findings))
	out := make([]schemas.Finding, 0, len(findings))
	for _, f := range findings {
		key := f.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}

// classifyVulnClass maps an engine's free-text vulnerability name onto a
// canonical class. Engines name the same weakness a dozen different ways;
// keyword matching is how their own export tooling does it too.
func classifyVulnClass(name string) schemas.VulnClass {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "sql"):
		return schemas.VulnSQLi
	case strings.Contains(n, "cross site scripting"),
		strings.Contains(n, "cross-site scripting"),
		strings.Contains(n, "xss"):
		return schemas.VulnXSS
	case strings.Contains(n, "command"), strings.Contains(n, "code injection"),
		strings.Contains(n, "remote code"):
		return schemas.VulnRCE
	case strings.Contains(n, "redirect"):
		return schemas.VulnOpenRedirect
	case strings.Contains(n, "path traversal"), strings.Contains(n, "file inclusion"),
		strings.Contains(n, "lfi"):
		return schemas.VulnLFI
	case strings.Contains(n, "ssrf"), strings.Contains(n, "server side request"),
		strings.Contains(n, "server-side request"):
		return schemas.VulnSSRF
	case strings.Contains(n, "idor"), strings.Contains(n, "direct object"):
		return schemas.VulnIDOR
	case strings.Contains(n, "csrf"), strings.Contains(n, "cross site request"),
		strings.Contains(n, "cross-site request"):
		return schemas.VulnCSRF
	default:
		return schemas.VulnInfoDisclosure
	}
}
