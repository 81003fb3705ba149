package schemas

import "strings"

// -- Finding Schemas --

// Severity represents the severity level of a security finding. The values are
// lowercase to align with the canonical four-level scale used across the
// pipeline and by downstream consumers.
type Severity string

// Constants defining the standard severity levels for findings.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SeverityRank orders severities for sorting and plausibility comparisons.
// Higher is more severe. Unknown severities rank below low.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// NormalizeSeverity maps a backend-native severity vocabulary onto the
// canonical four-level scale. Scanner engines disagree wildly here: some emit
// words ("High", "Informational"), others numeric risk codes ("0".."4").
// Unmapped or unknown values default to medium.
func NormalizeSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical", "crit", "4":
		return SeverityCritical
	case "high", "3":
		return SeverityHigh
	case "medium", "moderate", "med", "2":
		return SeverityMedium
	case "low", "info", "informational", "information", "1", "0":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// VulnClass identifies the class of vulnerability a finding describes.
type VulnClass string

// Constants for the vulnerability classes the pipeline understands.
const (
	VulnXSS            VulnClass = "xss"
	VulnSQLi           VulnClass = "sqli"
	VulnRCE            VulnClass = "rce"
	VulnLFI            VulnClass = "lfi"
	VulnOpenRedirect   VulnClass = "open_redirect"
	VulnSSRF           VulnClass = "ssrf"
	VulnIDOR           VulnClass = "idor"
	VulnCSRF           VulnClass = "csrf"
	VulnInfoDisclosure VulnClass = "info_disclosure"
)

// AllVulnClasses returns every vulnerability class the pipeline can probe for,
// in a stable order. Used by the deep scan profile.
func AllVulnClasses() []VulnClass {
	return []VulnClass{
		VulnXSS, VulnSQLi, VulnRCE, VulnLFI, VulnOpenRedirect,
		VulnSSRF, VulnIDOR, VulnCSRF, VulnInfoDisclosure,
	}
}

// Finding is the canonical, normalized vulnerability observation. Every
// backend-native result shape is mapped into this struct by that backend's
// normalizer; the native shape never travels past the backend boundary.
//
// A Finding is immutable once produced. Deduplication yields a new, reduced
// set rather than editing findings in place, and Confidence and Severity are
// inputs to deduplication, never outputs of it.
type Finding struct {
	Source     string    `json:"source"`              // Name of the scanner backend that produced the finding.
	Type       VulnClass `json:"type"`                // Vulnerability class.
	Severity   Severity  `json:"severity"`            // Canonical severity, set at normalization time.
	Evidence   string    `json:"evidence"`            // Human-readable proof of the observation.
	Confidence float64   `json:"confidence"`          // Detection confidence in [0,1].
	Payload    string    `json:"payload,omitempty"`   // The payload that triggered the observation.
	URL        string    `json:"url"`                 // The URL at which the vulnerability was observed.
	Parameter  string    `json:"parameter,omitempty"` // The injected parameter, when applicable.
}

// FindingKey is the 3-tuple identity used to deduplicate overlapping findings
// reported by different backends.
type FindingKey struct {
	Type      VulnClass
	URL       string
	Parameter string
}

// Key returns the deduplication identity of the finding.
func (f Finding) Key() FindingKey {
	return FindingKey{Type: f.Type, URL: f.URL, Parameter: f.Parameter}
}

// Provenance distinguishes real scanner output from simulated sample data
// produced when a remote scanner engine is unreachable. Modeled as a tagged
// value so callers cannot accidentally treat simulated data as real.
type Provenance string

const (
	// ProvenanceReal marks results obtained from a live scan.
	ProvenanceReal Provenance = "real"
	// ProvenanceSimulated marks fallback sample results generated because the
	// backing scanner engine could not be reached.
	ProvenanceSimulated Provenance = "simulated"
)

// BackendResult is the envelope a scanner backend returns for one target.
type BackendResult struct {
	Scanner    string     `json:"scanner"`
	Findings   []Finding  `json:"findings"`
	Provenance Provenance `json:"provenance"`
	// Note carries a human-readable explanation when Provenance is simulated,
	// e.g. the connection error that triggered the fallback.
	Note string `json:"note,omitempty"`
}

// Vulnerability is the analysis-stage enrichment of a surviving Finding.
// Exactly one Vulnerability is derived per deduplicated Finding.
type Vulnerability struct {
	Finding

	Title       string  `json:"title"`
	Description string  `json:"description"`
	CVSSScore   float64 `json:"cvss_score"` // CVSS-like score in [0,10], looked up by severity.
	Remediation string  `json:"remediation"`
	// AIInsights is optional narrative enrichment from the summarizer
	// collaborator. Empty when the summarizer is disabled or failed.
	AIInsights string `json:"ai_insights,omitempty"`
}
