// File: internal/reporting/reporter.go
// Description: The report stage. Rolls the final vulnerability set up into an
// executive summary, severity breakdown, top-N list and prioritized
// recommendations.
package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/obsidiansec/bountyhound/api/schemas"
)

// DefaultTopN is how many vulnerabilities the report highlights.
const DefaultTopN = 5

// Executive risk levels.
const (
	RiskCritical = "CRITICAL"
	RiskHigh     = "HIGH"
	RiskMedium   = "MEDIUM"
	RiskLow      = "LOW"
)

// mediumRiskFloor is the total-findings count above which an otherwise
// low-risk posture is bumped to MEDIUM.
const mediumRiskFloor = 5

// recommendationsByType are the fixed per-type recommendation rules. A rule
// fires once when any vulnerability of its type is present.
var recommendationsByType = map[schemas.VulnClass]string{
	schemas.VulnXSS:            "Adopt a templating layer with contextual auto-escaping and roll out a Content-Security-Policy.",
	schemas.VulnSQLi:           "Audit every database access path for string-built queries and migrate to parameterized statements.",
	schemas.VulnRCE:            "Treat the remote code execution finding as an active incident: isolate the host and rotate its credentials.",
	schemas.VulnLFI:            "Canonicalize and allow-list all file paths derived from request data.",
	schemas.VulnOpenRedirect:   "Replace free-form redirect parameters with server-side destination identifiers.",
	schemas.VulnSSRF:           "Route server-initiated fetches through an egress proxy with an internal-range blocklist.",
	schemas.VulnIDOR:           "Add object-level authorization checks to every identifier-based endpoint.",
	schemas.VulnCSRF:           "Enable same-site cookies and per-request tokens on all state-changing routes.",
	schemas.VulnInfoDisclosure: "Strip version banners and verbose error output from production responses.",
}

// genericRecommendations are always appended, in order, after the per-type
// rules.
var genericRecommendations = []string{
	"Integrate automated security scanning into the CI/CD pipeline so regressions are caught before release.",
	"Schedule a follow-up penetration test after remediation to confirm the fixes hold.",
}

// Reporter builds the executive report. The summarizer is optional; on
// failure its output slot carries an inline note instead.
type Reporter struct {
	summarizer schemas.Summarizer
	topN       int
	logger     *zap.Logger
}

// New creates a Reporter. Pass a nil summarizer to skip narrative
// elaboration.
func New(summarizer schemas.Summarizer, logger *zap.Logger) *Reporter {
	return &Reporter{
		summarizer: summarizer,
		topN:       DefaultTopN,
		logger:     logger.Named("reporting"),
	}
}

// Build assembles the report for the final vulnerability set.
func (r *Reporter) Build(ctx context.Context, vulns []schemas.Vulnerability) (*schemas.Report, error) {
	report := &schemas.Report{
		SeverityBreakdown: make(map[schemas.Severity]int),
		GeneratedAt:       time.Now().UTC(),
	}

	for _, v := range vulns {
		report.SeverityBreakdown[v.Severity]++
	}
	report.RiskLevel = riskLevel(report.SeverityBreakdown, len(vulns))
	report.TopVulnerabilities = topVulnerabilities(vulns, r.topN)
	report.Recommendations = recommendations(vulns)
	report.ExecutiveSummary = r.executiveSummary(ctx, vulns, report)

	r.logger.Info("Report built",
		zap.String("risk_level", report.RiskLevel),
		zap.Int("vulnerabilities", len(vulns)))
	return report, nil
}

// riskLevel applies the fixed executive rules.
func riskLevel(breakdown map[schemas.Severity]int, total int) string {
	switch {
	case breakdown[schemas.SeverityCritical] > 0:
		return RiskCritical
	case breakdown[schemas.SeverityHigh] > 0:
		return RiskHigh
	case total > mediumRiskFloor:
		return RiskMedium
	default:
		return RiskLow
	}
}

// topVulnerabilities sorts by severity rank, then CVSS, then title for a
// stable order, and truncates to n. The input slice is not modified.
func topVulnerabilities(vulns []schemas.Vulnerability, n int) []schemas.Vulnerability {
	sorted := make([]schemas.Vulnerability, len(vulns))
	copy(sorted, vulns)

	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := schemas.SeverityRank(sorted[i].Severity), schemas.SeverityRank(sorted[j].Severity)
		if ri != rj {
			return ri > rj
		}
		if sorted[i].CVSSScore != sorted[j].CVSSScore {
			return sorted[i].CVSSScore > sorted[j].CVSSScore
		}
		return sorted[i].Title < sorted[j].Title
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// recommendations fires each per-type rule at most once, in a stable order,
// then appends the two generics.
func recommendations(vulns []schemas.Vulnerability) []string {
	present := make(map[schemas.VulnClass]bool)
	for _, v := range vulns {
		present[v.Type] = true
	}

	recs := make([]string, 0, len(present)+len(genericRecommendations))
	for _, class := range schemas.AllVulnClasses() {
		if present[class] {
			if rec, ok := recommendationsByType[class]; ok {
				recs = append(recs, rec)
			}
		}
	}
	return append(recs, genericRecommendations...)
}

// executiveSummary produces the narrative line, optionally elaborated by the
// summarizer. A summarizer failure is replaced by an inline note; it never
// fails the stage.
func (r *Reporter) executiveSummary(ctx context.Context, vulns []schemas.Vulnerability, report *schemas.Report) string {
	base := fmt.Sprintf(
		"Assessment identified %d vulnerabilities (%d critical, %d high, %d medium, %d low). Overall risk level: %s.",
		len(vulns),
		report.SeverityBreakdown[schemas.SeverityCritical],
		report.SeverityBreakdown[schemas.SeverityHigh],
		report.SeverityBreakdown[schemas.SeverityMedium],
		report.SeverityBreakdown[schemas.SeverityLow],
		report.RiskLevel,
	)

	if r.summarizer == nil || len(vulns) == 0 {
		return base
	}

	findings := make([]schemas.Finding, len(vulns))
	for i, v := range vulns {
		findings[i] = v.Finding
	}

	narrative, err := r.summarizer.Summarize(ctx, findings,
		"Write a two-sentence executive summary of these findings for a non-technical stakeholder.")
	if err != nil {
		r.logger.Warn("Summarizer failed, substituting inline note", zap.Error(err))
		return base + " (narrative unavailable: " + err.Error() + ")"
	}
	return base + " " + strings.TrimSpace(narrative)
}

// ToJSON serializes a report for file output.
func ToJSON(report *schemas.Report) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}
