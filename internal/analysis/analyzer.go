// File: internal/analysis/analyzer.go
// Description: The analyze stage. Classifies and enriches each deduplicated
// finding into a Vulnerability and produces the aggregate severity summary.
package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/obsidiansec/bountyhound/api/schemas"
)

// enrichmentEntry is one row of the fixed enrichment table.
type enrichmentEntry struct {
	Title       string
	Description string
	Remediation string
}

// enrichment is the fixed lookup table keyed by vulnerability type. Unknown
// types fall through to genericEnrichment.
var enrichment = map[schemas.VulnClass]enrichmentEntry{
	schemas.VulnXSS: {
		Title:       "Cross-Site Scripting (XSS)",
		Description: "User-controlled input is reflected into the page without adequate encoding, allowing script execution in the victim's browser.",
		Remediation: "Contextually encode all user input on output and deploy a restrictive Content-Security-Policy.",
	},
	schemas.VulnSQLi: {
		Title:       "SQL Injection",
		Description: "User-controlled input reaches a database query without parameterization, allowing query structure manipulation.",
		Remediation: "Use parameterized queries or prepared statements everywhere; never concatenate user input into SQL.",
	},
	schemas.VulnRCE: {
		Title:       "Remote Code Execution",
		Description: "User-controlled input reaches a command or code execution sink, allowing arbitrary commands on the host.",
		Remediation: "Remove shell invocations over user input; if unavoidable, use strict allow-lists and argument arrays instead of shell strings.",
	},
	schemas.VulnLFI: {
		Title:       "Local File Inclusion",
		Description: "A file path built from user input allows reading files outside the intended directory.",
		Remediation: "Resolve and canonicalize paths server-side and reject any path escaping the allowed root.",
	},
	schemas.VulnOpenRedirect: {
		Title:       "Open Redirect",
		Description: "A redirect destination is taken from user input without validation, enabling phishing via trusted links.",
		Remediation: "Validate redirect targets against an allow-list of internal destinations.",
	},
	schemas.VulnSSRF: {
		Title:       "Server-Side Request Forgery",
		Description: "The server fetches URLs taken from user input, allowing requests into internal networks.",
		Remediation: "Resolve and validate destination addresses against an allow-list before fetching; block link-local and private ranges.",
	},
	schemas.VulnIDOR: {
		Title:       "Insecure Direct Object Reference",
		Description: "Object identifiers are accepted from the client without an ownership check, exposing other users' records.",
		Remediation: "Enforce object-level authorization on every access; avoid guessable identifiers.",
	},
	schemas.VulnCSRF: {
		Title:       "Cross-Site Request Forgery",
		Description: "State-changing endpoints accept requests without an unguessable per-session token.",
		Remediation: "Require same-site cookies and per-request CSRF tokens on all state-changing endpoints.",
	},
	schemas.VulnInfoDisclosure: {
		Title:       "Information Disclosure",
		Description: "The application exposes internal details (versions, stack traces, configuration) useful for targeting further attacks.",
		Remediation: "Disable verbose errors in production and strip identifying headers.",
	},
}

var genericEnrichment = enrichmentEntry{
	Title:       "Unclassified Security Finding",
	Description: "A security-relevant behavior was observed that does not map to a known vulnerability class.",
	Remediation: "Review the attached evidence manually and triage with the application team.",
}

// cvssBySeverity is the fixed CVSS-like score lookup. Scores are
// representative per-level values, not computed from CVSS vectors.
var cvssBySeverity = map[schemas.Severity]float64{
	schemas.SeverityCritical: 9.8,
	schemas.SeverityHigh:     7.5,
	schemas.SeverityMedium:   5.3,
	schemas.SeverityLow:      3.1,
}

// Analyzer enriches deduplicated findings. The summarizer is optional; when
// nil (or failing) the stage still completes, with an inline failure note in
// place of the narrative.
type Analyzer struct {
	summarizer schemas.Summarizer
	logger     *zap.Logger
}

// New creates an Analyzer. Pass a nil summarizer to disable narrative
// enrichment entirely.
func New(summarizer schemas.Summarizer, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		summarizer: summarizer,
		logger:     logger.Named("analysis"),
	}
}

// Analyze derives one Vulnerability per finding and the severity summary.
// Pure lookup-table enrichment; the only external call is the optional
// aggregate summarizer, whose failure is swallowed into an inline note.
func (a *Analyzer) Analyze(ctx context.Context, findings []schemas.Finding) (*schemas.AnalysisResult, error) {
	result := &schemas.AnalysisResult{
		Vulnerabilities: make([]schemas.Vulnerability, 0, len(findings)),
		Summary:         make(map[schemas.Severity]int),
	}

	for _, f := range findings {
		entry, ok := enrichment[f.Type]
		if !ok {
			entry = genericEnrichment
		}
		cvss, ok := cvssBySeverity[f.Severity]
		if !ok {
			cvss = cvssBySeverity[schemas.SeverityMedium]
		}

		result.Vulnerabilities = append(result.Vulnerabilities, schemas.Vulnerability{
			Finding:     f,
			Title:       entry.Title,
			Description: entry.Description,
			CVSSScore:   cvss,
			Remediation: entry.Remediation,
		})
		result.Summary[f.Severity]++
	}

	if a.summarizer != nil && len(findings) > 0 {
		insights, err := a.summarizer.Summarize(ctx, findings,
			"Summarize the key risks in these findings for a security engineer in three sentences.")
		if err != nil {
			// The summarizer is a best-effort collaborator; its failure must
			// not fail the stage.
			a.logger.Warn("Summarizer failed, substituting inline note", zap.Error(err))
			insights = fmt.Sprintf("summary unavailable: %v", err)
		}
		result.AIInsights = insights
	}

	a.logger.Info("Analysis complete",
		zap.Int("vulnerabilities", len(result.Vulnerabilities)))
	return result, nil
}
