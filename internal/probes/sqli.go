// File: internal/probes/sqli.go
package probes

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/obsidiansec/bountyhound/api/schemas"
	"github.com/obsidiansec/bountyhound/internal/network"
)

// ErrorSignatureProbe detects error-based SQL injection: it feeds quote
// payloads into query parameters and looks for well-known DBMS error strings
// in the response. Non-destructive and fast; no time-based or blind probing.
type ErrorSignatureProbe struct {
	fetch    fetcher
	logger   *zap.Logger
	payloads []string
	patterns []string
}

// NewErrorSignatureProbe builds the probe around the shared client and
// limiter.
func NewErrorSignatureProbe(client *network.Client, limiter *rate.Limiter, logger *zap.Logger) *ErrorSignatureProbe {
	return &ErrorSignatureProbe{
		fetch:  fetcher{client: client, limiter: limiter},
		logger: logger.Named("probe.sqli"),
		payloads: []string{
			`'`,
			`"`,
			`' OR 1=1--`,
		},
		// Error fragments across the common DBMS families.
		patterns: []string{
			"you have an error in your sql syntax",
			"warning: mysql",
			"mysql_fetch_array()",
			"pg_query():",
			"postgresql query failed",
			"unclosed quotation mark after the character string",
			"odbc sql server driver",
			"sqlstate[hy000]",
			"sqlstate[42000]",
			"syntax error in query expression",
			"sqlite3.operationalerror",
			"ora-00933",
		},
	}
}

func (p *ErrorSignatureProbe) Name() string             { return "error_signature" }
func (p *ErrorSignatureProbe) Class() schemas.VulnClass { return schemas.VulnSQLi }

// Run tries each payload against each candidate parameter. One matched error
// pattern per parameter is treated as conclusive.
func (p *ErrorSignatureProbe) Run(ctx context.Context, target schemas.Target) ([]schemas.Finding, []ProbeError) {
	var (
		findings  []schemas.Finding
		probeErrs []ProbeError
	)

	for _, param := range candidateParams(target.URL) {
		for _, payload := range p.payloads {
			testURL, ok := injectPayload(target.URL, param, payload)
			if !ok {
				continue
			}

			body, status, _, err := p.fetch.get(ctx, testURL)
			if err != nil {
				probeErrs = append(probeErrs, ProbeError{Probe: p.Name(), URL: testURL, Payload: payload, Err: err})
				continue
			}

			pattern := p.matchError(body)
			if pattern == "" {
				continue
			}

			confidence := 0.80
			if strings.Contains(strings.ToLower(payload), "or 1=1") {
				confidence = 0.86
			}

			p.logger.Debug("DB error signature matched",
				zap.String("url", testURL), zap.String("pattern", pattern))
			findings = append(findings, schemas.Finding{
				Source:     SourceName,
				Type:       schemas.VulnSQLi,
				Severity:   schemas.SeverityHigh,
				Evidence:   fmt.Sprintf("DB error pattern %q via parameter %q (HTTP %d)", pattern, param, status),
				Confidence: confidence,
				Payload:    payload,
				URL:        testURL,
				Parameter:  param,
			})
			break
		}
	}

	return findings, probeErrs
}

// matchError returns the first known DBMS error fragment found in the body.
func (p *ErrorSignatureProbe) matchError(body string) string {
	if body == "" {
		return ""
	}
	lower := strings.ToLower(body)
	for _, pattern := range p.patterns {
		if strings.Contains(lower, pattern) {
			return pattern
		}
	}
	return ""
}
