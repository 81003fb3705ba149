// File: internal/probes/xss.go
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

// ReflectedMarkerProbe detects reflected XSS by injecting a unique marker
// containing HTML metacharacters and checking whether it comes back in the
// response body, raw or partially encoded. Lightweight by design: benign GET
// requests only, no script execution.
type ReflectedMarkerProbe struct {
	fetch   fetcher
	logger  *zap.Logger
	payload string
}

// NewReflectedMarkerProbe builds the probe around the shared client and
// limiter.
func NewReflectedMarkerProbe(client *network.Client, limiter *rate.Limiter, logger *zap.Logger) *ReflectedMarkerProbe {
	return &ReflectedMarkerProbe{
		fetch:   fetcher{client: client, limiter: limiter},
		logger:  logger.Named("probe.xss"),
		payload: `bhx_probe_<>"'</script>`,
	}
}

func (p *ReflectedMarkerProbe) Name() string            { return "reflected_marker" }
func (p *ReflectedMarkerProbe) Class() schemas.VulnClass { return schemas.VulnXSS }

// Run injects the marker into every candidate parameter. One reflection per
// parameter is enough; further payloads would only add noise.
func (p *ReflectedMarkerProbe) Run(ctx context.Context, target schemas.Target) ([]schemas.Finding, []ProbeError) {
	var (
		findings []schemas.Finding
		probeErrs []ProbeError
	)

	for _, param := range candidateParams(target.URL) {
		testURL, ok := injectPayload(target.URL, param, p.payload)
		if !ok {
			continue
		}

		body, _, _, err := p.fetch.get(ctx, testURL)
		if err != nil {
			probeErrs = append(probeErrs, ProbeError{Probe: p.Name(), URL: testURL, Payload: p.payload, Err: err})
			continue
		}

		if isReflected(body, p.payload) {
			p.logger.Debug("Marker reflected", zap.String("url", testURL), zap.String("param", param))
			findings = append(findings, schemas.Finding{
				Source:     SourceName,
				Type:       schemas.VulnXSS,
				Severity:   schemas.SeverityMedium,
				Evidence:   fmt.Sprintf("payload reflected via parameter %q", param),
				Confidence: 0.78,
				Payload:    p.payload,
				URL:        testURL,
				Parameter:  param,
			})
		}
	}

	return findings, probeErrs
}

// isReflected checks for the raw marker and for common HTML-encoded variants.
func isReflected(body, payload string) bool {
	if body == "" {
		return false
	}
	if strings.Contains(body, payload) {
		return true
	}

	lower := strings.ToLower(body)
	lp := strings.ToLower(payload)

	variants := []string{
		strings.ReplaceAll(lp, "<", "&lt;"),
		strings.ReplaceAll(lp, ">", "&gt;"),
		strings.ReplaceAll(lp, `"`, "&quot;"),
		strings.ReplaceAll(lp, `"`, "&#34;"),
		strings.ReplaceAll(lp, "'", "&#39;"),
	}
	for _, v := range variants {
		if v != "" && strings.Contains(lower, v) {
			return true
		}
	}
	return false
}
