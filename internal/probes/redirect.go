// File: internal/probes/redirect.go
package probes

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/obsidiansec/bountyhound/api/schemas"
	"github.com/obsidiansec/bountyhound/internal/network"
)

// redirectParams are the parameter names that commonly carry a redirect
// destination.
var redirectParams = []string{"url", "next", "redirect", "return", "dest", "goto"}

// attackerHost is the marker destination injected by the open-redirect probe.
const attackerHost = "evil.example.com"

// OpenRedirectProbe detects open redirects by injecting an off-site
// destination into redirect-style parameters and inspecting the Location
// header of the response. The shared client never follows redirects, so the
// 3xx response itself is what we examine.
type OpenRedirectProbe struct {
	fetch   fetcher
	logger  *zap.Logger
	payload string
}

// NewOpenRedirectProbe builds the probe around the shared client and limiter.
func NewOpenRedirectProbe(client *network.Client, limiter *rate.Limiter, logger *zap.Logger) *OpenRedirectProbe {
	return &OpenRedirectProbe{
		fetch:   fetcher{client: client, limiter: limiter},
		logger:  logger.Named("probe.redirect"),
		payload: "https://" + attackerHost + "/bhx",
	}
}

func (p *OpenRedirectProbe) Name() string             { return "open_redirect" }
func (p *OpenRedirectProbe) Class() schemas.VulnClass { return schemas.VulnOpenRedirect }

// Run injects the attacker destination into each redirect-style parameter.
func (p *OpenRedirectProbe) Run(ctx context.Context, target schemas.Target) ([]schemas.Finding, []ProbeError) {
	var (
		findings  []schemas.Finding
		probeErrs []ProbeError
	)

	for _, param := range redirectParams {
		testURL, ok := injectPayload(target.URL, param, p.payload)
		if !ok {
			continue
		}

		_, status, header, err := p.fetch.get(ctx, testURL)
		if err != nil {
			probeErrs = append(probeErrs, ProbeError{Probe: p.Name(), URL: testURL, Payload: p.payload, Err: err})
			continue
		}

		if !isRedirectStatus(status) {
			continue
		}
		location := header.Get("Location")
		if !strings.Contains(location, attackerHost) {
			continue
		}

		p.logger.Debug("Open redirect confirmed",
			zap.String("url", testURL), zap.String("location", location))
		findings = append(findings, schemas.Finding{
			Source:     SourceName,
			Type:       schemas.VulnOpenRedirect,
			Severity:   schemas.SeverityMedium,
			Evidence:   fmt.Sprintf("HTTP %d redirect to %q via parameter %q", status, location, param),
			Confidence: 0.85,
			Payload:    p.payload,
			URL:        testURL,
			Parameter:  param,
		})
	}

	return findings, probeErrs
}

func isRedirectStatus(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}
