// File: internal/probes/rce.go
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

// CommandOutputProbe detects command injection by appending shell metachar
// payloads that run `id` and looking for its characteristic output in the
// response. `id` is read-only and side-effect free, which keeps the probe
// safe to run against production targets.
type CommandOutputProbe struct {
	fetch      fetcher
	logger     *zap.Logger
	payloads   []string
	signatures []string
}

// NewCommandOutputProbe builds the probe around the shared client and limiter.
func NewCommandOutputProbe(client *network.Client, limiter *rate.Limiter, logger *zap.Logger) *CommandOutputProbe {
	return &CommandOutputProbe{
		fetch:  fetcher{client: client, limiter: limiter},
		logger: logger.Named("probe.rce"),
		payloads: []string{
			";id",
			"|id",
			"$(id)",
			"`id`",
		},
		signatures: []string{
			"uid=",
			"gid=",
			"groups=",
		},
	}
}

func (p *CommandOutputProbe) Name() string             { return "command_output" }
func (p *CommandOutputProbe) Class() schemas.VulnClass { return schemas.VulnRCE }

// Run tries each payload against each candidate parameter. A single matched
// signature is conclusive for that parameter.
func (p *CommandOutputProbe) Run(ctx context.Context, target schemas.Target) ([]schemas.Finding, []ProbeError) {
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

			body, _, _, err := p.fetch.get(ctx, testURL)
			if err != nil {
				probeErrs = append(probeErrs, ProbeError{Probe: p.Name(), URL: testURL, Payload: payload, Err: err})
				continue
			}

			sig := p.matchSignature(body)
			if sig == "" {
				continue
			}

			p.logger.Debug("Command output signature matched",
				zap.String("url", testURL), zap.String("signature", sig))
			findings = append(findings, schemas.Finding{
				Source:     SourceName,
				Type:       schemas.VulnRCE,
				Severity:   schemas.SeverityCritical,
				Evidence:   fmt.Sprintf("command output %q observed via parameter %q", sig, param),
				Confidence: 0.90,
				Payload:    payload,
				URL:        testURL,
				Parameter:  param,
			})
			break
		}
	}

	return findings, probeErrs
}

// matchSignature requires the uid= marker plus one corroborating fragment to
// avoid matching pages that merely mention "uid=" in prose.
func (p *CommandOutputProbe) matchSignature(body string) string {
	if body == "" || !strings.Contains(body, "uid=") {
		return ""
	}
	for _, sig := range p.signatures[1:] {
		if strings.Contains(body, sig) {
			return "uid=... " + sig + "..."
		}
	}
	return ""
}
