// File: internal/backends/crawlscan.go
package backends

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/obsidiansec/bountyhound/api/schemas"
	"github.com/obsidiansec/bountyhound/internal/config"
	"github.com/obsidiansec/bountyhound/internal/network"
)

// CrawlScanName is the source name on findings from the crawl+active engine.
const CrawlScanName = "crawlscan"

// CrawlScanBackend drives a remote crawler plus active-scan engine through
// the job protocol. The engine reports ZAP-style alerts with word severities
// ("High", "Informational") which its normalizer maps onto the canonical
// scale.
type CrawlScanBackend struct {
	job    *jobClient
	logger *zap.Logger
}

// NewCrawlScanBackend builds the backend from its scanner configuration.
func NewCrawlScanBackend(httpc *network.Client, cfg config.RemoteScannerConfig, logger *zap.Logger) *CrawlScanBackend {
	logger = logger.Named("backend.crawlscan")
	return &CrawlScanBackend{
		job:    newJobClient(httpc, cfg, logger),
		logger: logger,
	}
}

func (b *CrawlScanBackend) Name() string { return CrawlScanName }

// Run submits a scan job, polls it to completion, and normalizes the alert
// payload. When the engine is unreachable it returns flagged sample results
// instead of failing, so test and demo environments keep working.
func (b *CrawlScanBackend) Run(ctx context.Context, target schemas.Target) (*schemas.BackendResult, error) {
	jobID, err := b.job.submit(ctx, target)
	if errors.Is(err, ErrBackendUnavailable) {
		b.logger.Warn("Engine unreachable, falling back to simulated results", zap.Error(err))
		return b.simulated(target, err), nil
	}
	if err != nil {
		return nil, fmt.Errorf("crawlscan submission failed: %w", err)
	}

	if err := b.job.await(ctx, jobID); err != nil {
		return nil, fmt.Errorf("crawlscan job %s did not succeed: %w", jobID, err)
	}

	raw, err := b.job.results(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("crawlscan job %s: %w", jobID, err)
	}

	findings, err := b.normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("crawlscan job %s: %w", jobID, err)
	}

	return &schemas.BackendResult{
		Scanner:    b.Name(),
		Findings:   findings,
		Provenance: schemas.ProvenanceReal,
	}, nil
}

// crawlScanAlert is the engine-native alert shape. It exists only inside this
// normalizer.
type crawlScanAlert struct {
	Alert      string `json:"alert"`
	Risk       string `json:"risk"`
	URL        string `json:"url"`
	Param      string `json:"param"`
	Evidence   string `json:"evidence"`
	Attack     string `json:"attack"`
	Confidence string `json:"confidence"`
}

// normalize maps the native alert list into canonical findings.
func (b *CrawlScanBackend) normalize(raw []byte) ([]schemas.Finding, error) {
	var payload struct {
		Alerts []crawlScanAlert `json:"alerts"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse alert payload: %w", err)
	}

	findings := make([]schemas.Finding, 0, len(payload.Alerts))
	for _, alert := range payload.Alerts {
		findings = append(findings, schemas.Finding{
			Source:     b.Name(),
			Type:       classifyVulnClass(alert.Alert),
			Severity:   schemas.NormalizeSeverity(alert.Risk),
			Evidence:   alert.Evidence,
			Confidence: crawlScanConfidence(alert.Confidence),
			Payload:    alert.Attack,
			URL:        alert.URL,
			Parameter:  alert.Param,
		})
	}
	return findings, nil
}

// crawlScanConfidence maps the engine's confidence words onto [0,1].
func crawlScanConfidence(word string) float64 {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "confirmed", "high":
		return 0.9
	case "medium":
		return 0.7
	case "low":
		return 0.5
	default:
		return 0.5
	}
}

// simulated returns the flagged sample set used when the engine is
// unreachable.
func (b *CrawlScanBackend) simulated(target schemas.Target, cause error) *schemas.BackendResult {
	return &schemas.BackendResult{
		Scanner:    b.Name(),
		Provenance: schemas.ProvenanceSimulated,
		Note:       fmt.Sprintf("engine unreachable, sample results substituted: %v", cause),
		Findings: []schemas.Finding{
			{
				Source:     b.Name(),
				Type:       schemas.VulnXSS,
				Severity:   schemas.SeverityMedium,
				Evidence:   "sample: script payload reflected in search results page",
				Confidence: 0.7,
				Payload:    `<script>alert(1)</script>`,
				URL:        target.URL + "/search?q=",
				Parameter:  "q",
			},
			{
				Source:     b.Name(),
				Type:       schemas.VulnSQLi,
				Severity:   schemas.SeverityHigh,
				Evidence:   "sample: SQL syntax error on quoted id parameter",
				Confidence: 0.75,
				Payload:    `'`,
				URL:        target.URL + "/item?id=",
				Parameter:  "id",
			},
		},
	}
}
