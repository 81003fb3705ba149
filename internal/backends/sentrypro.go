// File: internal/backends/sentrypro.go
package backends

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/obsidiansec/bountyhound/api/schemas"
	"github.com/obsidiansec/bountyhound/internal/config"
	"github.com/obsidiansec/bountyhound/internal/network"
)

// SentryProName is the source name on findings from the commercial engine.
const SentryProName = "sentrypro"

// SentryProBackend drives the commercial SentryPro appliance through the same
// job protocol, authenticated with an API key. The appliance reports numeric
// risk codes ("0".."4") rather than severity words; its normalizer funnels
// them through the canonical mapping.
type SentryProBackend struct {
	job    *jobClient
	logger *zap.Logger
}

// NewSentryProBackend builds the backend from its scanner configuration.
func NewSentryProBackend(httpc *network.Client, cfg config.RemoteScannerConfig, logger *zap.Logger) *SentryProBackend {
	logger = logger.Named("backend.sentrypro")
	return &SentryProBackend{
		job:    newJobClient(httpc, cfg, logger),
		logger: logger,
	}
}

func (b *SentryProBackend) Name() string { return SentryProName }

// Run submits, awaits and normalizes one appliance job, falling back to
// flagged sample results when the appliance is unreachable.
func (b *SentryProBackend) Run(ctx context.Context, target schemas.Target) (*schemas.BackendResult, error) {
	jobID, err := b.job.submit(ctx, target)
	if errors.Is(err, ErrBackendUnavailable) {
		b.logger.Warn("Appliance unreachable, falling back to simulated results", zap.Error(err))
		return b.simulated(target, err), nil
	}
	if err != nil {
		return nil, fmt.Errorf("sentrypro submission failed: %w", err)
	}

	if err := b.job.await(ctx, jobID); err != nil {
		return nil, fmt.Errorf("sentrypro job %s did not succeed: %w", jobID, err)
	}

	raw, err := b.job.results(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("sentrypro job %s: %w", jobID, err)
	}

	findings, err := b.normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("sentrypro job %s: %w", jobID, err)
	}

	return &schemas.BackendResult{
		Scanner:    b.Name(),
		Findings:   findings,
		Provenance: schemas.ProvenanceReal,
	}, nil
}

// sentryProIssue is the appliance-native issue shape, confined to this
// normalizer.
type sentryProIssue struct {
	Type       string  `json:"type"`
	Risk       string  `json:"risk"` // numeric code "0".."4"
	Endpoint   string  `json:"endpoint"`
	Parameter  string  `json:"parameter"`
	Proof      string  `json:"proof"`
	Payload    string  `json:"payload"`
	Confidence float64 `json:"confidence"`
}

// normalize maps the native issue list into canonical findings.
func (b *SentryProBackend) normalize(raw []byte) ([]schemas.Finding, error) {
	var payload struct {
		Issues []sentryProIssue `json:"issues"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse issue payload: %w", err)
	}

	findings := make([]schemas.Finding, 0, len(payload.Issues))
	for _, issue := range payload.Issues {
		confidence := issue.Confidence
		if confidence <= 0 || confidence > 1 {
			confidence = 0.75
		}
		findings = append(findings, schemas.Finding{
			Source:     b.Name(),
			Type:       classifyVulnClass(issue.Type),
			Severity:   schemas.NormalizeSeverity(issue.Risk),
			Evidence:   issue.Proof,
			Confidence: confidence,
			Payload:    issue.Payload,
			URL:        issue.Endpoint,
			Parameter:  issue.Parameter,
		})
	}
	return findings, nil
}

// simulated returns the flagged sample set used when the appliance is
// unreachable.
func (b *SentryProBackend) simulated(target schemas.Target, cause error) *schemas.BackendResult {
	return &schemas.BackendResult{
		Scanner:    b.Name(),
		Provenance: schemas.ProvenanceSimulated,
		Note:       fmt.Sprintf("appliance unreachable, sample results substituted: %v", cause),
		Findings: []schemas.Finding{
			{
				Source:     b.Name(),
				Type:       schemas.VulnRCE,
				Severity:   schemas.SeverityCritical,
				Evidence:   "sample: command output observed in template field",
				Confidence: 0.8,
				Payload:    "$(id)",
				URL:        target.URL + "/export?template=",
				Parameter:  "template",
			},
			{
				Source:     b.Name(),
				Type:       schemas.VulnInfoDisclosure,
				Severity:   schemas.SeverityLow,
				Evidence:   "sample: framework version exposed in error page",
				Confidence: 0.6,
				URL:        target.URL + "/debug",
			},
		},
	}
}
