// File: internal/backends/signature.go
package backends

import (
	"context"

	"go.uber.org/zap"

	"github.com/obsidiansec/bountyhound/api/schemas"
	"github.com/obsidiansec/bountyhound/internal/probes"
	"github.com/obsidiansec/bountyhound/internal/scan"
)

// SignatureBackend runs the built-in probe bundles directly instead of
// driving a remote engine. It needs no fallback path: there is nothing
// remote to be unreachable.
type SignatureBackend struct {
	coordinator *scan.Coordinator
	logger      *zap.Logger
}

// NewSignatureBackend wraps the probe coordinator as a scanner backend.
func NewSignatureBackend(coordinator *scan.Coordinator, logger *zap.Logger) *SignatureBackend {
	return &SignatureBackend{
		coordinator: coordinator,
		logger:      logger.Named("backend.signature"),
	}
}

func (b *SignatureBackend) Name() string { return probes.SourceName }

// Run probes the target for the profile's focus classes. Per-payload probe
// errors were already recovered inside the coordinator; they are logged here
// and intentionally not surfaced as a backend failure.
func (b *SignatureBackend) Run(ctx context.Context, target schemas.Target) (*schemas.BackendResult, error) {
	focus := target.Profile.Focus
	if len(focus) == 0 {
		focus = schemas.AllVulnClasses()
	}

	outcome := b.coordinator.Scan(ctx, target, focus)
	if len(outcome.Errors) > 0 {
		b.logger.Debug("Probe scan recovered request failures",
			zap.Int("count", len(outcome.Errors)))
	}

	return &schemas.BackendResult{
		Scanner:    b.Name(),
		Findings:   outcome.Findings,
		Provenance: schemas.ProvenanceReal,
	}, nil
}
