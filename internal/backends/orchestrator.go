// File: internal/backends/orchestrator.go
package backends

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/obsidiansec/bountyhound/api/schemas"
)

// Orchestrator fans one target out across the enabled scanner backends
// concurrently and merges their results. It is injected with fully
// constructed backends, which keeps it decoupled and testable.
type Orchestrator struct {
	backends []schemas.Backend
	logger   *zap.Logger
}

// NewOrchestrator wires the enabled backends in registration order. That
// order decides which copy of a duplicated finding survives deduplication, so
// callers should register their most trusted backend first.
func NewOrchestrator(logger *zap.Logger, enabled ...schemas.Backend) (*Orchestrator, error) {
	if logger == nil {
		return nil, fmt.Errorf("cannot initialize scanner orchestrator with a nil logger")
	}
	if len(enabled) == 0 {
		return nil, fmt.Errorf("at least one scanner backend must be enabled")
	}
	return &Orchestrator{backends: enabled, logger: logger.Named("scanner_orchestrator")}, nil
}

// RunAll executes every backend as one concurrent task and aggregates the
// results after all of them settle. A failing backend contributes an error
// entry and nothing else; its siblings are unaffected. The merged finding set
// is deduplicated on the (type, url, parameter) key, first-seen wins in
// backend registration order.
func (o *Orchestrator) RunAll(ctx context.Context, target schemas.Target) *schemas.ScanStageResult {
	o.logger.Info("Dispatching scanner backends",
		zap.String("target", target.URL),
		zap.Int("backends", len(o.backends)))

	// Per-backend slots: each task writes only its own index, so the fan-in
	// barrier below is the only synchronization needed.
	results := make([]*schemas.BackendResult, len(o.backends))
	failures := make([]error, len(o.backends))

	var g errgroup.Group
	for i, backend := range o.backends {
		g.Go(func() error {
			res, err := backend.Run(ctx, target)
			results[i], failures[i] = res, err
			return nil
		})
	}
	// Closures never return errors; Wait is purely the fan-in barrier.
	_ = g.Wait()

	agg := &schemas.ScanStageResult{}
	var merged []schemas.Finding
	for i, backend := range o.backends {
		agg.ScannersUsed = append(agg.ScannersUsed, backend.Name())

		if failures[i] != nil {
			o.logger.Warn("Scanner backend failed",
				zap.String("scanner", backend.Name()), zap.Error(failures[i]))
			agg.Errors = append(agg.Errors, BackendError{Scanner: backend.Name(), Err: failures[i]}.Error())
			continue
		}
		if results[i] == nil {
			continue
		}
		if results[i].Provenance == schemas.ProvenanceSimulated {
			agg.Notes = append(agg.Notes,
				fmt.Sprintf("%s: %s", backend.Name(), results[i].Note))
		}
		merged = append(merged, results[i].Findings...)
	}

	agg.Findings = Dedup(merged)

	o.logger.Info("Scanner backends complete",
		zap.Int("findings", len(agg.Findings)),
		zap.Int("merged_from", len(merged)),
		zap.Int("failed_backends", len(agg.Errors)))
	return agg
}
