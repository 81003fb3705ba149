// File: internal/scan/coordinator.go
// Description: Fans one target out across the probe bundles for the requested
// vulnerability classes, gathers whatever completed, and partitions findings
// from per-attempt errors.
package scan

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/obsidiansec/bountyhound/api/schemas"
	"github.com/obsidiansec/bountyhound/internal/network"
	"github.com/obsidiansec/bountyhound/internal/probes"
)

// Outcome is the coordinator's aggregate result: the flattened findings of
// every probe bundle that completed, plus the per-attempt errors that were
// recovered along the way.
type Outcome struct {
	Findings []schemas.Finding
	Errors   []error
}

// Coordinator runs the built-in probe bundles. One concurrent task per
// requested focus class; tasks run to completion independently, with no early
// cancellation on failure. The coordinator enforces no deadline of its own —
// the enclosing stage context bounds it from outside.
type Coordinator struct {
	logger        *zap.Logger
	probesByClass map[schemas.VulnClass][]probes.Probe
}

// NewCoordinator registers the built-in probes against the shared HTTP client
// and rate limiter.
func NewCoordinator(client *network.Client, limiter *rate.Limiter, logger *zap.Logger) *Coordinator {
	logger = logger.Named("scan_coordinator")

	registry := map[schemas.VulnClass][]probes.Probe{
		schemas.VulnXSS:          {probes.NewReflectedMarkerProbe(client, limiter, logger)},
		schemas.VulnSQLi:         {probes.NewErrorSignatureProbe(client, limiter, logger)},
		schemas.VulnRCE:          {probes.NewCommandOutputProbe(client, limiter, logger)},
		schemas.VulnOpenRedirect: {probes.NewOpenRedirectProbe(client, limiter, logger)},
	}

	return &Coordinator{logger: logger, probesByClass: registry}
}

// NewCoordinatorWithProbes builds a coordinator over an explicit probe
// registry. Used by tests to inject fakes.
func NewCoordinatorWithProbes(logger *zap.Logger, registry map[schemas.VulnClass][]probes.Probe) *Coordinator {
	return &Coordinator{logger: logger.Named("scan_coordinator"), probesByClass: registry}
}

// Classes returns the vulnerability classes the coordinator has probes for.
func (c *Coordinator) Classes() []schemas.VulnClass {
	classes := make([]schemas.VulnClass, 0, len(c.probesByClass))
	for class := range c.probesByClass {
		classes = append(classes, class)
	}
	return classes
}

// Scan probes the target for every requested focus class concurrently. Focus
// classes with no registered probe are skipped silently; they are covered by
// the external scanner backends instead. The returned finding set carries no
// ordering guarantee.
func (c *Coordinator) Scan(ctx context.Context, target schemas.Target, focus []schemas.VulnClass) *Outcome {
	outcome := &Outcome{}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, class := range focus {
		bundle, ok := c.probesByClass[class]
		if !ok {
			continue
		}

		wg.Add(1)
		go func(class schemas.VulnClass, bundle []probes.Probe) {
			defer wg.Done()

			// Each probe catches its own per-payload failures and keeps
			// going; a single network error never aborts a focus task.
			for _, p := range bundle {
				findings, probeErrs := p.Run(ctx, target)

				mu.Lock()
				outcome.Findings = append(outcome.Findings, findings...)
				for _, pe := range probeErrs {
					outcome.Errors = append(outcome.Errors, pe)
				}
				mu.Unlock()

				if len(probeErrs) > 0 {
					c.logger.Debug("Probe completed with recovered errors",
						zap.String("probe", p.Name()),
						zap.String("class", string(class)),
						zap.Int("errors", len(probeErrs)),
						zap.Int("findings", len(findings)))
				}
			}
		}(class, bundle)
	}

	// Fan-in barrier: results are combined only after every task settles, so
	// no shared state is mutated concurrently past this point.
	wg.Wait()

	c.logger.Info("Probe scan complete",
		zap.String("target", target.URL),
		zap.Int("findings", len(outcome.Findings)),
		zap.Int("recovered_errors", len(outcome.Errors)))
	return outcome
}
