// File: internal/orchestrator/orchestrator.go
// Description: The discovery pipeline state machine. Runs scan, analyze and
// report in sequence under nested deadlines and assembles the DiscoveryRun
// record.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/obsidiansec/bountyhound/api/schemas"
	"github.com/obsidiansec/bountyhound/internal/config"
)

// ScanStage fans the target out to the scanner backends and returns the
// merged, deduplicated findings. It never hard-fails; per-backend failures
// are carried inside the result.
type ScanStage interface {
	RunAll(ctx context.Context, target schemas.Target) *schemas.ScanStageResult
}

// AnalyzeStage enriches deduplicated findings into vulnerabilities.
type AnalyzeStage interface {
	Analyze(ctx context.Context, findings []schemas.Finding) (*schemas.AnalysisResult, error)
}

// ReportStage rolls the vulnerability set up into the executive report.
type ReportStage interface {
	Build(ctx context.Context, vulns []schemas.Vulnerability) (*schemas.Report, error)
}

// Orchestrator drives one discovery run through its stages. All collaborators
// are injected; the orchestrator owns only sequencing, deadlines and state
// transitions.
type Orchestrator struct {
	scan     ScanStage
	analyze  AnalyzeStage
	report   ReportStage
	defaults config.PipelineConfig
	logger   *zap.Logger
}

// New creates an Orchestrator, failing fast on missing collaborators.
func New(scan ScanStage, analyze AnalyzeStage, report ReportStage, defaults config.PipelineConfig, logger *zap.Logger) (*Orchestrator, error) {
	if scan == nil {
		return nil, errors.New("orchestrator requires a scan stage")
	}
	if analyze == nil {
		return nil, errors.New("orchestrator requires an analyze stage")
	}
	if report == nil {
		return nil, errors.New("orchestrator requires a report stage")
	}
	if logger == nil {
		return nil, errors.New("orchestrator requires a logger")
	}
	return &Orchestrator{
		scan:     scan,
		analyze:  analyze,
		report:   report,
		defaults: defaults,
		logger:   logger.Named("orchestrator"),
	}, nil
}

// stageTimeout resolves one stage deadline: the profile override when set,
// otherwise the pipeline default.
func stageTimeout(override, fallback time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return fallback
}

// RunDiscovery executes the full pipeline against one target and always
// returns a terminal DiscoveryRun, even on timeout or stage failure. Outputs
// of stages that completed before a cutoff are preserved on the run.
//
// The overall ceiling is a context deadline wrapping every stage context, so
// it wins over per-stage budgets structurally rather than by bookkeeping.
// Per-stage deadlines are advisory inner bounds: a stage cut short by its own
// deadline hands back partial results and the run continues.
func (o *Orchestrator) RunDiscovery(ctx context.Context, target schemas.Target) *schemas.DiscoveryRun {
	run := &schemas.DiscoveryRun{
		ID:        uuid.NewString(),
		Target:    target,
		State:     schemas.RunPending,
		StartTime: time.Now().UTC(),
	}
	logger := o.logger.With(
		zap.String("run_id", run.ID),
		zap.String("target", target.URL),
		zap.String("profile", string(target.Profile.Kind)))
	logger.Info("Discovery run starting")

	overall := stageTimeout(target.Profile.OverallTimeout, o.defaults.OverallTimeout)
	runCtx, cancel := context.WithTimeout(ctx, overall)
	defer cancel()

	o.execute(runCtx, run, logger)

	run.EndTime = time.Now().UTC()
	run.Duration = run.EndTime.Sub(run.StartTime)
	logger.Info("Discovery run finished",
		zap.String("state", string(run.State)),
		zap.Bool("success", run.Success),
		zap.Duration("duration", run.Duration))
	return run
}

// execute walks the stages, mutating the run record in place. runCtx carries
// the overall deadline.
func (o *Orchestrator) execute(runCtx context.Context, run *schemas.DiscoveryRun, logger *zap.Logger) {
	profile := run.Target.Profile

	// -- Scan --
	run.State = schemas.RunScanning
	scanCtx, cancelScan := context.WithTimeout(runCtx,
		stageTimeout(profile.ScanTimeout, o.defaults.ScanTimeout))
	run.Scan = o.scan.RunAll(scanCtx, run.Target)
	cancelScan()
	logger.Info("Scan stage complete",
		zap.Int("findings", len(run.Scan.Findings)),
		zap.Strings("scanners", run.Scan.ScannersUsed))
	if o.ceilingExpired(runCtx, run, schemas.StageScan) {
		return
	}

	// Nothing to analyze or report on. The run still succeeds; the nil stage
	// pointers record that the later stages never ran.
	if len(run.Scan.Findings) == 0 {
		run.State = schemas.RunCompleted
		run.Success = true
		logger.Info("No findings, skipping analysis and reporting")
		return
	}

	// -- Analyze --
	run.State = schemas.RunAnalyzing
	analyzeCtx, cancelAnalyze := context.WithTimeout(runCtx,
		stageTimeout(profile.AnalyzeTimeout, o.defaults.AnalyzeTimeout))
	analysis, err := o.analyze.Analyze(analyzeCtx, run.Scan.Findings)
	cancelAnalyze()
	if err != nil {
		o.fail(runCtx, run, schemas.StageAnalyze, err)
		return
	}
	run.Analysis = analysis
	logger.Info("Analyze stage complete",
		zap.Int("vulnerabilities", len(analysis.Vulnerabilities)))
	if o.ceilingExpired(runCtx, run, schemas.StageAnalyze) {
		return
	}

	// -- Report --
	run.State = schemas.RunReporting
	reportCtx, cancelReport := context.WithTimeout(runCtx,
		stageTimeout(profile.ReportTimeout, o.defaults.ReportTimeout))
	report, err := o.report.Build(reportCtx, analysis.Vulnerabilities)
	cancelReport()
	if err != nil {
		o.fail(runCtx, run, schemas.StageReport, err)
		return
	}
	run.Report = report
	if o.ceilingExpired(runCtx, run, schemas.StageReport) {
		return
	}

	run.State = schemas.RunCompleted
	run.Success = true
}

// ceilingExpired checks the overall deadline after a stage settles. When it
// has elapsed the run terminates as TimedOut, keeping every stage output
// materialized so far.
func (o *Orchestrator) ceilingExpired(runCtx context.Context, run *schemas.DiscoveryRun, stage schemas.Stage) bool {
	if runCtx.Err() == nil {
		return false
	}
	run.Success = false
	run.State = schemas.RunTimedOut
	run.FailedStage = stage
	run.Error = fmt.Sprintf("overall deadline exceeded during %s stage", stage)
	o.logger.Warn("Discovery run timed out",
		zap.String("run_id", run.ID),
		zap.String("stage", string(stage)))
	return true
}

// fail records a terminal stage failure, distinguishing a deadline expiry
// from an ordinary error.
func (o *Orchestrator) fail(runCtx context.Context, run *schemas.DiscoveryRun, stage schemas.Stage, err error) {
	run.Success = false
	run.FailedStage = stage

	if errors.Is(err, context.DeadlineExceeded) || runCtx.Err() != nil {
		run.State = schemas.RunTimedOut
		run.Error = fmt.Sprintf("%s stage deadline exceeded", stage)
	} else {
		run.State = schemas.RunFailed
		run.Error = fmt.Sprintf("%s stage failed: %v", stage, err)
	}

	o.logger.Warn("Discovery run terminated early",
		zap.String("run_id", run.ID),
		zap.String("stage", string(stage)),
		zap.String("state", string(run.State)),
		zap.Error(err))
}
