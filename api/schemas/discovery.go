package schemas

import "time"

// -- Discovery Run Schemas --

// ScanKind selects one of the two convenience scan profiles.
type ScanKind string

const (
	ScanKindQuick ScanKind = "quick"
	ScanKindDeep  ScanKind = "deep"
)

// ScanProfile carries the scan configuration for one discovery run: kind,
// focus set, and per-stage timeout overrides. A zero value in any timeout
// field means "use the pipeline default".
type ScanProfile struct {
	Kind  ScanKind    `json:"kind"`
	Focus []VulnClass `json:"focus"`

	ScanTimeout    time.Duration `json:"scan_timeout,omitempty"`
	AnalyzeTimeout time.Duration `json:"analyze_timeout,omitempty"`
	ReportTimeout  time.Duration `json:"report_timeout,omitempty"`
	// OverallTimeout is the hard ceiling on the whole run. It always wins over
	// the sum of the per-stage timeouts.
	OverallTimeout time.Duration `json:"overall_timeout,omitempty"`
}

// QuickProfile returns the "quick scan" preset: narrow focus, 90 second
// ceiling. This is a configuration preset, not a separate code path.
func QuickProfile() ScanProfile {
	return ScanProfile{
		Kind:           ScanKindQuick,
		Focus:          []VulnClass{VulnXSS, VulnSQLi, VulnOpenRedirect},
		OverallTimeout: 90 * time.Second,
	}
}

// DeepProfile returns the "deep scan" preset: every vulnerability class, 600
// second ceiling.
func DeepProfile() ScanProfile {
	return ScanProfile{
		Kind:           ScanKindDeep,
		Focus:          AllVulnClasses(),
		OverallTimeout: 600 * time.Second,
	}
}

// Target is a URL plus its scan configuration. Immutable for the lifetime of
// one discovery run.
type Target struct {
	URL     string      `json:"url"`
	Profile ScanProfile `json:"profile"`
}

// RunState tracks the discovery orchestrator's state machine.
type RunState string

const (
	RunPending   RunState = "pending"
	RunScanning  RunState = "scanning"
	RunAnalyzing RunState = "analyzing"
	RunReporting RunState = "reporting"
	RunCompleted RunState = "completed"
	RunTimedOut  RunState = "timed_out"
	RunFailed    RunState = "failed"
)

// Stage names one of the three deadline-bounded pipeline stages.
type Stage string

const (
	StageScan    Stage = "scan"
	StageAnalyze Stage = "analyze"
	StageReport  Stage = "report"
)

// ScanStageResult aggregates the output of the scan stage across all scanner
// backends: the merged, deduplicated findings plus per-backend diagnostics.
type ScanStageResult struct {
	Findings     []Finding `json:"findings"`
	ScannersUsed []string  `json:"scanners_used"`
	// Errors lists per-backend failures ("scanner: cause"). A failed backend
	// never aborts its siblings; its entry here is the only trace it leaves.
	Errors []string `json:"errors,omitempty"`
	// Notes flags simulated fallback results so callers can tell demo data
	// from live findings.
	Notes []string `json:"notes,omitempty"`
}

// AnalysisResult is the output of the analyze stage.
type AnalysisResult struct {
	Vulnerabilities []Vulnerability  `json:"vulnerabilities"`
	Summary         map[Severity]int `json:"summary"`
	// AIInsights holds the optional aggregate narrative from the summarizer.
	AIInsights string `json:"ai_insights,omitempty"`
}

// Report is the output of the report stage: an executive view over the final
// vulnerability set.
type Report struct {
	RiskLevel          string           `json:"risk_level"`
	SeverityBreakdown  map[Severity]int `json:"severity_breakdown"`
	TopVulnerabilities []Vulnerability  `json:"top_vulnerabilities"`
	ExecutiveSummary   string           `json:"executive_summary"`
	Recommendations    []string         `json:"recommendations"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

// DiscoveryRun is the record of one end-to-end discovery pipeline execution.
// It is created when orchestration starts, mutated only by the orchestrator as
// stages complete, and immutable once Success or Error is set.
//
// Stage outputs are pointers: a nil pointer means the stage never ran (skipped
// or cut off by the deadline), which is distinct from a stage that ran and
// produced an empty result.
type DiscoveryRun struct {
	ID        string    `json:"id"`
	Target    Target    `json:"target"`
	State     RunState  `json:"state"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Duration time.Duration `json:"duration"`

	Scan     *ScanStageResult `json:"scan,omitempty"`
	Analysis *AnalysisResult  `json:"analysis,omitempty"`
	Report   *Report          `json:"report,omitempty"`

	Success bool `json:"success"`
	// Error is a human-readable failure description; empty on success.
	Error string `json:"error,omitempty"`
	// FailedStage names the stage that timed out or failed, when any did.
	FailedStage Stage `json:"failed_stage,omitempty"`
}
