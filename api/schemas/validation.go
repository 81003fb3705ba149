package schemas

// -- Bug Intake / Validation Schemas --

// BugReport is the in-memory shape of a reported bug as handed to the
// validation engine by the outer intake workflow. Persistence of bugs is owned
// by the excluded storage layer; the core only ever sees plain records.
type BugReport struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VulnType    VulnClass `json:"vuln_type"`
	TargetURL   string    `json:"target_url"`
	Endpoint    string    `json:"endpoint"`
	Payload     string    `json:"payload,omitempty"`
	Severity    Severity  `json:"severity"`

	// ExploitCode is a working exploit or proof-of-concept, when supplied.
	ExploitCode string `json:"exploit_code,omitempty"`
	// StepsToReproduce is a manual reproduction walkthrough, when supplied.
	StepsToReproduce string `json:"steps_to_reproduce,omitempty"`
	// ExternalScore is an optional externally-sourced severity score on a
	// 0-10 scale (e.g. from a triage service). Nil when not supplied.
	ExternalScore *float64 `json:"external_score,omitempty"`
}

// DuplicateCandidate scores one existing bug against a newly reported one.
// Ephemeral: computed per comparison and never persisted by the core.
type DuplicateCandidate struct {
	BugID           string   `json:"bug_id"`
	SimilarityScore float64  `json:"similarity_score"` // In [0,1].
	MatchReasons    []string `json:"match_reasons"`
}

// ValidationStatus is the disposition assigned to a validated bug.
type ValidationStatus string

const (
	StatusValidating  ValidationStatus = "validating"
	StatusValidated   ValidationStatus = "validated"
	StatusNeedsReview ValidationStatus = "needs_review"
	StatusRejected    ValidationStatus = "rejected"
)

// ValidationResult is the outcome of the multi-check validation workflow.
type ValidationResult struct {
	IsValid     bool `json:"is_valid"`
	IsDuplicate bool `json:"is_duplicate"`
	// ValidationScore is a convex combination of the sub-check scores; the
	// weights sum to 1.0, so the score stays in [0,1].
	ValidationScore float64          `json:"validation_score"`
	StepsCompleted  []string         `json:"steps_completed"`
	Issues          []string         `json:"issues,omitempty"`
	Status          ValidationStatus `json:"status"`
}
