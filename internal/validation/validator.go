// File: internal/validation/validator.go
// Description: Multi-check validation workflow run over a reported bug before
// the outer intake workflow persists or pays it out. Checks run in a fixed
// order, each contributing to a convex combination of sub-scores.
package validation

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/obsidiansec/bountyhound/api/schemas"
	"github.com/obsidiansec/bountyhound/internal/dedup"
)

// duplicateThreshold short-circuits validation: any existing bug scoring above
// it makes the new report a duplicate, and no further checks run.
const duplicateThreshold = 0.9

// Weights of the final validation score; they sum to 1.0.
const (
	weightExploitability = 0.4
	weightImpact         = 0.4
	weightPlausibility   = 0.2
)

// Disposition thresholds on the final score.
const (
	validatedThreshold   = 0.7
	needsReviewThreshold = 0.5
)

// Names of the validation steps, accumulated in order on the result.
const (
	stepSeverityCheck       = "severity_check"
	stepExploitabilityCheck = "exploitability_check"
	stepImpactCheck         = "impact_check"
)

// expectedSeverity is the fixed type→expected-severity table used by the
// plausibility check.
var expectedSeverity = map[schemas.VulnClass]schemas.Severity{
	schemas.VulnRCE:            schemas.SeverityCritical,
	schemas.VulnSQLi:           schemas.SeverityCritical,
	schemas.VulnSSRF:           schemas.SeverityHigh,
	schemas.VulnLFI:            schemas.SeverityHigh,
	schemas.VulnIDOR:           schemas.SeverityHigh,
	schemas.VulnXSS:            schemas.SeverityMedium,
	schemas.VulnCSRF:           schemas.SeverityMedium,
	schemas.VulnOpenRedirect:   schemas.SeverityMedium,
	schemas.VulnInfoDisclosure: schemas.SeverityLow,
}

// impactBaseline maps the claimed severity onto a 0-1 impact baseline.
var impactBaseline = map[schemas.Severity]float64{
	schemas.SeverityCritical: 1.0,
	schemas.SeverityHigh:     0.8,
	schemas.SeverityMedium:   0.6,
	schemas.SeverityLow:      0.4,
}

// Validator runs the duplicate check and the validation workflow.
type Validator struct {
	logger *zap.Logger
}

// New creates a Validator.
func New(logger *zap.Logger) *Validator {
	return &Validator{logger: logger.Named("validator")}
}

// FindDuplicates exposes the duplicate engine on the validator so intake
// callers need only one entry point.
func (v *Validator) FindDuplicates(bug schemas.BugReport, existing []schemas.BugReport) []schemas.DuplicateCandidate {
	return dedup.FindDuplicates(bug, existing)
}

// Validate runs the full workflow over one reported bug.
//
// If any existing bug scores above the duplicate threshold the result is an
// immediate duplicate rejection with no validation steps run. Otherwise the
// severity-plausibility, exploitability and impact checks run in order and
// the final score is their weighted combination.
func (v *Validator) Validate(bug schemas.BugReport, existing []schemas.BugReport) schemas.ValidationResult {
	result := schemas.ValidationResult{
		Status:         schemas.StatusValidating,
		StepsCompleted: []string{},
	}

	candidates := dedup.FindDuplicates(bug, existing)
	if len(candidates) > 0 && candidates[0].SimilarityScore > duplicateThreshold {
		v.logger.Info("Bug rejected as duplicate",
			zap.String("bug_id", bug.ID),
			zap.String("duplicate_of", candidates[0].BugID),
			zap.Float64("similarity", candidates[0].SimilarityScore))
		result.IsDuplicate = true
		result.IsValid = false
		result.Status = schemas.StatusRejected
		result.Issues = append(result.Issues,
			fmt.Sprintf("duplicate of bug %s (similarity %.2f)", candidates[0].BugID, candidates[0].SimilarityScore))
		return result
	}

	plausible := v.checkSeverity(bug, &result)
	exploitability := v.scoreExploitability(bug, &result)
	impact := v.scoreImpact(bug, &result)

	plausibilityScore := 0.5
	if plausible {
		plausibilityScore = 1.0
	}
	result.ValidationScore = weightExploitability*exploitability +
		weightImpact*impact +
		weightPlausibility*plausibilityScore

	switch {
	case result.ValidationScore >= validatedThreshold:
		result.Status = schemas.StatusValidated
		result.IsValid = true
	case result.ValidationScore >= needsReviewThreshold:
		result.Status = schemas.StatusNeedsReview
		result.IsValid = false
	default:
		result.Status = schemas.StatusRejected
		result.IsValid = false
		result.Issues = append(result.Issues,
			fmt.Sprintf("validation score %.2f below review threshold", result.ValidationScore))
	}

	v.logger.Info("Bug validation complete",
		zap.String("bug_id", bug.ID),
		zap.Float64("score", result.ValidationScore),
		zap.String("status", string(result.Status)))
	return result
}

// checkSeverity verifies the claimed severity is plausible for the bug's
// type: exact or within one level of the table entry.
func (v *Validator) checkSeverity(bug schemas.BugReport, result *schemas.ValidationResult) bool {
	result.StepsCompleted = append(result.StepsCompleted, stepSeverityCheck)

	expected, ok := expectedSeverity[bug.VulnType]
	if !ok {
		result.Issues = append(result.Issues,
			fmt.Sprintf("unknown vulnerability type %q, severity unverified", bug.VulnType))
		return false
	}

	diff := schemas.SeverityRank(bug.Severity) - schemas.SeverityRank(expected)
	if diff < 0 {
		diff = -diff
	}
	if diff > 1 {
		result.Issues = append(result.Issues,
			fmt.Sprintf("claimed severity %q implausible for %s (expected around %q)",
				bug.Severity, bug.VulnType, expected))
		return false
	}
	return true
}

// scoreExploitability rewards a working exploit over mere reproduction steps.
func (v *Validator) scoreExploitability(bug schemas.BugReport, result *schemas.ValidationResult) float64 {
	result.StepsCompleted = append(result.StepsCompleted, stepExploitabilityCheck)

	switch {
	case bug.ExploitCode != "":
		return 0.9
	case bug.StepsToReproduce != "":
		return 0.7
	default:
		result.Issues = append(result.Issues, "no exploit code or reproduction steps provided")
		return 0.4
	}
}

// scoreImpact starts from the severity-scale baseline and, when an external
// severity score was supplied, blends it in 50/50 after normalizing to [0,1].
func (v *Validator) scoreImpact(bug schemas.BugReport, result *schemas.ValidationResult) float64 {
	result.StepsCompleted = append(result.StepsCompleted, stepImpactCheck)

	baseline, ok := impactBaseline[bug.Severity]
	if !ok {
		baseline = impactBaseline[schemas.SeverityMedium]
	}

	if bug.ExternalScore == nil {
		return baseline
	}

	external := *bug.ExternalScore / 10.0
	if external < 0 {
		external = 0
	}
	if external > 1 {
		external = 1
	}
	return 0.5*baseline + 0.5*external
}
