package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/obsidiansec/bountyhound/api/schemas"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	return New(zap.NewNop())
}

func TestValidate_DuplicateShortCircuits(t *testing.T) {
	v := newValidator(t)

	bug := schemas.BugReport{
		ID:          "bug-new",
		Title:       "Reflected XSS in search box",
		Description: "The q parameter is reflected without encoding.",
		VulnType:    schemas.VulnXSS,
		TargetURL:   "https://shop.example.com",
		Endpoint:    "/search",
		Payload:     `<script>alert(1)</script>`,
		Severity:    schemas.SeverityMedium,
	}
	existing := bug
	existing.ID = "bug-1"

	result := v.Validate(bug, []schemas.BugReport{existing})

	assert.True(t, result.IsDuplicate)
	assert.False(t, result.IsValid)
	assert.Equal(t, schemas.StatusRejected, result.Status)
	// No validation steps run on the duplicate path.
	assert.Empty(t, result.StepsCompleted)
	assert.Zero(t, result.ValidationScore)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "bug-1")
}

func TestValidate_StrongReportIsValidated(t *testing.T) {
	v := newValidator(t)

	bug := schemas.BugReport{
		ID:          "bug-rce",
		Title:       "Command injection in image resizer",
		VulnType:    schemas.VulnRCE,
		TargetURL:   "https://img.example.com",
		Severity:    schemas.SeverityCritical,
		ExploitCode: `curl "https://img.example.com/resize?file=x;id"`,
	}

	result := v.Validate(bug, nil)

	// 0.4*0.9 (exploit) + 0.4*1.0 (critical impact) + 0.2*1.0 (plausible).
	assert.InDelta(t, 0.96, result.ValidationScore, 1e-9)
	assert.True(t, result.IsValid)
	assert.False(t, result.IsDuplicate)
	assert.Equal(t, schemas.StatusValidated, result.Status)
	assert.Equal(t,
		[]string{"severity_check", "exploitability_check", "impact_check"},
		result.StepsCompleted)
	assert.Empty(t, result.Issues)
}

func TestValidate_WeakReportNeedsReview(t *testing.T) {
	v := newValidator(t)

	bug := schemas.BugReport{
		ID:       "bug-xss",
		Title:    "Possible XSS",
		VulnType: schemas.VulnXSS,
		Severity: schemas.SeverityMedium,
		// No exploit code and no reproduction steps.
	}

	result := v.Validate(bug, nil)

	// 0.4*0.4 + 0.4*0.6 + 0.2*1.0 = 0.60.
	assert.InDelta(t, 0.60, result.ValidationScore, 1e-9)
	assert.False(t, result.IsValid)
	assert.Equal(t, schemas.StatusNeedsReview, result.Status)
	assert.Contains(t, result.Issues, "no exploit code or reproduction steps provided")
}

func TestValidate_ImplausibleSeverityRejected(t *testing.T) {
	v := newValidator(t)

	// LFI claimed as low severity, two levels below the expected high.
	bug := schemas.BugReport{
		ID:       "bug-lfi",
		Title:    "Path traversal maybe",
		VulnType: schemas.VulnLFI,
		Severity: schemas.SeverityLow,
	}

	result := v.Validate(bug, nil)

	// 0.4*0.4 + 0.4*0.4 + 0.2*0.5 = 0.42.
	assert.InDelta(t, 0.42, result.ValidationScore, 1e-9)
	assert.False(t, result.IsValid)
	assert.Equal(t, schemas.StatusRejected, result.Status)
}

func TestValidate_ExternalScoreBlendsIntoImpact(t *testing.T) {
	v := newValidator(t)

	external := 9.0
	bug := schemas.BugReport{
		ID:               "bug-ssrf",
		Title:            "SSRF via webhook URL",
		VulnType:         schemas.VulnSSRF,
		Severity:         schemas.SeverityHigh,
		StepsToReproduce: "Register a webhook pointing at http://169.254.169.254/.",
		ExternalScore:    &external,
	}

	result := v.Validate(bug, nil)

	// Impact: 0.5*0.8 + 0.5*0.9 = 0.85. Total: 0.4*0.7 + 0.4*0.85 + 0.2*1.0.
	assert.InDelta(t, 0.82, result.ValidationScore, 1e-9)
	assert.True(t, result.IsValid)
	assert.Equal(t, schemas.StatusValidated, result.Status)
}

func TestValidate_ExternalScoreClamped(t *testing.T) {
	v := newValidator(t)

	external := 42.0 // Out of the documented 0-10 scale.
	bug := schemas.BugReport{
		ID:            "bug-clamp",
		VulnType:      schemas.VulnXSS,
		Severity:      schemas.SeverityMedium,
		ExploitCode:   "<svg onload=alert(1)>",
		ExternalScore: &external,
	}

	result := v.Validate(bug, nil)

	// Impact: 0.5*0.6 + 0.5*1.0 (clamped) = 0.8. Total: 0.36 + 0.32 + 0.2.
	assert.InDelta(t, 0.88, result.ValidationScore, 1e-9)
	assert.LessOrEqual(t, result.ValidationScore, 1.0)
}

func TestValidate_ScoreStaysInUnitInterval(t *testing.T) {
	v := newValidator(t)

	for _, class := range schemas.AllVulnClasses() {
		for _, sev := range []schemas.Severity{
			schemas.SeverityCritical, schemas.SeverityHigh,
			schemas.SeverityMedium, schemas.SeverityLow,
		} {
			result := v.Validate(schemas.BugReport{
				ID:          "bug",
				VulnType:    class,
				Severity:    sev,
				ExploitCode: "poc",
			}, nil)
			assert.GreaterOrEqual(t, result.ValidationScore, 0.0)
			assert.LessOrEqual(t, result.ValidationScore, 1.0)
		}
	}
}
