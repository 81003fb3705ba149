package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSeverity(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected Severity
	}{
		{"word critical", "Critical", SeverityCritical},
		{"word high", "high", SeverityHigh},
		{"word moderate", "Moderate", SeverityMedium},
		{"word informational", "Informational", SeverityLow},
		{"numeric four", "4", SeverityCritical},
		{"numeric three", "3", SeverityHigh},
		{"numeric two", "2", SeverityMedium},
		{"numeric one", "1", SeverityLow},
		{"numeric zero", "0", SeverityLow},
		{"whitespace padded", "  High  ", SeverityHigh},
		{"unknown defaults to medium", "catastrophic", SeverityMedium},
		{"empty defaults to medium", "", SeverityMedium},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeSeverity(tc.raw))
		})
	}
}

func TestSeverityRank_Ordering(t *testing.T) {
	assert.Greater(t, SeverityRank(SeverityCritical), SeverityRank(SeverityHigh))
	assert.Greater(t, SeverityRank(SeverityHigh), SeverityRank(SeverityMedium))
	assert.Greater(t, SeverityRank(SeverityMedium), SeverityRank(SeverityLow))
	assert.Greater(t, SeverityRank(SeverityLow), SeverityRank(Severity("bogus")))
}

func TestFindingKey_IgnoresNonIdentityFields(t *testing.T) {
	a := Finding{
		Source:     "signature",
		Type:       VulnSQLi,
		Severity:   SeverityHigh,
		Confidence: 0.8,
		URL:        "https://example.com/search",
		Parameter:  "q",
	}
	b := Finding{
		Source:     "crawlscan",
		Type:       VulnSQLi,
		Severity:   SeverityCritical,
		Confidence: 0.95,
		URL:        "https://example.com/search",
		Parameter:  "q",
	}

	// Same identity even though source, severity and confidence differ.
	assert.Equal(t, a.Key(), b.Key())

	c := b
	c.Parameter = "id"
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestScanProfiles(t *testing.T) {
	quick := QuickProfile()
	assert.Equal(t, ScanKindQuick, quick.Kind)
	assert.NotEmpty(t, quick.Focus)
	assert.Less(t, quick.OverallTimeout, DeepProfile().OverallTimeout)

	deep := DeepProfile()
	assert.Equal(t, ScanKindDeep, deep.Kind)
	assert.Equal(t, AllVulnClasses(), deep.Focus)
}
