package dedup

import (
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidiansec/bountyhound/api/schemas"
)

func TestTextSimilarity(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"identical", "XSS in search box", "XSS in search box", 1.0},
		{"case insensitive", "SQL Injection", "sql injection", 1.0},
		{"both empty", "", "", 0},
		{"one empty", "XSS in search box", "", 0},
		{"disjoint", "abcd", "wxyz", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, TextSimilarity(tc.a, tc.b), 1e-9)
		})
	}
}

func TestTextSimilarity_PartialOverlap(t *testing.T) {
	s := TextSimilarity("XSS in search box", "XSS in search form")
	assert.Greater(t, s, 0.5)
	assert.Less(t, s, 1.0)
}

func TestSameDomain(t *testing.T) {
	assert.True(t, sameDomain("https://example.com/a", "https://example.com/b?x=1"))
	assert.False(t, sameDomain("https://example.com", "https://other.com"))
	assert.False(t, sameDomain("", "https://example.com"))
	assert.False(t, sameDomain("not a url", "also not"))
}

func newBug(id string) schemas.BugReport {
	return schemas.BugReport{
		ID:          id,
		Title:       "Reflected XSS in search box",
		Description: "The q parameter is reflected without encoding on the search results page.",
		VulnType:    schemas.VulnXSS,
		TargetURL:   "https://shop.example.com",
		Endpoint:    "/search",
		Payload:     `<script>alert(1)</script>`,
		Severity:    schemas.SeverityMedium,
	}
}

func TestFindDuplicates_ExactCopyScoresNearOne(t *testing.T) {
	bug := newBug("bug-new")
	existing := []schemas.BugReport{newBug("bug-1")}

	candidates := FindDuplicates(bug, existing)
	require.Len(t, candidates, 1)
	assert.Equal(t, "bug-1", candidates[0].BugID)
	assert.InDelta(t, 1.0, candidates[0].SimilarityScore, 1e-9)
	assert.Contains(t, candidates[0].MatchReasons, "same vulnerability type")
	assert.Contains(t, candidates[0].MatchReasons, "same target domain")
}

func TestFindDuplicates_UnrelatedBugFiltered(t *testing.T) {
	bug := newBug("bug-new")
	unrelated := schemas.BugReport{
		ID:          "bug-2",
		Title:       "IDOR on invoice download",
		Description: "Sequential invoice IDs allow reading other tenants' invoices.",
		VulnType:    schemas.VulnIDOR,
		TargetURL:   "https://billing.other.org",
		Endpoint:    "/invoices/123",
		Severity:    schemas.SeverityHigh,
	}

	candidates := FindDuplicates(bug, []schemas.BugReport{unrelated})
	assert.Empty(t, candidates)
}

func TestFindDuplicates_SortedDescending(t *testing.T) {
	bug := newBug("bug-new")

	near := newBug("bug-near")
	far := newBug("bug-far")
	far.Title = "Stored XSS in profile bio"
	far.Description = "Bio field renders raw HTML when viewing another user's profile."
	far.Endpoint = "/profile"

	candidates := FindDuplicates(bug, []schemas.BugReport{far, near})
	require.Len(t, candidates, 2)
	assert.Equal(t, "bug-near", candidates[0].BugID)
	assert.GreaterOrEqual(t, candidates[0].SimilarityScore, candidates[1].SimilarityScore)
}

func TestFindDuplicates_SkipsSelf(t *testing.T) {
	bug := newBug("bug-1")
	candidates := FindDuplicates(bug, []schemas.BugReport{newBug("bug-1")})
	assert.Empty(t, candidates)
}

// FuzzSimilarityScoreBounds checks the weighted score stays in [0,1] for
// arbitrary bug contents. The weights sum to 1.0, so any excursion outside the
// interval is a scoring bug.
func FuzzSimilarityScoreBounds(f *testing.F) {
	f.Add([]byte("seed"))
	f.Fuzz(func(t *testing.T, data []byte) {
		fz := fuzz.NewConsumer(data)

		var bug, other schemas.BugReport
		if err := fz.GenerateStruct(&bug); err != nil {
			return
		}
		if err := fz.GenerateStruct(&other); err != nil {
			return
		}
		other.ID = "other"

		for _, c := range FindDuplicates(bug, []schemas.BugReport{other}) {
			if c.SimilarityScore < 0 || c.SimilarityScore > 1+1e-9 {
				t.Fatalf("similarity score %f outside [0,1]", c.SimilarityScore)
			}
		}
	})
}
