// File: internal/dedup/dedup.go
// Description: Scores a newly reported bug against a corpus of existing ones
// for near-duplicate detection. Candidates are ephemeral: computed per
// comparison and never persisted by the core.
package dedup

import (
	"sort"

	"github.com/obsidiansec/bountyhound/api/schemas"
)

// Field weights of the similarity score. They sum to 1.0, which keeps the
// weighted sum inside [0,1].
const (
	weightTitle       = 0.30
	weightDescription = 0.25
	weightType        = 0.15
	weightDomain      = 0.15
	weightEndpoint    = 0.10
	weightPayload     = 0.05
)

// candidateFloor drops comparisons with no meaningful overlap so callers
// are not handed the entire corpus back.
const candidateFloor = 0.3

// Thresholds on individual signals above which a match reason is recorded.
const (
	strongTextMatch = 0.8
)

// FindDuplicates compares the new bug against every existing bug and returns
// the plausible duplicate candidates, sorted by similarity descending.
func FindDuplicates(bug schemas.BugReport, existing []schemas.BugReport) []schemas.DuplicateCandidate {
	candidates := make([]schemas.DuplicateCandidate, 0, len(existing))

	for _, other := range existing {
		if other.ID != "" && other.ID == bug.ID {
			continue
		}
		candidate := compare(bug, other)
		if candidate.SimilarityScore >= candidateFloor {
			candidates = append(candidates, candidate)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SimilarityScore > candidates[j].SimilarityScore
	})
	return candidates
}

// compare computes the weighted similarity between two bugs and the reasons
// behind it.
func compare(bug, other schemas.BugReport) schemas.DuplicateCandidate {
	var (
		score   float64
		reasons []string
	)

	if s := TextSimilarity(bug.Title, other.Title); s > 0 {
		score += weightTitle * s
		if s >= strongTextMatch {
			reasons = append(reasons, "similar title")
		}
	}
	if s := TextSimilarity(bug.Description, other.Description); s > 0 {
		score += weightDescription * s
		if s >= strongTextMatch {
			reasons = append(reasons, "similar description")
		}
	}
	if bug.VulnType != "" && bug.VulnType == other.VulnType {
		score += weightType
		reasons = append(reasons, "same vulnerability type")
	}
	if sameDomain(bug.TargetURL, other.TargetURL) {
		score += weightDomain
		reasons = append(reasons, "same target domain")
	}
	if s := TextSimilarity(bug.Endpoint, other.Endpoint); s > 0 {
		score += weightEndpoint * s
		if s >= strongTextMatch {
			reasons = append(reasons, "similar endpoint")
		}
	}
	if s := TextSimilarity(bug.Payload, other.Payload); s > 0 {
		score += weightPayload * s
		if s >= strongTextMatch {
			reasons = append(reasons, "similar payload")
		}
	}

	return schemas.DuplicateCandidate{
		BugID:           other.ID,
		SimilarityScore: score,
		MatchReasons:    reasons,
	}
}
