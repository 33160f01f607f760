package search

import (
	"sort"

	"github.com/MikePfunk28/intelhub/internal/keyword"
	"github.com/MikePfunk28/intelhub/internal/models"
)

// fusedScore is one hybrid candidate before record resolution.
type fusedScore struct {
	key         models.RecordKey
	similarity  float64
	hasSim      bool
	keywordRaw  float64
	keywordNorm float64
	combined    float64
}

// NormalizeKeywordScores normalizes keyword scores to [0,1] by the page max.
func NormalizeKeywordScores(results []*keyword.Result) map[models.RecordKey]float64 {
	normalized := make(map[models.RecordKey]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.Key] = r.Score / maxScore
		} else {
			normalized[r.Key] = 0
		}
	}
	return normalized
}

// fuse merges semantic similarities and keyword scores into combined
// candidates. A candidate survives when its similarity clears the threshold
// or it has any keyword contribution; a semantic-only candidate below the
// threshold is dropped even if its combined score would be positive.
func fuse(semantic map[models.RecordKey]float64, kwRaw []*keyword.Result, semanticWeight, keywordWeight, threshold float64) []*fusedScore {
	kwNorm := NormalizeKeywordScores(kwRaw)
	rawByKey := make(map[models.RecordKey]float64, len(kwRaw))
	for _, r := range kwRaw {
		rawByKey[r.Key] = r.Score
	}

	candidates := make(map[models.RecordKey]*fusedScore)
	for key, sim := range semantic {
		candidates[key] = &fusedScore{key: key, similarity: sim, hasSim: true}
	}
	for key, norm := range kwNorm {
		c, ok := candidates[key]
		if !ok {
			c = &fusedScore{key: key}
			candidates[key] = c
		}
		c.keywordNorm = norm
		c.keywordRaw = rawByKey[key]
	}

	out := make([]*fusedScore, 0, len(candidates))
	for _, c := range candidates {
		if !(c.hasSim && c.similarity >= threshold) && c.keywordNorm <= 0 {
			continue
		}
		c.combined = semanticWeight*c.similarity + keywordWeight*c.keywordNorm
		out = append(out, c)
	}
	return out
}

// sortResults orders results by score descending, breaking ties by creation
// time descending then key so ordering is deterministic.
func sortResults(results []*models.SearchResult, score func(*models.SearchResult) float64) {
	sort.Slice(results, func(i, j int) bool {
		si, sj := score(results[i]), score(results[j])
		if si != sj {
			return si > sj
		}
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].Key().String() < results[j].Key().String()
	})
}
