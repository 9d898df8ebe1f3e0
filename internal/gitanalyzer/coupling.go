package gitanalyzer

import (
	"github.com/bobbin-dev/bobbin/internal/model"
)

// DefaultMaxTouchedFiles caps the per-commit file count used for
// coupling extraction (spec.md §4.5: "capped...at a configurable
// maximum touched-file count (default 50) to suppress mass-refactor
// noise").
const DefaultMaxTouchedFiles = 50

// ExtractCoupling enumerates every unordered pair of files touched
// together across commits and returns the co-change counts, skipping
// any commit whose touched-file count exceeds maxTouched.
func ExtractCoupling(commits []model.CommitRecord, maxTouched int) []model.CouplingEdge {
	if maxTouched <= 0 {
		maxTouched = DefaultMaxTouchedFiles
	}

	counts := make(map[[2]string]int)
	for _, c := range commits {
		if len(c.TouchedFiles) > maxTouched {
			continue
		}
		files := c.TouchedFiles
		for i := 0; i < len(files); i++ {
			for j := i + 1; j < len(files); j++ {
				a, b := model.NewCouplingPair(files[i], files[j])
				if a == b {
					continue
				}
				counts[[2]string{a, b}]++
			}
		}
	}

	edges := make([]model.CouplingEdge, 0, len(counts))
	for pair, n := range counts {
		edges = append(edges, model.CouplingEdge{FileA: pair[0], FileB: pair[1], CoChanges: n})
	}
	return edges
}

// FileCommitCounts tallies how many commits touched each file, the
// denominator term in get_coupling's score formula (spec.md §4.4).
func FileCommitCounts(commits []model.CommitRecord) map[string]int {
	counts := make(map[string]int)
	for _, c := range commits {
		seen := make(map[string]bool, len(c.TouchedFiles))
		for _, f := range c.TouchedFiles {
			if !seen[f] {
				seen[f] = true
				counts[f]++
			}
		}
	}
	return counts
}
