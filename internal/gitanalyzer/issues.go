package gitanalyzer

import "regexp"

// issuePatterns match the two issue-reference conventions spec.md §4.5
// names: tracker-style keys (JIRA-123) and bare GitHub-style numbers
// (#123).
var issuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Z][A-Z0-9]+-\d+|#\d+`),
}

// parseIssueReferences extracts every issue reference from a commit
// message, in order of appearance, without duplicates.
func parseIssueReferences(message string) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, pattern := range issuePatterns {
		for _, m := range pattern.FindAllString(message, -1) {
			if !seen[m] {
				seen[m] = true
				refs = append(refs, m)
			}
		}
	}
	return refs
}
