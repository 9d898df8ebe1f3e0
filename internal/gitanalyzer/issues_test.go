package gitanalyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIssueReferences_TrackerStyleAndGitHubStyle(t *testing.T) {
	t.Parallel()
	refs := parseIssueReferences("Fix login bug, see JIRA-123 and #456")
	assert.Equal(t, []string{"JIRA-123", "#456"}, refs)
}

func TestParseIssueReferences_DeduplicatesAndPreservesOrder(t *testing.T) {
	t.Parallel()
	refs := parseIssueReferences("ABC-1 then #9 then ABC-1 again then #9")
	assert.Equal(t, []string{"ABC-1", "#9"}, refs)
}

func TestParseIssueReferences_NoMatches(t *testing.T) {
	t.Parallel()
	assert.Empty(t, parseIssueReferences("just a plain commit message"))
}
