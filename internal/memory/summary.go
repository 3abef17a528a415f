package memory

import (
	"strings"

	"github.com/copilotbot/copilot/pkg/types"
)

// Summary policy: keep whitespace tokens longer than minTokenLength, in
// their original order, up to maxSummaryTokens of them. A cheap lexical
// digest, deliberately not model-based, so it is deterministic and free.
const (
	summaryPrefix    = "Recent conversation about: "
	minTokenLength   = 5
	maxSummaryTokens = 20
)

// Summarize derives a compact digest from a message window. Empty input
// yields an empty string.
func Summarize(entries []types.MessageEntry) string {
	if len(entries) == 0 {
		return ""
	}

	contents := make([]string, 0, len(entries))
	for _, e := range entries {
		contents = append(contents, e.Content)
	}

	topics := make([]string, 0, maxSummaryTokens)
	for _, token := range strings.Fields(strings.Join(contents, " ")) {
		if len(token) <= minTokenLength {
			continue
		}
		topics = append(topics, token)
		if len(topics) == maxSummaryTokens {
			break
		}
	}

	return summaryPrefix + strings.Join(topics, " ")
}
