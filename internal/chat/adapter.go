package chat

import (
	"trpc.group/trpc-go/trpc-agent-go/event"
	"trpc.group/trpc-go/trpc-agent-go/model"

	"github.com/mkraev/courseforge/internal/pipeline"
)

// progressNotices maps pipeline stage authors to the banner shown while
// that stage works. Authors outside the map produce no progress record.
var progressNotices = map[string]string{
	pipeline.AgentResearcher:     "🔍 Researcher is gathering information...",
	pipeline.AgentJudge:          "⚖️ Judge is evaluating findings...",
	pipeline.AgentContentBuilder: "✍️ Content Builder is writing the course...",
}

// progressNotice returns the banner for an event author, if any.
func progressNotice(author string) (string, bool) {
	notice, ok := progressNotices[author]
	return notice, ok
}

// fragments extracts the reply text carried by a single pipeline event.
// The runner replays the user turn and tool traffic on the same channel,
// so only assistant content counts. Completed messages win over deltas.
func fragments(e *event.Event) []string {
	if e == nil || e.Response == nil || len(e.Response.Choices) == 0 {
		return nil
	}
	if e.Response.IsUserMessage() || e.Response.Object == model.ObjectTypeToolResponse {
		return nil
	}
	var texts []string
	for _, choice := range e.Response.Choices {
		switch {
		case choice.Message.Role == model.RoleUser:
			// Session replay echo, not reply text.
		case choice.Message.Content != "":
			texts = append(texts, choice.Message.Content)
		case choice.Delta.Content != "":
			texts = append(texts, choice.Delta.Content)
		}
	}
	return texts
}
