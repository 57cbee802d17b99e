package chat

import (
	"testing"

	"trpc.group/trpc-go/trpc-agent-go/event"
	"trpc.group/trpc-go/trpc-agent-go/model"

	"github.com/mkraev/courseforge/internal/pipeline"
)

func TestFragmentsPrefersCompletedMessageOverDelta(t *testing.T) {
	t.Parallel()

	e := &event.Event{
		Author: pipeline.AgentResearcher,
		Response: &model.Response{
			Choices: []model.Choice{{
				Message: model.Message{Role: model.RoleAssistant, Content: "complete"},
				Delta:   model.Message{Role: model.RoleAssistant, Content: "chunk"},
			}},
		},
	}
	got := fragments(e)
	if len(got) != 1 || got[0] != "complete" {
		t.Errorf("Expected completed message content, got %v", got)
	}
}

func TestFragmentsFallsBackToDelta(t *testing.T) {
	t.Parallel()

	e := &event.Event{
		Author: pipeline.AgentResearcher,
		Response: &model.Response{
			Choices: []model.Choice{{
				Delta: model.Message{Role: model.RoleAssistant, Content: "chunk"},
			}},
		},
	}
	got := fragments(e)
	if len(got) != 1 || got[0] != "chunk" {
		t.Errorf("Expected delta content, got %v", got)
	}
}

func TestFragmentsHandlesEmptyEvents(t *testing.T) {
	t.Parallel()

	if got := fragments(nil); got != nil {
		t.Errorf("Expected nil for nil event, got %v", got)
	}
	if got := fragments(&event.Event{Author: "x"}); got != nil {
		t.Errorf("Expected nil for event without response, got %v", got)
	}
	if got := fragments(&event.Event{Author: "x", Response: &model.Response{}}); got != nil {
		t.Errorf("Expected nil for response without choices, got %v", got)
	}
}

func TestProgressNotices(t *testing.T) {
	t.Parallel()

	for _, author := range []string{pipeline.AgentResearcher, pipeline.AgentJudge, pipeline.AgentContentBuilder} {
		notice, ok := progressNotice(author)
		if !ok || notice == "" {
			t.Errorf("Expected a notice for %q", author)
		}
	}
	if _, ok := progressNotice(pipeline.AppCourseBuilder); ok {
		t.Error("Chain author must not produce a progress notice")
	}
	if _, ok := progressNotice("user"); ok {
		t.Error("User author must not produce a progress notice")
	}
}
