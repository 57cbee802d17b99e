package pipeline

import (
	"testing"

	openaimodel "trpc.group/trpc-go/trpc-agent-go/model/openai"
)

func TestCourseBuilderChainOrder(t *testing.T) {
	t.Parallel()

	ag := NewCourseBuilder(openaimodel.New("gpt-4o-mini"))
	if got := ag.Info().Name; got != AppCourseBuilder {
		t.Fatalf("chain name = %q, want %q", got, AppCourseBuilder)
	}

	subs := ag.SubAgents()
	want := []string{AgentResearcher, AgentJudge, AgentContentBuilder}
	if len(subs) != len(want) {
		t.Fatalf("sub-agent count = %d, want %d", len(subs), len(want))
	}
	for i, name := range want {
		if subs[i].Info().Name != name {
			t.Errorf("sub-agent[%d] = %q, want %q", i, subs[i].Info().Name, name)
		}
	}
}

func TestJudgeRuntimeWiring(t *testing.T) {
	t.Parallel()

	rt := NewJudgeRuntime("gpt-4o-mini")
	if rt.AppName != AppJudge {
		t.Errorf("AppName = %q, want %q", rt.AppName, AppJudge)
	}
	if rt.Runner == nil {
		t.Error("Runner not constructed")
	}
	if rt.Sessions == nil {
		t.Error("Sessions not constructed")
	}
	if rt.Agent.Info().Name != AgentJudge {
		t.Errorf("agent name = %q, want %q", rt.Agent.Info().Name, AgentJudge)
	}
}
