// Package pipeline defines the CourseForge agents and builds the runners
// that execute them. The course-building chain hands a request from the
// researcher to the judge to the content builder; the judge service wraps
// the judge agent alone.
package pipeline

import (
	"trpc.group/trpc-go/trpc-agent-go/agent"
	"trpc.group/trpc-go/trpc-agent-go/agent/chainagent"
	"trpc.group/trpc-go/trpc-agent-go/agent/llmagent"
	artifactinmemory "trpc.group/trpc-go/trpc-agent-go/artifact/inmemory"
	"trpc.group/trpc-go/trpc-agent-go/model"
	openaimodel "trpc.group/trpc-go/trpc-agent-go/model/openai"
	"trpc.group/trpc-go/trpc-agent-go/runner"
	"trpc.group/trpc-go/trpc-agent-go/session"
	sessioninmemory "trpc.group/trpc-go/trpc-agent-go/session/inmemory"
)

// Agent names. These are wire-visible: they key the streaming progress map,
// name the session app, and form the A2A RPC path segment.
const (
	AppCourseBuilder = "course_builder"
	AppJudge         = "judge"

	AgentResearcher     = "researcher"
	AgentJudge          = "judge"
	AgentContentBuilder = "content_builder"
)

// Runtime bundles a runner with the session service it shares with the
// HTTP layer. Both are process-lifetime singletons constructed once at
// startup and injected into every request handler.
type Runtime struct {
	AppName  string
	Agent    agent.Agent
	Runner   runner.Runner
	Sessions session.Service
}

// NewCourseBuilderRuntime constructs the full researcher→judge→content_builder
// chain behind a runner backed by in-memory session and artifact services.
func NewCourseBuilderRuntime(modelName string) *Runtime {
	return newRuntime(AppCourseBuilder, NewCourseBuilder(openaimodel.New(modelName)))
}

// NewJudgeRuntime constructs the standalone judge runtime.
func NewJudgeRuntime(modelName string) *Runtime {
	return newRuntime(AppJudge, NewJudgeAgent(openaimodel.New(modelName)))
}

func newRuntime(appName string, ag agent.Agent) *Runtime {
	sessions := sessioninmemory.NewSessionService()
	r := runner.NewRunner(appName, ag,
		runner.WithSessionService(sessions),
		runner.WithArtifactService(artifactinmemory.NewService()),
	)
	return &Runtime{
		AppName:  appName,
		Agent:    ag,
		Runner:   r,
		Sessions: sessions,
	}
}

// NewCourseBuilder returns the chain agent for the course-building pipeline.
func NewCourseBuilder(m model.Model) agent.Agent {
	return chainagent.New(AppCourseBuilder,
		chainagent.WithSubAgents([]agent.Agent{
			NewResearcher(m),
			NewJudgeAgent(m),
			NewContentBuilder(m),
		}),
	)
}

// NewResearcher returns the research agent.
func NewResearcher(m model.Model) agent.Agent {
	return llmagent.New(AgentResearcher,
		llmagent.WithModel(m),
		llmagent.WithDescription("Gathers facts, sources and subtopics for a requested course subject."),
		llmagent.WithInstruction("You are the research stage of a course-building pipeline. "+
			"Collect the key facts, authoritative sources and candidate subtopics for the requested "+
			"course subject and produce a concise research brief for the next stage."),
		llmagent.WithGenerationConfig(completeResponses()),
	)
}

// NewJudgeAgent returns the evaluation agent.
func NewJudgeAgent(m model.Model) agent.Agent {
	return llmagent.New(AgentJudge,
		llmagent.WithModel(m),
		llmagent.WithDescription("Evaluates research findings for accuracy, coverage and balance."),
		llmagent.WithInstruction("You are the evaluation stage of a course-building pipeline. "+
			"Review the research brief for accuracy, coverage and balance, flag gaps or questionable "+
			"claims, and pass on an approved findings list."),
		llmagent.WithGenerationConfig(completeResponses()),
	)
}

// NewContentBuilder returns the course-writing agent.
func NewContentBuilder(m model.Model) agent.Agent {
	return llmagent.New(AgentContentBuilder,
		llmagent.WithModel(m),
		llmagent.WithDescription("Writes the final course from approved findings."),
		llmagent.WithInstruction("You are the writing stage of a course-building pipeline. "+
			"Turn the approved findings into the final course: a titled outline of modules and "+
			"lessons, each with a short description."),
		llmagent.WithGenerationConfig(completeResponses()),
	)
}

// completeResponses disables incremental generation so every event carries a
// complete message. The aggregation layer tolerates partials either way, but
// complete events keep turn boundaries unambiguous.
func completeResponses() model.GenerationConfig {
	return model.GenerationConfig{Stream: false}
}
