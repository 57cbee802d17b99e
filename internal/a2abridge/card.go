// Package a2abridge publishes the course pipeline as an A2A agent. The wire
// protocol, task bookkeeping and agent card serving are delegated to
// trpc-a2a-go; this package only adapts the pipeline to it.
package a2abridge

import (
	"trpc.group/trpc-go/trpc-a2a-go/server"
	"trpc.group/trpc-go/trpc-agent-go/agent"

	"github.com/mkraev/courseforge/internal/pipeline"
)

// RPCPath is the public subtree the A2A surface is exposed under. It is
// also the path segment remote peers see in the published card URL.
const RPCPath = "/a2a/" + pipeline.AppCourseBuilder

// BuildCard assembles the agent card from the pipeline itself: one skill
// per sub-agent, the chain's description, and the public RPC URL.
func BuildCard(appURL, version string, ag agent.Agent) server.AgentCard {
	subAgents := ag.SubAgents()
	skills := make([]server.AgentSkill, 0, len(subAgents))
	for _, sub := range subAgents {
		info := sub.Info()
		skills = append(skills, server.AgentSkill{
			ID:          info.Name,
			Name:        info.Name,
			Description: stringPtr(info.Description),
			Tags:        []string{"course-building"},
			InputModes:  []string{"text"},
			OutputModes: []string{"text"},
		})
	}

	info := ag.Info()
	return server.AgentCard{
		Name:        info.Name,
		Description: info.Description,
		URL:         appURL + RPCPath,
		Version:     version,
		Provider: &server.AgentProvider{
			Organization: "CourseForge",
		},
		Capabilities: server.AgentCapabilities{
			Streaming: boolPtr(true),
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills:             skills,
	}
}

func boolPtr(b bool) *bool       { return &b }
func stringPtr(s string) *string { return &s }
