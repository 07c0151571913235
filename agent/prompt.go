package agent

import (
	"fmt"
	"regexp"
	"strings"

	"dockhand/library"
	"dockhand/memory"
)

const roleDefinition = `You are a DevOps expert specializing in Linux, Docker, and cluster management.
Your goal is to help users deploy middleware (single-node or multi-node) or execute system operations.

Process:
1. Analyze the user's request.
2. If the request is vague, ask clarifying questions using normal chat (no tool call).
3. Use the available tools for actions. Check prerequisites (such as port availability) before deploying.
4. Explain your plan step by step before calling tools.`

const deploymentRules = `Rules for compose generation:
1. Output MUST be valid docker-compose.yml content passed as a string argument to tools.
2. Do NOT include a top-level 'version' field.
3. Use standard official images.
4. For multi-node setups, ensure network connectivity between services.`

const commandRules = `Rules for commands:
1. Use standard Linux commands.
2. Avoid destructive commands unless explicitly requested.`

const outputFormat = `Output format:
Use tool calls for actions. Do NOT output raw JSON blocks.`

var passwordRe = regexp.MustCompile(`(?i)password[\s:=]+([^\s,;"']+)`)

// PromptData is everything a Thinking step folds into the system prompt.
// SystemInfo is collected fresh for each step so the model sees current
// container and port state.
type PromptData struct {
	SystemInfo string
	Rules      string
	Memories   []memory.Record
	Template   *library.Template
}

// BuildSystemPrompt assembles the system turn for one Thinking step.
func BuildSystemPrompt(data PromptData) string {
	var b strings.Builder
	b.WriteString(roleDefinition)
	b.WriteString("\n\n")
	b.WriteString(deploymentRules)
	b.WriteString("\n\n")
	b.WriteString(commandRules)
	b.WriteString("\n\n")
	b.WriteString(outputFormat)

	if data.SystemInfo != "" {
		b.WriteString("\n\nSystem Context:\nThe following is the real-time state of the local server.\n")
		b.WriteString(data.SystemInfo)
	}

	if len(data.Memories) > 0 {
		b.WriteString("\n\nRelevant past interactions:\n")
		for _, rec := range data.Memories {
			b.WriteString(fmt.Sprintf("- [%s] %s\n", rec.Outcome, rec.Text))
		}
		if pw := priorPassword(data.Memories); pw != "" {
			b.WriteString(fmt.Sprintf("\nA previous deployment used password %q. Suggest reusing it only if the user has not specified one; confirm before applying.\n", pw))
		}
	}

	if data.Template != nil {
		b.WriteString(fmt.Sprintf("\n\n[Template Context]\nHere is a reference docker-compose.yml for %s. Adapt it as needed:\n```yaml\n%s\n```\n",
			data.Template.Name, data.Template.Compose))
	}

	if data.Rules != "" {
		b.WriteString("\n\nOperator rules (always follow these):\n")
		b.WriteString(data.Rules)
	}

	return b.String()
}

// priorPassword pulls a password mentioned in retrieved memories, newest
// match first, so it can be surfaced as a non-binding suggestion.
func priorPassword(records []memory.Record) string {
	for _, rec := range records {
		if m := passwordRe.FindStringSubmatch(rec.Text); m != nil {
			return m[1]
		}
	}
	return ""
}
