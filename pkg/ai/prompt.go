package ai

import (
	"fmt"
	"strings"
)

// PromptContext carries what the model needs to know about the claimed work.
type PromptContext struct {
	TaskTitle       string
	TaskDescription string
	CompletedCount  int
	RequestMessage  string
	StudentNotes    string
}

// BuildValidationPrompt renders the instruction sent next to the uploaded document.
// The check is scoped to evidence of the claimed items, never to answer correctness.
func BuildValidationPrompt(input PromptContext) string {
	builder := strings.Builder{}
	builder.WriteString("You are validating whether a student actually completed the work they claimed.\n\n")
	builder.WriteString("IMPORTANT: you are NOT checking correctness, only whether the work was actually done.\n\n")

	builder.WriteString("# Task\n")
	builder.WriteString(orDefault(input.TaskTitle, "Unknown"))
	builder.WriteString("\n\n## Description\n")
	builder.WriteString(orDefault(input.TaskDescription, "None"))
	builder.WriteString("\n\n## Claimed completed items\n")
	builder.WriteString(fmt.Sprintf("%d", input.CompletedCount))
	builder.WriteString("\n\n## Reviewer request\n")
	builder.WriteString(orDefault(input.RequestMessage, "None"))
	builder.WriteString("\n\n## Student notes\n")
	builder.WriteString(orDefault(input.StudentNotes, "None"))

	builder.WriteString("\n\n# Check\n")
	builder.WriteString("1. The document shows evidence of the claimed work (code, screenshots, written solutions, artefacts).\n")
	builder.WriteString(fmt.Sprintf("2. The number of items with evidence matches the claimed count (%d).\n", input.CompletedCount))
	builder.WriteString("3. Evidence of the items or identifiers named in the reviewer request appears in the document.\n")
	builder.WriteString("Do NOT judge correctness, quality or whether the answers are right.\n\n")

	builder.WriteString("# Response\n")
	builder.WriteString("Reply with strict JSON and nothing else, no markdown, no prose:\n")
	builder.WriteString(`{"approved": true or false, "reasoning": "short explanation"}`)
	return builder.String()
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
