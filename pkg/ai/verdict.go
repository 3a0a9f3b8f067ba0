package ai

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// UnparsedReasoning is stored when the model returned nothing usable at all.
const UnparsedReasoning = "Could not parse result"

const verdictSchema = `{
	"type": "object",
	"required": ["approved"],
	"properties": {
		"approved": {"type": "boolean"}
	}
}`

var verdictValidator = jsonschema.MustCompileString("verdict.schema.json", verdictSchema)

// Verdict is the outcome of reading a model reply.
// Parsed is false when the reply was not JSON carrying a boolean "approved"; such verdicts are never approvals.
type Verdict struct {
	Parsed    bool
	Approved  bool
	Reasoning string
	Raw       string
}

// ParseVerdict turns raw model text into a verdict without ever failing.
func ParseVerdict(text string) Verdict {
	raw := strings.TrimSpace(text)
	body := StripCodeFence(raw)

	var document interface{}
	if err := json.Unmarshal([]byte(body), &document); err != nil {
		return unparsed(raw)
	}
	if err := verdictValidator.Validate(document); err != nil {
		return unparsed(raw)
	}

	var payload struct {
		Approved  bool        `json:"approved"`
		Reasoning interface{} `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return unparsed(raw)
	}

	// A missing or non-string reasoning still leaves a usable decision.
	reasoning, _ := payload.Reasoning.(string)

	return Verdict{
		Parsed:    true,
		Approved:  payload.Approved,
		Reasoning: reasoning,
		Raw:       raw,
	}
}

// StripCodeFence returns the text between the first and last triple backtick,
// minus a leading "json" language tag. Text without a fence pair is returned trimmed.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	first := strings.Index(trimmed, "```")
	last := strings.LastIndex(trimmed, "```")
	if first < 0 || last <= first {
		return trimmed
	}

	inner := strings.TrimSpace(trimmed[first+3 : last])
	if len(inner) >= 4 && strings.EqualFold(inner[:4], "json") {
		inner = strings.TrimSpace(inner[4:])
	}
	return inner
}

func unparsed(raw string) Verdict {
	reasoning := raw
	if reasoning == "" {
		reasoning = UnparsedReasoning
	}
	return Verdict{
		Parsed:    false,
		Approved:  false,
		Reasoning: reasoning,
		Raw:       raw,
	}
}
