// Package verifier implements proof verification backends.
package verifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harvestpath/harvestpath/pkg/domain/verify"
)

const systemInstruction = "You are an agricultural field inspector. You judge whether a farmer's photo " +
	"proves that a cultivation task was carried out. Be strict about the task but tolerant of photo quality. " +
	`Answer only with JSON of the form {"verified": true|false, "reasoning": "<one or two sentences>"}.`

// BuildPrompt renders the task the image is judged against.
func BuildPrompt(req verify.Request) string {
	var b strings.Builder
	b.WriteString("Task: ")
	b.WriteString(req.TaskTitle)
	if req.TaskDescription != "" {
		b.WriteString("\nDetails: ")
		b.WriteString(req.TaskDescription)
	}
	b.WriteString("\nDoes the attached photo show this task completed?")
	return b.String()
}

type rawVerdict struct {
	Verified  *bool  `json:"verified"`
	Reasoning string `json:"reasoning"`
}

// ParseVerdict decodes a model answer, tolerating markdown code fences.
// Answers without a boolean "verified" field are malformed.
func ParseVerdict(text string) (*verify.Verdict, error) {
	cleaned := cleanJSONBlock(text)
	var raw rawVerdict
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", verify.ErrMalformedVerdict, err)
	}
	if raw.Verified == nil {
		return nil, fmt.Errorf("%w: missing verified field", verify.ErrMalformedVerdict)
	}
	return &verify.Verdict{Verified: *raw.Verified, Reasoning: strings.TrimSpace(raw.Reasoning)}, nil
}

func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
