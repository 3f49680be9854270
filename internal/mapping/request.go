package mapping

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/header-mapper/pkg/anthropic"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 4096
)

// RequestBuilder pairs the process-wide instruction with a header payload.
type RequestBuilder struct {
	instruction Instruction
	model       string
	maxTokens   int64
}

// NewRequestBuilder creates a builder. Empty model and non-positive
// maxTokens fall back to defaults.
func NewRequestBuilder(instr Instruction, model string, maxTokens int64) *RequestBuilder {
	if model == "" {
		model = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &RequestBuilder{instruction: instr, model: model, maxTokens: maxTokens}
}

// Model returns the model the requests are addressed to.
func (b *RequestBuilder) Model() string {
	return b.model
}

type headersPayload struct {
	Headers []string `json:"headers"`
}

// Build creates the service request for headers. The user message is
// exactly {"headers": [...]}; the instruction goes in a cached system block.
func (b *RequestBuilder) Build(headers []string) (anthropic.MessageRequest, error) {
	if len(headers) == 0 {
		return anthropic.MessageRequest{}, ErrNoHeaders
	}

	body, err := json.MarshalIndent(headersPayload{Headers: headers}, "", "  ")
	if err != nil {
		return anthropic.MessageRequest{}, eris.Wrap(err, "mapping: encode headers")
	}

	temp := 0.0
	return anthropic.MessageRequest{
		Model:       b.model,
		MaxTokens:   b.maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(b.instruction.Text()),
		Messages:    []anthropic.Message{{Role: "user", Content: string(body)}},
		Temperature: &temp,
	}, nil
}
