package agent

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// TokenCounter returns the token count of one message body.
type TokenCounter func(text string) int

// perMessageOverhead approximates the role and separator tokens vendors add
// around each chat message.
const perMessageOverhead = 4

// NewTiktokenCounter returns a counter using the encoding for model, falling
// back to cl100k_base for models tiktoken does not know.
func NewTiktokenCounter(model string) (TokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("load tiktoken encoding: %w", err)
		}
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}

// ContextWindow trims a client-submitted history before it seeds a Chef:
// system messages are removed, only the last size messages are kept,
// leading tool messages whose call was cut off are dropped, and when
// maxTokens > 0 the oldest messages go until the rest fit.
func ContextWindow(msgs []schema.Message, size, maxTokens int, count TokenCounter) []schema.Message {
	out := schema.WithoutSystem(msgs)
	if size > 0 && len(out) > size {
		out = out[len(out)-size:]
	}
	out = dropOrphanTools(out)

	if maxTokens <= 0 || count == nil {
		return out
	}
	for len(out) > 0 && tokens(out, count) > maxTokens {
		out = dropOrphanTools(out[1:])
	}
	return out
}

func tokens(msgs []schema.Message, count TokenCounter) int {
	total := 0
	for _, m := range msgs {
		total += count(m.Content) + perMessageOverhead
	}
	return total
}

func dropOrphanTools(msgs []schema.Message) []schema.Message {
	for len(msgs) > 0 && msgs[0].Role == schema.RoleTool {
		msgs = msgs[1:]
	}
	return msgs
}
