package schema

// Messages is the ordered chat history exchanged with the LLM.
// It owns typed append methods so callers never construct raw maps.
// Entries are only ever appended; nothing reorders them.
type Messages struct {
	Messages []Message
}

// NewMessages returns a Messages initialised with a copy of msgs.
func NewMessages(msgs ...Message) Messages {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return Messages{Messages: out}
}

func (mh *Messages) Len() int { return len(mh.Messages) }

// AddUser appends a user message.
func (mh *Messages) AddUser(content string) {
	mh.Messages = append(mh.Messages, NewUserMessage(content))
}

// AddAssistant appends an assistant message with optional tool calls.
func (mh *Messages) AddAssistant(content string, toolCalls []ToolCall) {
	mh.Messages = append(mh.Messages, NewAssistantMessage(content, toolCalls))
}

// AddToolResult appends a tool-result message.
func (mh *Messages) AddToolResult(toolCallID, toolName, result string) {
	mh.Messages = append(mh.Messages, NewToolResultMessage(toolCallID, toolName, result))
}

// Clone returns a copy of mh with an independent backing slice.
func (mh *Messages) Clone() Messages {
	return NewMessages(mh.Messages...)
}

// Since returns a copy of the messages at index i and later.
func (mh *Messages) Since(i int) []Message {
	if i < 0 {
		i = 0
	}
	if i >= len(mh.Messages) {
		return []Message{}
	}
	out := make([]Message, len(mh.Messages)-i)
	copy(out, mh.Messages[i:])
	return out
}

// WithoutSystem returns a copy of msgs with every system message removed.
func WithoutSystem(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}
