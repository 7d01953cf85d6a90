package stream

import (
	"encoding/json"

	"github.com/tidalab/datachat/pkg/chat"
)

// Event types carried by the message-stream wire protocol.
const (
	EventThinking   = "thinking"
	EventToolCall   = "tool_call"
	EventToolResult = "tool_result"
	EventTextDelta  = "text_delta"
	EventComplete   = "complete"
	EventError      = "error"
	EventDone       = "done"
	EventUnknown    = "unknown"
)

// Frame is one decoded (event-type, payload) unit from the streamed
// response. Frames are ephemeral: produced by the decoder, consumed by the
// session, never persisted.
type Frame struct {
	Type string
	Data json.RawMessage
}

// ThinkingPayload carries the full cumulative reasoning text so far.
// Some backend versions use "full", others "content".
type ThinkingPayload struct {
	Full    string `json:"full"`
	Content string `json:"content"`
}

// Text returns the cumulative reasoning text regardless of which field the
// backend populated.
func (p ThinkingPayload) Text() string {
	if p.Full != "" {
		return p.Full
	}
	return p.Content
}

// ToolCallPayload announces a new code execution.
type ToolCallPayload struct {
	Step int    `json:"step"`
	Code string `json:"code"`
}

// ToolResultPayload completes the most recently started execution.
type ToolResultPayload struct {
	Success     bool           `json:"success"`
	Output      string         `json:"output"`
	Error       string         `json:"error"`
	Charts      []chat.Chart   `json:"charts"`
	Files       []chat.FileRef `json:"files"`
	ExecutionID string         `json:"execution_id"`
}

// TextDeltaPayload carries one fragment of the answer text.
type TextDeltaPayload struct {
	Delta string `json:"delta"`
}

// CompletePayload carries the authoritative final assistant message.
type CompletePayload struct {
	AssistantMessage *chat.Message `json:"assistant_message"`
}

// ErrorPayload signals an unrecoverable backend failure for this turn.
type ErrorPayload struct {
	Message string `json:"message"`
}
