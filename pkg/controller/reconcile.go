package controller

import (
	"time"

	"github.com/google/uuid"

	"github.com/tidalab/datachat/pkg/chat"
	"github.com/tidalab/datachat/pkg/stream"
)

// reconcileAssistant produces the assistant message for a completed turn.
// An authoritative message from a complete frame wins verbatim; otherwise
// the message is synthesized from the draft.
func reconcileAssistant(session *stream.Session) chat.Message {
	if final := session.Final(); final != nil {
		msg := *final
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.Role == "" {
			msg.Role = chat.RoleAssistant
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}
		return msg
	}
	return synthesizeAssistant(session)
}

// synthesizeAssistant builds an assistant message from locally accumulated
// draft state: the appended answer text, the last full thinking text, the
// fenced code blocks extracted from the answer, and the completed
// executions in arrival order.
func synthesizeAssistant(session *stream.Session) chat.Message {
	content := session.Content()
	msg := chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleAssistant,
		Content:   content,
		Thinking:  session.Thinking(),
		Code:      chat.CombineCodeBlocks(content),
		CreatedAt: time.Now(),
		Metadata: &chat.Metadata{
			ExecutionResults: session.CompletedExecutions(),
			HadToolCalls:     session.ExecutionCount() > 0,
		},
	}
	return msg
}
