package stream

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/tidalab/datachat/pkg/chat"
)

// Change describes the observable effect of one applied frame. Kind is the
// frame type that took effect, or "" when the frame was absorbed without a
// visible change (malformed payload, dropped result, post-terminal frame).
type Change struct {
	Kind       string
	Thinking   string          // cumulative reasoning text, after a thinking frame
	Delta      string          // fragment appended by a text_delta frame
	Execution  *chat.Execution // snapshot, after tool_call / tool_result
	Final      *chat.Message   // authoritative message from a complete frame
	ErrMessage string          // backend error text from an error frame
	Terminal   bool
}

// Session is the draft state of one in-flight assistant turn: the
// cumulative thinking text (replace semantics), the accumulated answer
// text (append semantics), and the ordered execution list. It is owned by
// exactly one controller turn and is never shared across sends.
type Session struct {
	thinking   string
	content    strings.Builder
	executions []chat.Execution
	final      *chat.Message
	serverErr  string
	terminal   bool
	stats      *Stats
}

// NewSession creates an empty draft. stats may be nil.
func NewSession(stats *Stats) *Session {
	return &Session{stats: stats}
}

// Apply interprets one frame against the draft. Every effect is applied
// regardless of which logical state the observer believes the turn is in;
// the backend may legitimately interleave thinking, executions, and answer
// text. Frames arriving after a terminal frame are ignored.
func (s *Session) Apply(frame Frame) Change {
	if s.terminal {
		return Change{}
	}

	switch frame.Type {
	case EventThinking:
		var p ThinkingPayload
		if !s.decode(frame, &p) {
			return Change{}
		}
		// Replace, not append: the payload carries the full text so far.
		s.thinking = p.Text()
		return Change{Kind: EventThinking, Thinking: s.thinking}

	case EventToolCall:
		var p ToolCallPayload
		if !s.decode(frame, &p) {
			return Change{}
		}
		return s.beginExecution(p)

	case EventToolResult:
		var p ToolResultPayload
		if !s.decode(frame, &p) {
			return Change{}
		}
		return s.completeExecution(p)

	case EventTextDelta:
		var p TextDeltaPayload
		if !s.decode(frame, &p) {
			return Change{}
		}
		s.content.WriteString(p.Delta)
		return Change{Kind: EventTextDelta, Delta: p.Delta}

	case EventComplete:
		var p CompletePayload
		if !s.decode(frame, &p) {
			return Change{}
		}
		s.final = p.AssistantMessage
		s.terminal = true
		return Change{Kind: EventComplete, Final: s.final, Terminal: true}

	case EventError:
		var p ErrorPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil || p.Message == "" {
			p.Message = "stream error"
		}
		s.serverErr = p.Message
		s.terminal = true
		return Change{Kind: EventError, ErrMessage: p.Message, Terminal: true}

	case EventDone:
		s.terminal = true
		return Change{Kind: EventDone, Terminal: true}

	default:
		slog.Debug("[Session] ignoring frame", "type", frame.Type)
		return Change{}
	}
}

func (s *Session) beginExecution(p ToolCallPayload) Change {
	// Executions are sequential by contract. A tool_call while another is
	// still running is a backend contract violation: validate loudly, then
	// stay faithful to the backend's ordering.
	if last := s.lastExecution(); last != nil && last.Running() {
		slog.Warn("[Session] tool_call while execution running",
			"runningStep", last.Step, "newStep", p.Step)
		s.stats.RecordContractViolation()
	}

	step := p.Step
	if step <= 0 {
		step = len(s.executions) + 1
	}
	s.executions = append(s.executions, chat.Execution{
		Step:   step,
		Code:   p.Code,
		Status: chat.ExecutionRunning,
	})
	snap := s.executions[len(s.executions)-1]
	return Change{Kind: EventToolCall, Execution: &snap}
}

func (s *Session) completeExecution(p ToolResultPayload) Change {
	last := s.lastExecution()
	if last == nil || !last.Running() {
		// Duplicate or out-of-order result. Never mutate a record that
		// already completed: drop it and keep the stream alive.
		slog.Warn("[Session] tool_result without running execution",
			"executionID", p.ExecutionID)
		s.stats.RecordDroppedResult()
		return Change{}
	}

	last.Status = chat.ExecutionComplete
	last.Success = p.Success
	last.Output = p.Output
	last.Error = p.Error
	last.Charts = p.Charts
	last.Files = p.Files
	last.ExecutionID = p.ExecutionID

	snap := *last
	return Change{Kind: EventToolResult, Execution: &snap}
}

func (s *Session) decode(frame Frame, v any) bool {
	if err := json.Unmarshal(frame.Data, v); err != nil {
		slog.Warn("[Session] skipping frame with bad payload",
			"type", frame.Type, "error", err)
		s.stats.RecordDecodeFailure()
		return false
	}
	return true
}

func (s *Session) lastExecution() *chat.Execution {
	if len(s.executions) == 0 {
		return nil
	}
	return &s.executions[len(s.executions)-1]
}

// Thinking returns the last-seen full reasoning text.
func (s *Session) Thinking() string {
	return s.thinking
}

// Content returns the answer text accumulated so far.
func (s *Session) Content() string {
	return s.content.String()
}

// Executions returns a copy of the execution list, running ones included.
func (s *Session) Executions() []chat.Execution {
	out := make([]chat.Execution, len(s.executions))
	copy(out, s.executions)
	return out
}

// CompletedExecutions returns the executions that received their result,
// preserving original order.
func (s *Session) CompletedExecutions() []chat.Execution {
	var out []chat.Execution
	for _, e := range s.executions {
		if e.Status == chat.ExecutionComplete {
			out = append(out, e)
		}
	}
	return out
}

// ExecutionCount returns how many tool calls this turn saw.
func (s *Session) ExecutionCount() int {
	return len(s.executions)
}

// Final returns the authoritative assistant message, if a complete frame
// delivered one.
func (s *Session) Final() *chat.Message {
	return s.final
}

// ServerError returns the backend-reported error text, if any.
func (s *Session) ServerError() string {
	return s.serverErr
}

// Terminal reports whether a complete, error, or done frame was applied.
func (s *Session) Terminal() bool {
	return s.terminal
}
