package controller

import (
	"time"

	"github.com/tidalab/datachat/pkg/chat"
)

// Turn event types.
const (
	TurnEventStart          = "turn_start"
	TurnEventThinking       = "thinking"
	TurnEventTextDelta      = "text_delta"
	TurnEventExecutionStart = "execution_start"
	TurnEventExecutionEnd   = "execution_end"
	TurnEventEnd            = "turn_end"
)

// Turn outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeErrored   = "errored"
)

// TurnEvent is one observable step of an in-flight turn.
type TurnEvent struct {
	Type string `json:"type"`
	// EventAt is when the event was created (UnixNano).
	EventAt int64 `json:"eventAt,omitempty"`

	// thinking: cumulative reasoning text (replace semantics)
	Thinking string `json:"thinking,omitempty"`

	// text_delta: the appended fragment
	Delta string `json:"delta,omitempty"`

	// execution_start/execution_end
	Execution *chat.Execution `json:"execution,omitempty"`

	// turn_end
	Outcome string        `json:"outcome,omitempty"`
	Message *chat.Message `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`

	err error
}

// TurnResult is the final outcome of a turn.
type TurnResult struct {
	Outcome   string
	Assistant *chat.Message
	Err       error
}

// NewTurnStartEvent creates a turn_start event.
func NewTurnStartEvent() TurnEvent {
	return TurnEvent{Type: TurnEventStart, EventAt: time.Now().UnixNano()}
}

// NewThinkingEvent creates a thinking event carrying the full cumulative
// reasoning text.
func NewThinkingEvent(thinking string) TurnEvent {
	return TurnEvent{
		Type:     TurnEventThinking,
		EventAt:  time.Now().UnixNano(),
		Thinking: thinking,
	}
}

// NewTextDeltaEvent creates a text_delta event.
func NewTextDeltaEvent(delta string) TurnEvent {
	return TurnEvent{
		Type:    TurnEventTextDelta,
		EventAt: time.Now().UnixNano(),
		Delta:   delta,
	}
}

// NewExecutionStartEvent creates an execution_start event.
func NewExecutionStartEvent(execution *chat.Execution) TurnEvent {
	return TurnEvent{
		Type:      TurnEventExecutionStart,
		EventAt:   time.Now().UnixNano(),
		Execution: execution,
	}
}

// NewExecutionEndEvent creates an execution_end event.
func NewExecutionEndEvent(execution *chat.Execution) TurnEvent {
	return TurnEvent{
		Type:      TurnEventExecutionEnd,
		EventAt:   time.Now().UnixNano(),
		Execution: execution,
	}
}

// NewTurnEndEvent creates the terminal turn_end event.
func NewTurnEndEvent(outcome string, message *chat.Message, err error) TurnEvent {
	event := TurnEvent{
		Type:    TurnEventEnd,
		EventAt: time.Now().UnixNano(),
		Outcome: outcome,
		Message: message,
		err:     err,
	}
	if err != nil {
		event.Error = err.Error()
	}
	return event
}

// Result converts a terminal event into a TurnResult.
func (e TurnEvent) Result() TurnResult {
	return TurnResult{Outcome: e.Outcome, Assistant: e.Message, Err: e.err}
}
