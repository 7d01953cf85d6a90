// Package controller owns the lifecycle of streaming chat sessions: one
// in-flight turn per conversation, supersede-style cancellation, the read
// loop pumping decoded frames into the draft session, and the reconciler
// that folds a terminated session into the transcript.
package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/tidalab/datachat/pkg/chat"
	"github.com/tidalab/datachat/pkg/client"
	"github.com/tidalab/datachat/pkg/stream"
)

const readChunkSize = 4 * 1024

// Controller runs agentic turns against the backend. At most one turn is
// active per conversation: a new send supersedes (cancels) the previous
// one rather than queuing behind it.
type Controller struct {
	client *client.Client
	stats  *stream.Stats

	mu     sync.Mutex
	active map[string]*turn
}

// turn is one in-flight send. It exclusively owns its session; once
// superseded or finished it never mutates the conversation again.
type turn struct {
	conv      *chat.Conversation
	pendingID string
	session   *stream.Session
	cancel    context.CancelFunc
	finished  bool
}

// Option customizes a Controller.
type Option func(*Controller)

// WithStats attaches a diagnostics collector.
func WithStats(stats *stream.Stats) Option {
	return func(c *Controller) { c.stats = stats }
}

// New creates a controller on top of an API client.
func New(apiClient *client.Client, opts ...Option) *Controller {
	c := &Controller{
		client: apiClient,
		active: make(map[string]*turn),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats returns the diagnostics collector, which may be nil.
func (c *Controller) Stats() *stream.Stats {
	return c.stats
}

// Send starts a turn: it cancels any active turn for the conversation,
// appends the optimistic user message, and streams the response in the
// background. The returned stream delivers TurnEvents and resolves to a
// TurnResult; transport and server failures surface there, not as a
// return value.
func (c *Controller) Send(ctx context.Context, conv *chat.Conversation, text string, files []chat.FileRef) *stream.EventStream[TurnEvent, TurnResult] {
	events := stream.NewEventStream[TurnEvent, TurnResult](
		func(e TurnEvent) bool { return e.Type == TurnEventEnd },
		func(e TurnEvent) TurnResult { return e.Result() },
	)

	turnCtx, cancel := context.WithCancel(ctx)
	t := &turn{
		conv:    conv,
		session: stream.NewSession(c.stats),
		cancel:  cancel,
	}

	c.mu.Lock()
	if prev := c.active[conv.ID()]; prev != nil {
		slog.Debug("[Controller] superseding active turn", "conversation", conv.ID())
		prev.cancel()
	}
	c.active[conv.ID()] = t
	c.mu.Unlock()

	t.pendingID = conv.AddPending(text, files)
	c.stats.RecordTurnStarted()

	sendReq := client.SendRequest{Message: text, FileIDs: fileIDs(files)}
	go c.run(turnCtx, t, events, sendReq)

	return events
}

// Cancel aborts the active turn for a conversation, if any. The turn
// resolves with OutcomeCancelled; the already-sent user message stays.
func (c *Controller) Cancel(conversationID string) {
	c.mu.Lock()
	t := c.active[conversationID]
	c.mu.Unlock()
	if t != nil {
		t.cancel()
	}
}

// CancelAll aborts every active turn.
func (c *Controller) CancelAll() {
	c.mu.Lock()
	turns := make([]*turn, 0, len(c.active))
	for _, t := range c.active {
		turns = append(turns, t)
	}
	c.mu.Unlock()
	for _, t := range turns {
		t.cancel()
	}
}

// run is the read loop of one turn. All session mutation happens here,
// sequentially, in frame arrival order.
func (c *Controller) run(ctx context.Context, t *turn, events *stream.EventStream[TurnEvent, TurnResult], sendReq client.SendRequest) {
	events.Push(NewTurnStartEvent())

	body, err := c.client.OpenMessageStream(ctx, t.conv.ID(), sendReq)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled before any response bytes: no observable change
			// beyond the user message staying in the transcript.
			c.finishCancelled(t, events)
			return
		}
		c.finishError(t, events, err)
		return
	}
	defer body.Close()

	decoder := stream.NewFrameDecoder(c.stats)
	buf := make([]byte, readChunkSize)

	for {
		if ctx.Err() != nil {
			c.finishCancelled(t, events)
			return
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			for _, frame := range decoder.Feed(buf[:n]) {
				if done := c.applyFrame(ctx, t, events, frame); done {
					return
				}
			}
		}
		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) {
			for _, frame := range decoder.Close() {
				if done := c.applyFrame(ctx, t, events, frame); done {
					return
				}
			}
			// Stream ended without a terminal frame: treat it as done and
			// commit whatever the draft accumulated.
			c.finishCompleted(t, events)
			return
		}
		if ctx.Err() != nil {
			c.finishCancelled(t, events)
			return
		}
		c.finishError(t, events, &client.TransportError{Op: "read message stream", Err: readErr})
		return
	}
}

// applyFrame applies one frame to the turn's session and emits the
// matching event. It returns true when the turn terminated.
func (c *Controller) applyFrame(ctx context.Context, t *turn, events *stream.EventStream[TurnEvent, TurnResult], frame stream.Frame) bool {
	if ctx.Err() != nil {
		c.finishCancelled(t, events)
		return true
	}
	if !c.isActive(t) {
		// A late frame from a superseded connection. Discard; the newer
		// turn's state must never see it.
		c.stats.RecordStaleFrame()
		c.finishCancelled(t, events)
		return true
	}

	change := t.session.Apply(frame)
	switch change.Kind {
	case stream.EventThinking:
		events.Push(NewThinkingEvent(change.Thinking))
	case stream.EventTextDelta:
		events.Push(NewTextDeltaEvent(change.Delta))
	case stream.EventToolCall:
		events.Push(NewExecutionStartEvent(change.Execution))
	case stream.EventToolResult:
		events.Push(NewExecutionEndEvent(change.Execution))
	}

	if !change.Terminal {
		return false
	}
	if change.Kind == stream.EventError {
		c.finishError(t, events, &ServerError{Message: change.ErrMessage})
	} else {
		c.finishCompleted(t, events)
	}
	return true
}

// finishCompleted commits the turn: user message durable, assistant message
// appended, both in one transcript operation.
func (c *Controller) finishCompleted(t *turn, events *stream.EventStream[TurnEvent, TurnResult]) {
	if !c.beginFinish(t) {
		return
	}

	assistant := reconcileAssistant(t.session)
	if err := t.conv.CommitTurn(t.pendingID, assistant); err != nil {
		slog.Error("[Controller] commit failed", "conversation", t.conv.ID(), "error", err)
		c.stats.RecordTurnOutcome(OutcomeErrored)
		events.Push(NewTurnEndEvent(OutcomeErrored, nil, err))
		return
	}

	messages := t.conv.Messages()
	committed := messages[len(messages)-1]
	c.stats.RecordTurnOutcome(OutcomeCompleted)
	events.Push(NewTurnEndEvent(OutcomeCompleted, &committed, nil))
}

// finishCancelled resolves a cancelled turn: the draft is discarded, the
// user message is kept, and no error surfaces.
func (c *Controller) finishCancelled(t *turn, events *stream.EventStream[TurnEvent, TurnResult]) {
	if !c.beginFinish(t) {
		return
	}

	if err := t.conv.CommitUserOnly(t.pendingID); err != nil {
		slog.Warn("[Controller] cancel commit failed", "conversation", t.conv.ID(), "error", err)
	}
	c.stats.RecordTurnOutcome(OutcomeCancelled)
	events.Push(NewTurnEndEvent(OutcomeCancelled, nil, nil))
}

// finishError rolls the optimistic user message back and surfaces the
// failure, so the user can retry cleanly.
func (c *Controller) finishError(t *turn, events *stream.EventStream[TurnEvent, TurnResult], err error) {
	if !c.beginFinish(t) {
		return
	}

	slog.Error("[Controller] turn failed", "conversation", t.conv.ID(), "error", err)
	if rbErr := t.conv.Rollback(t.pendingID); rbErr != nil {
		slog.Warn("[Controller] rollback failed", "conversation", t.conv.ID(), "error", rbErr)
	}
	c.stats.RecordTurnOutcome(OutcomeErrored)
	events.Push(NewTurnEndEvent(OutcomeErrored, nil, err))
}

// beginFinish marks the turn finished exactly once and releases its active
// slot. It returns false when the turn already finished.
func (c *Controller) beginFinish(t *turn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.finished {
		return false
	}
	t.finished = true
	if c.active[t.conv.ID()] == t {
		delete(c.active, t.conv.ID())
	}
	return true
}

func (c *Controller) isActive(t *turn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[t.conv.ID()] == t
}

func fileIDs(files []chat.FileRef) []string {
	if len(files) == 0 {
		return nil
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		if f.ID != "" {
			ids = append(ids, f.ID)
		}
	}
	return ids
}
