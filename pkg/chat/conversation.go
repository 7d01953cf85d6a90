package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrPendingNotFound is returned when a commit or rollback names a pending
// entry that is no longer in the transcript.
var ErrPendingNotFound = errors.New("pending message not found")

// Conversation is the committed transcript of one chat. Messages form an
// append-only log; the one exception is the optimistic pending user entry,
// which is replaced in place (by id) when its turn terminates.
type Conversation struct {
	mu       sync.Mutex
	id       string
	messages []Message
}

// NewConversation creates an empty conversation. An empty id gets a
// generated one.
func NewConversation(id string) *Conversation {
	if id == "" {
		id = uuid.NewString()
	}
	return &Conversation{id: id}
}

// ID returns the conversation identifier.
func (c *Conversation) ID() string {
	return c.id
}

// Messages returns a copy of the committed transcript, pending entry
// included.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of transcript entries.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Append adds an already-committed message, for loading server history.
func (c *Conversation) Append(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// AddPending appends an optimistic user message and returns its temporary
// id. The entry stays in the transcript until CommitTurn, CommitUserOnly,
// or Rollback resolves it.
func (c *Conversation) AddPending(text string, files []FileRef) string {
	msg := Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
		Pending:   true,
	}
	if len(files) > 0 {
		msg.Metadata = &Metadata{AttachedFiles: files}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	return msg.ID
}

// CommitTurn resolves a completed turn: the pending user entry gets a fresh
// durable id and the assistant message is appended right after it, in one
// critical section. Observers never see the temporary id coexisting with
// the assistant message.
func (c *Conversation) CommitTurn(pendingID string, assistant Message) error {
	if assistant.ID == "" {
		assistant.ID = uuid.NewString()
	}
	if assistant.Role == "" {
		assistant.Role = RoleAssistant
	}
	if assistant.CreatedAt.IsZero() {
		assistant.CreatedAt = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.pendingIndex(pendingID)
	if i < 0 {
		return ErrPendingNotFound
	}
	c.messages[i].ID = uuid.NewString()
	c.messages[i].Pending = false

	// Insert directly after the user entry so a superseding turn's pending
	// message never ends up between the pair.
	c.messages = append(c.messages, Message{})
	copy(c.messages[i+2:], c.messages[i+1:])
	c.messages[i+1] = assistant
	return nil
}

// CommitUserOnly promotes the pending user entry to a committed message
// without an assistant response. This is the cancellation path: the user's
// intent to send stays valid even though the response was abandoned.
func (c *Conversation) CommitUserOnly(pendingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.pendingIndex(pendingID)
	if i < 0 {
		return ErrPendingNotFound
	}
	c.messages[i].ID = uuid.NewString()
	c.messages[i].Pending = false
	return nil
}

// Rollback removes the pending user entry entirely, for turns that failed
// before committing any content.
func (c *Conversation) Rollback(pendingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.pendingIndex(pendingID)
	if i < 0 {
		return ErrPendingNotFound
	}
	c.messages = append(c.messages[:i], c.messages[i+1:]...)
	return nil
}

func (c *Conversation) pendingIndex(pendingID string) int {
	for i := range c.messages {
		if c.messages[i].Pending && c.messages[i].ID == pendingID {
			return i
		}
	}
	return -1
}
