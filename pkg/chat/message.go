package chat

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Execution statuses.
const (
	ExecutionRunning  = "running"
	ExecutionComplete = "complete"
)

// FileRef describes a file known to the backend, either attached to a user
// message or produced by a code execution.
type FileRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
}

// Chart is a visualization produced by a code execution. The payload format
// is owned by the backend; the client carries it opaquely.
type Chart struct {
	Type  string          `json:"type,omitempty"`
	Title string          `json:"title,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Execution is one code invocation and its eventual result within a turn.
// Step is the 1-based order of the invocation. An execution starts as
// "running" and transitions to "complete" exactly once; the result fields
// are only meaningful after that transition.
type Execution struct {
	Step    int    `json:"step"`
	Code    string `json:"code"`
	Status  string `json:"status"`
	Success bool   `json:"success,omitempty"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`

	Charts []Chart   `json:"charts,omitempty"`
	Files  []FileRef `json:"files,omitempty"`

	// ExecutionID is the server-assigned id from the result record. It is
	// recorded for diagnostics only; results are paired positionally.
	ExecutionID string `json:"execution_id,omitempty"`
}

// Running reports whether the execution has not yet received its result.
func (e *Execution) Running() bool {
	return e.Status == ExecutionRunning
}

// Metadata carries the assistant-side extras of a message.
type Metadata struct {
	AttachedFiles    []FileRef   `json:"attached_files,omitempty"`
	ExecutionResults []Execution `json:"execution_results,omitempty"`
	HadToolCalls     bool        `json:"had_tool_calls,omitempty"`
}

// Message is one committed entry of a conversation transcript. Only
// assistant messages carry Thinking, Code, and execution results.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Thinking  string    `json:"thinking,omitempty"`
	Code      string    `json:"code,omitempty"`
	Metadata  *Metadata `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Pending marks a client-side optimistic entry that has not been
	// confirmed by a completed turn. Pending entries are replaced by id,
	// never matched by value.
	Pending bool `json:"-"`
}

// NewUserMessage creates a committed user message with a fresh durable id.
func NewUserMessage(text string, files []FileRef) Message {
	msg := Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	}
	if len(files) > 0 {
		msg.Metadata = &Metadata{AttachedFiles: files}
	}
	return msg
}

// ExecutionResults returns the message's completed executions, or nil.
func (m *Message) ExecutionResults() []Execution {
	if m.Metadata == nil {
		return nil
	}
	return m.Metadata.ExecutionResults
}

// AttachedFiles returns the message's attachments, or nil.
func (m *Message) AttachedFiles() []FileRef {
	if m.Metadata == nil {
		return nil
	}
	return m.Metadata.AttachedFiles
}
