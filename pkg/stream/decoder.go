package stream

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// doneSentinel terminates the data stream. It is a signal, not a frame.
const doneSentinel = "[DONE]"

// FrameDecoder turns raw transport chunks into complete wire frames.
// Chunk boundaries carry no meaning: the trailing unterminated line of each
// chunk is buffered until the next chunk, or until Close flushes it. A
// malformed record is skipped, never fatal.
type FrameDecoder struct {
	rest         string
	pendingEvent string
	stats        *Stats
}

// NewFrameDecoder creates a decoder. stats may be nil.
func NewFrameDecoder(stats *Stats) *FrameDecoder {
	return &FrameDecoder{stats: stats}
}

// Feed appends a chunk and returns every frame completed by it, in order.
func (d *FrameDecoder) Feed(chunk []byte) []Frame {
	data := d.rest + string(chunk)
	lines := strings.Split(data, "\n")
	d.rest = lines[len(lines)-1]

	var frames []Frame
	for _, line := range lines[:len(lines)-1] {
		if frame, ok := d.processLine(line); ok {
			frames = append(frames, frame)
		}
	}
	return frames
}

// Close flushes the carry-over buffer, treating a final unterminated line
// as if it were newline-terminated.
func (d *FrameDecoder) Close() []Frame {
	if d.rest == "" {
		return nil
	}
	line := d.rest
	d.rest = ""
	if frame, ok := d.processLine(line); ok {
		return []Frame{frame}
	}
	return nil
}

func (d *FrameDecoder) processLine(line string) (Frame, bool) {
	line = strings.TrimSuffix(line, "\r")

	switch {
	case strings.HasPrefix(line, "event:"):
		d.pendingEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		return Frame{}, false

	case strings.HasPrefix(line, "data:"):
		body := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if body == "" || body == doneSentinel {
			return Frame{}, false
		}

		raw := json.RawMessage(body)
		if !json.Valid(raw) {
			slog.Debug("[Decoder] skipping malformed record", "bytes", len(body))
			d.stats.RecordDecodeFailure()
			return Frame{}, false
		}

		eventType := d.pendingEvent
		d.pendingEvent = ""
		if eventType == "" {
			var probe struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(raw, &probe); err == nil {
				eventType = probe.Type
			}
		}
		if eventType == "" {
			eventType = EventUnknown
		}

		d.stats.RecordFrame(eventType)
		return Frame{Type: eventType, Data: raw}, true

	default:
		// Comments, blank lines, and unrecognized fields are ignored.
		return Frame{}, false
	}
}
