package stream

import (
	"strings"
	"testing"
)

const sampleStream = "event: thinking\n" +
	"data: {\"full\":\"Let me look at the data\"}\n" +
	"\n" +
	"event: tool_call\n" +
	"data: {\"step\":1,\"code\":\"print(df.head())\"}\n" +
	"\n" +
	"event: tool_result\n" +
	"data: {\"success\":true,\"output\":\"ok\"}\n" +
	"\n" +
	"event: text_delta\n" +
	"data: {\"delta\":\"The data\"}\n" +
	"\n" +
	"event: text_delta\n" +
	"data: {\"delta\":\" looks clean.\"}\n" +
	"\n" +
	"event: done\n" +
	"data: {}\n" +
	"\n" +
	"data: [DONE]\n"

var sampleTypes = []string{
	EventThinking, EventToolCall, EventToolResult,
	EventTextDelta, EventTextDelta, EventDone,
}

func decodeAll(d *FrameDecoder, input string, chunkSize int) []Frame {
	var frames []Frame
	for len(input) > 0 {
		n := chunkSize
		if n > len(input) {
			n = len(input)
		}
		frames = append(frames, d.Feed([]byte(input[:n]))...)
		input = input[n:]
	}
	return append(frames, d.Close()...)
}

func TestFrameDecoderDecodesSample(t *testing.T) {
	frames := decodeAll(NewFrameDecoder(nil), sampleStream, len(sampleStream))
	if len(frames) != len(sampleTypes) {
		t.Fatalf("expected %d frames, got %d", len(sampleTypes), len(frames))
	}
	for i, frame := range frames {
		if frame.Type != sampleTypes[i] {
			t.Fatalf("frame %d: expected type %q, got %q", i, sampleTypes[i], frame.Type)
		}
	}
}

func TestFrameDecoderChunkBoundaryInvariance(t *testing.T) {
	whole := decodeAll(NewFrameDecoder(nil), sampleStream, len(sampleStream))

	for _, chunkSize := range []int{1, 2, 3, 5, 7, 16, 61, 128} {
		frames := decodeAll(NewFrameDecoder(nil), sampleStream, chunkSize)
		if len(frames) != len(whole) {
			t.Fatalf("chunk size %d: expected %d frames, got %d", chunkSize, len(whole), len(frames))
		}
		for i := range frames {
			if frames[i].Type != whole[i].Type {
				t.Fatalf("chunk size %d, frame %d: type %q != %q", chunkSize, i, frames[i].Type, whole[i].Type)
			}
			if string(frames[i].Data) != string(whole[i].Data) {
				t.Fatalf("chunk size %d, frame %d: payload %q != %q", chunkSize, i, frames[i].Data, whole[i].Data)
			}
		}
	}
}

func TestFrameDecoderFlushOnClose(t *testing.T) {
	d := NewFrameDecoder(nil)
	frames := d.Feed([]byte("event: text_delta\ndata: {\"delta\":\"tail\"}"))
	if len(frames) != 0 {
		t.Fatalf("unterminated line must not emit yet, got %d frames", len(frames))
	}

	frames = d.Close()
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame from Close, got %d", len(frames))
	}
	if frames[0].Type != EventTextDelta {
		t.Fatalf("unexpected type %q", frames[0].Type)
	}
}

func TestFrameDecoderIgnoresSentinelAndEmptyData(t *testing.T) {
	d := NewFrameDecoder(nil)
	frames := d.Feed([]byte("data: [DONE]\ndata:\ndata: \n: comment line\nretry: 100\n"))
	if len(frames) != 0 {
		t.Fatalf("expected no frames, got %d", len(frames))
	}
}

func TestFrameDecoderSkipsMalformedRecord(t *testing.T) {
	stats := NewStats()
	d := NewFrameDecoder(stats)

	input := "event: thinking\n" +
		"data: {\"full\":\"first\"}\n" +
		"data: not-json\n" +
		"event: thinking\n" +
		"data: {\"full\":\"second\"}\n"
	frames := decodeAll(d, input, len(input))

	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if !strings.Contains(string(frames[1].Data), "second") {
		t.Fatalf("unexpected second payload: %s", frames[1].Data)
	}
	if got := stats.Snapshot().DecodeFailures; got != 1 {
		t.Fatalf("expected 1 decode failure, got %d", got)
	}
}

func TestFrameDecoderTypeFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "pending event label wins",
			input: "event: thinking\ndata: {\"type\":\"text_delta\"}\n",
			want:  EventThinking,
		},
		{
			name:  "type field in payload",
			input: "data: {\"type\":\"tool_call\",\"step\":1}\n",
			want:  EventToolCall,
		},
		{
			name:  "no label and no type field",
			input: "data: {\"delta\":\"x\"}\n",
			want:  EventUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := NewFrameDecoder(nil).Feed([]byte(tt.input))
			if len(frames) != 1 {
				t.Fatalf("expected 1 frame, got %d", len(frames))
			}
			if frames[0].Type != tt.want {
				t.Fatalf("expected type %q, got %q", tt.want, frames[0].Type)
			}
		})
	}
}

func TestFrameDecoderLabelClearedAfterEmit(t *testing.T) {
	d := NewFrameDecoder(nil)
	frames := d.Feed([]byte("event: thinking\ndata: {\"full\":\"a\"}\ndata: {\"delta\":\"b\"}\n"))
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0].Type != EventThinking {
		t.Fatalf("unexpected first type %q", frames[0].Type)
	}
	if frames[1].Type != EventUnknown {
		t.Fatalf("label must be cleared after use, got %q", frames[1].Type)
	}
}

func TestFrameDecoderHandlesCRLF(t *testing.T) {
	d := NewFrameDecoder(nil)
	frames := d.Feed([]byte("event: text_delta\r\ndata: {\"delta\":\"hi\"}\r\n"))
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Type != EventTextDelta {
		t.Fatalf("unexpected type %q", frames[0].Type)
	}
}
