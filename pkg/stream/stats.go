package stream

import "sync"

// Stats aggregates stream diagnostics. Protocol-level recoveries (skipped
// records, dropped results, stale frames) are never surfaced to the user,
// so these counters are the only place they stay observable.
// All methods are safe on a nil receiver.
type Stats struct {
	mu                 sync.Mutex
	framesByType       map[string]int64
	decodeFailures     int64
	contractViolations int64
	droppedResults     int64
	staleFrames        int64
	turnsStarted       int64
	turnsCompleted     int64
	turnsCancelled     int64
	turnsFailed        int64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	FramesByType       map[string]int64 `json:"framesByType,omitempty"`
	DecodeFailures     int64            `json:"decodeFailures"`
	ContractViolations int64            `json:"contractViolations"`
	DroppedResults     int64            `json:"droppedResults"`
	StaleFrames        int64            `json:"staleFrames"`
	TurnsStarted       int64            `json:"turnsStarted"`
	TurnsCompleted     int64            `json:"turnsCompleted"`
	TurnsCancelled     int64            `json:"turnsCancelled"`
	TurnsFailed        int64            `json:"turnsFailed"`
}

// NewStats creates an empty collector.
func NewStats() *Stats {
	return &Stats{framesByType: make(map[string]int64)}
}

// RecordFrame counts one decoded frame by type.
func (s *Stats) RecordFrame(eventType string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.framesByType == nil {
		s.framesByType = make(map[string]int64)
	}
	s.framesByType[eventType]++
}

// RecordDecodeFailure counts one skipped malformed record.
func (s *Stats) RecordDecodeFailure() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decodeFailures++
}

// RecordContractViolation counts a tool_call that arrived while another
// execution was still running.
func (s *Stats) RecordContractViolation() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contractViolations++
}

// RecordDroppedResult counts a tool_result that had no running execution
// to complete.
func (s *Stats) RecordDroppedResult() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.droppedResults++
}

// RecordStaleFrame counts a frame discarded because its session was
// superseded.
func (s *Stats) RecordStaleFrame() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staleFrames++
}

// RecordTurnStarted counts a send entering its read loop.
func (s *Stats) RecordTurnStarted() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnsStarted++
}

// RecordTurnOutcome counts a terminated turn by outcome.
func (s *Stats) RecordTurnOutcome(outcome string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch outcome {
	case "completed":
		s.turnsCompleted++
	case "cancelled":
		s.turnsCancelled++
	default:
		s.turnsFailed++
	}
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		DecodeFailures:     s.decodeFailures,
		ContractViolations: s.contractViolations,
		DroppedResults:     s.droppedResults,
		StaleFrames:        s.staleFrames,
		TurnsStarted:       s.turnsStarted,
		TurnsCompleted:     s.turnsCompleted,
		TurnsCancelled:     s.turnsCancelled,
		TurnsFailed:        s.turnsFailed,
	}
	if len(s.framesByType) > 0 {
		snap.FramesByType = make(map[string]int64, len(s.framesByType))
		for k, v := range s.framesByType {
			snap.FramesByType[k] = v
		}
	}
	return snap
}
