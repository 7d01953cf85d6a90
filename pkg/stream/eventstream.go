package stream

import (
	"context"
	"sync"
)

// IterResult is a single iteration step. Done marks end of stream; Value is
// unset when Done is true.
type IterResult[T any] struct {
	Value T
	Done  bool
}

// EventStream is an async event stream with a final result. T is the event
// type, R the result type. A producer calls Push until a completing event
// (or End); consumers range over Iterator and read Result.
type EventStream[T any, R any] struct {
	mu            sync.Mutex
	queue         []T
	waiting       []chan<- IterResult[T]
	done          bool
	finalResultCh chan R
	isComplete    func(T) bool
	extractResult func(T) R
}

// NewEventStream creates a stream. isComplete marks the event that ends the
// stream; extractResult derives the final result from that event.
func NewEventStream[T any, R any](
	isComplete func(T) bool,
	extractResult func(T) R,
) *EventStream[T, R] {
	return &EventStream[T, R]{
		finalResultCh: make(chan R, 1),
		isComplete:    isComplete,
		extractResult: extractResult,
	}
}

// Push delivers an event to consumers. Pushing a completing event also
// resolves the final result and seals the stream; later pushes are no-ops.
func (es *EventStream[T, R]) Push(event T) {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.done {
		return
	}

	if es.isComplete(event) {
		es.done = true
		es.finalResultCh <- es.extractResult(event)
	}

	if len(es.waiting) > 0 {
		waiter := es.waiting[0]
		es.waiting = es.waiting[1:]
		waiter <- IterResult[T]{Value: event}
		return
	}
	es.queue = append(es.queue, event)
}

// End seals the stream with the given result without a completing event.
func (es *EventStream[T, R]) End(result R) {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.done {
		return
	}
	es.done = true
	es.finalResultCh <- result

	for _, waiter := range es.waiting {
		select {
		case waiter <- IterResult[T]{Done: true}:
		default:
		}
	}
	es.waiting = nil
	es.queue = nil
}

// Iterator returns a channel delivering buffered and future events in push
// order. The channel closes when the stream is sealed and drained, or when
// ctx is cancelled.
func (es *EventStream[T, R]) Iterator(ctx context.Context) <-chan IterResult[T] {
	ch := make(chan IterResult[T])

	go func() {
		defer close(ch)
		for {
			es.mu.Lock()
			if len(es.queue) > 0 {
				event := es.queue[0]
				es.queue = es.queue[1:]
				es.mu.Unlock()
				select {
				case ch <- IterResult[T]{Value: event}:
					continue
				case <-ctx.Done():
					return
				}
			}
			if es.done {
				es.mu.Unlock()
				return
			}

			waiter := make(chan IterResult[T], 1)
			es.waiting = append(es.waiting, waiter)
			es.mu.Unlock()

			select {
			case result := <-waiter:
				if result.Done {
					return
				}
				select {
				case ch <- result:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

// Result returns a channel that delivers the final result once.
func (es *EventStream[T, R]) Result() <-chan R {
	return es.finalResultCh
}

// IsDone reports whether the stream has been sealed.
func (es *EventStream[T, R]) IsDone() bool {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.done
}
