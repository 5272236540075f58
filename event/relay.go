//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package event

import (
	"sync"

	"github.com/capiai/orquesta/log"
)

// Sink receives events from the relay. Emit is fire-and-forget: the relay
// never awaits acknowledgement and a slow sink only delays other sinks on the
// relay's own dispatch goroutine, never graph execution.
type Sink interface {
	Emit(event *Event)
}

// SinkFunc is an adapter to allow the use of ordinary functions as Sinks.
type SinkFunc func(event *Event)

// Emit calls f(event).
func (f SinkFunc) Emit(event *Event) { f(event) }

const defaultRelayBuffer = 256

// Relay is a best-effort broadcaster of node lifecycle events. Producers
// (nodes, the executor) call Emit from any goroutine; a single consumer
// goroutine fans events out to the registered sinks. When the queue is full
// the oldest event is dropped so producers never block.
type Relay struct {
	mu     sync.RWMutex
	sinks  []Sink
	queue  chan *Event
	done   chan struct{}
	closed bool
}

// RelayOption configures a Relay.
type RelayOption func(*relayOptions)

type relayOptions struct {
	bufferSize int
}

// WithBufferSize sets the delivery queue capacity (default 256).
func WithBufferSize(size int) RelayOption {
	return func(o *relayOptions) {
		if size > 0 {
			o.bufferSize = size
		}
	}
}

// NewRelay creates a relay and starts its dispatch goroutine.
func NewRelay(opts ...RelayOption) *Relay {
	options := relayOptions{bufferSize: defaultRelayBuffer}
	for _, opt := range opts {
		opt(&options)
	}
	r := &Relay{
		queue: make(chan *Event, options.bufferSize),
		done:  make(chan struct{}),
	}
	go r.dispatch()
	return r
}

// Subscribe registers a sink. Sinks added after events were dispatched only
// see subsequent events.
func (r *Relay) Subscribe(sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, sink)
}

// Emit enqueues an event for delivery. It never blocks on a full queue: the
// oldest queued event is dropped to make room. The read lock is held across
// the send so Close cannot close the queue between the closed check and the
// send.
func (r *Relay) Emit(e *Event) {
	if e == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	for {
		select {
		case r.queue <- e:
			return
		default:
		}
		// Queue full: drop the oldest event and retry once more.
		select {
		case dropped := <-r.queue:
			log.Debugf("event relay queue full, dropping event %s (%s)", dropped.ID, dropped.Type)
		default:
		}
	}
}

// Close stops the relay after draining queued events. The queue is closed
// under the write lock, after every in-flight Emit has released its read
// lock, so emitters never send on a closed channel.
func (r *Relay) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}

func (r *Relay) dispatch() {
	defer close(r.done)
	for e := range r.queue {
		r.mu.RLock()
		sinks := make([]Sink, len(r.sinks))
		copy(sinks, r.sinks)
		r.mu.RUnlock()
		for _, sink := range sinks {
			sink.Emit(e)
		}
	}
}
