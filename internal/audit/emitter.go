package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/innoad/adsession/internal/observable"
)

// SessionView describes the session at the moment an event is emitted.
type SessionView struct {
	// Forwardable is true while a server-issued session is authenticated.
	Forwardable bool
	UserID      string
	AccessToken string
}

// Record is the caller-supplied part of an event.
type Record struct {
	Type    string
	Success bool
	Error   string
	UserID  string
	Payload map[string]string
}

// Emitter stamps records into events and fans them out.
type Emitter struct {
	stream      *observable.Stream[Event]
	dispatcher  *Dispatcher
	session     func() SessionView
	fingerprint func() string
	now         func() time.Time
}

// NewEmitter wires an Emitter. dispatcher may be nil to disable forwarding.
func NewEmitter(stream *observable.Stream[Event], dispatcher *Dispatcher, session func() SessionView, fingerprint func() string, now func() time.Time) *Emitter {
	if stream == nil {
		stream = observable.NewStream[Event]()
	}
	if session == nil {
		session = func() SessionView { return SessionView{} }
	}
	if fingerprint == nil {
		fingerprint = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &Emitter{stream: stream, dispatcher: dispatcher, session: session, fingerprint: fingerprint, now: now}
}

// Emit publishes r to local subscribers before returning and, when the
// session is forwardable, queues it for remote delivery.
func (e *Emitter) Emit(ctx context.Context, r Record) Event {
	view := e.session()

	payload := make(map[string]string, len(r.Payload))
	for k, v := range r.Payload {
		payload[k] = v
	}
	userID := r.UserID
	if userID == "" {
		userID = view.UserID
	}

	event := Event{
		ID:          uuid.NewString(),
		Timestamp:   e.now().UTC(),
		Type:        r.Type,
		UserID:      userID,
		Fingerprint: e.fingerprint(),
		Success:     r.Success,
		Error:       r.Error,
		Payload:     payload,
	}

	e.stream.Publish(event)

	if view.Forwardable && view.AccessToken != "" {
		e.dispatcher.Enqueue(ctx, event, view.AccessToken)
	}
	return event
}

// Subscribe attaches fn to the local stream.
func (e *Emitter) Subscribe(fn func(Event)) (cancel func()) {
	return e.stream.Subscribe(fn)
}

// Dispatcher returns the remote dispatcher, possibly nil.
func (e *Emitter) Dispatcher() *Dispatcher {
	return e.dispatcher
}
