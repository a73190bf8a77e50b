// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package eventstore

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Event is the immutable unit of storage: identity, stream, type, payload,
// per-stream version, wall-clock timestamp, and optional correlation
// metadata linking related events across streams.
//
// Construct with NewEvent; do not build an Event literal directly outside
// this package, since construction is what assigns ID and Timestamp.
type Event struct {
	id            string
	streamID      string
	eventType     string
	data          any
	version       int64
	timestamp     time.Time
	correlationID string

	frozen bool
}

// eventWire is the JSON wire shape used for Serialize/Deserialize. Field
// names match the SQL backend's column names (sql_store.go) so a single
// struct tag set serves both storage and transport.
type eventWire struct {
	EventID       string    `json:"event_id"`
	StreamID      string    `json:"stream_id"`
	EventType     string    `json:"event_type"`
	Data          any       `json:"data"`
	Version       int64     `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// NewEvent constructs an Event, assigning event_id and timestamp. version
// must be the position this event will occupy in its stream; callers that
// do not pre-assign a version should obtain one from
// NextVersion(store, streamID).
func NewEvent(streamID, eventType string, data any, version int64, correlationID string) (*Event, error) {
	if streamID == "" {
		return nil, &ValidationError{Field: "stream_id", Message: "must not be empty"}
	}
	if eventType == "" {
		return nil, &ValidationError{Field: "event_type", Message: "must not be empty"}
	}
	if version < 0 {
		return nil, &ValidationError{Field: "version", Message: "must be non-negative"}
	}
	return &Event{
		id:            uuid.NewString(),
		streamID:      streamID,
		eventType:     eventType,
		data:          data,
		version:       version,
		timestamp:     time.Now().UTC(),
		correlationID: correlationID,
		frozen:        true,
	}, nil
}

// ValidationError reports a malformed Event construction argument.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "eventstore: invalid " + e.Field + ": " + e.Message
}

func (e *Event) ID() string            { return e.id }
func (e *Event) StreamID() string      { return e.streamID }
func (e *Event) EventType() string     { return e.eventType }
func (e *Event) Data() any             { return e.data }
func (e *Event) Version() int64        { return e.version }
func (e *Event) Timestamp() time.Time  { return e.timestamp }
func (e *Event) CorrelationID() string { return e.correlationID }

// Equal compares two events by identity: equality is by event_id alone.
func (e *Event) Equal(other *Event) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.id == other.id
}

// WithVersion returns a copy of the event re-stamped with a different
// version. It does not mutate the receiver: an Event is immutable once
// constructed, and any attempt to change version, data, or identity in
// place must go through this kind of copy-on-write accessor rather than
// a setter.
func (e *Event) WithVersion(version int64) (*Event, error) {
	if version < 0 {
		return nil, &ValidationError{Field: "version", Message: "must be non-negative"}
	}
	cp := *e
	cp.version = version
	return &cp, nil
}

// Serialize renders the event to a self-describing textual form (JSON).
// Deserialize(Serialize(e)) must reproduce e's attributes exactly,
// including nested structured Data.
func (e *Event) Serialize() ([]byte, error) {
	w := eventWire{
		EventID:       e.id,
		StreamID:      e.streamID,
		EventType:     e.eventType,
		Data:          e.data,
		Version:       e.version,
		Timestamp:     e.timestamp,
		CorrelationID: e.correlationID,
	}
	return json.Marshal(w)
}

// Deserialize reconstructs an Event from bytes produced by Serialize.
func Deserialize(data []byte) (*Event, error) {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &ValidationError{Field: "data", Message: "malformed event payload: " + err.Error()}
	}
	return &Event{
		id:            w.EventID,
		streamID:      w.StreamID,
		eventType:     w.EventType,
		data:          w.Data,
		version:       w.Version,
		timestamp:     w.Timestamp,
		correlationID: w.CorrelationID,
		frozen:        true,
	}, nil
}

// MarshalJSON makes an Event usable directly as a JSON value; it emits the
// same wire shape as Serialize.
func (e *Event) MarshalJSON() ([]byte, error) {
	return e.Serialize()
}

// UnmarshalJSON refuses to decode into an already-constructed event: every
// field is assigned once, at construction, and unmarshaling over a live
// event is the one in-place mutation path the type system cannot close
// off. Decode into a fresh value with Deserialize instead.
func (e *Event) UnmarshalJSON(data []byte) error {
	if e.frozen {
		return ErrImmutableEvent
	}
	decoded, err := Deserialize(data)
	if err != nil {
		return err
	}
	*e = *decoded
	return nil
}

// approxSize estimates the serialized byte size of the event, used by the
// write buffer to enforce buffer_max_bytes without re-marshaling on every
// append.
func (e *Event) approxSize() int64 {
	data, err := e.Serialize()
	if err != nil {
		return int64(len(e.id) + len(e.streamID) + len(e.eventType) + len(e.correlationID) + 64)
	}
	return int64(len(data))
}
