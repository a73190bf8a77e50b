// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package eventstore

// VersionSource reports the highest committed version for a stream. Both
// backends implement it directly over their own storage; the write buffer
// never needs its own copy of stream state, since validation happens
// inside the backend's append path.
type VersionSource interface {
	// LastCommittedVersion returns the highest version committed for
	// streamID, or -1 if the stream has no committed events.
	LastCommittedVersion(streamID string) (int64, error)
}

// NextVersion returns last_committed(streamID)+1, or 0 if the stream is
// empty. It is a convenience wrapper; callers in a concurrent setting
// should treat its result as advisory; correctness comes from the
// backend's own version check inside WriteStreamEvents at commit time,
// not from calling NextVersion first.
func NextVersion(src VersionSource, streamID string) (int64, error) {
	last, err := src.LastCommittedVersion(streamID)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// Validate succeeds iff version equals NextVersion(src, streamID) at the
// time of the call. It exists for callers (tests, degraded-mode
// collaborators) that want a pre-flight check; the authoritative check is
// always the one the backend performs inside its transaction.
func Validate(src VersionSource, streamID string, version int64) error {
	next, err := NextVersion(src, streamID)
	if err != nil {
		return err
	}
	if version != next {
		return &ConcurrencyConflictError{StreamID: streamID, ExpectedVersion: next, ActualVersion: version}
	}
	return nil
}
