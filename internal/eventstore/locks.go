// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package eventstore

import "github.com/cespare/xxhash/v2"

// deriveLockKeys computes the pair of 32-bit advisory-lock keys for
// streamID.
//
// A stable, non-cryptographic 64-bit hash of the UTF-8 bytes is split
// into high and low halves, each sign-extended into the signed 32-bit
// range pg_advisory_xact_lock(key1 int4, key2 int4) requires. Using two
// independent 32-bit keys instead of one 64-bit value truncated to 32
// bits keeps unrelated streams from serializing against each other except
// in the ~1-in-2^64 case both halves collide.
//
// Pure and deterministic: no seeded randomness, identical keys across
// processes and restarts.
func deriveLockKeys(streamID string) (high, low int32) {
	h := xxhash.Sum64String(streamID)
	high = int32(h >> 32)
	low = int32(h & 0xFFFFFFFF)
	return high, low
}
