// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package walk

import (
	"strconv"
	"time"
)

// Property names recognized by the structural scoring factors. Stores
// disagree on naming, so each factor probes a small candidate list in
// order and uses the first parsable hit.
var (
	timestampProps  = []string{"timestamp", "created_at", "last_interaction"}
	countProps      = []string{"mention_count", "count", "frequency"}
	trustProps      = []string{"trust_score", "trust"}
	sentimentProps  = []string{"sentiment", "emotional_intensity"}
	trustDeltaProps = []string{"trust_delta", "trust_change"}
	accessProps     = []string{"access_count", "retrieval_count"}
)

// floatProp returns the first property under any of the given keys that
// can be coerced to a float64. Missing or unparsable values report false;
// they never fail the caller.
func floatProp(props map[string]any, keys ...string) (float64, bool) {
	if props == nil {
		return 0, false
	}
	for _, key := range keys {
		raw, ok := props[key]
		if !ok || raw == nil {
			continue
		}
		if f, ok := coerceFloat(raw); ok {
			return f, true
		}
	}
	return 0, false
}

func coerceFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// timeProp returns the first property under any of the given keys that
// can be coerced to a time.Time.
//
// Accepted encodings: time.Time, RFC 3339 strings (with or without
// sub-second precision), and Unix epoch seconds as a number. Neo4j and
// the in-memory store produce the first two; older ingest paths wrote
// epoch seconds.
func timeProp(props map[string]any, keys ...string) (time.Time, bool) {
	if props == nil {
		return time.Time{}, false
	}
	for _, key := range keys {
		raw, ok := props[key]
		if !ok || raw == nil {
			continue
		}
		if t, ok := coerceTime(raw); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func coerceTime(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v, true
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			return t, true
		}
		return time.Time{}, false
	case float64:
		return epochSeconds(v)
	case int64:
		return epochSeconds(float64(v))
	case int:
		return epochSeconds(float64(v))
	default:
		return time.Time{}, false
	}
}

// epochSeconds rejects magnitudes that cannot be plausible Unix second
// timestamps so that ordinary counters are not misread as dates.
func epochSeconds(v float64) (time.Time, bool) {
	const minEpoch = 1e9 // 2001-09-09
	const maxEpoch = 1e11
	if v < minEpoch || v > maxEpoch {
		return time.Time{}, false
	}
	return time.Unix(int64(v), 0).UTC(), true
}
