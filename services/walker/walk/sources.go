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

import "context"

// GraphStore is the traversal interface the walker consumes.
//
// Description:
//
//	Expand returns the neighbors of the frontier set in any relationship
//	direction and of any edge type, excluding nodes whose ids appear in
//	visited, with at most limit distinct neighbor rows. Frontier entries
//	may be node ids or node names; seeds supplied by callers are matched
//	either way. Returned nodes carry labels and all properties verbatim
//	with Score and Depth zeroed; the walker fills both in.
//
// Thread Safety: implementations must be safe for concurrent walks.
type GraphStore interface {
	Expand(ctx context.Context, frontier, visited []string, limit int) ([]*WalkedNode, []*WalkedEdge, error)
}

// Relationship is a point-in-time trust snapshot between a user and a
// character.
type Relationship struct {
	TrustScore   float64 `json:"trust_score"`
	Stage        string  `json:"stage,omitempty"`
	Interactions int     `json:"interactions,omitempty"`
}

// TrustSource resolves relationship snapshots for multi-character trust
// gating. A lookup error means trust is unknown; the walker fails closed.
type TrustSource interface {
	GetRelationship(ctx context.Context, userID, character string) (Relationship, error)
}

// TrajectorySource returns a chronological series of trust values for a
// (user, character) pair. An empty series means no time-series backend is
// configured; temporal scoring treats that as neutral.
type TrajectorySource interface {
	GetTrustTrajectory(ctx context.Context, userID, character string) ([]float64, error)
}
