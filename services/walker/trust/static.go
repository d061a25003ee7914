// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trust

import (
	"context"
	"sync"

	"github.com/AleutianAI/reverie/services/walker/walk"
)

// Static is a fixed in-memory trust and trajectory source for development
// runs and tests. Unknown pairs report zero trust and an empty series.
type Static struct {
	mu     sync.RWMutex
	rels   map[string]walk.Relationship
	series map[string][]float64
}

// NewStatic returns an empty static source.
func NewStatic() *Static {
	return &Static{
		rels:   make(map[string]walk.Relationship),
		series: make(map[string][]float64),
	}
}

// SetRelationship fixes the relationship for a (user, character) pair.
func (s *Static) SetRelationship(userID, character string, rel walk.Relationship) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rels[userID+"|"+character] = rel
}

// SetTrajectory fixes the trust series for a (user, character) pair.
func (s *Static) SetTrajectory(userID, character string, series []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[userID+"|"+character] = series
}

// GetRelationship implements walk.TrustSource.
func (s *Static) GetRelationship(ctx context.Context, userID, character string) (walk.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rels[userID+"|"+character], nil
}

// GetTrustTrajectory implements walk.TrajectorySource.
func (s *Static) GetTrustTrajectory(ctx context.Context, userID, character string) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.series[userID+"|"+character], nil
}
