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

import "time"

// Temporal scoring parameters.
const (
	// velocityCap bounds the interactions-per-day boost. An edge can at
	// most double a score through activity alone.
	velocityCap = 2.0

	// edgeRecencyWindow is the span over which an edge's updated_at
	// decays linearly from 1.0 down to edgeRecencyFloor. Stale edges are
	// strongly deprioritized but never vanish.
	edgeRecencyWindow = 60 * 24 * time.Hour
	edgeRecencyFloor  = 0.3

	// trajectoryMinPoints is the minimum series length carrying enough
	// signal for trend detection. Shorter series are ignored.
	trajectoryMinPoints = 5

	// trendFloor and trendCap bound the trajectory and edge-count trend
	// factors.
	trendFloor = 0.5
	trendCap   = 1.5
)

// scoreTemporal computes the temporal relevance of a candidate node from
// its owning edge and an optional trust trajectory.
//
// Description:
//
//	Independent of the structural score and composed with it by simple
//	multiplication. Returns exactly 1.0 when no temporal data is
//	supplied, so callers without a time-series backend lose nothing.
//	Four factors apply where data exists: an interactions-per-day
//	velocity boost capped at velocityCap, a linear staleness decay on
//	updated_at floored at edgeRecencyFloor, a trust-trajectory trend
//	(mean of the most-recent third against the mean of the earlier
//	two-thirds; rising boosts, falling reduces), and a rolling
//	edge-count trend comparing the last 30 days against the 30 days
//	prior. Malformed values silently contribute a neutral factor.
//
// Inputs:
//
//	node - Candidate node. Present for interface symmetry; current
//	       factors read only the edge and the trajectory.
//	edge - Edge that connected the node to the frontier. May be nil.
//	trajectory - Chronological trust series. May be nil or empty.
//	now - Reference time for velocity and staleness.
//
// Outputs:
//
//	float64 - Multiplicative temporal factor, 1.0 when nothing applies.
func scoreTemporal(node *WalkedNode, edge *WalkedEdge, trajectory []float64, now time.Time) float64 {
	_ = node
	score := 1.0

	if edge != nil {
		score *= velocityBoost(edge, now)
		score *= edgeRecencyDecay(edge, now)
		score *= edgeCountTrend(edge)
	}

	score *= trajectoryTrend(trajectory)

	return score
}

// velocityBoost rewards visibly active relationships over merely old
// ones: interactions per day since the edge was created, capped.
func velocityBoost(edge *WalkedEdge, now time.Time) float64 {
	count, ok := floatProp(edge.Properties, "count")
	if !ok || count <= 0 {
		return 1.0
	}
	created, ok := timeProp(edge.Properties, "created_at")
	if !ok {
		return 1.0
	}
	days := now.Sub(created).Hours() / 24.0
	if days < 1.0 {
		days = 1.0
	}
	boost := 1.0 + count/days
	if boost > velocityCap {
		boost = velocityCap
	}
	return boost
}

// edgeRecencyDecay penalizes edges not recently updated, linearly over
// the window down to the floor.
func edgeRecencyDecay(edge *WalkedEdge, now time.Time) float64 {
	updated, ok := timeProp(edge.Properties, "updated_at")
	if !ok {
		return 1.0
	}
	age := now.Sub(updated)
	if age <= 0 {
		return 1.0
	}
	if age >= edgeRecencyWindow {
		return edgeRecencyFloor
	}
	frac := float64(age) / float64(edgeRecencyWindow)
	return 1.0 - frac*(1.0-edgeRecencyFloor)
}

// edgeCountTrend compares the rolling 30-day interaction count against
// the 30 days before it, derived by subtraction from the 60-day count.
func edgeCountTrend(edge *WalkedEdge) float64 {
	recent, ok := floatProp(edge.Properties, "count_30d")
	if !ok {
		return 1.0
	}
	total, ok := floatProp(edge.Properties, "count_60d")
	if !ok || total <= 0 {
		return 1.0
	}
	prior := total - recent
	if prior <= 0 {
		if recent > 0 {
			return trendCap
		}
		return 1.0
	}
	return clampTrend(recent / prior)
}

// trajectoryTrend detects rising or falling trust. Series with five or
// fewer points are ignored as insufficient signal.
func trajectoryTrend(trajectory []float64) float64 {
	if len(trajectory) <= trajectoryMinPoints {
		return 1.0
	}
	recentN := len(trajectory) / 3
	if recentN < 1 {
		recentN = 1
	}
	split := len(trajectory) - recentN
	earlier := mean(trajectory[:split])
	recent := mean(trajectory[split:])
	if earlier <= 0 {
		return 1.0
	}
	delta := (recent - earlier) / earlier
	return clampTrend(1.0 + delta)
}

func clampTrend(v float64) float64 {
	if v < trendFloor {
		return trendFloor
	}
	if v > trendCap {
		return trendCap
	}
	return v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
