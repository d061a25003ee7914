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
	"math"
	"strings"
	"time"
)

// Structural scoring parameters. Retention thresholds are calibrated
// against these magnitudes; change them together or not at all.
const (
	// recencyWindow is the span over which a node's timestamp decays
	// linearly from 1.0 down to recencyFloor.
	recencyWindow = 30 * 24 * time.Hour
	recencyFloor  = 0.2

	// frequencyCap bounds the mention-count boost (1 + count/10).
	frequencyCap = 2.0

	// anchorBoost applies when a node name contains a character anchor
	// keyword. First match only.
	anchorBoost = 1.5

	// trustDeltaThreshold and trustDeltaBoost reward nodes attached to a
	// recent relationship shift.
	trustDeltaThreshold = 5.0
	trustDeltaBoost     = 1.5

	// noveltyThreshold and noveltyBoost favor rarely retrieved nodes.
	noveltyThreshold = 3.0
	noveltyBoost     = 1.3

	// Label bonuses.
	socialLabelBoost   = 1.2
	artifactLabelBoost = 1.1
)

// scoreNode computes the structural relevance of a candidate node at the
// given depth.
//
// Description:
//
//	Starts at 1.0 and multiplies independent bounded factors: recency
//	decay, mention frequency, trust, thematic anchor match, depth
//	penalty, emotional intensity, trust-delta bonus, novelty bonus, and
//	a label bonus. All property reads are defensive; a missing or
//	unparsable property contributes no factor. The result is rounded to
//	three decimals.
//
// Inputs:
//
//	node - Candidate node. Never mutated.
//	depth - Hop distance from the nearest seed (0 for seeds).
//	anchors - Lowercase anchor keywords for the acting character.
//	now - Reference time for recency decay.
//
// Outputs:
//
//	float64 - Relevance score, deterministic for fixed inputs.
func scoreNode(node *WalkedNode, depth int, anchors []string, now time.Time) float64 {
	score := 1.0

	if ts, ok := timeProp(node.Properties, timestampProps...); ok {
		score *= recencyFactor(now.Sub(ts))
	}

	if count, ok := floatProp(node.Properties, countProps...); ok {
		factor := 1.0 + count/10.0
		if factor > frequencyCap {
			factor = frequencyCap
		}
		if factor > 0 {
			score *= factor
		}
	}

	if trust, ok := floatProp(node.Properties, trustProps...); ok {
		score *= 1.0 + trust/100.0
	}

	name := strings.ToLower(node.Name)
	for _, keyword := range anchors {
		if keyword != "" && strings.Contains(name, keyword) {
			score *= anchorBoost
			break
		}
	}

	score *= 1.0 / float64(depth+1)

	if sentiment, ok := floatProp(node.Properties, sentimentProps...); ok {
		score *= 1.0 + math.Abs(sentiment)
	}

	if delta, ok := floatProp(node.Properties, trustDeltaProps...); ok {
		if math.Abs(delta) > trustDeltaThreshold {
			score *= trustDeltaBoost
		}
	}

	if access, ok := floatProp(node.Properties, accessProps...); ok {
		if access < noveltyThreshold {
			score *= noveltyBoost
		}
	}

	switch node.Label {
	case LabelUser, LabelCharacter:
		score *= socialLabelBoost
	case LabelArtifact:
		score *= artifactLabelBoost
	}

	return round3(score)
}

// recencyFactor decays linearly from 1.0 at age zero to recencyFloor at
// the end of the window, clamped to the floor beyond it.
func recencyFactor(age time.Duration) float64 {
	if age <= 0 {
		return 1.0
	}
	if age >= recencyWindow {
		return recencyFloor
	}
	frac := float64(age) / float64(recencyWindow)
	return 1.0 - frac*(1.0-recencyFloor)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
