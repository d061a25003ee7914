// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/reverie/services/walker/walk"
)

// Prompt size limits. The walk result can be large; the generation call
// sees only the strongest material.
const (
	promptNodeLimit    = 15
	promptClusterLimit = 3
)

// dreamSystem sets the register for dream interpretation. The subgraph
// itself travels in the user prompt.
const dreamSystem = "You are the dreaming mind of a companion character. " +
	"Weave the listed connections into a short, surreal dream fragment of two to four sentences. " +
	"Favor the unexpected items and let unrelated things blur together the way dreams do. " +
	"Never mention graphs, scores, or lists."

// diarySystem sets the register for diary interpretation.
const diarySystem = "You are a companion character writing a private diary entry. " +
	"Reflect in first person on the listed connections in two to four sentences, " +
	"grounded and sincere rather than fanciful. Never mention graphs, scores, or lists."

// buildPrompt renders a walk for the generation call: top scored nodes,
// strongest clusters, concepts shared with companion walks, and a
// closing coverage line.
func buildPrompt(result *walk.GraphWalkResult, shared []string) string {
	var sb strings.Builder
	sb.WriteString("Connections discovered in the memory graph:\n")
	for i, node := range result.Nodes {
		if i == promptNodeLimit {
			break
		}
		sb.WriteString(fmt.Sprintf("- %s (%s, score %.2f, depth %d)", node.Name, node.Label, node.Score, node.Depth))
		if node.IsSerendipitous {
			sb.WriteString(" [unexpected]")
		}
		sb.WriteString("\n")
	}

	if len(result.Clusters) > 0 {
		sb.WriteString("\nThematic groupings:\n")
		for i, cluster := range result.Clusters {
			if i == promptClusterLimit {
				break
			}
			sb.WriteString(fmt.Sprintf("- %s: %s (cohesion %.2f)\n",
				cluster.Theme, memberNames(cluster), cluster.CohesionScore))
		}
	}

	if len(shared) > 0 {
		sb.WriteString("\nShared with companion walks: ")
		sb.WriteString(strings.Join(shared, ", "))
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\nThe walk covered %d nodes and %d edges, reaching depth %d.\n",
		result.Stats.TotalNodes, result.Stats.TotalEdges, result.Stats.DepthReached))
	return sb.String()
}

func memberNames(cluster *walk.ThematicCluster) string {
	names := make([]string, 0, len(cluster.Nodes))
	for _, node := range cluster.Nodes {
		names = append(names, node.Name)
	}
	return strings.Join(names, ", ")
}
