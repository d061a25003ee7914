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
	"sort"
	"strings"
)

// Clustering parameters.
const (
	// clusterCandidates is how many of the top-scored nodes participate
	// in clustering. Bounds cost to a constant regardless of budget.
	clusterCandidates = 20

	// clusterMaxMembers caps one cluster's size. An oversized component
	// spills its remainder into further clusters.
	clusterMaxMembers = 10

	// clusterMinMembers is the minimum component size worth reporting.
	// Isolated nodes form no cluster.
	clusterMinMembers = 2

	// maxClusters caps how many clusters a walk reports.
	maxClusters = 5

	// themeTokenLimit and themeNameSample bound theme derivation: up to
	// three distinct tokens drawn from the first five member names.
	themeTokenLimit = 3
	themeNameSample = 5
)

// findClusters extracts thematic clusters from one walk's collections.
//
// Description:
//
//	Connected-component extraction over the in-memory node and edge
//	sets, never the store. Only the top clusterCandidates scored nodes
//	participate; nodes must arrive sorted by score descending. For each
//	unassigned candidate a BFS walks the edge set, admitting only other
//	candidates, up to clusterMaxMembers. Components of at least
//	clusterMinMembers become clusters with the highest-scoring member as
//	the central node and a theme derived from member name tokens.
//	Clusters are sorted by cohesion (mean member score) descending and
//	capped at maxClusters.
//
// Inputs:
//
//	nodes - Walk nodes, sorted by score descending.
//	edges - Walk edges, already pruned to node-set endpoints.
//
// Outputs:
//
//	[]*ThematicCluster - Possibly empty, never nil.
func findClusters(nodes []*WalkedNode, edges []*WalkedEdge) []*ThematicCluster {
	clusters := make([]*ThematicCluster, 0)
	if len(nodes) < clusterMinMembers {
		return clusters
	}

	candidates := nodes
	if len(candidates) > clusterCandidates {
		candidates = candidates[:clusterCandidates]
	}

	inScope := make(map[string]*WalkedNode, len(candidates))
	for _, n := range candidates {
		inScope[n.ID] = n
	}

	// Undirected adjacency restricted to candidate endpoints.
	neighbors := make(map[string][]string, len(candidates))
	for _, e := range edges {
		if _, ok := inScope[e.SourceID]; !ok {
			continue
		}
		if _, ok := inScope[e.TargetID]; !ok {
			continue
		}
		neighbors[e.SourceID] = append(neighbors[e.SourceID], e.TargetID)
		neighbors[e.TargetID] = append(neighbors[e.TargetID], e.SourceID)
	}

	assigned := make(map[string]bool, len(candidates))
	for _, seed := range candidates {
		if assigned[seed.ID] {
			continue
		}

		members := collectComponent(seed, inScope, neighbors, assigned)
		if len(members) < clusterMinMembers {
			continue
		}

		clusters = append(clusters, buildCluster(members))
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].CohesionScore > clusters[j].CohesionScore
	})
	if len(clusters) > maxClusters {
		clusters = clusters[:maxClusters]
	}
	return clusters
}

// collectComponent runs a bounded BFS from seed through the candidate
// adjacency, marking every visited node as assigned.
func collectComponent(seed *WalkedNode, inScope map[string]*WalkedNode,
	neighbors map[string][]string, assigned map[string]bool) []*WalkedNode {

	members := []*WalkedNode{seed}
	assigned[seed.ID] = true

	queue := append([]string(nil), neighbors[seed.ID]...)
	for len(queue) > 0 && len(members) < clusterMaxMembers {
		id := queue[0]
		queue = queue[1:]

		if assigned[id] {
			continue
		}
		node, ok := inScope[id]
		if !ok {
			continue
		}

		assigned[id] = true
		members = append(members, node)
		queue = append(queue, neighbors[id]...)
	}
	return members
}

// buildCluster assembles the cluster value for a component.
func buildCluster(members []*WalkedNode) *ThematicCluster {
	central := members[0]
	sum := 0.0
	for _, m := range members {
		sum += m.Score
		if m.Score > central.Score {
			central = m
		}
	}

	return &ThematicCluster{
		Theme:         deriveTheme(members),
		Nodes:         members,
		CentralNode:   central,
		CohesionScore: round3(sum / float64(len(members))),
	}
}

// deriveTheme draws up to themeTokenLimit distinct lowercase tokens from
// the first themeNameSample member names.
func deriveTheme(members []*WalkedNode) string {
	sample := members
	if len(sample) > themeNameSample {
		sample = sample[:themeNameSample]
	}

	seen := make(map[string]bool, themeTokenLimit)
	tokens := make([]string, 0, themeTokenLimit)
	for _, m := range sample {
		for _, token := range strings.Fields(strings.ToLower(m.Name)) {
			if token == "" || seen[token] {
				continue
			}
			seen[token] = true
			tokens = append(tokens, token)
			if len(tokens) == themeTokenLimit {
				return strings.Join(tokens, ", ")
			}
		}
	}
	return strings.Join(tokens, ", ")
}
