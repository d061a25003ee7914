// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package walk implements scored, depth-bounded breadth-first exploration
// over a property graph of users, characters, topics, entities, and
// artifacts.
//
// # Description
//
// A walk starts from a set of seed identifiers and expands outward one
// depth level at a time, issuing exactly one store query per level. Each
// discovered neighbor is scored by a multi-factor structural heuristic
// (recency, frequency, trust, thematic anchors, depth penalty, emotional
// intensity, novelty) composed with a temporal heuristic (interaction
// velocity, edge staleness, trust trajectory). Nodes below the score
// threshold are occasionally retained anyway ("serendipity") so that
// surprising connections can surface. Discovered nodes are grouped into
// thematic clusters by connected-component extraction over the walk's own
// edge set.
//
// Walks never fail loudly: store errors, malformed properties, and missing
// temporal data all degrade to partial (possibly empty) results. Finding
// nothing is a normal outcome for the narrative generators downstream.
//
// # Thread Safety
//
// A Walker is safe for concurrent use. Each walk owns its frontier,
// visited set, and collected nodes; nothing is shared between concurrent
// walks except the injected adapters, which must themselves be
// concurrency-safe.
package walk

// Node labels recognized by the scoring heuristics.
const (
	LabelUser      = "User"
	LabelEntity    = "Entity"
	LabelCharacter = "Character"
	LabelTopic     = "Topic"
	LabelArtifact  = "Artifact"
)

// WalkedNode is a graph node discovered during traversal.
//
// Score is only meaningful after scoring. Depth is the minimum hop
// distance from the nearest seed, which plain BFS guarantees. Properties
// mirror the store-side attributes verbatim; readers must treat every
// entry as optional and possibly mistyped.
type WalkedNode struct {
	ID              string         `json:"id"`
	Label           string         `json:"label"`
	Name            string         `json:"name"`
	Properties      map[string]any `json:"properties,omitempty"`
	Score           float64        `json:"score"`
	Depth           int            `json:"depth"`
	IsSerendipitous bool           `json:"is_serendipitous,omitempty"`
}

// WalkedEdge is a relationship discovered during traversal.
//
// Properties may carry temporal signals used by scoring: count,
// created_at, updated_at, count_30d, count_60d. Edges whose endpoints are
// not both present in the final node set are pruned before the result is
// returned.
type WalkedEdge struct {
	SourceID   string         `json:"source_id"`
	TargetID   string         `json:"target_id"`
	EdgeType   string         `json:"edge_type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// ThematicCluster is a connected subgroup of discovered nodes.
//
// Every member is reachable from every other member through edges present
// in the same walk. Clusters are built only over the top-scored nodes to
// bound cost.
type ThematicCluster struct {
	Theme         string        `json:"theme"`
	Nodes         []*WalkedNode `json:"nodes"`
	CentralNode   *WalkedNode   `json:"central_node"`
	CohesionScore float64       `json:"cohesion_score"`
}

// WalkStats summarizes one walk for logging and journaling.
type WalkStats struct {
	TotalNodes         int      `json:"total_nodes"`
	TotalEdges         int      `json:"total_edges"`
	DepthReached       int      `json:"depth_reached"`
	ClustersFound      int      `json:"clusters_found"`
	SerendipitousCount int      `json:"serendipitous_count"`
	TopNodes           []string `json:"top_nodes,omitempty"`
	DurationMs         int64    `json:"duration_ms"`
	Error              string   `json:"error,omitempty"`
}

// GraphWalkResult is the output of a single-character walk.
//
// Nodes are sorted by score descending, clusters by cohesion descending.
// Interpretation is populated only by the agent layer. The result is a
// transient, walk-scoped value: callers consume it and let it go.
type GraphWalkResult struct {
	Nodes          []*WalkedNode      `json:"nodes"`
	Edges          []*WalkedEdge      `json:"edges"`
	Clusters       []*ThematicCluster `json:"clusters"`
	Interpretation string             `json:"interpretation,omitempty"`
	Stats          WalkStats          `json:"walk_stats"`
}

// MultiWalkResult is the output of a trust-gated multi-character walk.
//
// MergedNodes is a union deduplicated by node id with first occurrence
// winning (primary first, then secondaries in declared order).
// SharedConcepts are names of nodes present in the primary walk and in at
// least one secondary walk.
type MultiWalkResult struct {
	PrimaryWalk    *GraphWalkResult            `json:"primary_walk"`
	SecondaryWalks map[string]*GraphWalkResult `json:"secondary_walks"`
	MergedNodes    []*WalkedNode               `json:"merged_nodes"`
	MergedEdges    []*WalkedEdge               `json:"merged_edges"`
	SharedConcepts []string                    `json:"shared_concepts"`
}

// Progress reports per-depth walk advancement to an observer.
type Progress struct {
	Depth     int `json:"depth"`
	Frontier  int `json:"frontier"`
	Collected int `json:"collected"`
}

// statTopNodes is how many leading node names WalkStats reports.
const statTopNodes = 5

// topNodeNames returns the names of the first n nodes.
func topNodeNames(nodes []*WalkedNode, n int) []string {
	if len(nodes) < n {
		n = len(nodes)
	}
	names := make([]string, 0, n)
	for _, node := range nodes[:n] {
		names = append(names, node.Name)
	}
	return names
}
