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
	"context"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var walkTracer = otel.Tracer("walker.walk")

// DefaultTrustGate is the minimum trust score a User node must carry
// before it is shared into a secondary character's seed set. Scores at
// or below the gate are withheld.
const DefaultTrustGate = 20.0

// Walker runs scored breadth-first traversals against a graph store.
//
// Description:
//
//	One Walker is safe for concurrent walks: every walk owns its own
//	frontier, visited set, and collections, and the Walker's own fields
//	are read-only after New. The store is the only hard dependency;
//	trust and trajectory sources are optional and their absence simply
//	disables gating and trajectory scoring.
type Walker struct {
	store     GraphStore
	trust     TrustSource
	traj      TrajectorySource
	anchors   map[string][]string
	anchorFn  func(character string) []string
	logger    *slog.Logger
	randFn    func() float64
	nowFn     func() time.Time
	trustGate float64
}

// WalkerOption configures a Walker at construction time.
type WalkerOption func(*Walker)

// WithTrustSource wires the relationship lookup used for trust gating
// in multi-character walks.
func WithTrustSource(src TrustSource) WalkerOption {
	return func(w *Walker) { w.trust = src }
}

// WithTrajectorySource wires the time-series lookup feeding trajectory
// scoring. Without it temporal scoring uses edge properties alone.
func WithTrajectorySource(src TrajectorySource) WalkerOption {
	return func(w *Walker) { w.traj = src }
}

// WithAnchors sets the per-character thematic anchor keywords consulted
// by node scoring. Keys are character names.
func WithAnchors(anchors map[string][]string) WalkerOption {
	return func(w *Walker) {
		if anchors != nil {
			w.anchors = anchors
		}
	}
}

// WithAnchorSource wires a live anchor lookup consulted once per walk.
// It takes precedence over the static table and lets anchors change
// without rebuilding the Walker.
func WithAnchorSource(fn func(character string) []string) WalkerOption {
	return func(w *Walker) {
		if fn != nil {
			w.anchorFn = fn
		}
	}
}

// WithLogger overrides the default process logger.
func WithLogger(logger *slog.Logger) WalkerOption {
	return func(w *Walker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithRand overrides the serendipity roll source. Tests pin this to a
// constant to make retention deterministic.
func WithRand(fn func() float64) WalkerOption {
	return func(w *Walker) {
		if fn != nil {
			w.randFn = fn
		}
	}
}

// WithClock overrides the wall clock consulted by recency scoring.
func WithClock(fn func() time.Time) WalkerOption {
	return func(w *Walker) {
		if fn != nil {
			w.nowFn = fn
		}
	}
}

// WithTrustGate overrides the multi-walk trust gate threshold.
func WithTrustGate(gate float64) WalkerOption {
	return func(w *Walker) { w.trustGate = gate }
}

// New builds a Walker over the given store.
func New(store GraphStore, opts ...WalkerOption) *Walker {
	w := &Walker{
		store:     store,
		anchors:   make(map[string][]string),
		logger:    slog.Default(),
		randFn:    rand.Float64,
		nowFn:     time.Now,
		trustGate: DefaultTrustGate,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Explore runs a single-character scored BFS from the given seeds.
//
// Description:
//
//	Seeds may be node ids or display names. Each depth level issues one
//	store query for the whole frontier, bounded by the remaining node
//	budget. Returned neighbors are scored structurally and temporally;
//	a neighbor survives when its score clears the minimum, or by a
//	serendipity roll that flags it as a below-threshold keep. Survivors
//	form the next frontier. The walk stops when the frontier empties,
//	the depth bound is reached, or the node budget is spent.
//
//	Explore never returns an error. A store failure ends expansion at
//	that depth; whatever was collected up to then is post-processed and
//	returned with Stats.Error describing the failure. Discovering
//	nothing is an ordinary outcome, not a failure.
//
// Inputs:
//
//	ctx   - Context honored at each store query.
//	seeds - Node ids or names anchoring the walk. Empty slice yields an
//	        empty result.
//	opts  - Per-walk options; out-of-range values are clamped.
//
// Outputs:
//
//	*GraphWalkResult - Never nil. Nodes sorted by score descending,
//	edges pruned to surviving endpoints, clusters and stats populated.
func (w *Walker) Explore(ctx context.Context, seeds []string, opts ...Option) *GraphWalkResult {
	options := applyOptions(opts)
	start := w.nowFn()

	ctx, span := walkTracer.Start(ctx, "Walker.Explore",
		trace.WithAttributes(
			attribute.Int("seed_count", len(seeds)),
			attribute.Int("max_depth", options.MaxDepth),
			attribute.Int("max_nodes", options.MaxNodes),
			attribute.String("character", options.Character),
		),
	)
	defer span.End()

	result := &GraphWalkResult{
		Nodes:    make([]*WalkedNode, 0, options.MaxNodes),
		Edges:    make([]*WalkedEdge, 0),
		Clusters: make([]*ThematicCluster, 0),
	}

	anchors := w.anchors[options.Character]
	if w.anchorFn != nil {
		anchors = w.anchorFn(options.Character)
	}
	trajectory := w.trajectoryFor(ctx, &options)
	now := start

	seen := make(map[string]bool, len(seeds)+options.MaxNodes)
	visited := make([]string, 0, len(seeds)+options.MaxNodes)
	for _, s := range seeds {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		visited = append(visited, s)
	}
	frontier := append([]string(nil), visited...)

	depthReached := 0
	serendipitous := 0
	var walkErr error

	for depth := 1; depth <= options.MaxDepth; depth++ {
		if len(frontier) == 0 {
			break
		}
		budget := options.MaxNodes - len(result.Nodes)
		if budget <= 0 {
			break
		}

		nodes, edges, err := w.store.Expand(ctx, frontier, visited, budget)
		if err != nil {
			walkErr = err
			span.RecordError(err)
			w.logger.Error("graph expansion failed",
				slog.Int("depth", depth),
				slog.String("character", options.Character),
				slog.String("error", err.Error()),
			)
			break
		}
		depthReached = depth

		edgeByNode := indexEdges(edges, seen)
		next := make([]string, 0, len(nodes))
		for _, node := range nodes {
			if node == nil || node.ID == "" || seen[node.ID] {
				continue
			}
			// Every returned neighbor counts as visited, kept or not,
			// so a rejected node is never re-fetched at a later depth.
			seen[node.ID] = true
			visited = append(visited, node.ID)

			score := round3(scoreNode(node, depth, anchors, now) *
				scoreTemporal(node, edgeByNode[node.ID], trajectory, now))

			kept := score >= options.MinScore
			lucky := false
			if !kept && w.randFn() < options.Serendipity {
				kept = true
				lucky = true
			}
			if !kept {
				continue
			}

			node.Score = score
			node.Depth = depth
			node.IsSerendipitous = lucky
			if lucky {
				serendipitous++
			}
			result.Nodes = append(result.Nodes, node)
			next = append(next, node.ID)
			if len(result.Nodes) >= options.MaxNodes {
				break
			}
		}

		result.Edges = append(result.Edges, edges...)
		frontier = next

		if options.Progress != nil {
			options.Progress(Progress{
				Depth:     depth,
				Frontier:  len(frontier),
				Collected: len(result.Nodes),
			})
		}
	}

	sort.SliceStable(result.Nodes, func(i, j int) bool {
		return result.Nodes[i].Score > result.Nodes[j].Score
	})
	result.Edges = pruneEdges(result.Edges, result.Nodes)
	result.Clusters = findClusters(result.Nodes, result.Edges)

	result.Stats = WalkStats{
		TotalNodes:         len(result.Nodes),
		TotalEdges:         len(result.Edges),
		DepthReached:       depthReached,
		ClustersFound:      len(result.Clusters),
		SerendipitousCount: serendipitous,
		TopNodes:           topNodeNames(result.Nodes, statTopNodes),
		DurationMs:         w.nowFn().Sub(start).Milliseconds(),
	}
	if walkErr != nil {
		result.Stats.Error = walkErr.Error()
		span.SetStatus(codes.Error, walkErr.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(
		attribute.Int("nodes_collected", len(result.Nodes)),
		attribute.Int("depth_reached", depthReached),
		attribute.Int("serendipitous", serendipitous),
	)
	return result
}

// trajectoryFor fetches the trust trajectory for the walk's user and
// character, when both are known and a source is wired. Lookup errors
// degrade to no trajectory.
func (w *Walker) trajectoryFor(ctx context.Context, options *Options) []float64 {
	if w.traj == nil || options.UserID == "" || options.Character == "" {
		return nil
	}
	series, err := w.traj.GetTrustTrajectory(ctx, options.UserID, options.Character)
	if err != nil {
		w.logger.Warn("trust trajectory lookup failed",
			slog.String("user_id", options.UserID),
			slog.String("character", options.Character),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return series
}

// indexEdges maps each newly discovered endpoint to the first edge that
// reached it. The frontier side of an edge is already in seen, so the
// unseen endpoint is the discovered neighbor the edge belongs to.
func indexEdges(edges []*WalkedEdge, seen map[string]bool) map[string]*WalkedEdge {
	index := make(map[string]*WalkedEdge, len(edges))
	for _, e := range edges {
		if e == nil {
			continue
		}
		for _, id := range []string{e.TargetID, e.SourceID} {
			if id == "" || seen[id] {
				continue
			}
			if _, ok := index[id]; !ok {
				index[id] = e
			}
		}
	}
	return index
}

// pruneEdges drops edges whose endpoints are not both present in the
// final node set, so consumers never see a reference they cannot
// resolve.
func pruneEdges(edges []*WalkedEdge, nodes []*WalkedNode) []*WalkedEdge {
	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}
	kept := make([]*WalkedEdge, 0, len(edges))
	for _, e := range edges {
		if e == nil || !ids[e.SourceID] || !ids[e.TargetID] {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
