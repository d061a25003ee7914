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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentSecondaries bounds the fan-out of secondary walks.
const maxConcurrentSecondaries = 4

type edgeKey struct {
	source   string
	edgeType string
	target   string
}

// MultiCharacterWalk explores for a primary character, then hands the
// primary walk's discoveries to secondary characters as seeds.
//
// Description:
//
//	The primary walk runs first from the caller's seeds. Each secondary
//	character then walks from the primary's discovered nodes, not the
//	original seeds, so one character's exploration feeds the next. User
//	nodes are shared only when the trust lookup for (user, secondary)
//	reports a score strictly above the gate; an unavailable or failing
//	lookup withholds the node. A secondary whose gated seed set is empty
//	is skipped without issuing a query. Secondary walks run concurrently
//	and independently; one failing walk never aborts the others.
//
// Inputs:
//
//	ctx         - Context honored at each store query.
//	primary     - Character the primary walk scores anchors for.
//	secondaries - Characters receiving gated hand-off seeds, in the
//	              order their contributions merge.
//	seeds       - Node ids or names anchoring the primary walk.
//	opts        - Per-walk options applied to every walk. The character
//	              option is overridden per walk.
//
// Outputs:
//
//	*MultiWalkResult - Never nil. MergedNodes dedup by id, primary
//	first; SharedConcepts are primary node names rediscovered by any
//	secondary.
func (w *Walker) MultiCharacterWalk(ctx context.Context, primary string, secondaries []string, seeds []string, opts ...Option) *MultiWalkResult {
	ctx, span := walkTracer.Start(ctx, "Walker.MultiCharacterWalk",
		trace.WithAttributes(
			attribute.String("primary", primary),
			attribute.Int("secondary_count", len(secondaries)),
			attribute.Int("seed_count", len(seeds)),
		),
	)
	defer span.End()

	primaryWalk := w.Explore(ctx, seeds, withCharacterOverride(opts, primary)...)

	result := &MultiWalkResult{
		PrimaryWalk:    primaryWalk,
		SecondaryWalks: make(map[string]*GraphWalkResult, len(secondaries)),
	}

	walks := make([]*GraphWalkResult, len(secondaries))
	var group errgroup.Group
	group.SetLimit(maxConcurrentSecondaries)
	for i, character := range secondaries {
		handoff := w.gatedSeeds(ctx, primaryWalk.Nodes, character)
		if len(handoff) == 0 {
			w.logger.Info("secondary walk skipped, no seeds survived gating",
				slog.String("character", character),
			)
			continue
		}
		group.Go(func() error {
			walks[i] = w.Explore(ctx, handoff, withCharacterOverride(opts, character)...)
			return nil
		})
	}
	_ = group.Wait()

	for i, character := range secondaries {
		if walks[i] != nil {
			result.SecondaryWalks[character] = walks[i]
		}
	}

	w.merge(result, walks)
	span.SetAttributes(
		attribute.Int("merged_nodes", len(result.MergedNodes)),
		attribute.Int("shared_concepts", len(result.SharedConcepts)),
	)
	return result
}

// gatedSeeds converts the primary walk's discoveries into a secondary
// character's seed set. Nodes labeled User pass only on a trust score
// strictly above the gate; every other label passes through.
func (w *Walker) gatedSeeds(ctx context.Context, discovered []*WalkedNode, character string) []string {
	seeds := make([]string, 0, len(discovered))
	for _, node := range discovered {
		if node.Label == LabelUser && !w.userSharable(ctx, node, character) {
			continue
		}
		seeds = append(seeds, node.ID)
	}
	return seeds
}

// userSharable decides whether a User node may seed the given
// character's walk. Unknown trust fails closed.
func (w *Walker) userSharable(ctx context.Context, node *WalkedNode, character string) bool {
	if w.trust == nil {
		w.logger.Warn("no trust source wired, withholding user node",
			slog.String("node_id", node.ID),
			slog.String("character", character),
		)
		return false
	}

	userID := node.ID
	if v, ok := node.Properties["user_id"].(string); ok && v != "" {
		userID = v
	}

	rel, err := w.trust.GetRelationship(ctx, userID, character)
	if err != nil {
		w.logger.Warn("trust lookup failed, withholding user node",
			slog.String("user_id", userID),
			slog.String("character", character),
			slog.String("error", err.Error()),
		)
		return false
	}
	return rel.TrustScore > w.trustGate
}

// merge fills the merged collections: nodes dedup by id with the
// primary's occurrence winning, edges dedup by endpoint and type, and
// shared concepts are primary names seen again in any secondary walk.
func (w *Walker) merge(result *MultiWalkResult, walks []*GraphWalkResult) {
	ordered := make([]*GraphWalkResult, 0, 1+len(walks))
	ordered = append(ordered, result.PrimaryWalk)
	for _, walk := range walks {
		if walk != nil {
			ordered = append(ordered, walk)
		}
	}

	result.MergedNodes = make([]*WalkedNode, 0)
	result.MergedEdges = make([]*WalkedEdge, 0)
	seenNode := make(map[string]bool)
	seenEdge := make(map[edgeKey]bool)
	for _, walk := range ordered {
		for _, node := range walk.Nodes {
			if seenNode[node.ID] {
				continue
			}
			seenNode[node.ID] = true
			result.MergedNodes = append(result.MergedNodes, node)
		}
		for _, edge := range walk.Edges {
			key := edgeKey{edge.SourceID, edge.EdgeType, edge.TargetID}
			if seenEdge[key] {
				continue
			}
			seenEdge[key] = true
			result.MergedEdges = append(result.MergedEdges, edge)
		}
	}

	secondaryNames := make(map[string]bool)
	for _, walk := range ordered[1:] {
		for _, node := range walk.Nodes {
			secondaryNames[node.Name] = true
		}
	}
	shared := make([]string, 0)
	sharedSeen := make(map[string]bool)
	for _, node := range result.PrimaryWalk.Nodes {
		if !secondaryNames[node.Name] || sharedSeen[node.Name] {
			continue
		}
		sharedSeen[node.Name] = true
		shared = append(shared, node.Name)
	}
	result.SharedConcepts = shared
}

// withCharacterOverride copies the caller's options and pins the walk
// character. Copying keeps concurrent walks from sharing one backing
// array.
func withCharacterOverride(opts []Option, character string) []Option {
	pinned := make([]Option, 0, len(opts)+1)
	pinned = append(pinned, opts...)
	return append(pinned, WithCharacter(character))
}
