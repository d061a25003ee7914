// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"sync"

	"github.com/AleutianAI/reverie/services/walker/walk"
)

// MemoryStore is an in-process graph for development and tests. It keeps
// the same matching semantics as the Neo4j adapter: frontier entries and
// visited exclusions match by node id or by name.
type MemoryStore struct {
	mu     sync.RWMutex
	nodes  map[string]*walk.WalkedNode
	byName map[string]string
	adj    map[string][]*walk.WalkedEdge
	trust  map[string]walk.Relationship
}

// NewMemoryStore returns an empty in-memory graph.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:  make(map[string]*walk.WalkedNode),
		byName: make(map[string]string),
		adj:    make(map[string][]*walk.WalkedEdge),
		trust:  make(map[string]walk.Relationship),
	}
}

// AddNode inserts or replaces a node.
func (s *MemoryStore) AddNode(id, label, name string, props map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[id] = &walk.WalkedNode{ID: id, Label: label, Name: name, Properties: props}
	if name != "" {
		s.byName[name] = id
	}
}

// Connect adds an undirected relationship between two nodes. The edge is
// recorded once and indexed under both endpoints.
func (s *MemoryStore) Connect(source, target, edgeType string, props map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	edge := &walk.WalkedEdge{SourceID: source, TargetID: target, EdgeType: edgeType, Properties: props}
	s.adj[source] = append(s.adj[source], edge)
	s.adj[target] = append(s.adj[target], edge)
}

// SetRelationship records the trust relationship between a user and a
// character.
func (s *MemoryStore) SetRelationship(userID, character string, rel walk.Relationship) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trust[userID+"|"+character] = rel
}

// Expand implements walk.GraphStore. Neighbors are returned in insertion
// order, deduplicated across the frontier, with every connecting edge
// preserved so sibling structure survives into clustering.
func (s *MemoryStore) Expand(ctx context.Context, frontier, visited []string, limit int) ([]*walk.WalkedNode, []*walk.WalkedEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := make(map[string]bool, len(visited))
	for _, v := range visited {
		excluded[v] = true
	}

	var nodes []*walk.WalkedNode
	var edges []*walk.WalkedEdge
	emitted := make(map[string]bool)

	for _, f := range frontier {
		id := s.resolveLocked(f)
		if id == "" {
			continue
		}
		for _, edge := range s.adj[id] {
			neighborID := edge.TargetID
			if neighborID == id {
				neighborID = edge.SourceID
			}
			neighbor, ok := s.nodes[neighborID]
			if !ok {
				continue
			}
			if excluded[neighbor.ID] || excluded[neighbor.Name] {
				continue
			}
			if !emitted[neighbor.ID] {
				if len(nodes) >= limit {
					continue
				}
				dup := *neighbor
				nodes = append(nodes, &dup)
				emitted[neighbor.ID] = true
			}
			edges = append(edges, edge)
		}
	}
	return nodes, edges, nil
}

// GetRelationship implements walk.TrustSource. Unknown pairs report zero
// trust without an error, matching the Neo4j adapter.
func (s *MemoryStore) GetRelationship(ctx context.Context, userID, character string) (walk.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trust[userID+"|"+character], nil
}

func (s *MemoryStore) resolveLocked(ref string) string {
	if _, ok := s.nodes[ref]; ok {
		return ref
	}
	return s.byName[ref]
}
