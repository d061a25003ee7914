// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store provides the graph persistence adapters consumed by the
// walker: a Neo4j-backed store for production and an in-memory store for
// development and tests. Both satisfy walk.GraphStore and
// walk.TrustSource.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/AleutianAI/reverie/services/walker/walk"
)

// Neo4jConfig carries the connection settings for the graph database.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Neo4jStore implements walk.GraphStore and walk.TrustSource against a
// Neo4j property graph.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewNeo4jStore connects to Neo4j and verifies connectivity before
// returning.
func NewNeo4jStore(ctx context.Context, cfg Neo4jConfig, logger *slog.Logger) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach neo4j at %s: %w", cfg.URI, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connected to neo4j", slog.String("uri", cfg.URI))
	return &Neo4jStore{driver: driver, database: cfg.Database, logger: logger}, nil
}

// Close releases the underlying driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// expandQuery returns one row per distinct unvisited neighbor of the
// frontier, each row carrying every relationship that connects it back.
// Frontier entries match by id or name; the visited exclusion is
// symmetric so seeds given as names are never re-surfaced.
const expandQuery = `
	MATCH (f)-[r]-(n)
	WHERE (f.id IN $frontier OR f.name IN $frontier)
	  AND NOT coalesce(n.id, '') IN $visited
	  AND NOT coalesce(n.name, '') IN $visited
	WITH n, collect({source: f.id, type: type(r), props: properties(r)}) AS rels
	LIMIT $limit
	RETURN n AS node, labels(n) AS labels, rels
`

// Expand implements walk.GraphStore.
func (s *Neo4jStore) Expand(ctx context.Context, frontier, visited []string, limit int) ([]*walk.WalkedNode, []*walk.WalkedEdge, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, expandQuery, map[string]any{
		"frontier": toAnySlice(frontier),
		"visited":  toAnySlice(visited),
		"limit":    limit,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to expand frontier: %w", err)
	}

	var nodes []*walk.WalkedNode
	var edges []*walk.WalkedEdge
	for result.Next(ctx) {
		record := result.Record()

		raw, ok := record.Get("node")
		if !ok {
			continue
		}
		dbNode, ok := raw.(neo4j.Node)
		if !ok {
			continue
		}
		node := nodeFromDB(dbNode, labelsFromRecord(record))
		if node.ID == "" {
			continue
		}
		nodes = append(nodes, node)

		if rels, ok := record.Get("rels"); ok {
			edges = append(edges, edgesFromRels(rels, node.ID)...)
		}
	}
	if err := result.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read expansion rows: %w", err)
	}

	s.logger.Debug("frontier expanded",
		slog.Int("frontier", len(frontier)),
		slog.Int("neighbors", len(nodes)),
		slog.Int("edges", len(edges)),
	)
	return nodes, edges, nil
}

// relationshipQuery resolves the trust edge between a user and a
// character. Users may be keyed by id or by a user_id property written by
// older ingest paths.
const relationshipQuery = `
	MATCH (u:User)-[t:TRUSTS]->(c:Character {name: $character})
	WHERE u.id = $userID OR u.user_id = $userID
	RETURN t.trust_score AS trust_score, t.stage AS stage, t.interactions AS interactions
	LIMIT 1
`

// GetRelationship implements walk.TrustSource. A missing relationship
// reports zero trust without an error; the walker's gate treats both the
// same way.
func (s *Neo4jStore) GetRelationship(ctx context.Context, userID, character string) (walk.Relationship, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, relationshipQuery, map[string]any{
		"userID":    userID,
		"character": character,
	})
	if err != nil {
		return walk.Relationship{}, fmt.Errorf("failed to query trust relationship: %w", err)
	}

	if result.Next(ctx) {
		record := result.Record()
		return walk.Relationship{
			TrustScore:   floatFromRecord(record, "trust_score"),
			Stage:        stringFromRecord(record, "stage"),
			Interactions: intFromRecord(record, "interactions"),
		}, nil
	}
	if err := result.Err(); err != nil {
		return walk.Relationship{}, fmt.Errorf("failed to read trust relationship: %w", err)
	}
	return walk.Relationship{}, nil
}

// nodeFromDB builds a walk node from a database node. The id property
// wins over the element id; the element id keeps scoring and dedup
// working on graphs ingested without explicit ids.
func nodeFromDB(n neo4j.Node, labels []string) *walk.WalkedNode {
	id, _ := n.Props["id"].(string)
	if id == "" {
		id = n.GetElementId()
	}
	name, _ := n.Props["name"].(string)
	if name == "" {
		name = id
	}
	return &walk.WalkedNode{
		ID:         id,
		Label:      pickLabel(labels),
		Name:       name,
		Properties: n.Props,
	}
}

var knownLabels = map[string]bool{
	walk.LabelUser:      true,
	walk.LabelEntity:    true,
	walk.LabelCharacter: true,
	walk.LabelTopic:     true,
	walk.LabelArtifact:  true,
}

func pickLabel(labels []string) string {
	for _, l := range labels {
		if knownLabels[l] {
			return l
		}
	}
	if len(labels) > 0 {
		return labels[0]
	}
	return walk.LabelEntity
}

func labelsFromRecord(record *neo4j.Record) []string {
	raw, ok := record.Get("labels")
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	labels := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			labels = append(labels, s)
		}
	}
	return labels
}

func edgesFromRels(raw any, targetID string) []*walk.WalkedEdge {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	edges := make([]*walk.WalkedEdge, 0, len(items))
	for _, item := range items {
		rel, ok := item.(map[string]any)
		if !ok {
			continue
		}
		sourceID, _ := rel["source"].(string)
		edgeType, _ := rel["type"].(string)
		props, _ := rel["props"].(map[string]any)
		edges = append(edges, &walk.WalkedEdge{
			SourceID:   sourceID,
			TargetID:   targetID,
			EdgeType:   edgeType,
			Properties: props,
		})
	}
	return edges
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func stringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	s, _ := val.(string)
	return s
}

func floatFromRecord(record *neo4j.Record, key string) float64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func intFromRecord(record *neo4j.Record, key string) int {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
