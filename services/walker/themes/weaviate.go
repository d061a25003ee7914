// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package themes persists interpreted dreams to a Weaviate memory index
// and reads back recent themes and interaction partners for walk seed
// assembly. The whole package is optional: when no Weaviate is configured
// the agent falls back to caller-supplied seeds.
package themes

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// DreamMemoryClass is the Weaviate class holding interpreted dream chunks.
const DreamMemoryClass = "DreamMemory"

const (
	dreamChunkSize    = 512
	dreamChunkOverlap = 64

	// recentOverfetch compensates for duplicate themes across chunks of
	// the same dream.
	recentOverfetch = 3
)

// DreamRecord is one interpreted walk headed for the memory index.
type DreamRecord struct {
	WalkID         string
	UserID         string
	Character      string
	Interpretation string
	Themes         []string
	Partners       []string
	CreatedAt      time.Time
}

// Config carries the Weaviate connection settings.
type Config struct {
	URL string
}

// Memory reads and writes the dream-memory index.
type Memory struct {
	client   *weaviate.Client
	splitter textsplitter.RecursiveCharacter
	logger   *slog.Logger
}

// NewMemory builds a dream-memory adapter. The connection is lazy;
// readiness is checked separately so the service can start degraded.
func NewMemory(cfg Config, logger *slog.Logger) (*Memory, error) {
	wcfg := weaviate.Config{Host: cfg.URL, Scheme: "http"}
	if strings.HasPrefix(cfg.URL, "https://") {
		wcfg.Scheme = "https"
		wcfg.Host = strings.TrimPrefix(cfg.URL, "https://")
	} else if strings.HasPrefix(cfg.URL, "http://") {
		wcfg.Host = strings.TrimPrefix(cfg.URL, "http://")
	}

	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(dreamChunkSize),
		textsplitter.WithChunkOverlap(dreamChunkOverlap),
	)

	return &Memory{client: client, splitter: splitter, logger: logger}, nil
}

// Ready reports whether the index is reachable.
func (m *Memory) Ready(ctx context.Context) error {
	ok, err := m.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate not ready: %w", err)
	}
	if !ok {
		return fmt.Errorf("weaviate not ready")
	}
	return nil
}

// StoreDream chunks the interpretation and batch-writes it to the index.
// Chunk ids derive from content hashes, so re-storing the same dream is
// idempotent.
func (m *Memory) StoreDream(ctx context.Context, dream DreamRecord) error {
	if dream.Interpretation == "" {
		return nil
	}

	chunks, err := m.splitter.SplitText(dream.Interpretation)
	if err != nil {
		return fmt.Errorf("failed to split interpretation: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	createdAt := dream.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	objects := make([]*models.Object, len(chunks))
	for i, chunk := range chunks {
		hash := sha256.Sum256([]byte(dream.WalkID + chunk))
		chunkUUID, _ := uuid.FromBytes(hash[:16])

		objects[i] = &models.Object{
			Class: DreamMemoryClass,
			ID:    strfmt.UUID(chunkUUID.String()),
			Properties: map[string]interface{}{
				"content":    chunk,
				"walk_id":    dream.WalkID,
				"user_id":    dream.UserID,
				"character":  dream.Character,
				"themes":     dream.Themes,
				"partners":   dream.Partners,
				"created_at": createdAt.UnixMilli(),
			},
		}
	}

	resp, err := m.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to store dream memory: %w", err)
	}

	stored := 0
	for _, item := range resp {
		if item.Result != nil && item.Result.Status != nil && *item.Result.Status == "SUCCESS" {
			stored++
			continue
		}
		if item.Result != nil && item.Result.Errors != nil && len(item.Result.Errors.Error) > 0 {
			m.logger.Warn("dream memory batch item failed",
				slog.String("walk_id", dream.WalkID),
				slog.String("error", item.Result.Errors.Error[0].Message))
		}
	}

	m.logger.Info("dream stored",
		slog.String("walk_id", dream.WalkID),
		slog.String("character", dream.Character),
		slog.Int("chunks", stored),
	)
	return nil
}

// RecentThemes returns up to limit distinct theme tokens from the user's
// most recent dreams, newest first.
func (m *Memory) RecentThemes(ctx context.Context, userID string, limit int) ([]string, error) {
	rows, err := m.recentRows(ctx, userID, limit*recentOverfetch, []graphql.Field{
		{Name: "themes"},
	})
	if err != nil {
		return nil, err
	}
	return collectDistinct(rows, "themes", limit), nil
}

// RecentPartners returns up to limit distinct interaction partners from
// the user's most recent dreams, newest first.
func (m *Memory) RecentPartners(ctx context.Context, userID string, limit int) ([]string, error) {
	rows, err := m.recentRows(ctx, userID, limit*recentOverfetch, []graphql.Field{
		{Name: "partners"},
	})
	if err != nil {
		return nil, err
	}
	return collectDistinct(rows, "partners", limit), nil
}

func (m *Memory) recentRows(ctx context.Context, userID string, fetch int, fields []graphql.Field) ([]map[string]interface{}, error) {
	where := filters.Where().
		WithPath([]string{"user_id"}).
		WithOperator(filters.Equal).
		WithValueString(userID)

	result, err := m.client.GraphQL().Get().
		WithClassName(DreamMemoryClass).
		WithFields(fields...).
		WithWhere(where).
		WithSort(graphql.Sort{Path: []string{"created_at"}, Order: graphql.Desc}).
		WithLimit(fetch).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query dream memory: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("dream memory query error: %s", result.Errors[0].Message)
	}

	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	objects, ok := data[DreamMemoryClass].([]interface{})
	if !ok {
		return nil, nil
	}

	rows := make([]map[string]interface{}, 0, len(objects))
	for _, obj := range objects {
		if row, ok := obj.(map[string]interface{}); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// collectDistinct flattens a string-array property across rows, keeping
// first-seen order.
func collectDistinct(rows []map[string]interface{}, key string, limit int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, row := range rows {
		items, ok := row[key].([]interface{})
		if !ok {
			continue
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok || s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}
