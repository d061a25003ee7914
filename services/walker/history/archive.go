// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Archiver exports journal entries to a GCS bucket as JSON lines, one
// object per export.
type Archiver struct {
	client *storage.Client
	bucket string
	logger *slog.Logger
	nowFn  func() time.Time
}

// NewArchiver builds a GCS archiver from a service-account key file.
func NewArchiver(ctx context.Context, bucket, saKeyPath string, logger *slog.Logger) (*Archiver, error) {
	if _, err := os.Stat(saKeyPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("service account key not found at path: %s", saKeyPath)
	}

	client, err := storage.NewClient(ctx, option.WithCredentialsFile(saKeyPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{client: client, bucket: bucket, logger: logger, nowFn: time.Now}, nil
}

// Close releases the storage client.
func (a *Archiver) Close() error {
	return a.client.Close()
}

// Export writes up to n recent entries to the bucket and returns the
// object path.
func (a *Archiver) Export(ctx context.Context, journal *Journal, n int) (string, error) {
	entries, err := journal.RecentWalks(ctx, n)
	if err != nil {
		return "", err
	}

	objectPath := fmt.Sprintf("journal/%s.jsonl", a.nowFn().UTC().Format("20060102T150405Z"))
	obj := a.client.Bucket(a.bucket).Object(objectPath)
	writer := obj.NewWriter(ctx)
	writer.ContentType = "application/json"

	enc := json.NewEncoder(writer)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			writer.Close()
			return "", fmt.Errorf("failed to encode entry %s: %w", entry.WalkID, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer for %s: %w", objectPath, err)
	}

	a.logger.Info("journal exported",
		slog.String("bucket", a.bucket),
		slog.String("object", objectPath),
		slog.Int("entries", len(entries)),
	)
	return objectPath, nil
}
