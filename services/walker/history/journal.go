// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history journals completed walks to embedded storage and
// optionally exports them to object storage. The journal is append-only:
// one entry per finished walk, newest-first reads for the recent-walks
// API.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/reverie/services/walker/walk"
)

const walkKeyPrefix = "walk:"

// Entry is one journaled walk.
type Entry struct {
	WalkID         string         `json:"walk_id"`
	Kind           string         `json:"kind"`
	UserID         string         `json:"user_id,omitempty"`
	Character      string         `json:"character,omitempty"`
	Stats          walk.WalkStats `json:"stats"`
	Interpretation string         `json:"interpretation,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Config holds journal storage settings.
type Config struct {
	// Path is the directory for database files. Required unless InMemory.
	Path string

	// InMemory keeps the journal off disk. For tests and dev runs.
	InMemory bool

	// SyncWrites trades write latency for durability.
	SyncWrites bool
}

// Journal records walks in BadgerDB under monotonically increasing keys.
type Journal struct {
	db     *badger.DB
	seq    atomic.Uint64
	logger *slog.Logger
	nowFn  func() time.Time
}

// badgerLogger adapts slog to BadgerDB's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens or creates the journal. The sequence counter resumes from
// the highest key already present.
func Open(cfg Config, logger *slog.Logger) (*Journal, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent journal")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("failed to create journal directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)
	opts = opts.WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	j := &Journal{db: db, logger: logger, nowFn: time.Now}
	if err := j.initSeq(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to scan journal sequence: %w", err)
	}
	return j, nil
}

// Close releases the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// initSeq resumes the sequence counter from the highest existing key.
func (j *Journal) initSeq() error {
	var maxSeq uint64
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		seekKey := append([]byte(walkKeyPrefix), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		it.Seek(seekKey)
		if it.ValidForPrefix([]byte(walkKeyPrefix)) {
			if seq, ok := seqFromKey(it.Item().Key()); ok {
				maxSeq = seq
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	j.seq.Store(maxSeq)
	return nil
}

// Record journals one walk and returns its id. A missing walk id is
// assigned; a missing timestamp is stamped with the current time.
func (j *Journal) Record(ctx context.Context, entry Entry) (string, error) {
	if entry.WalkID == "" {
		entry.WalkID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = j.nowFn()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("failed to encode journal entry: %w", err)
	}

	seq := j.seq.Add(1)
	key := walkKey(seq, entry.WalkID)
	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write journal entry: %w", err)
	}

	j.logger.Debug("walk journaled",
		slog.String("walk_id", entry.WalkID),
		slog.String("kind", entry.Kind),
	)
	return entry.WalkID, nil
}

// RecentWalks returns up to n entries, newest first. Malformed entries
// are skipped with a warning rather than failing the read.
func (j *Journal) RecentWalks(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}

	entries := make([]Entry, 0, n)
	prefix := []byte(walkKeyPrefix)

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		seekKey := append([]byte(walkKeyPrefix), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(entries) < n; it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			err := it.Item().Value(func(val []byte) error {
				var entry Entry
				if err := json.Unmarshal(val, &entry); err != nil {
					j.logger.Warn("skipping malformed journal entry",
						slog.String("key", string(it.Item().Key())),
						slog.String("error", err.Error()))
					return nil
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read recent walks: %w", err)
	}
	return entries, nil
}

func walkKey(seq uint64, walkID string) []byte {
	return []byte(fmt.Sprintf("%s%016d:%s", walkKeyPrefix, seq, walkID))
}

func seqFromKey(key []byte) (uint64, bool) {
	rest := string(key[len(walkKeyPrefix):])
	var seq uint64
	if _, err := fmt.Sscanf(rest, "%016d", &seq); err != nil {
		return 0, false
	}
	return seq, true
}
