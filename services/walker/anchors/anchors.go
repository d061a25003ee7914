// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package anchors maintains the per-character thematic keyword table
// consulted by walk scoring.
//
// The table loads from a YAML file and can hot-reload when the file
// changes, so character tuning lands without a restart. Keywords are
// normalized to lowercase because scoring matches them against
// lowercased node names. A missing file is an empty table, not an
// error.
package anchors

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// reloadDebounce is how long the watcher waits for further writes
// before reloading. Editors often emit several events per save.
const reloadDebounce = 100 * time.Millisecond

// fileFormat is the on-disk shape:
//
//	characters:
//	  elena:
//	    - ocean
//	    - painting
type fileFormat struct {
	Characters map[string][]string `yaml:"characters"`
}

// Table is a live per-character anchor lookup.
//
// Thread Safety: Lookup is safe under concurrent reloads. A reload
// swaps the whole map, so slices handed out before the swap stay valid
// for in-flight walks.
type Table struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	byChar map[string][]string

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// Load reads the anchor table at path.
//
// An empty path or a missing file yields a valid empty table; a file
// that exists but fails to parse is an error.
func Load(path string, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Table{
		path:   path,
		logger: logger,
		byChar: make(map[string][]string),
		done:   make(chan struct{}),
	}
	if path == "" {
		return t, nil
	}

	byChar, err := readFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("anchor file absent, starting empty", slog.String("path", path))
			return t, nil
		}
		return nil, err
	}

	t.byChar = byChar
	logger.Info("anchor table loaded",
		slog.String("path", path),
		slog.Int("characters", len(byChar)),
	)
	return t, nil
}

// Lookup returns the anchor keywords for a character. Matching is
// case-insensitive on the character name; unknown characters get nil.
func (t *Table) Lookup(character string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byChar[strings.ToLower(strings.TrimSpace(character))]
}

// Len reports how many characters carry anchors.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byChar)
}

// Watch starts hot reloading until the context ends or Close is called.
//
// The watch covers the file's directory rather than the file itself:
// editors typically replace files by rename, which would silently
// detach a file-level watch. Tables with no path watch nothing.
func (t *Table) Watch(ctx context.Context) error {
	if t.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create anchor watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(t.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(t.path), err)
	}
	t.watcher = watcher

	go t.watchLoop(ctx)
	return nil
}

// Close stops the watcher. Safe to call more than once and without a
// prior Watch.
func (t *Table) Close() {
	t.stopOnce.Do(func() {
		close(t.done)
		if t.watcher != nil {
			t.watcher.Close()
		}
	})
}

// watchLoop debounces events for the table file and reloads after the
// window closes.
func (t *Table) watchLoop(ctx context.Context) {
	base := filepath.Base(t.path)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				timerC = timer.C
			} else {
				timer.Reset(reloadDebounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			t.reload()
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			t.logger.Warn("anchor watcher error", slog.String("error", err.Error()))
		}
	}
}

// reload re-reads the file and swaps the table. A file that vanished or
// fails to parse keeps the previous table.
func (t *Table) reload() {
	byChar, err := readFile(t.path)
	if err != nil {
		t.logger.Warn("anchor reload failed, keeping previous table",
			slog.String("path", t.path),
			slog.String("error", err.Error()),
		)
		return
	}

	t.mu.Lock()
	t.byChar = byChar
	t.mu.Unlock()

	t.logger.Info("anchor table reloaded",
		slog.String("path", t.path),
		slog.Int("characters", len(byChar)),
	)
}

// readFile parses and normalizes one anchor file.
func readFile(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var parsed fileFormat
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse anchor file %s: %w", path, err)
	}
	return normalize(parsed.Characters), nil
}

// normalize lowercases and trims characters and keywords, dropping
// empties and duplicates. Scoring matches keywords against lowercased
// node names, so the table stores them lowercased once.
func normalize(raw map[string][]string) map[string][]string {
	out := make(map[string][]string, len(raw))
	for character, keywords := range raw {
		character = strings.ToLower(strings.TrimSpace(character))
		if character == "" {
			continue
		}

		seen := make(map[string]bool, len(keywords))
		cleaned := make([]string, 0, len(keywords))
		for _, keyword := range keywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword == "" || seen[keyword] {
				continue
			}
			seen[keyword] = true
			cleaned = append(cleaned, keyword)
		}
		if len(cleaned) > 0 {
			out[character] = cleaned
		}
	}
	return out
}
