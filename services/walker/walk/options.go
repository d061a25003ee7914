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

// Walk configuration limits.
const (
	// DefaultMaxDepth is the default traversal depth.
	DefaultMaxDepth = 3

	// MinWalkDepth and MaxWalkDepth bound the depth knob.
	MinWalkDepth = 1
	MaxWalkDepth = 4

	// DefaultMaxNodes is the default node budget.
	DefaultMaxNodes = 50

	// MinNodeBudget and MaxNodeBudget bound the node budget knob.
	MinNodeBudget = 10
	MaxNodeBudget = 100

	// DefaultSerendipity is the default probability of keeping a
	// below-threshold node anyway.
	DefaultSerendipity = 0.1

	// MaxSerendipity caps the serendipity knob.
	MaxSerendipity = 0.5

	// DefaultMinScore is the default retention threshold.
	DefaultMinScore = 0.3
)

// Options configures a single walk.
type Options struct {
	// UserID scopes trajectory lookups. Optional.
	UserID string

	// Character selects the thematic anchor set and scopes trajectory
	// lookups. Optional.
	Character string

	// MaxDepth is the traversal depth (default: 3, clamped to [1,4]).
	MaxDepth int

	// MaxNodes is the node budget (default: 50, clamped to [10,100]).
	MaxNodes int

	// Serendipity is the below-threshold retention probability
	// (default: 0.1, clamped to [0.0,0.5]).
	Serendipity float64

	// MinScore is the retention threshold (default: 0.3).
	MinScore float64

	// Progress, when set, is invoked once per completed depth level.
	Progress func(Progress)
}

// DefaultOptions returns the walk defaults.
func DefaultOptions() Options {
	return Options{
		MaxDepth:    DefaultMaxDepth,
		MaxNodes:    DefaultMaxNodes,
		Serendipity: DefaultSerendipity,
		MinScore:    DefaultMinScore,
	}
}

// Option is a functional option for configuring one walk.
type Option func(*Options)

// WithUser scopes the walk to a user for trajectory lookups.
func WithUser(userID string) Option {
	return func(o *Options) {
		o.UserID = userID
	}
}

// WithCharacter selects the acting character.
func WithCharacter(name string) Option {
	return func(o *Options) {
		o.Character = name
	}
}

// WithMaxDepth sets the traversal depth.
//
// If d <= 0, uses default (3).
// Clamped to [1,4].
func WithMaxDepth(d int) Option {
	return func(o *Options) {
		if d <= 0 {
			o.MaxDepth = DefaultMaxDepth
		} else if d < MinWalkDepth {
			o.MaxDepth = MinWalkDepth
		} else if d > MaxWalkDepth {
			o.MaxDepth = MaxWalkDepth
		} else {
			o.MaxDepth = d
		}
	}
}

// WithMaxNodes sets the node budget.
//
// If n <= 0, uses default (50).
// Clamped to [10,100].
func WithMaxNodes(n int) Option {
	return func(o *Options) {
		if n <= 0 {
			o.MaxNodes = DefaultMaxNodes
		} else if n < MinNodeBudget {
			o.MaxNodes = MinNodeBudget
		} else if n > MaxNodeBudget {
			o.MaxNodes = MaxNodeBudget
		} else {
			o.MaxNodes = n
		}
	}
}

// WithSerendipity sets the below-threshold retention probability.
//
// Clamped to [0.0,0.5]. Negative values disable serendipitous retention.
func WithSerendipity(p float64) Option {
	return func(o *Options) {
		if p < 0 {
			o.Serendipity = 0
		} else if p > MaxSerendipity {
			o.Serendipity = MaxSerendipity
		} else {
			o.Serendipity = p
		}
	}
}

// WithMinScore sets the retention threshold.
func WithMinScore(s float64) Option {
	return func(o *Options) {
		if s < 0 {
			s = 0
		}
		o.MinScore = s
	}
}

// WithProgress registers a per-depth progress observer.
func WithProgress(fn func(Progress)) Option {
	return func(o *Options) {
		o.Progress = fn
	}
}

// applyOptions applies functional options over the defaults.
func applyOptions(opts []Option) Options {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
