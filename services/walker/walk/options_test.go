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

import "testing"

func TestApplyOptions_Defaults(t *testing.T) {
	opts := applyOptions(nil)

	if opts.MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth = %d, want %d", opts.MaxDepth, DefaultMaxDepth)
	}
	if opts.MaxNodes != DefaultMaxNodes {
		t.Errorf("MaxNodes = %d, want %d", opts.MaxNodes, DefaultMaxNodes)
	}
	if opts.Serendipity != DefaultSerendipity {
		t.Errorf("Serendipity = %v, want %v", opts.Serendipity, DefaultSerendipity)
	}
	if opts.MinScore != DefaultMinScore {
		t.Errorf("MinScore = %v, want %v", opts.MinScore, DefaultMinScore)
	}
	if opts.UserID != "" || opts.Character != "" {
		t.Errorf("expected empty identity fields, got user=%q character=%q", opts.UserID, opts.Character)
	}
}

func TestApplyOptions_Clamping(t *testing.T) {
	tests := []struct {
		name            string
		opts            []Option
		wantDepth       int
		wantNodes       int
		wantSerendipity float64
		wantMinScore    float64
	}{
		{
			name:            "zero depth uses default",
			opts:            []Option{WithMaxDepth(0)},
			wantDepth:       DefaultMaxDepth,
			wantNodes:       DefaultMaxNodes,
			wantSerendipity: DefaultSerendipity,
			wantMinScore:    DefaultMinScore,
		},
		{
			name:            "negative depth uses default",
			opts:            []Option{WithMaxDepth(-2)},
			wantDepth:       DefaultMaxDepth,
			wantNodes:       DefaultMaxNodes,
			wantSerendipity: DefaultSerendipity,
			wantMinScore:    DefaultMinScore,
		},
		{
			name:            "excessive depth clamped",
			opts:            []Option{WithMaxDepth(9)},
			wantDepth:       MaxWalkDepth,
			wantNodes:       DefaultMaxNodes,
			wantSerendipity: DefaultSerendipity,
			wantMinScore:    DefaultMinScore,
		},
		{
			name:            "depth one allowed",
			opts:            []Option{WithMaxDepth(1)},
			wantDepth:       1,
			wantNodes:       DefaultMaxNodes,
			wantSerendipity: DefaultSerendipity,
			wantMinScore:    DefaultMinScore,
		},
		{
			name:            "tiny node budget raised to minimum",
			opts:            []Option{WithMaxNodes(3)},
			wantDepth:       DefaultMaxDepth,
			wantNodes:       MinNodeBudget,
			wantSerendipity: DefaultSerendipity,
			wantMinScore:    DefaultMinScore,
		},
		{
			name:            "huge node budget clamped",
			opts:            []Option{WithMaxNodes(5000)},
			wantDepth:       DefaultMaxDepth,
			wantNodes:       MaxNodeBudget,
			wantSerendipity: DefaultSerendipity,
			wantMinScore:    DefaultMinScore,
		},
		{
			name:            "zero node budget uses default",
			opts:            []Option{WithMaxNodes(0)},
			wantDepth:       DefaultMaxDepth,
			wantNodes:       DefaultMaxNodes,
			wantSerendipity: DefaultSerendipity,
			wantMinScore:    DefaultMinScore,
		},
		{
			name:            "negative serendipity disabled",
			opts:            []Option{WithSerendipity(-0.2)},
			wantDepth:       DefaultMaxDepth,
			wantNodes:       DefaultMaxNodes,
			wantSerendipity: 0,
			wantMinScore:    DefaultMinScore,
		},
		{
			name:            "excessive serendipity clamped",
			opts:            []Option{WithSerendipity(0.9)},
			wantDepth:       DefaultMaxDepth,
			wantNodes:       DefaultMaxNodes,
			wantSerendipity: MaxSerendipity,
			wantMinScore:    DefaultMinScore,
		},
		{
			name:            "negative min score floored",
			opts:            []Option{WithMinScore(-1)},
			wantDepth:       DefaultMaxDepth,
			wantNodes:       DefaultMaxNodes,
			wantSerendipity: DefaultSerendipity,
			wantMinScore:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := applyOptions(tt.opts)

			if opts.MaxDepth != tt.wantDepth {
				t.Errorf("MaxDepth = %d, want %d", opts.MaxDepth, tt.wantDepth)
			}
			if opts.MaxNodes != tt.wantNodes {
				t.Errorf("MaxNodes = %d, want %d", opts.MaxNodes, tt.wantNodes)
			}
			if opts.Serendipity != tt.wantSerendipity {
				t.Errorf("Serendipity = %v, want %v", opts.Serendipity, tt.wantSerendipity)
			}
			if opts.MinScore != tt.wantMinScore {
				t.Errorf("MinScore = %v, want %v", opts.MinScore, tt.wantMinScore)
			}
		})
	}
}

func TestApplyOptions_LastOptionWins(t *testing.T) {
	opts := applyOptions([]Option{WithCharacter("Elena"), WithCharacter("Mara")})
	if opts.Character != "Mara" {
		t.Errorf("Character = %q, want %q", opts.Character, "Mara")
	}
}
