// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides request and response types for the walker
// service HTTP surface.
package datatypes

import (
	"github.com/go-playground/validator/v10"
)

// Request limits. Walk parameters are additionally clamped by the walk
// package; these bounds reject clearly malformed requests before any
// store work happens.
const (
	// MaxSeedsPerRequest caps the seed list on any walk request.
	MaxSeedsPerRequest = 25

	// MaxCompanionsPerRequest caps companion characters on agent walks
	// and secondaries on multi walks.
	MaxCompanionsPerRequest = 4

	// MaxRecentWalks caps the journal page size.
	MaxRecentWalks = 100
)

// walkValidate is the shared validator for walker datatypes.
var walkValidate *validator.Validate

func init() {
	walkValidate = validator.New()
}

// WalkRequest is the body for POST /v1/walk.
//
// Zero-valued tuning fields mean "use the walker default"; out-of-range
// values are rejected here and clamped again by the walker.
type WalkRequest struct {
	Seeds       []string `json:"seeds" validate:"required,min=1,max=25,dive,min=1"`
	UserID      string   `json:"user_id,omitempty"`
	Character   string   `json:"character,omitempty"`
	MaxDepth    int      `json:"max_depth" validate:"gte=0,lte=4"`
	MaxNodes    int      `json:"max_nodes" validate:"gte=0,lte=100"`
	Serendipity float64  `json:"serendipity" validate:"gte=0,lte=0.5"`
	MinScore    float64  `json:"min_score" validate:"gte=0,lte=1"`
}

// Validate checks the request against its declared bounds.
func (r *WalkRequest) Validate() error {
	return walkValidate.Struct(r)
}

// MultiWalkRequest is the body for POST /v1/walk/multi.
type MultiWalkRequest struct {
	Seeds       []string `json:"seeds" validate:"required,min=1,max=25,dive,min=1"`
	UserID      string   `json:"user_id,omitempty"`
	Primary     string   `json:"primary" validate:"required,min=1"`
	Secondaries []string `json:"secondaries" validate:"required,min=1,max=4,dive,min=1"`
	MaxDepth    int      `json:"max_depth" validate:"gte=0,lte=4"`
	MaxNodes    int      `json:"max_nodes" validate:"gte=0,lte=100"`
	Serendipity float64  `json:"serendipity" validate:"gte=0,lte=0.5"`
	MinScore    float64  `json:"min_score" validate:"gte=0,lte=1"`
}

// Validate checks the request against its declared bounds.
func (r *MultiWalkRequest) Validate() error {
	return walkValidate.Struct(r)
}

// AgentWalkRequest is the body for the dream, diary, and context
// endpoints. The agent derives most seeds itself; Seeds are optional
// extras and Companions apply to dreams only.
type AgentWalkRequest struct {
	UserID     string   `json:"user_id" validate:"required,min=1"`
	Character  string   `json:"character" validate:"required,min=1"`
	Companions []string `json:"companions,omitempty" validate:"max=4,dive,min=1"`
	Seeds      []string `json:"seeds,omitempty" validate:"max=25,dive,min=1"`
}

// Validate checks the request against its declared bounds.
func (r *AgentWalkRequest) Validate() error {
	return walkValidate.Struct(r)
}

// RecentWalksQuery carries the query parameters for GET
// /v1/walks/recent.
type RecentWalksQuery struct {
	Limit int `form:"limit" validate:"gte=0,lte=100"`
}

// Validate checks the query against its declared bounds.
func (q *RecentWalksQuery) Validate() error {
	return walkValidate.Struct(q)
}

// EnsureDefaults fills the page size when the caller omitted it.
func (q *RecentWalksQuery) EnsureDefaults() {
	if q.Limit == 0 {
		q.Limit = 20
	}
}

// StreamOptions carries the query parameters for the walk stream
// websocket. Tuning bounds match WalkRequest.
type StreamOptions struct {
	UserID      string  `form:"user_id"`
	Character   string  `form:"character"`
	MaxDepth    int     `form:"max_depth" validate:"gte=0,lte=4"`
	MaxNodes    int     `form:"max_nodes" validate:"gte=0,lte=100"`
	Serendipity float64 `form:"serendipity" validate:"gte=0,lte=0.5"`
	MinScore    float64 `form:"min_score" validate:"gte=0,lte=1"`
}

// Validate checks the options against their declared bounds.
func (o *StreamOptions) Validate() error {
	return walkValidate.Struct(o)
}
