package countstore

import (
	"context"
)

// Name of the single persisted counter, also used as the JSON field name of the backing record.
const AcceptanceNumber = "acceptance_number"

// Persisted bot state. The record only ever holds the acceptance counter.
type State struct {
	AcceptanceNumber int `json:"acceptance_number"`
}

// Durable storage for the acceptance counter.
//
// Implementations must serialize Increment: gateway events are dispatched concurrently, and two
// members accepting the rules at the same moment must get two distinct numbers.
type CountStore interface {
	// Returns the current state. Missing or corrupt backing data is replaced with the zero state, not reported as an error.
	Load(ctx context.Context) (State, error)
	// Rewrites the whole record.
	Save(ctx context.Context, state State) error
	// Adds one to the acceptance counter, persists it, and returns the new value.
	Increment(ctx context.Context) (int, error)
}
