package router

import "errors"

// Sentinel errors for the router package.
var (
	// ErrSlotIncomplete marks a configured port-map slot that is missing a
	// required field and is therefore skipped.
	ErrSlotIncomplete = errors.New("port-map slot incomplete")
)
