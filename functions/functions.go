// Package functions holds the catalog of invocable functions and the
// simulated execution of them. The catalog itself is external data; this
// package only loads and serves it.
package functions

import "encoding/json"

// Function is one catalog entry. Parameters carries the parameter schema
// verbatim; its shape is owned by whoever authors the catalog file.
type Function struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}
