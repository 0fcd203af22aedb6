// Package authstate tracks authorization flows that are waiting for the
// browser to come back from the provider. Each entry is one-shot: consumed on
// the first callback carrying its state parameter.
package authstate

import "time"

type PendingAuth struct {
	CodeVerifier string
	Nonce        string
	ReturnURL    string
	CreatedAt    time.Time
}

type Repo interface {
	Upsert(state string, pending *PendingAuth) error
	Get(state string) (*PendingAuth, error)
	Delete(state string) error
}
