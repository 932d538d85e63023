// Package store provides durable client-side state.
package store

import (
	"context"
)

// CredentialKey is the well-known key the bearer credential is stored under.
const CredentialKey = "token"

// CredentialStore persists the single bearer credential across restarts.
// An empty credential means logged out.
type CredentialStore interface {
	// Credential returns the stored credential, or "" when none is stored.
	Credential(ctx context.Context) (string, error)

	// SaveCredential replaces the stored credential.
	SaveCredential(ctx context.Context, token string) error

	// ClearCredential removes the stored credential. Clearing an empty store is not an error.
	ClearCredential(ctx context.Context) error

	// Ping verifies storage connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying storage.
	Close() error
}
