// Package storage defines the persistence collaborator for credentials and
// provides an in-memory reference implementation. Credential metadata and
// the shared secret are held as two distinct values joined only at this
// boundary; the engine itself never serializes a secret.
package storage

import (
	"context"

	"github.com/praxisid/oath-engine/pkg/domain"
)

// CredentialStore is implemented by the surrounding application. Secrets
// and non-secret fields may be persisted together or separately; Retrieve
// must return the credential with its secret re-attached, while ListAll
// returns metadata only.
type CredentialStore interface {
	// Store persists the credential metadata and its secret.
	Store(ctx context.Context, c *domain.OathCredential, secret string) error
	// Retrieve returns the credential with its secret attached, or
	// domain.ErrCredentialNotFound.
	Retrieve(ctx context.Context, id string) (*domain.OathCredential, error)
	// ListAll returns all credential metadata without secrets attached.
	ListAll(ctx context.Context) ([]*domain.OathCredential, error)
	// Remove deletes the credential and its secret, or returns
	// domain.ErrCredentialNotFound.
	Remove(ctx context.Context, id string) error
}
