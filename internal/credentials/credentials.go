// Package credentials resolves user-scoped secrets for node executors.
// Secrets are encrypted at rest; decryption happens once per resolve and
// the plaintext is handed to the caller for use within the current step
// only. It must never be written into an execution context or any
// persisted record.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/weftlabs/weft/internal/persistence"
	"github.com/weftlabs/weft/pkg/api"
)

// ErrNotFound is returned when a credential does not exist or belongs to a
// different user.
var ErrNotFound = persistence.ErrCredentialNotFound

// Cipher seals and opens credential secrets. The encryption primitive
// itself is a collaborator; the engine only requires the round-trip
// contract.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Manager stores and resolves credentials through a CredentialStore and a
// Cipher. It implements api.CredentialSource.
type Manager struct {
	store  persistence.CredentialStore
	cipher Cipher
}

var _ api.CredentialSource = (*Manager)(nil)

// NewManager creates a Manager.
func NewManager(store persistence.CredentialStore, cipher Cipher) *Manager {
	return &Manager{store: store, cipher: cipher}
}

// Save encrypts cred.Value and persists the credential. The plaintext is
// not retained.
func (m *Manager) Save(ctx context.Context, cred api.Credential) error {
	if cred.ID == "" {
		return errors.New("credential id is required")
	}
	if cred.UserID == "" {
		return errors.New("credential user id is required")
	}
	ciphertext, err := m.cipher.Encrypt([]byte(cred.Value))
	if err != nil {
		return fmt.Errorf("encrypt credential %s: %w", cred.ID, err)
	}
	return m.store.SaveCredential(ctx, persistence.StoredCredential{
		ID:         cred.ID,
		UserID:     cred.UserID,
		Type:       cred.Type,
		Ciphertext: ciphertext,
	})
}

// Resolve looks up a credential scoped by id and owning user and returns
// the decrypted secret. A credential owned by another user resolves as
// ErrNotFound.
func (m *Manager) Resolve(ctx context.Context, credentialID, userID string) (string, error) {
	stored, err := m.store.GetCredential(ctx, credentialID, userID)
	if err != nil {
		return "", err
	}
	plaintext, err := m.cipher.Decrypt(stored.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("decrypt credential %s: %w", credentialID, err)
	}
	return string(plaintext), nil
}
