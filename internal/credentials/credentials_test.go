package credentials

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/weftlabs/weft/internal/persistence"
	"github.com/weftlabs/weft/pkg/api"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestAESGCM_RoundTrip(t *testing.T) {
	c, err := NewAESGCM(testKey())
	if err != nil {
		t.Fatalf("NewAESGCM: %v", err)
	}

	sealed, err := c.Encrypt([]byte("sk-test-secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Contains(sealed, []byte("sk-test-secret")) {
		t.Fatal("ciphertext contains plaintext")
	}

	opened, err := c.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(opened) != "sk-test-secret" {
		t.Fatalf("round-trip = %q", opened)
	}
}

func TestAESGCM_RejectsBadKeyAndCiphertext(t *testing.T) {
	if _, err := NewAESGCM([]byte("short")); err == nil {
		t.Fatal("expected error for short key")
	}

	c, _ := NewAESGCM(testKey())
	if _, err := c.Decrypt([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated ciphertext")
	}

	sealed, _ := c.Encrypt([]byte("secret"))
	sealed[len(sealed)-1] ^= 0xff
	if _, err := c.Decrypt(sealed); err == nil {
		t.Fatal("expected error for tampered ciphertext")
	}
}

func TestManager_SaveAndResolve(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewInMemoryStore()
	cipher, _ := NewAESGCM(testKey())
	m := NewManager(store, cipher)

	cred := api.Credential{
		ID:     "cred-1",
		UserID: "alice",
		Type:   api.CredentialAnthropic,
		Value:  "sk-ant-xyz",
	}
	if err := m.Save(ctx, cred); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// The store only ever sees ciphertext.
	stored, err := store.GetCredential(ctx, "cred-1", "alice")
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}
	if bytes.Contains(stored.Ciphertext, []byte("sk-ant-xyz")) {
		t.Fatal("plaintext reached the store")
	}

	secret, err := m.Resolve(ctx, "cred-1", "alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if secret != "sk-ant-xyz" {
		t.Fatalf("secret = %q", secret)
	}
}

func TestManager_WrongOwnerResolvesNotFound(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewInMemoryStore()
	cipher, _ := NewAESGCM(testKey())
	m := NewManager(store, cipher)

	if err := m.Save(ctx, api.Credential{ID: "cred-1", UserID: "alice", Type: api.CredentialOpenAI, Value: "s"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := m.Resolve(ctx, "cred-1", "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := m.Resolve(ctx, "missing", "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
