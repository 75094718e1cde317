package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/iliyamo/shift-checklist-bot/internal/storage"
	"github.com/iliyamo/shift-checklist-bot/internal/utils"
)

type secretDoc struct {
	PasswordHash string `json:"password_hash"`
}

// SecretRepo owns the shared authentication password, stored as a bcrypt
// hash. On a fresh install the hash is derived from the configured initial
// password; once an admin rotates the password the persisted hash wins and
// the configured value is ignored.
type SecretRepo struct {
	mu      sync.Mutex
	backend storage.Backend
	cost    int
	doc     secretDoc
}

func NewSecretRepo(ctx context.Context, backend storage.Backend, initialPassword string, cost int) (*SecretRepo, error) {
	r := &SecretRepo{backend: backend, cost: cost}
	raw, err := backend.Load(ctx, docSecret)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &r.doc); err != nil {
			return nil, fmt.Errorf("decode secret: %w", err)
		}
	}
	if r.doc.PasswordHash == "" {
		hash, err := utils.HashPassword(initialPassword, cost)
		if err != nil {
			return nil, err
		}
		r.doc.PasswordHash = hash
		if err := r.save(ctx); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *SecretRepo) save(ctx context.Context) error {
	b, err := json.MarshalIndent(r.doc, "", "  ")
	if err != nil {
		return err
	}
	return r.backend.Save(ctx, docSecret, b)
}

// Verify checks a candidate password against the current hash.
func (r *SecretRepo) Verify(plain string) bool {
	r.mu.Lock()
	hash := r.doc.PasswordHash
	r.mu.Unlock()
	return utils.VerifyPassword(hash, plain)
}

// Rotate replaces the shared password. The old password is invalid the
// moment this returns; there is no grace period at the gate.
func (r *SecretRepo) Rotate(ctx context.Context, newPlain string) error {
	hash, err := utils.HashPassword(newPlain, r.cost)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc.PasswordHash = hash
	return r.save(ctx)
}
