package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/shift-checklist-bot/internal/model"
	"github.com/iliyamo/shift-checklist-bot/internal/storage"
)

// UserRepo owns the user registry and the admin predicate. The static
// allowlist from configuration always wins: an allowlisted identity is an
// admin even if its stored flag says otherwise, and cannot be demoted.
type UserRepo struct {
	mu        sync.Mutex
	backend   storage.Backend
	users     map[int64]model.UserRecord
	allowlist map[int64]bool
}

func NewUserRepo(ctx context.Context, backend storage.Backend, allowlist []int64) (*UserRepo, error) {
	r := &UserRepo{
		backend:   backend,
		users:     map[int64]model.UserRecord{},
		allowlist: map[int64]bool{},
	}
	for _, id := range allowlist {
		r.allowlist[id] = true
	}
	raw, err := backend.Load(ctx, docUsers)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &r.users); err != nil {
			return nil, fmt.Errorf("decode users: %w", err)
		}
	}
	return r, nil
}

func (r *UserRepo) save(ctx context.Context) error {
	b, err := json.MarshalIndent(r.users, "", "  ")
	if err != nil {
		return err
	}
	return r.backend.Save(ctx, docUsers, b)
}

// Touch creates the record for userID on first contact and refreshes the
// display name on every subsequent name entry.
func (r *UserRepo) Touch(ctx context.Context, userID int64, displayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		u = model.UserRecord{ID: userID, CreatedAt: time.Now().UTC()}
	}
	if displayName != "" {
		u.DisplayName = displayName
	}
	r.users[userID] = u
	return r.save(ctx)
}

// Get returns the record for userID, if any.
func (r *UserRepo) Get(userID int64) (model.UserRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	return u, ok
}

// All returns every record, sorted by ID for stable listings.
func (r *UserRepo) All() []model.UserRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.UserRecord, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetAdmin toggles the dynamic admin flag, creating a bare record when the
// user has never talked to the bot.
func (r *UserRepo) SetAdmin(ctx context.Context, userID int64, admin bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		u = model.UserRecord{ID: userID, CreatedAt: time.Now().UTC()}
	}
	u.IsAdmin = admin
	r.users[userID] = u
	return r.save(ctx)
}

// IsAdmin is the single authorization predicate used everywhere:
// allowlisted OR flagged in the registry.
func (r *UserRepo) IsAdmin(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.allowlist[userID] {
		return true
	}
	return r.users[userID].IsAdmin
}

// Allowlisted reports whether userID comes from the static allowlist and
// therefore cannot be demoted.
func (r *UserRepo) Allowlisted(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allowlist[userID]
}

// AdminIDs returns the union of the allowlist and flagged records, sorted.
// Completed reports fan out to exactly this set.
func (r *UserRepo) AdminIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := map[int64]bool{}
	for id := range r.allowlist {
		set[id] = true
	}
	for id, u := range r.users {
		if u.IsAdmin {
			set[id] = true
		}
	}
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
