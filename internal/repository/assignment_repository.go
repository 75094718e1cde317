package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/shift-checklist-bot/internal/model"
	"github.com/iliyamo/shift-checklist-bot/internal/storage"
)

// AssignmentRepo owns the user -> {role, checklist} map. One assignment
// per user, last write wins. The cascade helpers keep assignments in step
// with catalog renames and deletions.
type AssignmentRepo struct {
	mu          sync.Mutex
	backend     storage.Backend
	assignments map[int64]model.Assignment
}

func NewAssignmentRepo(ctx context.Context, backend storage.Backend) (*AssignmentRepo, error) {
	r := &AssignmentRepo{backend: backend, assignments: map[int64]model.Assignment{}}
	raw, err := backend.Load(ctx, docAssignments)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &r.assignments); err != nil {
			return nil, fmt.Errorf("decode assignments: %w", err)
		}
	}
	return r, nil
}

func (r *AssignmentRepo) save(ctx context.Context) error {
	b, err := json.MarshalIndent(r.assignments, "", "  ")
	if err != nil {
		return err
	}
	return r.backend.Save(ctx, docAssignments, b)
}

// Get returns the assignment for userID, if any.
func (r *AssignmentRepo) Get(userID int64) (model.Assignment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[userID]
	return a, ok
}

// Set writes the assignment for userID, overwriting any prior one.
func (r *AssignmentRepo) Set(ctx context.Context, userID int64, a model.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments[userID] = a
	return r.save(ctx)
}

// Remove deletes the assignment for userID. Removing a missing entry is
// not an error.
func (r *AssignmentRepo) Remove(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.assignments, userID)
	return r.save(ctx)
}

// UserIDs returns all assigned user IDs, sorted.
func (r *AssignmentRepo) UserIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.assignments))
	for id := range r.assignments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// All returns a copy of the assignment map.
func (r *AssignmentRepo) All() map[int64]model.Assignment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]model.Assignment, len(r.assignments))
	for id, a := range r.assignments {
		out[id] = a
	}
	return out
}

// Retarget repoints every assignment at (role, old) to (role, new) after a
// checklist rename. Returns how many were updated.
func (r *AssignmentRepo) Retarget(ctx context.Context, role, old, new string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, a := range r.assignments {
		if a.Role == role && a.Checklist == old {
			a.Checklist = new
			r.assignments[id] = a
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, r.save(ctx)
}

// RetargetRole rewrites the role of every assignment after a role rename.
func (r *AssignmentRepo) RetargetRole(ctx context.Context, old, new string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, a := range r.assignments {
		if a.Role == old {
			a.Role = new
			r.assignments[id] = a
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, r.save(ctx)
}

// RemoveByChecklist drops every assignment pointing at (role, checklist).
func (r *AssignmentRepo) RemoveByChecklist(ctx context.Context, role, checklist string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, a := range r.assignments {
		if a.Role == role && a.Checklist == checklist {
			delete(r.assignments, id)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, r.save(ctx)
}

// RemoveByRole drops every assignment under role, used when a whole role
// is deleted.
func (r *AssignmentRepo) RemoveByRole(ctx context.Context, role string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, a := range r.assignments {
		if a.Role == role {
			delete(r.assignments, id)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, r.save(ctx)
}
