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

// CatalogRepo owns the checklist catalog. All reads hand out copies so
// callers can never mutate shared state behind the lock; all writes
// re-check preconditions under the lock and persist before returning.
type CatalogRepo struct {
	mu      sync.Mutex
	backend storage.Backend
	catalog model.Catalog
}

// NewCatalogRepo loads the catalog document. A missing document yields an
// empty catalog.
func NewCatalogRepo(ctx context.Context, backend storage.Backend) (*CatalogRepo, error) {
	r := &CatalogRepo{backend: backend, catalog: model.Catalog{}}
	raw, err := backend.Load(ctx, docChecklists)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &r.catalog); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
	}
	return r, nil
}

func (r *CatalogRepo) save(ctx context.Context) error {
	b, err := json.MarshalIndent(r.catalog, "", "  ")
	if err != nil {
		return err
	}
	return r.backend.Save(ctx, docChecklists, b)
}

// Roles returns all role names, sorted for stable menus.
func (r *CatalogRepo) Roles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	roles := r.catalog.Roles()
	sort.Strings(roles)
	return roles
}

// Checklists returns the checklist names under role, sorted.
func (r *CatalogRepo) Checklists(role string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names, ok := r.catalog.Checklists(role)
	if !ok {
		return nil, ErrNotFound
	}
	sort.Strings(names)
	return names, nil
}

// Tasks returns a copy of the ordered task list for (role, checklist).
func (r *CatalogRepo) Tasks(role, checklist string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tasks, ok := r.catalog.Tasks(role, checklist)
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]string, len(tasks))
	copy(out, tasks)
	return out, nil
}

// HasChecklist reports whether (role, checklist) exists.
func (r *CatalogRepo) HasChecklist(role, checklist string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.catalog.Tasks(role, checklist)
	return ok
}

// AddRole creates an empty role.
func (r *CatalogRepo) AddRole(ctx context.Context, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.catalog[role]; ok {
		return ErrExists
	}
	r.catalog[role] = map[string][]string{}
	return r.save(ctx)
}

// RenameRole moves every checklist of old under the new name.
func (r *CatalogRepo) RenameRole(ctx context.Context, old, new string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lists, ok := r.catalog[old]
	if !ok {
		return ErrNotFound
	}
	if _, taken := r.catalog[new]; taken {
		return ErrExists
	}
	delete(r.catalog, old)
	r.catalog[new] = lists
	return r.save(ctx)
}

// DeleteRole removes a role and all its checklists.
func (r *CatalogRepo) DeleteRole(ctx context.Context, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.catalog[role]; !ok {
		return ErrNotFound
	}
	delete(r.catalog, role)
	return r.save(ctx)
}

// AddChecklist creates an empty checklist under role. A role exists once
// it has a checklist, so an unknown role name is created implicitly.
func (r *CatalogRepo) AddChecklist(ctx context.Context, role, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lists, ok := r.catalog[role]
	if !ok {
		lists = map[string][]string{}
		r.catalog[role] = lists
	}
	if _, taken := lists[name]; taken {
		return ErrExists
	}
	lists[name] = []string{}
	return r.save(ctx)
}

// RenameChecklist renames (role, old) to (role, new). Assignment cascade
// is the caller's job; this store only touches the catalog.
func (r *CatalogRepo) RenameChecklist(ctx context.Context, role, old, new string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lists, ok := r.catalog[role]
	if !ok {
		return ErrNotFound
	}
	tasks, ok := lists[old]
	if !ok {
		return ErrNotFound
	}
	if _, taken := lists[new]; taken {
		return ErrExists
	}
	delete(lists, old)
	lists[new] = tasks
	return r.save(ctx)
}

// DeleteChecklist removes (role, name). The role stays, possibly empty.
func (r *CatalogRepo) DeleteChecklist(ctx context.Context, role, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lists, ok := r.catalog[role]
	if !ok {
		return ErrNotFound
	}
	if _, ok := lists[name]; !ok {
		return ErrNotFound
	}
	delete(lists, name)
	return r.save(ctx)
}

// AddTask appends text as the last task of (role, checklist).
func (r *CatalogRepo) AddTask(ctx context.Context, role, checklist, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lists, ok := r.catalog[role]
	if !ok {
		return ErrNotFound
	}
	tasks, ok := lists[checklist]
	if !ok {
		return ErrNotFound
	}
	lists[checklist] = append(tasks, text)
	return r.save(ctx)
}

// UpdateTask replaces the task at index i. The index is re-validated here,
// at commit time, because another admin may have edited the list since the
// menu was rendered.
func (r *CatalogRepo) UpdateTask(ctx context.Context, role, checklist string, i int, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tasks, ok := r.catalog.Tasks(role, checklist)
	if !ok {
		return ErrNotFound
	}
	if i < 0 || i >= len(tasks) {
		return ErrIndexOutOfRange
	}
	tasks[i] = text
	return r.save(ctx)
}

// DeleteTask removes the task at index i, shifting later tasks down.
func (r *CatalogRepo) DeleteTask(ctx context.Context, role, checklist string, i int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lists, ok := r.catalog[role]
	if !ok {
		return ErrNotFound
	}
	tasks, ok := lists[checklist]
	if !ok {
		return ErrNotFound
	}
	if i < 0 || i >= len(tasks) {
		return ErrIndexOutOfRange
	}
	lists[checklist] = append(tasks[:i], tasks[i+1:]...)
	return r.save(ctx)
}
