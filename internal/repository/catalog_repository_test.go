package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shift-checklist-bot/internal/storage"
)

func newCatalog(t *testing.T) (*CatalogRepo, storage.Backend) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	repo, err := NewCatalogRepo(context.Background(), backend)
	require.NoError(t, err)
	return repo, backend
}

func TestCatalogStartsEmpty(t *testing.T) {
	repo, _ := newCatalog(t)
	assert.Empty(t, repo.Roles())
	_, err := repo.Checklists("barista")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogRoleLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCatalog(t)

	require.NoError(t, repo.AddRole(ctx, "barista"))
	assert.ErrorIs(t, repo.AddRole(ctx, "barista"), ErrExists)
	assert.Equal(t, []string{"barista"}, repo.Roles())

	require.NoError(t, repo.RenameRole(ctx, "barista", "bartender"))
	assert.Equal(t, []string{"bartender"}, repo.Roles())
	assert.ErrorIs(t, repo.RenameRole(ctx, "barista", "x"), ErrNotFound)

	require.NoError(t, repo.DeleteRole(ctx, "bartender"))
	assert.Empty(t, repo.Roles())
	assert.ErrorIs(t, repo.DeleteRole(ctx, "bartender"), ErrNotFound)
}

func TestCatalogChecklistLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCatalog(t)

	// AddChecklist creates the role implicitly.
	require.NoError(t, repo.AddChecklist(ctx, "waiter", "opening"))
	assert.Equal(t, []string{"waiter"}, repo.Roles())
	assert.ErrorIs(t, repo.AddChecklist(ctx, "waiter", "opening"), ErrExists)

	require.NoError(t, repo.RenameChecklist(ctx, "waiter", "opening", "morning"))
	assert.True(t, repo.HasChecklist("waiter", "morning"))
	assert.False(t, repo.HasChecklist("waiter", "opening"))

	require.NoError(t, repo.DeleteChecklist(ctx, "waiter", "morning"))
	assert.False(t, repo.HasChecklist("waiter", "morning"))
}

func TestCatalogTasks(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCatalog(t)
	require.NoError(t, repo.AddChecklist(ctx, "waiter", "opening"))

	require.NoError(t, repo.AddTask(ctx, "waiter", "opening", "unlock the door"))
	require.NoError(t, repo.AddTask(ctx, "waiter", "opening", "turn on lights"))

	tasks, err := repo.Tasks("waiter", "opening")
	require.NoError(t, err)
	assert.Equal(t, []string{"unlock the door", "turn on lights"}, tasks)

	require.NoError(t, repo.UpdateTask(ctx, "waiter", "opening", 1, "turn on all lights"))
	tasks, _ = repo.Tasks("waiter", "opening")
	assert.Equal(t, "turn on all lights", tasks[1])

	require.NoError(t, repo.DeleteTask(ctx, "waiter", "opening", 0))
	tasks, _ = repo.Tasks("waiter", "opening")
	assert.Equal(t, []string{"turn on all lights"}, tasks)
}

func TestCatalogTaskIndexRevalidation(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCatalog(t)
	require.NoError(t, repo.AddChecklist(ctx, "waiter", "opening"))
	require.NoError(t, repo.AddTask(ctx, "waiter", "opening", "only task"))

	// The list shrank between showing the editor and committing the edit.
	assert.ErrorIs(t, repo.UpdateTask(ctx, "waiter", "opening", 5, "x"), ErrIndexOutOfRange)
	assert.ErrorIs(t, repo.DeleteTask(ctx, "waiter", "opening", -1), ErrIndexOutOfRange)
}

func TestCatalogTasksReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCatalog(t)
	require.NoError(t, repo.AddChecklist(ctx, "waiter", "opening"))
	require.NoError(t, repo.AddTask(ctx, "waiter", "opening", "original"))

	tasks, err := repo.Tasks("waiter", "opening")
	require.NoError(t, err)
	tasks[0] = "mutated"

	again, _ := repo.Tasks("waiter", "opening")
	assert.Equal(t, "original", again[0])
}

func TestCatalogPersistsAcrossReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend, err := storage.NewFileBackend(dir)
	require.NoError(t, err)

	repo, err := NewCatalogRepo(ctx, backend)
	require.NoError(t, err)
	require.NoError(t, repo.AddChecklist(ctx, "cook", "closing"))
	require.NoError(t, repo.AddTask(ctx, "cook", "closing", "clean the grill"))

	reloaded, err := NewCatalogRepo(ctx, backend)
	require.NoError(t, err)
	tasks, err := reloaded.Tasks("cook", "closing")
	require.NoError(t, err)
	assert.Equal(t, []string{"clean the grill"}, tasks)
}
