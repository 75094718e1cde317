package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shift-checklist-bot/internal/model"
	"github.com/iliyamo/shift-checklist-bot/internal/storage"
)

func sampleReport(userID int64, name string, outcomes ...model.Outcome) model.Report {
	results := make([]model.TaskResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = model.TaskResult{Task: "task " + string(rune('a'+i)), Outcome: o}
	}
	return model.Report{
		UserID:    userID,
		UserName:  name,
		Role:      "waiter",
		Checklist: "opening",
		CreatedAt: time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC),
		Results:   results,
	}
}

func TestReportAppendAndList(t *testing.T) {
	ctx := context.Background()
	repo, err := NewReportRepo(ctx, storage.NewMemoryBackend())
	require.NoError(t, err)

	require.NoError(t, repo.Append(ctx, sampleReport(7, "Anna", model.OutcomeDone)))
	require.NoError(t, repo.Append(ctx, sampleReport(8, "Boris", model.OutcomeNotDone)))

	got := repo.List()
	require.Len(t, got, 2)
	assert.Equal(t, "Anna", got[0].UserName)
	assert.Equal(t, "Boris", got[1].UserName)
	assert.Equal(t, 2, repo.Count())

	require.NoError(t, repo.Clear(ctx))
	assert.Zero(t, repo.Count())
	assert.Empty(t, repo.List())
}

func TestReportCorruptRecordIsSkipped(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()

	good, err := json.Marshal(sampleReport(7, "Anna", model.OutcomeDone))
	require.NoError(t, err)
	doc, err := json.Marshal([]json.RawMessage{good, json.RawMessage(`{"user_id":"not a number"}`)})
	require.NoError(t, err)
	require.NoError(t, backend.Save(ctx, "reports", doc))

	repo, err := NewReportRepo(ctx, backend)
	require.NoError(t, err)

	got := repo.List()
	require.Len(t, got, 1)
	assert.Equal(t, "Anna", got[0].UserName)
	// Count still reflects the stored records, readable or not.
	assert.Equal(t, 2, repo.Count())
}

func TestReportStats(t *testing.T) {
	ctx := context.Background()
	repo, err := NewReportRepo(ctx, storage.NewMemoryBackend())
	require.NoError(t, err)

	require.NoError(t, repo.Append(ctx, sampleReport(7, "Anna", model.OutcomeDone, model.OutcomeDone)))
	require.NoError(t, repo.Append(ctx, sampleReport(7, "Anna", model.OutcomeDone, model.OutcomeNotDone)))
	require.NoError(t, repo.Append(ctx, sampleReport(8, "Boris", model.OutcomeDone)))

	activity := repo.ActivityStats()
	assert.Equal(t, map[int64]int{7: 2, 8: 1}, activity)

	completion := repo.CompletionStats()
	key := ChecklistKey{Role: "waiter", Checklist: "opening"}
	assert.Equal(t, CompletionStat{Total: 3, Completed: 2}, completion[key])
}

func TestReportExportCSV(t *testing.T) {
	ctx := context.Background()
	repo, err := NewReportRepo(ctx, storage.NewMemoryBackend())
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, sampleReport(7, "Anna", model.OutcomeDone, model.OutcomeNotDone)))

	data, err := repo.ExportCSV()
	require.NoError(t, err)

	want := "date,user_id,user_name,role,checklist,task,status\n" +
		"2025-06-01 08:30:00,7,Anna,waiter,opening,task a,done\n" +
		"2025-06-01 08:30:00,7,Anna,waiter,opening,task b,not_done\n"
	assert.Equal(t, want, string(data))
}

func TestReportExportCSVEmpty(t *testing.T) {
	repo, err := NewReportRepo(context.Background(), storage.NewMemoryBackend())
	require.NoError(t, err)

	data, err := repo.ExportCSV()
	require.NoError(t, err)
	assert.Equal(t, "date,user_id,user_name,role,checklist,task,status\n", string(data))
}
