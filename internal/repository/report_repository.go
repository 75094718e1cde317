package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/iliyamo/shift-checklist-bot/internal/model"
	"github.com/iliyamo/shift-checklist-bot/internal/storage"
)

// csvTimeLayout is part of the export contract; downstream spreadsheets
// parse this exact format.
const csvTimeLayout = "2006-01-02 15:04:05"

// ChecklistKey identifies one (role, checklist) pair in statistics.
type ChecklistKey struct {
	Role      string
	Checklist string
}

// CompletionStat counts runs for one checklist key.
type CompletionStat struct {
	Total     int
	Completed int
}

// ReportRepo owns the append-only report collection. Records are kept as
// raw JSON and decoded individually on read, so one corrupt record is
// skipped instead of poisoning every listing, export and statistic.
type ReportRepo struct {
	mu      sync.Mutex
	backend storage.Backend
	raw     []json.RawMessage
}

func NewReportRepo(ctx context.Context, backend storage.Backend) (*ReportRepo, error) {
	r := &ReportRepo{backend: backend}
	raw, err := backend.Load(ctx, docReports)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &r.raw); err != nil {
			return nil, fmt.Errorf("decode reports: %w", err)
		}
	}
	return r, nil
}

func (r *ReportRepo) save(ctx context.Context) error {
	b, err := json.MarshalIndent(r.raw, "", "  ")
	if err != nil {
		return err
	}
	return r.backend.Save(ctx, docReports, b)
}

// Append stores one completed run. Reports are immutable afterwards.
func (r *ReportRepo) Append(ctx context.Context, rep model.Report) error {
	b, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raw = append(r.raw, b)
	return r.save(ctx)
}

// List decodes every readable report in insertion order. Unreadable
// records are logged and skipped.
func (r *ReportRepo) List() []model.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Report, 0, len(r.raw))
	for i, raw := range r.raw {
		var rep model.Report
		if err := json.Unmarshal(raw, &rep); err != nil {
			log.Printf("reports: skipping unreadable record %d: %v", i, err)
			continue
		}
		out = append(out, rep)
	}
	return out
}

// Count returns the number of stored records, readable or not.
func (r *ReportRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.raw)
}

// Clear drops every report.
func (r *ReportRepo) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raw = nil
	return r.save(ctx)
}

// CompletionStats aggregates runs per checklist key: how many runs exist
// and how many had every task done.
func (r *ReportRepo) CompletionStats() map[ChecklistKey]CompletionStat {
	out := map[ChecklistKey]CompletionStat{}
	for _, rep := range r.List() {
		k := ChecklistKey{Role: rep.Role, Checklist: rep.Checklist}
		s := out[k]
		s.Total++
		if rep.Completed() {
			s.Completed++
		}
		out[k] = s
	}
	return out
}

// ActivityStats counts completed runs per user ID.
func (r *ReportRepo) ActivityStats() map[int64]int {
	out := map[int64]int{}
	for _, rep := range r.List() {
		out[rep.UserID]++
	}
	return out
}

// ExportCSV flattens every readable report into one row per (report,
// task) pair. The column set and order are a contract with external
// tooling and must not change:
//
//	date,user_id,user_name,role,checklist,task,status
func (r *ReportRepo) ExportCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"date", "user_id", "user_name", "role", "checklist", "task", "status"}); err != nil {
		return nil, err
	}
	for _, rep := range r.List() {
		date := rep.CreatedAt.UTC().Format(csvTimeLayout)
		for _, res := range rep.Results {
			row := []string{
				date,
				strconv.FormatInt(rep.UserID, 10),
				rep.UserName,
				rep.Role,
				rep.Checklist,
				res.Task,
				string(res.Outcome),
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
