package handler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/shift-checklist-bot/internal/botapi"
	"github.com/iliyamo/shift-checklist-bot/internal/repository"
	"github.com/iliyamo/shift-checklist-bot/internal/utils"
)

// maxListedReports bounds the chat listing; the CSV export has everything.
const maxListedReports = 10

func (f *AdminFlow) handleReportsCommand(ctx context.Context, adminID int64, sess *AdminSession, cmd Command) error {
	switch cmd.Kind {
	case CmdReportsMenu:
		sess.Step = AdminRoot
		return f.reportsMenu(ctx, adminID, sess)

	case CmdReportsList:
		reports := f.Reports.List()
		if len(reports) == 0 {
			return f.Sender.SendText(ctx, adminID, "No reports yet.", nil)
		}
		start := 0
		if len(reports) > maxListedReports {
			start = len(reports) - maxListedReports
		}
		for _, rep := range reports[start:] {
			if err := f.Sender.SendText(ctx, adminID, FormatReport(rep), nil); err != nil {
				return err
			}
		}
		return f.reportsMenu(ctx, adminID, sess)

	case CmdReportsExport:
		data, err := f.Reports.ExportCSV()
		if err != nil {
			return err
		}
		return f.Sender.SendDocument(ctx, adminID, "reports.csv", data, "Report export")

	case CmdReportsLink:
		if f.ExportSecret == "" || f.PublicURL == "" {
			return f.Sender.SendText(ctx, adminID,
				"❌ HTTP export is not configured (EXPORT_SECRET / PUBLIC_URL).", nil)
		}
		tok, err := utils.NewExportToken(f.ExportSecret, adminID, f.ExportTTLMin)
		if err != nil {
			return err
		}
		link := fmt.Sprintf("%s/v1/reports/export.csv?token=%s", strings.TrimRight(f.PublicURL, "/"), tok.Token)
		return f.Sender.SendText(ctx, adminID,
			fmt.Sprintf("⬇️ Download link (valid until %s UTC):\n%s", tok.Exp.Format("15:04"), link), nil)

	case CmdReportsClear:
		sess.Step = AdminConfirmClear
		return f.confirm(ctx, adminID,
			fmt.Sprintf("⚠️ Delete all %d stored reports? This cannot be undone.", f.Reports.Count()))

	case CmdStatsMenu:
		sess.Step = AdminRoot
		return f.statsMenu(ctx, adminID)

	case CmdStatsActivity:
		return f.sendActivityStats(ctx, adminID)

	case CmdStatsCompletion:
		return f.sendCompletionStats(ctx, adminID)

	case CmdPasswordGen:
		sess.Step = AdminConfirmPassword
		return f.confirm(ctx, adminID,
			"⚠️ Generate a new shared password? The old one stops working immediately for everyone.")
	}
	return f.rootMenu(ctx, adminID)
}

func (f *AdminFlow) reportsMenu(ctx context.Context, adminID int64, sess *AdminSession) error {
	rows := [][]botapi.Button{
		{{Label: "📄 List recent", Token: Command{Kind: CmdReportsList}.Encode()}},
		{{Label: "📎 Export CSV", Token: Command{Kind: CmdReportsExport}.Encode()}},
		{{Label: "🔗 Download link", Token: Command{Kind: CmdReportsLink}.Encode()}},
		{{Label: "🗑 Clear all", Token: Command{Kind: CmdReportsClear}.Encode()}},
		backRow(CmdAdminMenu),
	}
	return f.Sender.SendText(ctx, adminID,
		fmt.Sprintf("📊 Reports (%d stored):", f.Reports.Count()), rows)
}

func (f *AdminFlow) statsMenu(ctx context.Context, adminID int64) error {
	rows := [][]botapi.Button{
		{{Label: "👤 Activity per user", Token: Command{Kind: CmdStatsActivity}.Encode()}},
		{{Label: "✅ Completion per checklist", Token: Command{Kind: CmdStatsCompletion}.Encode()}},
		backRow(CmdAdminMenu),
	}
	return f.Sender.SendText(ctx, adminID, "📈 Statistics:", rows)
}

func (f *AdminFlow) sendActivityStats(ctx context.Context, adminID int64) error {
	stats := f.Reports.ActivityStats()
	if len(stats) == 0 {
		return f.Sender.SendText(ctx, adminID, "No completed runs yet.", nil)
	}
	ids := make([]int64, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var b strings.Builder
	b.WriteString("👤 Runs per user:\n")
	for _, id := range ids {
		label := fmt.Sprintf("%d", id)
		if u, ok := f.Users.Get(id); ok && u.DisplayName != "" {
			label = userLabel(u)
		}
		fmt.Fprintf(&b, "• %s — %d\n", label, stats[id])
	}
	return f.Sender.SendText(ctx, adminID, b.String(), nil)
}

func (f *AdminFlow) sendCompletionStats(ctx context.Context, adminID int64) error {
	stats := f.Reports.CompletionStats()
	if len(stats) == 0 {
		return f.Sender.SendText(ctx, adminID, "No completed runs yet.", nil)
	}
	byLabel := make(map[string]repository.CompletionStat, len(stats))
	labels := make([]string, 0, len(stats))
	for k, s := range stats {
		label := k.Role + " / " + k.Checklist
		byLabel[label] = s
		labels = append(labels, label)
	}
	sort.Strings(labels)
	var b strings.Builder
	b.WriteString("✅ Fully-done runs per checklist:\n")
	for _, label := range labels {
		s := byLabel[label]
		fmt.Fprintf(&b, "• %s — %d of %d\n", label, s.Completed, s.Total)
	}
	return f.Sender.SendText(ctx, adminID, b.String(), nil)
}

func (f *AdminFlow) confirmClearReports(ctx context.Context, adminID int64, sess *AdminSession) error {
	if err := f.Reports.Clear(ctx); err != nil {
		return err
	}
	sess.Step = AdminRoot
	if err := f.Sender.SendText(ctx, adminID, "✅ All reports deleted.", nil); err != nil {
		return err
	}
	return f.reportsMenu(ctx, adminID, sess)
}

// confirmPasswordRotation generates a fresh shared password, persists its
// hash and shows the plaintext exactly once. There is no grace period at
// the gate; runs already past authentication are unaffected.
func (f *AdminFlow) confirmPasswordRotation(ctx context.Context, adminID int64, sess *AdminSession) error {
	pw, err := utils.GeneratePassword()
	if err != nil {
		return err
	}
	if err := f.Secret.Rotate(ctx, pw); err != nil {
		return err
	}
	sess.Step = AdminRoot
	if err := f.Sender.SendText(ctx, adminID,
		fmt.Sprintf("🔑 New shared password (shown once):\n%s", pw), nil); err != nil {
		return err
	}
	return f.rootMenu(ctx, adminID)
}
