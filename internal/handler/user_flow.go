package handler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/shift-checklist-bot/internal/botapi"
	"github.com/iliyamo/shift-checklist-bot/internal/model"
	"github.com/iliyamo/shift-checklist-bot/internal/repository"
)

// ReportPublisher emits the audit event for a completed run. Publishing
// is best-effort; a broker outage must never fail the run.
type ReportPublisher interface {
	PublishReportCompleted(ctx context.Context, rep model.Report) error
}

// UserFlow is the staff-side conversation machine: password gate, name
// entry, checklist selection (assigned or self-service) and the
// sequential task walk ending in a report.
type UserFlow struct {
	Sessions    *Sessions
	Catalog     *repository.CatalogRepo
	Assignments *repository.AssignmentRepo
	Users       *repository.UserRepo
	Reports     *repository.ReportRepo
	Secret      *repository.SecretRepo
	Sender      botapi.Sender
	Publisher   ReportPublisher // optional
	SelfService bool
}

const (
	msgWrongPassword  = "❌ Wrong password. Try again."
	msgAskName        = "✅ Password accepted! What's your name?"
	msgAskNameAgain   = "Please send me your name as plain text."
	msgNoAssignment   = "You have no checklist assigned. Ask an administrator to assign one, then start again."
	msgEmptyChecklist = "Your checklist has no tasks yet. Ask an administrator to fill it in."
	msgUseButtons     = "Please answer with the buttons under the task."
	msgSessionExpired = "Your session has expired. Send the password to start again."
)

// HandleText processes a plain message from a user outside the admin
// machine.
func (f *UserFlow) HandleText(ctx context.Context, userID int64, text string) error {
	text = strings.TrimSpace(text)
	sess, ok := f.Sessions.User(userID)
	if !ok {
		// Unauthenticated: the only accepted input is the shared password.
		if !f.Secret.Verify(text) {
			return f.Sender.SendText(ctx, userID, msgWrongPassword, nil)
		}
		f.Sessions.SetUser(userID, &UserSession{Step: StepName})
		return f.Sender.SendText(ctx, userID, msgAskName, nil)
	}

	switch sess.Step {
	case StepName:
		if text == "" {
			return f.Sender.SendText(ctx, userID, msgAskNameAgain, nil)
		}
		if err := f.Users.Touch(ctx, userID, text); err != nil {
			return err
		}
		sess.Name = text
		return f.afterName(ctx, userID, sess)
	case StepPickRole, StepPickChecklist:
		// Typed text while a picker is open: show the picker again.
		return f.promptSelection(ctx, userID, sess)
	case StepTask:
		return f.Sender.SendText(ctx, userID, msgUseButtons, nil)
	}
	return f.Sender.SendText(ctx, userID, msgSessionExpired, nil)
}

// HandleCommand processes a decoded button press from the user machine.
func (f *UserFlow) HandleCommand(ctx context.Context, userID int64, cmd Command) error {
	sess, ok := f.Sessions.User(userID)
	if !ok {
		// Stale button from a cleared or never-started session.
		return f.Sender.SendText(ctx, userID, msgSessionExpired, nil)
	}

	switch cmd.Kind {
	case CmdPickRole:
		if sess.Step != StepPickRole {
			return f.promptSelection(ctx, userID, sess)
		}
		if _, err := f.Catalog.Checklists(cmd.Name); err != nil {
			if err := f.Sender.SendText(ctx, userID, "That role is gone. Pick another one.", nil); err != nil {
				return err
			}
			return f.promptSelection(ctx, userID, sess)
		}
		sess.Role = cmd.Name
		sess.Step = StepPickChecklist
		return f.promptSelection(ctx, userID, sess)

	case CmdPickChecklist:
		if sess.Step != StepPickChecklist {
			return f.promptSelection(ctx, userID, sess)
		}
		tasks, err := f.Catalog.Tasks(sess.Role, cmd.Name)
		if err != nil {
			if err := f.Sender.SendText(ctx, userID, "That checklist is gone. Pick another one.", nil); err != nil {
				return err
			}
			sess.Step = StepPickRole
			return f.promptSelection(ctx, userID, sess)
		}
		return f.startWalk(ctx, userID, sess, cmd.Name, tasks)

	case CmdRunDone, CmdRunNotDone:
		if sess.Step != StepTask {
			return f.Sender.SendText(ctx, userID, msgSessionExpired, nil)
		}
		outcome := model.OutcomeDone
		if cmd.Kind == CmdRunNotDone {
			outcome = model.OutcomeNotDone
		}
		sess.Results = append(sess.Results, model.TaskResult{
			Task:    sess.Tasks[sess.Index],
			Outcome: outcome,
		})
		sess.Index++
		if sess.Index < len(sess.Tasks) {
			return f.sendTask(ctx, userID, sess)
		}
		return f.complete(ctx, userID, sess)
	}
	return f.Sender.SendText(ctx, userID, msgSessionExpired, nil)
}

// afterName decides where the user goes after the name entry: an intact
// assignment wins; otherwise the self-service picker or the "nothing
// assigned" notice, depending on configuration. A dangling assignment
// (checklist deleted since it was made) degrades to the no-assignment
// path instead of failing the session.
func (f *UserFlow) afterName(ctx context.Context, userID int64, sess *UserSession) error {
	if a, ok := f.Assignments.Get(userID); ok {
		tasks, err := f.Catalog.Tasks(a.Role, a.Checklist)
		if err == nil {
			sess.Role = a.Role
			return f.startWalk(ctx, userID, sess, a.Checklist, tasks)
		}
		log.Printf("user-flow: assignment of %d points at missing %q/%q", userID, a.Role, a.Checklist)
	}
	if !f.SelfService {
		f.Sessions.ClearUser(userID)
		return f.Sender.SendText(ctx, userID, msgNoAssignment, nil)
	}
	sess.Step = StepPickRole
	return f.promptSelection(ctx, userID, sess)
}

// startWalk snapshots the task list into the session and asks the first
// task. An empty checklist ends the session with a notice instead of
// producing an empty report.
func (f *UserFlow) startWalk(ctx context.Context, userID int64, sess *UserSession, checklist string, tasks []string) error {
	if len(tasks) == 0 {
		f.Sessions.ClearUser(userID)
		return f.Sender.SendText(ctx, userID, msgEmptyChecklist, nil)
	}
	sess.Checklist = checklist
	sess.Tasks = tasks
	sess.Index = 0
	sess.Results = sess.Results[:0]
	sess.Step = StepTask
	greeting := fmt.Sprintf("Starting %q (%s) — %d tasks. Answer each one:", checklist, sess.Role, len(tasks))
	if err := f.Sender.SendText(ctx, userID, greeting, nil); err != nil {
		return err
	}
	return f.sendTask(ctx, userID, sess)
}

func (f *UserFlow) promptSelection(ctx context.Context, userID int64, sess *UserSession) error {
	switch sess.Step {
	case StepPickRole:
		roles := f.Catalog.Roles()
		if len(roles) == 0 {
			f.Sessions.ClearUser(userID)
			return f.Sender.SendText(ctx, userID, "No checklists exist yet. Come back later.", nil)
		}
		var rows [][]botapi.Button
		for _, r := range roles {
			rows = append(rows, []botapi.Button{{
				Label: r,
				Token: Command{Kind: CmdPickRole, Name: r}.Encode(),
			}})
		}
		return f.Sender.SendText(ctx, userID, "Pick your role:", rows)
	case StepPickChecklist:
		names, err := f.Catalog.Checklists(sess.Role)
		if err != nil || len(names) == 0 {
			sess.Step = StepPickRole
			if err := f.Sender.SendText(ctx, userID, "That role has no checklists.", nil); err != nil {
				return err
			}
			return f.promptSelection(ctx, userID, sess)
		}
		var rows [][]botapi.Button
		for _, n := range names {
			rows = append(rows, []botapi.Button{{
				Label: n,
				Token: Command{Kind: CmdPickChecklist, Name: n}.Encode(),
			}})
		}
		return f.Sender.SendText(ctx, userID, fmt.Sprintf("Pick a checklist for %s:", sess.Role), rows)
	}
	return nil
}

func (f *UserFlow) sendTask(ctx context.Context, userID int64, sess *UserSession) error {
	text := fmt.Sprintf("Task %d/%d:\n%s", sess.Index+1, len(sess.Tasks), sess.Tasks[sess.Index])
	rows := [][]botapi.Button{{
		{Label: "✅ Done", Token: Command{Kind: CmdRunDone}.Encode()},
		{Label: "❌ Not done", Token: Command{Kind: CmdRunNotDone}.Encode()},
	}}
	return f.Sender.SendText(ctx, userID, text, rows)
}

// complete persists the report, acknowledges the user, fans the report
// out to every admin and publishes the audit event. Fan-out and publish
// are best-effort: one failed admin delivery never blocks the others and
// never fails the user-visible completion.
func (f *UserFlow) complete(ctx context.Context, userID int64, sess *UserSession) error {
	rep := model.Report{
		UserID:    userID,
		UserName:  sess.Name,
		Role:      sess.Role,
		Checklist: sess.Checklist,
		CreatedAt: time.Now().UTC(),
		Results:   append([]model.TaskResult(nil), sess.Results...),
	}
	f.Sessions.ClearUser(userID)
	if err := f.Reports.Append(ctx, rep); err != nil {
		return err
	}
	if err := f.Sender.SendText(ctx, userID, "🎉 Checklist complete. Thank you!", nil); err != nil {
		log.Printf("user-flow: completion ack to %d failed: %v", userID, err)
	}

	text := FormatReport(rep)
	for _, adminID := range f.Users.AdminIDs() {
		if err := f.Sender.SendText(ctx, adminID, text, nil); err != nil {
			log.Printf("user-flow: report to admin %d failed: %v", adminID, err)
		}
	}
	if f.Publisher != nil {
		if err := f.Publisher.PublishReportCompleted(ctx, rep); err != nil {
			log.Printf("user-flow: publish report event failed: %v", err)
		}
	}
	return nil
}

// FormatReport renders the report text forwarded to administrators.
func FormatReport(rep model.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Report: %s (%s)\n", rep.Checklist, rep.Role)
	fmt.Fprintf(&b, "From: %s (%d)\n", rep.UserName, rep.UserID)
	fmt.Fprintf(&b, "At: %s\n\n", rep.CreatedAt.Format("2006-01-02 15:04"))
	for _, res := range rep.Results {
		mark := "✅"
		if res.Outcome != model.OutcomeDone {
			mark = "❌"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, res.Task)
	}
	return b.String()
}
