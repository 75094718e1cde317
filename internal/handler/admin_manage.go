package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/iliyamo/shift-checklist-bot/internal/botapi"
	"github.com/iliyamo/shift-checklist-bot/internal/model"
	"github.com/iliyamo/shift-checklist-bot/internal/repository"
)

func userLabel(u model.UserRecord) string {
	if u.DisplayName != "" {
		return fmt.Sprintf("%s (%d)", u.DisplayName, u.ID)
	}
	return strconv.FormatInt(u.ID, 10)
}

// --- assignment management ---

func (f *AdminFlow) handleAssignCommand(ctx context.Context, adminID int64, sess *AdminSession, cmd Command) error {
	switch cmd.Kind {
	case CmdAssignMenu:
		sess.Step = AdminAssignPickUser
		return f.assignMenu(ctx, adminID)

	case CmdAssignUser:
		sess.TargetUser = cmd.ID
		sess.Step = AdminAssignPickRole
		roles := f.Catalog.Roles()
		if len(roles) == 0 {
			sess.Step = AdminRoot
			if err := f.Sender.SendText(ctx, adminID, "❌ The catalog is empty, nothing to assign.", nil); err != nil {
				return err
			}
			return f.rootMenu(ctx, adminID)
		}
		var rows [][]botapi.Button
		for _, r := range roles {
			rows = append(rows, []botapi.Button{{
				Label: r,
				Token: Command{Kind: CmdAssignRole, Name: r}.Encode(),
			}})
		}
		rows = append(rows, backRow(CmdAssignMenu))
		return f.Sender.SendText(ctx, adminID, "Pick the role to assign:", rows)

	case CmdAssignRole:
		names, err := f.Catalog.Checklists(cmd.Name)
		if err != nil || len(names) == 0 {
			if err := f.Sender.SendText(ctx, adminID, "❌ That role has no checklists.", nil); err != nil {
				return err
			}
			sess.Step = AdminAssignPickUser
			return f.assignMenu(ctx, adminID)
		}
		sess.Role = cmd.Name
		sess.Step = AdminAssignPickList
		var rows [][]botapi.Button
		for _, n := range names {
			rows = append(rows, []botapi.Button{{
				Label: n,
				Token: Command{Kind: CmdAssignList, Name: n}.Encode(),
			}})
		}
		rows = append(rows, backRow(CmdAssignMenu))
		return f.Sender.SendText(ctx, adminID,
			fmt.Sprintf("Pick the checklist under %s:", cmd.Name), rows)

	case CmdAssignList:
		if !f.Catalog.HasChecklist(sess.Role, cmd.Name) {
			if err := f.Sender.SendText(ctx, adminID, "❌ Checklist not found anymore.", nil); err != nil {
				return err
			}
			sess.Step = AdminAssignPickUser
			return f.assignMenu(ctx, adminID)
		}
		// Unconditional overwrite: last assignment wins.
		if err := f.Assignments.Set(ctx, sess.TargetUser, model.Assignment{
			Role:      sess.Role,
			Checklist: cmd.Name,
		}); err != nil {
			return err
		}
		sess.Step = AdminRoot
		if err := f.Sender.SendText(ctx, adminID,
			fmt.Sprintf("✅ Assigned %q / %q to user %d.", sess.Role, cmd.Name, sess.TargetUser), nil); err != nil {
			return err
		}
		return f.rootMenu(ctx, adminID)

	case CmdAssignRemove:
		if err := f.Assignments.Remove(ctx, cmd.ID); err != nil {
			return err
		}
		if err := f.Sender.SendText(ctx, adminID,
			fmt.Sprintf("✅ Assignment of user %d removed.", cmd.ID), nil); err != nil {
			return err
		}
		sess.Step = AdminAssignPickUser
		return f.assignMenu(ctx, adminID)
	}
	return f.rootMenu(ctx, adminID)
}

func (f *AdminFlow) assignMenu(ctx context.Context, adminID int64) error {
	users := f.Users.All()
	if len(users) == 0 {
		return f.Sender.SendText(ctx, adminID,
			"No users have talked to the bot yet. Add one under 👥 Users first.", [][]botapi.Button{backRow(CmdAdminMenu)})
	}
	assignments := f.Assignments.All()
	var b strings.Builder
	b.WriteString("📌 Assignments — pick a user:\n")
	var rows [][]botapi.Button
	for _, u := range users {
		if a, ok := assignments[u.ID]; ok {
			fmt.Fprintf(&b, "• %s → %s / %s\n", userLabel(u), a.Role, a.Checklist)
			rows = append(rows, []botapi.Button{
				{Label: userLabel(u), Token: Command{Kind: CmdAssignUser, ID: u.ID}.Encode()},
				{Label: "❌ Unassign", Token: Command{Kind: CmdAssignRemove, ID: u.ID}.Encode()},
			})
			continue
		}
		fmt.Fprintf(&b, "• %s → (none)\n", userLabel(u))
		rows = append(rows, []botapi.Button{{
			Label: userLabel(u),
			Token: Command{Kind: CmdAssignUser, ID: u.ID}.Encode(),
		}})
	}
	rows = append(rows, backRow(CmdAdminMenu))
	return f.Sender.SendText(ctx, adminID, b.String(), rows)
}

// --- user / admin management ---

func (f *AdminFlow) handleUsersCommand(ctx context.Context, adminID int64, sess *AdminSession, cmd Command) error {
	switch cmd.Kind {
	case CmdUsersMenu:
		sess.Step = AdminRoot
		return f.usersMenu(ctx, adminID)
	case CmdUserAdd:
		sess.Step = AdminAwaitUserID
		return f.Sender.SendText(ctx, adminID, "Send the numeric chat ID of the user to register:", nil)
	case CmdUserPromote:
		if err := f.Users.SetAdmin(ctx, cmd.ID, true); err != nil {
			return err
		}
		if err := f.Sender.SendText(ctx, adminID,
			fmt.Sprintf("✅ User %d is now an administrator.", cmd.ID), nil); err != nil {
			return err
		}
		return f.usersMenu(ctx, adminID)
	case CmdUserDemote:
		if f.Users.Allowlisted(cmd.ID) {
			return f.Sender.SendText(ctx, adminID,
				"❌ That user is on the static admin allowlist and cannot be demoted.", nil)
		}
		if err := f.Users.SetAdmin(ctx, cmd.ID, false); err != nil {
			return err
		}
		if err := f.Sender.SendText(ctx, adminID,
			fmt.Sprintf("✅ User %d is no longer an administrator.", cmd.ID), nil); err != nil {
			return err
		}
		return f.usersMenu(ctx, adminID)
	}
	return f.rootMenu(ctx, adminID)
}

func (f *AdminFlow) usersMenu(ctx context.Context, adminID int64) error {
	users := f.Users.All()
	var b strings.Builder
	b.WriteString("👥 Users:\n")
	var rows [][]botapi.Button
	for _, u := range users {
		switch {
		case f.Users.Allowlisted(u.ID):
			fmt.Fprintf(&b, "• %s — 🔒 admin (allowlist)\n", userLabel(u))
		case u.IsAdmin:
			fmt.Fprintf(&b, "• %s — ⭐ admin\n", userLabel(u))
			rows = append(rows, []botapi.Button{{
				Label: "⬇️ Demote " + userLabel(u),
				Token: Command{Kind: CmdUserDemote, ID: u.ID}.Encode(),
			}})
		default:
			fmt.Fprintf(&b, "• %s\n", userLabel(u))
			rows = append(rows, []botapi.Button{{
				Label: "⬆️ Promote " + userLabel(u),
				Token: Command{Kind: CmdUserPromote, ID: u.ID}.Encode(),
			}})
		}
	}
	if len(users) == 0 {
		b.WriteString("(nobody yet)\n")
	}
	rows = append(rows, []botapi.Button{{Label: "➕ Add by ID", Token: Command{Kind: CmdUserAdd}.Encode()}})
	rows = append(rows, backRow(CmdAdminMenu))
	return f.Sender.SendText(ctx, adminID, b.String(), rows)
}

func (f *AdminFlow) handleUserIDText(ctx context.Context, adminID int64, sess *AdminSession, text string) error {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil || id <= 0 {
		return f.Sender.SendText(ctx, adminID, "❌ Send a positive numeric chat ID.", nil)
	}
	if err := f.Users.Touch(ctx, id, ""); err != nil {
		return err
	}
	sess.Step = AdminRoot
	if err := f.Sender.SendText(ctx, adminID, fmt.Sprintf("✅ User %d registered.", id), nil); err != nil {
		return err
	}
	return f.usersMenu(ctx, adminID)
}

// --- notification management ---

func (f *AdminFlow) handleNotifCommand(ctx context.Context, adminID int64, sess *AdminSession, cmd Command) error {
	switch cmd.Kind {
	case CmdNotifMenu:
		sess.Step = AdminRoot
		return f.notifMenu(ctx, adminID)
	case CmdNotifToggle:
		cur := f.Notifications.Get()
		if err := f.Notifications.SetEnabled(ctx, !cur.Enabled); err != nil {
			return err
		}
		return f.notifMenu(ctx, adminID)
	case CmdNotifTime:
		sess.Step = AdminAwaitTime
		return f.Sender.SendText(ctx, adminID, "Send the daily reminder time as HH:MM (24h):", nil)
	case CmdNotifUser:
		cur := f.Notifications.Get()
		enabled := true
		if o, ok := cur.PerUser[cmd.ID]; ok {
			enabled = o.Enabled
		}
		if err := f.Notifications.SetUserEnabled(ctx, cmd.ID, !enabled); err != nil {
			return err
		}
		return f.notifMenu(ctx, adminID)
	}
	return f.rootMenu(ctx, adminID)
}

func (f *AdminFlow) notifMenu(ctx context.Context, adminID int64) error {
	s := f.Notifications.Get()
	state := "off"
	if s.Enabled {
		state = "on"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 Reminders are %s, daily at %s.\n", state, s.ReminderTime)
	toggleLabel := "🔔 Enable"
	if s.Enabled {
		toggleLabel = "🔕 Disable"
	}
	rows := [][]botapi.Button{
		{{Label: toggleLabel, Token: Command{Kind: CmdNotifToggle}.Encode()}},
		{{Label: "🕘 Set time", Token: Command{Kind: CmdNotifTime}.Encode()}},
	}
	// Per-user overrides for everyone holding an assignment.
	for _, id := range f.Assignments.UserIDs() {
		label := strconv.FormatInt(id, 10)
		if u, ok := f.Users.Get(id); ok && u.DisplayName != "" {
			label = userLabel(u)
		}
		mark := "🔔"
		if o, ok := s.PerUser[id]; ok && !o.Enabled {
			mark = "🔕"
		}
		rows = append(rows, []botapi.Button{{
			Label: mark + " " + label,
			Token: Command{Kind: CmdNotifUser, ID: id}.Encode(),
		}})
	}
	rows = append(rows, backRow(CmdAdminMenu))
	return f.Sender.SendText(ctx, adminID, b.String(), rows)
}

func (f *AdminFlow) handleTimeText(ctx context.Context, adminID int64, sess *AdminSession, text string) error {
	if err := f.Notifications.SetTime(ctx, text); err != nil {
		if err == repository.ErrBadTime {
			return f.Sender.SendText(ctx, adminID, "❌ That is not a valid HH:MM time. Try again:", nil)
		}
		return err
	}
	sess.Step = AdminRoot
	if err := f.Sender.SendText(ctx, adminID, fmt.Sprintf("✅ Reminder time set to %s.", text), nil); err != nil {
		return err
	}
	return f.notifMenu(ctx, adminID)
}
