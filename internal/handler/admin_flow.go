package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iliyamo/shift-checklist-bot/internal/botapi"
	"github.com/iliyamo/shift-checklist-bot/internal/repository"
)

// AdminFlow is the privileged conversation machine: catalog editing,
// assignment and user management, notification settings, reports,
// statistics and password rotation. Every entry re-checks the admin
// predicate; the dispatcher checks it too, but an admin flag can be
// revoked mid-conversation.
type AdminFlow struct {
	Sessions      *Sessions
	Catalog       *repository.CatalogRepo
	Assignments   *repository.AssignmentRepo
	Users         *repository.UserRepo
	Reports       *repository.ReportRepo
	Notifications *repository.NotificationRepo
	Secret        *repository.SecretRepo
	Sender        botapi.Sender
	ExportSecret  string
	ExportTTLMin  int
	PublicURL     string
}

const msgDenied = "❌ You don't have permission to use this."

// Start opens the admin menu for /admin.
func (f *AdminFlow) Start(ctx context.Context, adminID int64) error {
	if !f.Users.IsAdmin(adminID) {
		return f.Sender.SendText(ctx, adminID, msgDenied, nil)
	}
	f.Sessions.SetAdmin(adminID, &AdminSession{Step: AdminRoot})
	return f.rootMenu(ctx, adminID)
}

// Stop leaves the admin machine (the /cancel command).
func (f *AdminFlow) Stop(ctx context.Context, adminID int64) error {
	f.Sessions.ClearAdmin(adminID)
	return f.Sender.SendText(ctx, adminID, "Left the admin menu.", nil)
}

// HandleCommand processes a decoded admin button press.
func (f *AdminFlow) HandleCommand(ctx context.Context, adminID int64, cmd Command) error {
	if !f.Users.IsAdmin(adminID) {
		return f.Sender.SendText(ctx, adminID, msgDenied, nil)
	}
	sess, ok := f.Sessions.Admin(adminID)
	if !ok {
		// Button pressed after a restart cleared the session: reopen the
		// menu instead of failing.
		sess = &AdminSession{Step: AdminRoot}
		f.Sessions.SetAdmin(adminID, sess)
	}

	switch cmd.Kind {
	case CmdAdminMenu:
		sess.Step = AdminRoot
		return f.rootMenu(ctx, adminID)

	// --- catalog editing ---
	case CmdRolesMenu:
		sess.Step = AdminRoles
		return f.rolesMenu(ctx, adminID)
	case CmdRoleAdd:
		sess.Step = AdminAwaitRoleName
		return f.Sender.SendText(ctx, adminID, "Enter the name for the new role:", nil)
	case CmdRoleSelect:
		if _, err := f.Catalog.Checklists(cmd.Name); err != nil {
			if err := f.Sender.SendText(ctx, adminID, "❌ Role not found.", nil); err != nil {
				return err
			}
			sess.Step = AdminRoles
			return f.rolesMenu(ctx, adminID)
		}
		sess.Role = cmd.Name
		sess.Step = AdminLists
		return f.listsMenu(ctx, adminID, sess)
	case CmdRoleRename:
		sess.Role = cmd.Name
		sess.Step = AdminAwaitRoleRename
		return f.Sender.SendText(ctx, adminID,
			fmt.Sprintf("Enter the new name for role %q:", cmd.Name), nil)
	case CmdRoleDelete:
		sess.Role = cmd.Name
		sess.Step = AdminConfirmRoleDel
		return f.confirm(ctx, adminID,
			fmt.Sprintf("⚠️ Delete role %q and all its checklists?", cmd.Name))
	case CmdListAdd:
		if sess.Role == "" {
			sess.Step = AdminRoles
			return f.rolesMenu(ctx, adminID)
		}
		sess.Step = AdminAwaitListName
		return f.Sender.SendText(ctx, adminID,
			fmt.Sprintf("Enter the name for the new checklist under %q:", sess.Role), nil)
	case CmdListSelect:
		if !f.Catalog.HasChecklist(sess.Role, cmd.Name) {
			if err := f.Sender.SendText(ctx, adminID, "❌ Checklist not found.", nil); err != nil {
				return err
			}
			sess.Step = AdminLists
			return f.listsMenu(ctx, adminID, sess)
		}
		sess.Checklist = cmd.Name
		sess.Step = AdminTasks
		return f.tasksMenu(ctx, adminID, sess)
	case CmdListRename:
		if sess.Checklist == "" {
			sess.Step = AdminLists
			return f.listsMenu(ctx, adminID, sess)
		}
		sess.Step = AdminAwaitListRename
		return f.Sender.SendText(ctx, adminID,
			fmt.Sprintf("Enter the new name for checklist %q:", sess.Checklist), nil)
	case CmdListDelete:
		if sess.Checklist == "" {
			sess.Step = AdminLists
			return f.listsMenu(ctx, adminID, sess)
		}
		sess.Step = AdminConfirmListDel
		return f.confirm(ctx, adminID,
			fmt.Sprintf("⚠️ Delete checklist %q? Assignments pointing at it will be removed.", sess.Checklist))
	case CmdTaskAdd:
		if sess.Checklist == "" {
			sess.Step = AdminLists
			return f.listsMenu(ctx, adminID, sess)
		}
		sess.Step = AdminAwaitTaskText
		return f.Sender.SendText(ctx, adminID, "Send the text of the new task:", nil)
	case CmdTaskEdit:
		sess.TaskIndex = cmd.Index
		sess.Step = AdminAwaitTaskEdit
		return f.Sender.SendText(ctx, adminID,
			fmt.Sprintf("Send the new text for task %d:", cmd.Index+1), nil)
	case CmdTaskDelete:
		sess.TaskIndex = cmd.Index
		sess.Step = AdminConfirmTaskDel
		return f.confirm(ctx, adminID,
			fmt.Sprintf("⚠️ Delete task %d of %q?", cmd.Index+1, sess.Checklist))

	case CmdConfirmYes:
		return f.handleConfirm(ctx, adminID, sess)
	case CmdConfirmNo:
		return f.cancelConfirm(ctx, adminID, sess)

	// --- other top-level flows ---
	case CmdAssignMenu, CmdAssignUser, CmdAssignRole, CmdAssignList, CmdAssignRemove:
		return f.handleAssignCommand(ctx, adminID, sess, cmd)
	case CmdUsersMenu, CmdUserAdd, CmdUserPromote, CmdUserDemote:
		return f.handleUsersCommand(ctx, adminID, sess, cmd)
	case CmdNotifMenu, CmdNotifToggle, CmdNotifTime, CmdNotifUser:
		return f.handleNotifCommand(ctx, adminID, sess, cmd)
	case CmdReportsMenu, CmdReportsList, CmdReportsExport, CmdReportsLink, CmdReportsClear,
		CmdStatsMenu, CmdStatsActivity, CmdStatsCompletion, CmdPasswordGen:
		return f.handleReportsCommand(ctx, adminID, sess, cmd)
	}
	return f.rootMenu(ctx, adminID)
}

// HandleText processes plain text while an admin session is active. Most
// steps expect button presses; only the Await* steps consume text.
func (f *AdminFlow) HandleText(ctx context.Context, adminID int64, text string) error {
	if !f.Users.IsAdmin(adminID) {
		return f.Sender.SendText(ctx, adminID, msgDenied, nil)
	}
	sess, ok := f.Sessions.Admin(adminID)
	if !ok {
		return f.Start(ctx, adminID)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return f.Sender.SendText(ctx, adminID, "Please send plain text.", nil)
	}

	switch sess.Step {
	case AdminAwaitRoleName:
		err := f.Catalog.AddRole(ctx, text)
		switch {
		case errors.Is(err, repository.ErrExists):
			return f.Sender.SendText(ctx, adminID, "❌ Role already exists!", nil)
		case err != nil:
			return err
		}
		if err := f.Sender.SendText(ctx, adminID, fmt.Sprintf("✅ Role %q created!", text), nil); err != nil {
			return err
		}
		sess.Step = AdminRoles
		return f.rolesMenu(ctx, adminID)

	case AdminAwaitRoleRename:
		old := sess.Role
		err := f.Catalog.RenameRole(ctx, old, text)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return f.Sender.SendText(ctx, adminID, "❌ Original role not found!", nil)
		case errors.Is(err, repository.ErrExists):
			return f.Sender.SendText(ctx, adminID, "❌ Role with this name already exists!", nil)
		case err != nil:
			return err
		}
		if _, err := f.Assignments.RetargetRole(ctx, old, text); err != nil {
			return err
		}
		if err := f.Sender.SendText(ctx, adminID,
			fmt.Sprintf("✅ Role renamed from %q to %q!", old, text), nil); err != nil {
			return err
		}
		sess.Step = AdminRoles
		return f.rolesMenu(ctx, adminID)

	case AdminAwaitListName:
		err := f.Catalog.AddChecklist(ctx, sess.Role, text)
		switch {
		case errors.Is(err, repository.ErrExists):
			return f.Sender.SendText(ctx, adminID, "❌ Checklist already exists!", nil)
		case err != nil:
			return err
		}
		if err := f.Sender.SendText(ctx, adminID, fmt.Sprintf("✅ Checklist %q created!", text), nil); err != nil {
			return err
		}
		sess.Step = AdminLists
		return f.listsMenu(ctx, adminID, sess)

	case AdminAwaitListRename:
		old := sess.Checklist
		err := f.Catalog.RenameChecklist(ctx, sess.Role, old, text)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return f.Sender.SendText(ctx, adminID, "❌ Checklist not found anymore.", nil)
		case errors.Is(err, repository.ErrExists):
			return f.Sender.SendText(ctx, adminID, "❌ A checklist with this name already exists!", nil)
		case err != nil:
			return err
		}
		if _, err := f.Assignments.Retarget(ctx, sess.Role, old, text); err != nil {
			return err
		}
		sess.Checklist = text
		sess.Step = AdminTasks
		if err := f.Sender.SendText(ctx, adminID,
			fmt.Sprintf("✅ Checklist renamed to %q. Assignments were updated.", text), nil); err != nil {
			return err
		}
		return f.tasksMenu(ctx, adminID, sess)

	case AdminAwaitTaskText:
		if sess.Checklist == "" {
			sess.Step = AdminLists
			return f.listsMenu(ctx, adminID, sess)
		}
		if err := f.Catalog.AddTask(ctx, sess.Role, sess.Checklist, text); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return f.Sender.SendText(ctx, adminID, "❌ Checklist not found anymore.", nil)
			}
			return err
		}
		sess.Step = AdminTasks
		if err := f.Sender.SendText(ctx, adminID, "✅ Task added!", nil); err != nil {
			return err
		}
		return f.tasksMenu(ctx, adminID, sess)

	case AdminAwaitTaskEdit:
		err := f.Catalog.UpdateTask(ctx, sess.Role, sess.Checklist, sess.TaskIndex, text)
		switch {
		case errors.Is(err, repository.ErrIndexOutOfRange):
			return f.Sender.SendText(ctx, adminID, "❌ That task no longer exists.", nil)
		case errors.Is(err, repository.ErrNotFound):
			return f.Sender.SendText(ctx, adminID, "❌ Checklist not found anymore.", nil)
		case err != nil:
			return err
		}
		sess.Step = AdminTasks
		if err := f.Sender.SendText(ctx, adminID, "✅ Task updated!", nil); err != nil {
			return err
		}
		return f.tasksMenu(ctx, adminID, sess)

	case AdminAwaitUserID:
		return f.handleUserIDText(ctx, adminID, sess, text)
	case AdminAwaitTime:
		return f.handleTimeText(ctx, adminID, sess, text)
	}
	return f.Sender.SendText(ctx, adminID, "Use the buttons, or /cancel to leave the admin menu.", nil)
}

// handleConfirm commits whichever destructive action the session is
// parked on. Preconditions are re-validated by the store at commit time;
// a reference that vanished in the meantime surfaces as an error message,
// not a crash.
func (f *AdminFlow) handleConfirm(ctx context.Context, adminID int64, sess *AdminSession) error {
	switch sess.Step {
	case AdminConfirmRoleDel:
		role := sess.Role
		err := f.Catalog.DeleteRole(ctx, role)
		if errors.Is(err, repository.ErrNotFound) {
			sess.Step = AdminRoles
			if err := f.Sender.SendText(ctx, adminID, "❌ Role not found!", nil); err != nil {
				return err
			}
			return f.rolesMenu(ctx, adminID)
		}
		if err != nil {
			return err
		}
		if _, err := f.Assignments.RemoveByRole(ctx, role); err != nil {
			return err
		}
		sess.Step = AdminRoles
		sess.Role = ""
		if err := f.Sender.SendText(ctx, adminID,
			fmt.Sprintf("✅ Role %q and all its checklists have been deleted.", role), nil); err != nil {
			return err
		}
		return f.rolesMenu(ctx, adminID)

	case AdminConfirmListDel:
		name := sess.Checklist
		err := f.Catalog.DeleteChecklist(ctx, sess.Role, name)
		if errors.Is(err, repository.ErrNotFound) {
			sess.Step = AdminLists
			if err := f.Sender.SendText(ctx, adminID, "❌ Checklist not found!", nil); err != nil {
				return err
			}
			return f.listsMenu(ctx, adminID, sess)
		}
		if err != nil {
			return err
		}
		if _, err := f.Assignments.RemoveByChecklist(ctx, sess.Role, name); err != nil {
			return err
		}
		sess.Checklist = ""
		sess.Step = AdminLists
		if err := f.Sender.SendText(ctx, adminID,
			fmt.Sprintf("✅ Checklist %q deleted. Assignments pointing at it were removed.", name), nil); err != nil {
			return err
		}
		return f.listsMenu(ctx, adminID, sess)

	case AdminConfirmTaskDel:
		err := f.Catalog.DeleteTask(ctx, sess.Role, sess.Checklist, sess.TaskIndex)
		switch {
		case errors.Is(err, repository.ErrIndexOutOfRange):
			if err := f.Sender.SendText(ctx, adminID, "❌ That task no longer exists.", nil); err != nil {
				return err
			}
		case errors.Is(err, repository.ErrNotFound):
			if err := f.Sender.SendText(ctx, adminID, "❌ Checklist not found anymore.", nil); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := f.Sender.SendText(ctx, adminID, "✅ Task deleted!", nil); err != nil {
				return err
			}
		}
		sess.Step = AdminTasks
		return f.tasksMenu(ctx, adminID, sess)

	case AdminConfirmClear:
		return f.confirmClearReports(ctx, adminID, sess)
	case AdminConfirmPassword:
		return f.confirmPasswordRotation(ctx, adminID, sess)
	}
	sess.Step = AdminRoot
	return f.rootMenu(ctx, adminID)
}

// cancelConfirm discards a pending destructive action and returns to the
// parent editor without mutating anything.
func (f *AdminFlow) cancelConfirm(ctx context.Context, adminID int64, sess *AdminSession) error {
	if err := f.Sender.SendText(ctx, adminID, "Cancelled.", nil); err != nil {
		return err
	}
	switch sess.Step {
	case AdminConfirmTaskDel:
		sess.Step = AdminTasks
		return f.tasksMenu(ctx, adminID, sess)
	case AdminConfirmListDel:
		sess.Step = AdminTasks
		if sess.Checklist == "" || !f.Catalog.HasChecklist(sess.Role, sess.Checklist) {
			sess.Step = AdminLists
			return f.listsMenu(ctx, adminID, sess)
		}
		return f.tasksMenu(ctx, adminID, sess)
	case AdminConfirmRoleDel:
		sess.Step = AdminRoles
		return f.rolesMenu(ctx, adminID)
	case AdminConfirmClear:
		sess.Step = AdminRoot
		return f.reportsMenu(ctx, adminID, sess)
	}
	sess.Step = AdminRoot
	return f.rootMenu(ctx, adminID)
}

// --- menus ---

func backRow(kind CommandKind) []botapi.Button {
	return []botapi.Button{{Label: "⬅️ Back", Token: Command{Kind: kind}.Encode()}}
}

func (f *AdminFlow) confirm(ctx context.Context, adminID int64, question string) error {
	rows := [][]botapi.Button{{
		{Label: "✅ Yes", Token: Command{Kind: CmdConfirmYes}.Encode()},
		{Label: "❌ Cancel", Token: Command{Kind: CmdConfirmNo}.Encode()},
	}}
	return f.Sender.SendText(ctx, adminID, question, rows)
}

func (f *AdminFlow) rootMenu(ctx context.Context, adminID int64) error {
	rows := [][]botapi.Button{
		{{Label: "📝 Checklists", Token: Command{Kind: CmdRolesMenu}.Encode()}},
		{{Label: "📌 Assignments", Token: Command{Kind: CmdAssignMenu}.Encode()}},
		{{Label: "👥 Users", Token: Command{Kind: CmdUsersMenu}.Encode()}},
		{{Label: "🔔 Notifications", Token: Command{Kind: CmdNotifMenu}.Encode()}},
		{{Label: "📊 Reports", Token: Command{Kind: CmdReportsMenu}.Encode()}},
		{{Label: "📈 Statistics", Token: Command{Kind: CmdStatsMenu}.Encode()}},
		{{Label: "🔑 New password", Token: Command{Kind: CmdPasswordGen}.Encode()}},
	}
	return f.Sender.SendText(ctx, adminID, "🛠 Admin menu:", rows)
}

func (f *AdminFlow) rolesMenu(ctx context.Context, adminID int64) error {
	var rows [][]botapi.Button
	for _, role := range f.Catalog.Roles() {
		rows = append(rows, []botapi.Button{{
			Label: role,
			Token: Command{Kind: CmdRoleSelect, Name: role}.Encode(),
		}})
		rows = append(rows, []botapi.Button{
			{Label: "✏️ Rename", Token: Command{Kind: CmdRoleRename, Name: role}.Encode()},
			{Label: "🗑 Delete", Token: Command{Kind: CmdRoleDelete, Name: role}.Encode()},
		})
	}
	rows = append(rows, []botapi.Button{{Label: "➕ Add role", Token: Command{Kind: CmdRoleAdd}.Encode()}})
	rows = append(rows, backRow(CmdAdminMenu))
	return f.Sender.SendText(ctx, adminID, "👤 Role management:", rows)
}

func (f *AdminFlow) listsMenu(ctx context.Context, adminID int64, sess *AdminSession) error {
	names, err := f.Catalog.Checklists(sess.Role)
	if err != nil {
		sess.Step = AdminRoles
		if err := f.Sender.SendText(ctx, adminID, "❌ Role not found.", nil); err != nil {
			return err
		}
		return f.rolesMenu(ctx, adminID)
	}
	var rows [][]botapi.Button
	for _, n := range names {
		rows = append(rows, []botapi.Button{{
			Label: n,
			Token: Command{Kind: CmdListSelect, Name: n}.Encode(),
		}})
	}
	rows = append(rows, []botapi.Button{{Label: "➕ Add checklist", Token: Command{Kind: CmdListAdd}.Encode()}})
	rows = append(rows, backRow(CmdRolesMenu))
	return f.Sender.SendText(ctx, adminID, fmt.Sprintf("Checklists for %s:", sess.Role), rows)
}

func (f *AdminFlow) tasksMenu(ctx context.Context, adminID int64, sess *AdminSession) error {
	tasks, err := f.Catalog.Tasks(sess.Role, sess.Checklist)
	if err != nil {
		sess.Step = AdminLists
		if err := f.Sender.SendText(ctx, adminID, "❌ Checklist not found anymore.", nil); err != nil {
			return err
		}
		return f.listsMenu(ctx, adminID, sess)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 %s / %s\n", sess.Role, sess.Checklist)
	if len(tasks) == 0 {
		b.WriteString("(no tasks yet)\n")
	}
	for i, t := range tasks {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}
	var rows [][]botapi.Button
	for i := range tasks {
		rows = append(rows, []botapi.Button{
			{Label: "✏️ " + strconv.Itoa(i+1), Token: Command{Kind: CmdTaskEdit, Index: i}.Encode()},
			{Label: "🗑 " + strconv.Itoa(i+1), Token: Command{Kind: CmdTaskDelete, Index: i}.Encode()},
		})
	}
	rows = append(rows, []botapi.Button{{Label: "➕ Add task", Token: Command{Kind: CmdTaskAdd}.Encode()}})
	rows = append(rows, []botapi.Button{
		{Label: "✏️ Rename checklist", Token: Command{Kind: CmdListRename}.Encode()},
		{Label: "🗑 Delete checklist", Token: Command{Kind: CmdListDelete}.Encode()},
	})
	// Back goes to the checklist menu of the current role.
	rows = append(rows, []botapi.Button{{
		Label: "⬅️ Back",
		Token: Command{Kind: CmdRoleSelect, Name: sess.Role}.Encode(),
	}})
	return f.Sender.SendText(ctx, adminID, b.String(), rows)
}
