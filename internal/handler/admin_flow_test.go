package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shift-checklist-bot/internal/model"
)

const adminID = int64(100)

func startAdmin(t *testing.T, env *testEnv) {
	t.Helper()
	require.NoError(t, env.admin.Start(context.Background(), adminID))
}

func adminPress(t *testing.T, env *testEnv, cmd Command) {
	t.Helper()
	require.NoError(t, env.admin.HandleCommand(context.Background(), adminID, cmd))
}

func adminType(t *testing.T, env *testEnv, text string) {
	t.Helper()
	require.NoError(t, env.admin.HandleText(context.Background(), adminID, text))
}

func TestAdminDeniedForRegularUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, adminID)

	require.NoError(t, env.admin.Start(ctx, 7))
	assert.Equal(t, msgDenied, env.sender.last(t).text)
	_, ok := env.sessions.Admin(7)
	assert.False(t, ok)

	require.NoError(t, env.admin.HandleCommand(ctx, 7, Command{Kind: CmdRolesMenu}))
	assert.Equal(t, msgDenied, env.sender.last(t).text)
}

func TestAdminCreateRoleAndChecklist(t *testing.T) {
	env := newTestEnv(t, adminID)
	startAdmin(t, env)

	adminPress(t, env, Command{Kind: CmdRolesMenu})
	adminPress(t, env, Command{Kind: CmdRoleAdd})
	adminType(t, env, "waiter")
	assert.Equal(t, []string{"waiter"}, env.catalog.Roles())

	// Duplicate names are rejected and the step stays put.
	adminPress(t, env, Command{Kind: CmdRoleAdd})
	adminType(t, env, "waiter")
	assert.Contains(t, env.sender.last(t).text, "already exists")

	adminPress(t, env, Command{Kind: CmdRoleSelect, Name: "waiter"})
	adminPress(t, env, Command{Kind: CmdListAdd})
	adminType(t, env, "opening")
	assert.True(t, env.catalog.HasChecklist("waiter", "opening"))
}

func TestAdminRenameRoleRetargetsAssignments(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, adminID)
	env.seedChecklist(t, "waiter", "opening", "a task")
	require.NoError(t, env.assignments.Set(ctx, 7, model.Assignment{Role: "waiter", Checklist: "opening"}))
	startAdmin(t, env)

	adminPress(t, env, Command{Kind: CmdRoleRename, Name: "waiter"})
	adminType(t, env, "server")

	assert.Equal(t, []string{"server"}, env.catalog.Roles())
	a, ok := env.assignments.Get(7)
	require.True(t, ok)
	assert.Equal(t, "server", a.Role)
}

func TestAdminDeleteRoleConfirmAndCancel(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, adminID)
	env.seedChecklist(t, "waiter", "opening", "a task")
	require.NoError(t, env.assignments.Set(ctx, 7, model.Assignment{Role: "waiter", Checklist: "opening"}))
	startAdmin(t, env)

	// Declining the confirmation changes nothing.
	adminPress(t, env, Command{Kind: CmdRoleDelete, Name: "waiter"})
	adminPress(t, env, Command{Kind: CmdConfirmNo})
	assert.Equal(t, []string{"waiter"}, env.catalog.Roles())
	_, ok := env.assignments.Get(7)
	assert.True(t, ok)

	// Confirming deletes the role and cascades into assignments.
	adminPress(t, env, Command{Kind: CmdRoleDelete, Name: "waiter"})
	adminPress(t, env, Command{Kind: CmdConfirmYes})
	assert.Empty(t, env.catalog.Roles())
	_, ok = env.assignments.Get(7)
	assert.False(t, ok)
}

func TestAdminRenameChecklistRetargetsAssignments(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, adminID)
	env.seedChecklist(t, "waiter", "opening", "a task")
	require.NoError(t, env.assignments.Set(ctx, 7, model.Assignment{Role: "waiter", Checklist: "opening"}))
	startAdmin(t, env)

	adminPress(t, env, Command{Kind: CmdRoleSelect, Name: "waiter"})
	adminPress(t, env, Command{Kind: CmdListSelect, Name: "opening"})
	adminPress(t, env, Command{Kind: CmdListRename})
	adminType(t, env, "morning")

	assert.True(t, env.catalog.HasChecklist("waiter", "morning"))
	a, _ := env.assignments.Get(7)
	assert.Equal(t, "morning", a.Checklist)
}

func TestAdminDeleteChecklistRemovesAssignments(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, adminID)
	env.seedChecklist(t, "waiter", "opening", "a task")
	require.NoError(t, env.assignments.Set(ctx, 7, model.Assignment{Role: "waiter", Checklist: "opening"}))
	startAdmin(t, env)

	adminPress(t, env, Command{Kind: CmdRoleSelect, Name: "waiter"})
	adminPress(t, env, Command{Kind: CmdListSelect, Name: "opening"})
	adminPress(t, env, Command{Kind: CmdListDelete})
	adminPress(t, env, Command{Kind: CmdConfirmYes})

	assert.False(t, env.catalog.HasChecklist("waiter", "opening"))
	_, ok := env.assignments.Get(7)
	assert.False(t, ok)
}

func TestAdminTaskEditing(t *testing.T) {
	env := newTestEnv(t, adminID)
	env.seedChecklist(t, "waiter", "opening", "first", "second")
	startAdmin(t, env)
	adminPress(t, env, Command{Kind: CmdRoleSelect, Name: "waiter"})
	adminPress(t, env, Command{Kind: CmdListSelect, Name: "opening"})

	adminPress(t, env, Command{Kind: CmdTaskAdd})
	adminType(t, env, "third")
	tasks, _ := env.catalog.Tasks("waiter", "opening")
	assert.Equal(t, []string{"first", "second", "third"}, tasks)

	adminPress(t, env, Command{Kind: CmdTaskEdit, Index: 1})
	adminType(t, env, "second, revised")
	tasks, _ = env.catalog.Tasks("waiter", "opening")
	assert.Equal(t, "second, revised", tasks[1])

	adminPress(t, env, Command{Kind: CmdTaskDelete, Index: 0})
	adminPress(t, env, Command{Kind: CmdConfirmYes})
	tasks, _ = env.catalog.Tasks("waiter", "opening")
	assert.Equal(t, []string{"second, revised", "third"}, tasks)
}

func TestAdminTaskEditStaleIndex(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, adminID)
	env.seedChecklist(t, "waiter", "opening", "only task")
	startAdmin(t, env)
	adminPress(t, env, Command{Kind: CmdRoleSelect, Name: "waiter"})
	adminPress(t, env, Command{Kind: CmdListSelect, Name: "opening"})

	// The editor was rendered, then the list shrank behind our back.
	adminPress(t, env, Command{Kind: CmdTaskEdit, Index: 0})
	require.NoError(t, env.catalog.DeleteTask(ctx, "waiter", "opening", 0))
	adminType(t, env, "replacement text")

	assert.Contains(t, env.sender.last(t).text, "no longer exists")
	tasks, _ := env.catalog.Tasks("waiter", "opening")
	assert.Empty(t, tasks)
}

func TestAdminAssignmentFlow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, adminID)
	env.seedChecklist(t, "waiter", "opening", "a task")
	require.NoError(t, env.users.Touch(ctx, 7, "Anna"))
	startAdmin(t, env)

	adminPress(t, env, Command{Kind: CmdAssignMenu})
	adminPress(t, env, Command{Kind: CmdAssignUser, ID: 7})
	adminPress(t, env, Command{Kind: CmdAssignRole, Name: "waiter"})
	adminPress(t, env, Command{Kind: CmdAssignList, Name: "opening"})

	a, ok := env.assignments.Get(7)
	require.True(t, ok)
	assert.Equal(t, model.Assignment{Role: "waiter", Checklist: "opening"}, a)

	adminPress(t, env, Command{Kind: CmdAssignRemove, ID: 7})
	_, ok = env.assignments.Get(7)
	assert.False(t, ok)
}

func TestAdminUserManagement(t *testing.T) {
	env := newTestEnv(t, adminID)
	startAdmin(t, env)

	adminPress(t, env, Command{Kind: CmdUsersMenu})
	adminPress(t, env, Command{Kind: CmdUserAdd})
	adminType(t, env, "12345")
	_, ok := env.users.Get(12345)
	assert.True(t, ok)

	// Junk input re-prompts without creating anything.
	adminPress(t, env, Command{Kind: CmdUserAdd})
	adminType(t, env, "not-a-number")
	assert.Contains(t, env.sender.last(t).text, "numeric")

	adminPress(t, env, Command{Kind: CmdUserPromote, ID: 12345})
	assert.True(t, env.users.IsAdmin(12345))

	adminPress(t, env, Command{Kind: CmdUserDemote, ID: 12345})
	assert.False(t, env.users.IsAdmin(12345))

	// The static allowlist cannot be demoted.
	adminPress(t, env, Command{Kind: CmdUserDemote, ID: adminID})
	assert.True(t, env.users.IsAdmin(adminID))
	assert.Contains(t, env.sender.last(t).text, "allowlist")
}

func TestAdminNotificationSettings(t *testing.T) {
	env := newTestEnv(t, adminID)
	startAdmin(t, env)

	adminPress(t, env, Command{Kind: CmdNotifMenu})
	adminPress(t, env, Command{Kind: CmdNotifToggle})
	assert.True(t, env.notifications.Get().Enabled)

	adminPress(t, env, Command{Kind: CmdNotifTime})
	adminType(t, env, "25:99")
	assert.Contains(t, env.sender.last(t).text, "HH:MM")
	assert.Equal(t, "09:00", env.notifications.Get().ReminderTime)

	adminType(t, env, "21:30")
	assert.Equal(t, "21:30", env.notifications.Get().ReminderTime)

	adminPress(t, env, Command{Kind: CmdNotifUser, ID: 7})
	assert.False(t, env.notifications.EnabledFor(7))
}

func TestAdminClearReports(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, adminID)
	require.NoError(t, env.reports.Append(ctx, model.Report{UserID: 7, UserName: "Anna"}))
	startAdmin(t, env)

	adminPress(t, env, Command{Kind: CmdReportsClear})
	adminPress(t, env, Command{Kind: CmdConfirmNo})
	assert.Equal(t, 1, env.reports.Count())

	adminPress(t, env, Command{Kind: CmdReportsClear})
	adminPress(t, env, Command{Kind: CmdConfirmYes})
	assert.Zero(t, env.reports.Count())
}

func TestAdminExportSendsDocument(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, adminID)
	require.NoError(t, env.reports.Append(ctx, model.Report{
		UserID: 7, UserName: "Anna", Role: "waiter", Checklist: "opening",
		Results: []model.TaskResult{{Task: "a task", Outcome: model.OutcomeDone}},
	}))
	startAdmin(t, env)

	adminPress(t, env, Command{Kind: CmdReportsExport})
	require.Len(t, env.sender.docs, 1)
	doc := env.sender.docs[0]
	assert.Equal(t, "reports.csv", doc.filename)
	assert.Contains(t, string(doc.data), "date,user_id,user_name,role,checklist,task,status")
	assert.Contains(t, string(doc.data), "a task")
}

func TestAdminExportLink(t *testing.T) {
	env := newTestEnv(t, adminID)
	startAdmin(t, env)

	adminPress(t, env, Command{Kind: CmdReportsLink})
	msg := env.sender.last(t).text
	assert.Contains(t, msg, "https://bot.example.com/v1/reports/export.csv?token=")
}

func TestAdminPasswordRotation(t *testing.T) {
	env := newTestEnv(t, adminID)
	startAdmin(t, env)

	adminPress(t, env, Command{Kind: CmdPasswordGen})
	adminPress(t, env, Command{Kind: CmdConfirmNo})
	assert.True(t, env.secret.Verify("hunter2"))

	adminPress(t, env, Command{Kind: CmdPasswordGen})
	adminPress(t, env, Command{Kind: CmdConfirmYes})
	assert.False(t, env.secret.Verify("hunter2"))

	// The fresh password is shown exactly once; extract and verify it.
	var shown string
	for _, m := range env.sender.sentTo(adminID) {
		if idx := len("🔑 New shared password (shown once):\n"); len(m.text) > idx &&
			m.text[:idx] == "🔑 New shared password (shown once):\n" {
			shown = m.text[idx:]
		}
	}
	require.NotEmpty(t, shown)
	assert.True(t, env.secret.Verify(shown))
}
