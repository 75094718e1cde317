package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shift-checklist-bot/internal/botapi"
	"github.com/iliyamo/shift-checklist-bot/internal/model"
	"github.com/iliyamo/shift-checklist-bot/internal/repository"
	"github.com/iliyamo/shift-checklist-bot/internal/storage"
)

const testBcryptCost = 4

type sentMessage struct {
	chatID  int64
	text    string
	buttons [][]botapi.Button
}

type sentDocument struct {
	chatID   int64
	filename string
	data     []byte
	caption  string
}

// fakeSender records outbound traffic for assertions.
type fakeSender struct {
	msgs []sentMessage
	docs []sentDocument
}

func (s *fakeSender) SendText(_ context.Context, chatID int64, text string, buttons [][]botapi.Button) error {
	s.msgs = append(s.msgs, sentMessage{chatID: chatID, text: text, buttons: buttons})
	return nil
}

func (s *fakeSender) SendDocument(_ context.Context, chatID int64, filename string, data []byte, caption string) error {
	s.docs = append(s.docs, sentDocument{chatID: chatID, filename: filename, data: data, caption: caption})
	return nil
}

func (s *fakeSender) last(t *testing.T) sentMessage {
	t.Helper()
	require.NotEmpty(t, s.msgs)
	return s.msgs[len(s.msgs)-1]
}

func (s *fakeSender) sentTo(chatID int64) []sentMessage {
	var out []sentMessage
	for _, m := range s.msgs {
		if m.chatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

type testEnv struct {
	sender        *fakeSender
	sessions      *Sessions
	catalog       *repository.CatalogRepo
	assignments   *repository.AssignmentRepo
	users         *repository.UserRepo
	notifications *repository.NotificationRepo
	reports       *repository.ReportRepo
	secret        *repository.SecretRepo
	user          *UserFlow
	admin         *AdminFlow
}

func newTestEnv(t *testing.T, adminIDs ...int64) *testEnv {
	t.Helper()
	ctx := context.Background()
	backend := storage.NewMemoryBackend()

	catalog, err := repository.NewCatalogRepo(ctx, backend)
	require.NoError(t, err)
	assignments, err := repository.NewAssignmentRepo(ctx, backend)
	require.NoError(t, err)
	users, err := repository.NewUserRepo(ctx, backend, adminIDs)
	require.NoError(t, err)
	notifications, err := repository.NewNotificationRepo(ctx, backend)
	require.NoError(t, err)
	reports, err := repository.NewReportRepo(ctx, backend)
	require.NoError(t, err)
	secret, err := repository.NewSecretRepo(ctx, backend, "hunter2", testBcryptCost)
	require.NoError(t, err)

	sender := &fakeSender{}
	sessions := NewSessions()
	env := &testEnv{
		sender:        sender,
		sessions:      sessions,
		catalog:       catalog,
		assignments:   assignments,
		users:         users,
		notifications: notifications,
		reports:       reports,
		secret:        secret,
	}
	env.user = &UserFlow{
		Sessions:    sessions,
		Catalog:     catalog,
		Assignments: assignments,
		Users:       users,
		Reports:     reports,
		Secret:      secret,
		Sender:      sender,
		SelfService: true,
	}
	env.admin = &AdminFlow{
		Sessions:      sessions,
		Catalog:       catalog,
		Assignments:   assignments,
		Users:         users,
		Reports:       reports,
		Notifications: notifications,
		Secret:        secret,
		Sender:        sender,
		ExportSecret:  "export-secret",
		ExportTTLMin:  15,
		PublicURL:     "https://bot.example.com",
	}
	return env
}

func (e *testEnv) seedChecklist(t *testing.T, role, list string, tasks ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.catalog.AddChecklist(ctx, role, list))
	for _, task := range tasks {
		require.NoError(t, e.catalog.AddTask(ctx, role, list, task))
	}
}

// pressLabeled finds the button with the given label in the last message
// and feeds its token back through the user machine.
func (e *testEnv) pressLabeled(t *testing.T, userID int64, label string) {
	t.Helper()
	last := e.sender.last(t)
	for _, row := range last.buttons {
		for _, b := range row {
			if b.Label == label {
				cmd, ok := ParseCommand(b.Token)
				require.True(t, ok, "token %q", b.Token)
				require.NoError(t, e.user.HandleCommand(context.Background(), userID, cmd))
				return
			}
		}
	}
	t.Fatalf("no button labeled %q in %q", label, last.text)
}

func TestUserPasswordGate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.user.HandleText(ctx, 7, "wrong"))
	assert.Equal(t, msgWrongPassword, env.sender.last(t).text)
	_, ok := env.sessions.User(7)
	assert.False(t, ok)

	require.NoError(t, env.user.HandleText(ctx, 7, "hunter2"))
	assert.Equal(t, msgAskName, env.sender.last(t).text)
	sess, ok := env.sessions.User(7)
	require.True(t, ok)
	assert.Equal(t, StepName, sess.Step)
}

func TestUserSelfServiceFullRun(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 100)
	env.seedChecklist(t, "waiter", "opening", "unlock the door", "turn on lights")

	require.NoError(t, env.user.HandleText(ctx, 7, "hunter2"))
	require.NoError(t, env.user.HandleText(ctx, 7, "Anna"))

	// Role and checklist pickers.
	env.pressLabeled(t, 7, "waiter")
	env.pressLabeled(t, 7, "opening")

	assert.Contains(t, env.sender.last(t).text, "Task 1/2")
	env.pressLabeled(t, 7, "✅ Done")
	assert.Contains(t, env.sender.last(t).text, "Task 2/2")
	env.pressLabeled(t, 7, "❌ Not done")

	// Session gone, report persisted.
	_, ok := env.sessions.User(7)
	assert.False(t, ok)
	reports := env.reports.List()
	require.Len(t, reports, 1)
	rep := reports[0]
	assert.Equal(t, int64(7), rep.UserID)
	assert.Equal(t, "Anna", rep.UserName)
	assert.Equal(t, "waiter", rep.Role)
	assert.Equal(t, "opening", rep.Checklist)
	require.Len(t, rep.Results, 2)
	assert.Equal(t, model.OutcomeDone, rep.Results[0].Outcome)
	assert.Equal(t, model.OutcomeNotDone, rep.Results[1].Outcome)

	// User record captured, report fanned out to the allowlisted admin.
	u, ok := env.users.Get(7)
	require.True(t, ok)
	assert.Equal(t, "Anna", u.DisplayName)
	adminInbox := env.sender.sentTo(100)
	require.NotEmpty(t, adminInbox)
	assert.Contains(t, adminInbox[len(adminInbox)-1].text, "Anna")
}

func TestUserAssignmentSkipsPickers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedChecklist(t, "cook", "closing", "clean the grill")
	require.NoError(t, env.assignments.Set(ctx, 7, model.Assignment{Role: "cook", Checklist: "closing"}))

	require.NoError(t, env.user.HandleText(ctx, 7, "hunter2"))
	require.NoError(t, env.user.HandleText(ctx, 7, "Boris"))

	assert.Contains(t, env.sender.last(t).text, "Task 1/1")
	env.pressLabeled(t, 7, "✅ Done")

	reports := env.reports.List()
	require.Len(t, reports, 1)
	assert.Equal(t, "closing", reports[0].Checklist)
}

func TestUserDanglingAssignmentFallsBackToPicker(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedChecklist(t, "waiter", "opening", "a task")
	require.NoError(t, env.assignments.Set(ctx, 7, model.Assignment{Role: "cook", Checklist: "deleted"}))

	require.NoError(t, env.user.HandleText(ctx, 7, "hunter2"))
	require.NoError(t, env.user.HandleText(ctx, 7, "Anna"))

	assert.Equal(t, "Pick your role:", env.sender.last(t).text)
}

func TestUserNoAssignmentWithoutSelfService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.user.SelfService = false
	env.seedChecklist(t, "waiter", "opening", "a task")

	require.NoError(t, env.user.HandleText(ctx, 7, "hunter2"))
	require.NoError(t, env.user.HandleText(ctx, 7, "Anna"))

	assert.Equal(t, msgNoAssignment, env.sender.last(t).text)
	_, ok := env.sessions.User(7)
	assert.False(t, ok)
}

func TestUserEmptyChecklistEndsRun(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedChecklist(t, "waiter", "opening") // no tasks
	require.NoError(t, env.assignments.Set(ctx, 7, model.Assignment{Role: "waiter", Checklist: "opening"}))

	require.NoError(t, env.user.HandleText(ctx, 7, "hunter2"))
	require.NoError(t, env.user.HandleText(ctx, 7, "Anna"))

	assert.Equal(t, msgEmptyChecklist, env.sender.last(t).text)
	_, ok := env.sessions.User(7)
	assert.False(t, ok)
	assert.Empty(t, env.reports.List())
}

func TestUserStaleButtonWithoutSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.user.HandleCommand(ctx, 7, Command{Kind: CmdRunDone}))
	assert.Equal(t, msgSessionExpired, env.sender.last(t).text)
}

func TestUserTaskSnapshotIgnoresCatalogEdits(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedChecklist(t, "waiter", "opening", "first")
	require.NoError(t, env.assignments.Set(ctx, 7, model.Assignment{Role: "waiter", Checklist: "opening"}))

	require.NoError(t, env.user.HandleText(ctx, 7, "hunter2"))
	require.NoError(t, env.user.HandleText(ctx, 7, "Anna"))
	assert.Contains(t, env.sender.last(t).text, "Task 1/1")

	// An admin grows the checklist mid-run; the running walk keeps its
	// snapshot and finishes after the original single task.
	require.NoError(t, env.catalog.AddTask(ctx, "waiter", "opening", "second"))
	env.pressLabeled(t, 7, "✅ Done")

	reports := env.reports.List()
	require.Len(t, reports, 1)
	assert.Len(t, reports[0].Results, 1)
}

func TestUserTextDuringTaskWalk(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedChecklist(t, "waiter", "opening", "a task")
	require.NoError(t, env.assignments.Set(ctx, 7, model.Assignment{Role: "waiter", Checklist: "opening"}))

	require.NoError(t, env.user.HandleText(ctx, 7, "hunter2"))
	require.NoError(t, env.user.HandleText(ctx, 7, "Anna"))
	require.NoError(t, env.user.HandleText(ctx, 7, "done I guess?"))

	assert.Equal(t, msgUseButtons, env.sender.last(t).text)
}
