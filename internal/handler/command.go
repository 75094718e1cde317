package handler

import (
	"strconv"
	"strings"
)

// CommandKind enumerates every button action the bot understands. Callback
// tokens are decoded into a Command exactly once, at the transport
// boundary; the state machines switch on the kind and never see raw token
// strings.
type CommandKind int

const (
	CmdUnknown CommandKind = iota

	// User machine.
	CmdRunDone       // current task answered done
	CmdRunNotDone    // current task answered not done
	CmdPickRole      // Name = role (self-service picker)
	CmdPickChecklist // Name = checklist under the picked role

	// Admin: navigation.
	CmdAdminMenu
	CmdRolesMenu
	CmdAssignMenu
	CmdUsersMenu
	CmdNotifMenu
	CmdReportsMenu
	CmdStatsMenu

	// Admin: catalog editing.
	CmdRoleAdd
	CmdRoleSelect // Name = role
	CmdRoleRename // Name = role
	CmdRoleDelete // Name = role
	CmdListAdd
	CmdListSelect // Name = checklist
	CmdListRename
	CmdListDelete
	CmdTaskAdd
	CmdTaskEdit   // Index = task index captured at render time
	CmdTaskDelete // Index = task index captured at render time

	// Admin: generic confirmation pair. What is being confirmed lives in
	// the admin session, so the tokens carry no payload.
	CmdConfirmYes
	CmdConfirmNo

	// Admin: assignments.
	CmdAssignUser   // ID = target user
	CmdAssignRole   // Name = role
	CmdAssignList   // Name = checklist
	CmdAssignRemove // ID = target user

	// Admin: user management.
	CmdUserAdd
	CmdUserPromote // ID
	CmdUserDemote  // ID

	// Admin: notifications.
	CmdNotifToggle
	CmdNotifTime
	CmdNotifUser // ID = user whose override is flipped

	// Admin: reports, statistics, password.
	CmdReportsList
	CmdReportsExport
	CmdReportsLink
	CmdReportsClear
	CmdStatsActivity
	CmdStatsCompletion
	CmdPasswordGen
)

// Command is one decoded button press. Only the field the kind needs is
// populated.
type Command struct {
	Kind  CommandKind
	Name  string // role or checklist name
	ID    int64  // target user id
	Index int    // task index
}

type argKind int

const (
	argNone argKind = iota
	argName
	argID
	argIndex
)

var commandTable = []struct {
	kind   CommandKind
	prefix string
	arg    argKind
}{
	{CmdRunDone, "run_done", argNone},
	{CmdRunNotDone, "run_notdone", argNone},
	{CmdPickRole, "pick_role", argName},
	{CmdPickChecklist, "pick_list", argName},
	{CmdAdminMenu, "admin_menu", argNone},
	{CmdRolesMenu, "roles_menu", argNone},
	{CmdAssignMenu, "assign_menu", argNone},
	{CmdUsersMenu, "users_menu", argNone},
	{CmdNotifMenu, "notif_menu", argNone},
	{CmdReportsMenu, "reports_menu", argNone},
	{CmdStatsMenu, "stats_menu", argNone},
	{CmdRoleAdd, "role_add", argNone},
	{CmdRoleSelect, "role_sel", argName},
	{CmdRoleRename, "role_ren", argName},
	{CmdRoleDelete, "role_del", argName},
	{CmdListAdd, "list_add", argNone},
	{CmdListSelect, "list_sel", argName},
	{CmdListRename, "list_ren", argNone},
	{CmdListDelete, "list_del", argNone},
	{CmdTaskAdd, "task_add", argNone},
	{CmdTaskEdit, "task_edit", argIndex},
	{CmdTaskDelete, "task_del", argIndex},
	{CmdConfirmYes, "confirm_yes", argNone},
	{CmdConfirmNo, "confirm_no", argNone},
	{CmdAssignUser, "assign_user", argID},
	{CmdAssignRole, "assign_role", argName},
	{CmdAssignList, "assign_list", argName},
	{CmdAssignRemove, "assign_rm", argID},
	{CmdUserAdd, "user_add", argNone},
	{CmdUserPromote, "user_up", argID},
	{CmdUserDemote, "user_down", argID},
	{CmdNotifToggle, "notif_toggle", argNone},
	{CmdNotifTime, "notif_time", argNone},
	{CmdNotifUser, "notif_user", argID},
	{CmdReportsList, "reports_list", argNone},
	{CmdReportsExport, "reports_export", argNone},
	{CmdReportsLink, "reports_link", argNone},
	{CmdReportsClear, "reports_clear", argNone},
	{CmdStatsActivity, "stats_activity", argNone},
	{CmdStatsCompletion, "stats_completion", argNone},
	{CmdPasswordGen, "pass_gen", argNone},
}

// Encode renders the command as a callback token. Name arguments follow
// the first colon verbatim, so names containing colons survive the round
// trip.
func (c Command) Encode() string {
	for _, s := range commandTable {
		if s.kind != c.Kind {
			continue
		}
		switch s.arg {
		case argNone:
			return s.prefix
		case argName:
			return s.prefix + ":" + c.Name
		case argID:
			return s.prefix + ":" + strconv.FormatInt(c.ID, 10)
		case argIndex:
			return s.prefix + ":" + strconv.Itoa(c.Index)
		}
	}
	return ""
}

// ParseCommand decodes a callback token. The boolean is false for tokens
// the bot does not understand (stale buttons from older revisions
// included).
func ParseCommand(token string) (Command, bool) {
	prefix, arg := token, ""
	if i := strings.IndexByte(token, ':'); i >= 0 {
		prefix, arg = token[:i], token[i+1:]
	}
	for _, s := range commandTable {
		if s.prefix != prefix {
			continue
		}
		cmd := Command{Kind: s.kind}
		switch s.arg {
		case argNone:
			if arg != "" {
				return Command{}, false
			}
		case argName:
			if arg == "" {
				return Command{}, false
			}
			cmd.Name = arg
		case argID:
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return Command{}, false
			}
			cmd.ID = id
		case argIndex:
			idx, err := strconv.Atoi(arg)
			if err != nil || idx < 0 {
				return Command{}, false
			}
			cmd.Index = idx
		}
		return cmd, true
	}
	return Command{}, false
}

// AdminOnly reports whether the command belongs to the admin machine and
// therefore requires the authorization predicate to pass.
func (c Command) AdminOnly() bool {
	switch c.Kind {
	case CmdRunDone, CmdRunNotDone, CmdPickRole, CmdPickChecklist:
		return false
	}
	return c.Kind != CmdUnknown
}
