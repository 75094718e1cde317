package handler

import (
	"sync"

	"github.com/iliyamo/shift-checklist-bot/internal/model"
)

// UserStep is the position of a user inside the checklist walk. A user
// with no session at all is unauthenticated; the session is created when
// the shared password is accepted and destroyed when the run completes,
// so there is no explicit "gate" step.
type UserStep int

const (
	StepName          UserStep = iota + 1 // waiting for the display name
	StepPickRole                          // self-service: waiting for a role pick
	StepPickChecklist                     // self-service: waiting for a checklist pick
	StepTask                              // walking the task list
)

// UserSession is the ephemeral progress of one user through a run. Tasks
// is a snapshot taken when the walk starts: catalog edits made while the
// run is in flight do not affect it.
type UserSession struct {
	Step      UserStep
	Name      string
	Role      string
	Checklist string
	Tasks     []string
	Index     int
	Results   []model.TaskResult
}

// AdminStep is the position of an admin inside the editing flows.
type AdminStep int

const (
	AdminRoot            AdminStep = iota // main menu shown
	AdminRoles                            // role management menu
	AdminAwaitRoleName                    // text: name for a new role
	AdminAwaitRoleRename                  // text: new name for session.Role
	AdminConfirmRoleDel                   // yes/no: delete session.Role
	AdminLists                            // checklist menu for session.Role
	AdminAwaitListName                    // text: name for a new checklist
	AdminAwaitListRename                  // text: new name for session.Checklist
	AdminConfirmListDel                   // yes/no: delete session.Checklist
	AdminTasks                            // task editor for session.Checklist
	AdminAwaitTaskText                    // text: new task to append
	AdminAwaitTaskEdit                    // text: replacement for task session.TaskIndex
	AdminConfirmTaskDel                   // yes/no: delete task session.TaskIndex
	AdminAssignPickUser                   // assignment flow: choosing the user
	AdminAssignPickRole                   // assignment flow: choosing the role
	AdminAssignPickList                   // assignment flow: choosing the checklist
	AdminAwaitUserID                      // text: numeric id of a user to register
	AdminAwaitTime                        // text: reminder time HH:MM
	AdminConfirmClear                     // yes/no: wipe all reports
	AdminConfirmPassword                  // yes/no: rotate the shared password
)

// AdminSession carries exactly the editing context the current step
// needs: the role/checklist under edit, a pending task index, or the
// assignment target. It is as ephemeral as the user session.
type AdminSession struct {
	Step       AdminStep
	Role       string
	Checklist  string
	TaskIndex  int
	TargetUser int64
}

// Sessions owns all live conversation state. Besides the two session
// maps it hands out one mutex per sender so the dispatcher can keep
// event handling for a single chat strictly sequential while different
// chats proceed concurrently.
type Sessions struct {
	mu     sync.Mutex
	users  map[int64]*UserSession
	admins map[int64]*AdminSession
	locks  map[int64]*sync.Mutex
}

func NewSessions() *Sessions {
	return &Sessions{
		users:  map[int64]*UserSession{},
		admins: map[int64]*AdminSession{},
		locks:  map[int64]*sync.Mutex{},
	}
}

// SenderLock returns the per-sender mutex, creating it on first contact.
func (s *Sessions) SenderLock(id int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// User returns the live run session for id, if any.
func (s *Sessions) User(id int64) (*UserSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

func (s *Sessions) SetUser(id int64, u *UserSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = u
}

func (s *Sessions) ClearUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

// Admin returns the live editing session for id, if any. Its presence is
// what routes an incoming text to the admin machine.
func (s *Sessions) Admin(id int64) (*AdminSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[id]
	return a, ok
}

func (s *Sessions) SetAdmin(id int64, a *AdminSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[id] = a
}

func (s *Sessions) ClearAdmin(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.admins, id)
}
