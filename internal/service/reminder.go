package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/shift-checklist-bot/internal/botapi"
	"github.com/iliyamo/shift-checklist-bot/internal/repository"
)

// Reminder dispatches the daily "your checklist is waiting" message to
// every assigned user at the configured HH:MM, honoring the global
// toggle and per-user opt-outs. It fires at most once per calendar day.
type Reminder struct {
	Assignments   *repository.AssignmentRepo
	Notifications *repository.NotificationRepo
	Users         *repository.UserRepo
	Sender        botapi.Sender

	lastSent string // date of the last dispatch, "2006-01-02"
}

// Run blocks until ctx is cancelled, checking the clock twice a minute.
func (r *Reminder) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx, time.Now())
		}
	}
}

// tick dispatches reminders if now matches the configured time and none
// were sent today yet.
func (r *Reminder) tick(ctx context.Context, now time.Time) {
	s := r.Notifications.Get()
	if !s.Enabled {
		return
	}
	today := now.Format("2006-01-02")
	if r.lastSent == today || now.Format("15:04") != s.ReminderTime {
		return
	}
	r.lastSent = today

	for _, id := range r.Assignments.UserIDs() {
		if !r.Notifications.EnabledFor(id) {
			continue
		}
		a, ok := r.Assignments.Get(id)
		if !ok {
			continue
		}
		text := fmt.Sprintf("⏰ Reminder: your checklist %q (%s) is waiting. Send the password to start.",
			a.Checklist, a.Role)
		if err := r.Sender.SendText(ctx, id, text, nil); err != nil {
			log.Printf("reminder: send to %d failed: %v", id, err)
		}
	}
}
