package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/iliyamo/shift-checklist-bot/internal/model"
	"github.com/iliyamo/shift-checklist-bot/internal/storage"
)

var timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// NotificationRepo owns the reminder settings document.
type NotificationRepo struct {
	mu       sync.Mutex
	backend  storage.Backend
	settings model.NotificationSettings
}

func NewNotificationRepo(ctx context.Context, backend storage.Backend) (*NotificationRepo, error) {
	r := &NotificationRepo{backend: backend, settings: model.DefaultNotificationSettings()}
	raw, err := backend.Load(ctx, docNotifications)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &r.settings); err != nil {
			return nil, fmt.Errorf("decode notifications: %w", err)
		}
		if r.settings.PerUser == nil {
			r.settings.PerUser = map[int64]model.UserNotification{}
		}
	}
	return r, nil
}

func (r *NotificationRepo) save(ctx context.Context) error {
	b, err := json.MarshalIndent(r.settings, "", "  ")
	if err != nil {
		return err
	}
	return r.backend.Save(ctx, docNotifications, b)
}

// Get returns a copy of the current settings.
func (r *NotificationRepo) Get() model.NotificationSettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.settings
	s.PerUser = make(map[int64]model.UserNotification, len(r.settings.PerUser))
	for id, o := range r.settings.PerUser {
		s.PerUser[id] = o
	}
	return s
}

// SetEnabled flips the global reminder switch.
func (r *NotificationRepo) SetEnabled(ctx context.Context, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings.Enabled = on
	return r.save(ctx)
}

// SetTime updates the daily reminder time. Rejects anything that is not
// 24h "HH:MM".
func (r *NotificationRepo) SetTime(ctx context.Context, hhmm string) error {
	if !timeRe.MatchString(hhmm) {
		return ErrBadTime
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings.ReminderTime = hhmm
	return r.save(ctx)
}

// SetUserEnabled records a per-user override.
func (r *NotificationRepo) SetUserEnabled(ctx context.Context, userID int64, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings.PerUser[userID] = model.UserNotification{Enabled: on}
	return r.save(ctx)
}

// EnabledFor combines the global switch with the per-user override;
// users without an override are opted in.
func (r *NotificationRepo) EnabledFor(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings.EnabledFor(userID)
}
