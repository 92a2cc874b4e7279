package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"dns-price-bot/storage"
	"dns-price-bot/utils"
)

// Window is a daily time range, both bounds inclusive to the nanosecond. Start > End wraps midnight.
type Window struct {
	Start    time.Duration // offset from midnight
	End      time.Duration
	Location *time.Location
}

// Contains reports whether now falls inside the window, evaluated in w.Location.
func (w Window) Contains(now time.Time) bool {
	if w.Location != nil {
		now = now.In(w.Location)
	}
	h, m, s := now.Clock()
	tod := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(now.Nanosecond())

	if w.Start <= w.End {
		return tod >= w.Start && tod <= w.End
	}
	return tod >= w.Start || tod <= w.End
}

func (w Window) String() string {
	return fmt.Sprintf("%s-%s", FormatClock(w.Start), FormatClock(w.End))
}

// FormatClock prints an offset from midnight as HH:MM.
func FormatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// QuietHours decides whether notifications may go out. It only gates delivery,
// reconciliation runs regardless.
type QuietHours struct {
	store  storage.QuietHoursStore
	window Window
	clock  clockwork.Clock
	logger *utils.Logger

	mu sync.Mutex // serializes toggles
}

func NewQuietHours(store storage.QuietHoursStore, window Window, clock clockwork.Clock, logger *utils.Logger) *QuietHours {
	return &QuietHours{store: store, window: window, clock: clock, logger: logger}
}

func (q *QuietHours) Window() Window { return q.window }

// Enabled returns the persisted toggle.
func (q *QuietHours) Enabled(ctx context.Context) (bool, error) {
	state, err := q.store.LoadQuietHours(ctx)
	if err != nil {
		return false, err
	}
	return state.Enabled, nil
}

// ShouldNotify is true when quiet mode is off, or when now is outside the window.
func (q *QuietHours) ShouldNotify(ctx context.Context, now time.Time) (bool, error) {
	enabled, err := q.Enabled(ctx)
	if err != nil {
		return true, err
	}
	return !enabled || !q.window.Contains(now), nil
}

// InWindow reports whether the current time is inside the window, ignoring the toggle.
func (q *QuietHours) InWindow() bool {
	return q.window.Contains(q.clock.Now())
}

// Toggle flips quiet mode and records who did it. It returns the new value.
func (q *QuietHours) Toggle(ctx context.Context, actor int64) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	state, err := q.store.LoadQuietHours(ctx)
	if err != nil {
		return false, err
	}
	now := q.clock.Now()
	state.Enabled = !state.Enabled
	state.LastToggledBy = actor
	state.LastToggledAt = &now
	if err := q.store.SaveQuietHours(ctx, state); err != nil {
		return false, err
	}

	q.logger.Info("Quiet hours %s by user %d", onOff(state.Enabled), actor)
	return state.Enabled, nil
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
