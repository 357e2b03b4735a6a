// internal/service/scheduler.go
package service

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/funnelreach/dispatch-backend/internal/model"
	"github.com/funnelreach/dispatch-backend/internal/repository"
)

const dayFormat = "2006-01-02"

// Scheduler computes a recipient's send time from the campaign policy:
// base delay plus optional jitter, clamped into working hours, rolled to
// the next day when the daily cap is full. Capacity is deferred, never
// dropped.
type Scheduler struct {
	Counters repository.CounterRepositoryInterface
	Now      func() time.Time
	Jitter   func(max time.Duration) time.Duration
}

func NewScheduler(counters repository.CounterRepositoryInterface) *Scheduler {
	return &Scheduler{
		Counters: counters,
		Now:      time.Now,
		Jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(max)))
		},
	}
}

// Schedule returns the target send time for one claimed lead. A malformed
// working-hours window is an error, never a silent midnight slot:
// activation-time validation guards the normal path, but a row edited
// behind the API must not schedule off-window.
func (s *Scheduler) Schedule(c *model.Campaign) (time.Time, error) {
	policy := c.Schedule

	win, err := parseWindow(policy.WorkingHours)
	if err != nil {
		return time.Time{}, fmt.Errorf("campaign %d working hours: %w", c.ID, err)
	}

	base := time.Duration(policy.BaseDelaySeconds) * time.Second
	at := s.Now().Add(base)
	if policy.JitterEnabled {
		at = at.Add(s.Jitter(base))
	}

	if win != nil {
		at = win.clamp(at)
	}

	if policy.MaxPerDay <= 0 {
		return at, nil
	}

	// Walk forward until a day with room. Bounded so a pathological cap
	// cannot loop forever.
	for i := 0; i < 366; i++ {
		n, err := s.Counters.Increment(c.ID, at.Format(dayFormat))
		if err != nil {
			return time.Time{}, err
		}
		if n <= policy.MaxPerDay {
			return at, nil
		}
		at = firstSlot(at.AddDate(0, 0, 1), win)
	}
	return time.Time{}, fmt.Errorf("no scheduling slot found within a year for campaign %d", c.ID)
}

// clockWindow is a parsed working-hours window.
type clockWindow struct {
	startHour, startMin int
	endHour, endMin     int
}

func parseWindow(wh *model.WorkingHours) (*clockWindow, error) {
	if wh == nil {
		return nil, nil
	}
	sh, sm, err := ParseHHMM(wh.Start)
	if err != nil {
		return nil, err
	}
	eh, em, err := ParseHHMM(wh.End)
	if err != nil {
		return nil, err
	}
	return &clockWindow{startHour: sh, startMin: sm, endHour: eh, endMin: em}, nil
}

// clamp pushes a time outside [start, end] to the nearest window start:
// same day when too early, next day when too late.
func (w *clockWindow) clamp(at time.Time) time.Time {
	start := atClock(at, w.startHour, w.startMin)
	end := atClock(at, w.endHour, w.endMin)

	if at.Before(start) {
		return start
	}
	if at.After(end) {
		return atClock(at.AddDate(0, 0, 1), w.startHour, w.startMin)
	}
	return at
}

// firstSlot is where deferred work lands on a given day.
func firstSlot(day time.Time, win *clockWindow) time.Time {
	if win != nil {
		return atClock(day, win.startHour, win.startMin)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
}

func atClock(day time.Time, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, day.Location())
}

// ParseHHMM validates an "HH:MM" clock value. Activation-time validation
// calls this so a malformed window never reaches the scheduler.
func ParseHHMM(v string) (int, int, error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock value %q", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", v)
	}
	return h, m, nil
}
