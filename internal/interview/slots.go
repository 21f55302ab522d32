package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// SlotFinder walks a bounded day window and returns the first configured
// slot that is in the future and free of buffered conflicts. The search is
// first-fit: earliest eligible day, then earliest configured slot on it,
// which keeps scheduling latency predictable and the tie-break
// deterministic.
type SlotFinder struct {
	now func() time.Time
}

// NewSlotFinder returns a SlotFinder on the wall clock.
func NewSlotFinder() *SlotFinder {
	return &SlotFinder{now: time.Now}
}

// NewSlotFinderAt returns a SlotFinder on a caller-supplied clock.
func NewSlotFinderAt(now func() time.Time) *SlotFinder {
	return &SlotFinder{now: now}
}

// fallbackHour is the start time of the last-resort slot when the whole
// window is booked.
const fallbackHour = 9

// Find returns the start time of the first free slot for cfg. It never
// fails to produce a time: when every slot inside the window is taken (or
// the window is empty), it falls back to tomorrow at 09:00 regardless of
// conflicts. The fallback knowingly trades the no-overlap guarantee for
// availability in a fully booked window.
//
// conflicts must be the same handle as the transaction that will persist
// the resulting interview.
func (f *SlotFinder) Find(ctx context.Context, cfg *StageConfig, conflicts ConflictChecker) (time.Time, error) {
	now := f.now()
	today := midnight(now)
	duration := time.Duration(cfg.DefaultDurationMinutes) * time.Minute

	slots := cfg.TimeSlots
	if len(slots) == 0 {
		slots = DefaultTimeSlots
	}
	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	windowEnd := today.AddDate(0, 0, windowDays)

search:
	for day := 0; day < windowDays; day++ {
		checkDate := today.AddDate(0, 0, day)

		// Weekends are never eligible.
		if wd := checkDate.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		for _, slot := range slots {
			hour, minute, err := parseClock(slot)
			if err != nil {
				slog.Warn("skipping malformed time slot", "stageId", cfg.StageID, "slot", slot, "err", err)
				continue
			}

			start := checkDate.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
			if !start.After(now) {
				continue
			}
			if start.After(windowEnd) {
				break search
			}

			end := start.Add(duration)
			busy, err := conflicts.HasConflict(ctx, start, end, cfg.BufferMinutes, "")
			if err != nil {
				return time.Time{}, fmt.Errorf("conflict check: %w", err)
			}
			if busy {
				continue
			}
			return start, nil
		}
	}

	// Fully booked window: tomorrow 09:00, pushed one more day if that has
	// already passed.
	fallback := today.AddDate(0, 0, 1).Add(fallbackHour * time.Hour)
	if !fallback.After(now) {
		fallback = fallback.AddDate(0, 0, 1)
	}
	slog.Warn("no free slot in window, using fallback",
		"stageId", cfg.StageID, "windowDays", windowDays, "fallback", fallback)
	return fallback, nil
}

// midnight truncates t to the start of its calendar day in t's location.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// parseClock parses an "HH:MM" slot string.
func parseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed slot %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("malformed slot hour %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("malformed slot minute %q", s)
	}
	return hour, minute, nil
}
