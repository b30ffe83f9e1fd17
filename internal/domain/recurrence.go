package domain

import (
	"errors"
	"sort"
	"time"
)

type RecurrencePattern string

const (
	RecurrencePatternDaily   RecurrencePattern = "daily"
	RecurrencePatternWeekly  RecurrencePattern = "weekly"
	RecurrencePatternMonthly RecurrencePattern = "monthly"
	RecurrencePatternYearly  RecurrencePattern = "yearly"
)

// RecurrenceSlot describes one time-of-day a pattern fires at. The optional
// fields form a variant keyed by the spec's Pattern: weekly slots carry
// DayOfWeek, monthly slots carry DayOfMonth, yearly slots carry Month and
// DayOfMonth, daily slots carry neither. Validation rejects fields that do
// not belong to the pattern so a daily slot cannot smuggle in a day-of-month.
type RecurrenceSlot struct {
	Hour   int
	Minute int

	DayOfWeek  *int // 0 (Sunday) through 6 (Saturday), weekly only
	DayOfMonth *int // 1 through 31, monthly and yearly
	Month      *int // 1 through 12, yearly only
}

// RecurrenceSpec bounds a repeating pattern to a concrete window. A zero
// EndDate defaults to StartDate plus 365 days, so expansion is always finite.
type RecurrenceSpec struct {
	Pattern          RecurrencePattern
	Slots            []RecurrenceSlot
	BusinessDaysOnly bool
	StartDate        time.Time
	EndDate          time.Time
}

func (s RecurrenceSlot) validate(pattern RecurrencePattern) error {
	if s.Hour < 0 || s.Hour > 23 {
		return errors.New("invalid slot hour")
	}
	if s.Minute < 0 || s.Minute > 59 {
		return errors.New("invalid slot minute")
	}

	switch pattern {
	case RecurrencePatternDaily:
		if s.DayOfWeek != nil || s.DayOfMonth != nil || s.Month != nil {
			return errors.New("daily slot must carry only a time")
		}
	case RecurrencePatternWeekly:
		if s.DayOfWeek == nil {
			return errors.New("weekly slot requires day_of_week")
		}
		if *s.DayOfWeek < 0 || *s.DayOfWeek > 6 {
			return errors.New("invalid day_of_week")
		}
		if s.DayOfMonth != nil || s.Month != nil {
			return errors.New("weekly slot must not carry day_of_month or month")
		}
	case RecurrencePatternMonthly:
		if s.DayOfMonth == nil {
			return errors.New("monthly slot requires day_of_month")
		}
		if *s.DayOfMonth < 1 || *s.DayOfMonth > 31 {
			return errors.New("invalid day_of_month")
		}
		if s.DayOfWeek != nil || s.Month != nil {
			return errors.New("monthly slot must not carry day_of_week or month")
		}
	case RecurrencePatternYearly:
		if s.Month == nil || s.DayOfMonth == nil {
			return errors.New("yearly slot requires month and day_of_month")
		}
		if *s.Month < 1 || *s.Month > 12 {
			return errors.New("invalid month")
		}
		if *s.DayOfMonth < 1 || *s.DayOfMonth > 31 {
			return errors.New("invalid day_of_month")
		}
		if s.DayOfWeek != nil {
			return errors.New("yearly slot must not carry day_of_week")
		}
	default:
		return errors.New("unsupported recurrence pattern")
	}
	return nil
}

// ExpandRecurrence turns a recurrence spec into the ordered start times of
// its concrete occurrences. The window is [StartDate, EndDate] with EndDate
// inclusive by calendar day: an occurrence on EndDate's date is kept whatever
// its time of day. All date arithmetic is naive in the location StartDate was
// constructed with.
//
// The business-days-only flag is honored uniformly across every pattern: any
// occurrence landing on a Saturday or Sunday is skipped, so a weekly slot
// pinned to a weekend with the flag set expands to nothing. A monthly or
// yearly day-of-month that a given month does not have skips that month
// rather than clamping to its last day.
func ExpandRecurrence(spec RecurrenceSpec) ([]time.Time, error) {
	if spec.StartDate.IsZero() {
		return nil, errors.New("start_date is required")
	}
	if len(spec.Slots) == 0 {
		return nil, errors.New("at least one time slot is required")
	}
	for _, slot := range spec.Slots {
		if err := slot.validate(spec.Pattern); err != nil {
			return nil, err
		}
	}

	end := spec.EndDate
	if end.IsZero() {
		end = spec.StartDate.AddDate(0, 0, 365)
	}
	if end.Before(spec.StartDate) {
		return nil, errors.New("end_date must not be before start_date")
	}

	endDay := dateOf(end)
	out := make([]time.Time, 0, 16)
	for _, slot := range spec.Slots {
		out = append(out, expandSlot(spec, slot, endDay)...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func expandSlot(spec RecurrenceSpec, slot RecurrenceSlot, endDay time.Time) []time.Time {
	start := spec.StartDate
	loc := start.Location()

	occurrences := make([]time.Time, 0, 16)
	emit := func(occ time.Time) {
		if occ.Before(start) || dateOf(occ).After(endDay) {
			return
		}
		if spec.BusinessDaysOnly && !isBusinessDay(occ) {
			return
		}
		occurrences = append(occurrences, occ)
	}

	switch spec.Pattern {
	case RecurrencePatternDaily:
		for day := dateOf(start); !day.After(endDay); day = day.AddDate(0, 0, 1) {
			emit(atSlotTime(day, slot, loc))
		}

	case RecurrencePatternWeekly:
		for day := dateOf(start); !day.After(endDay); day = day.AddDate(0, 0, 1) {
			if int(day.Weekday()) != *slot.DayOfWeek {
				continue
			}
			emit(atSlotTime(day, slot, loc))
		}

	case RecurrencePatternMonthly:
		year, month := start.Year(), start.Month()
		for {
			monthStart := time.Date(year, month, 1, 0, 0, 0, 0, loc)
			if monthStart.After(endDay) {
				break
			}
			if *slot.DayOfMonth <= daysInMonth(year, month) {
				day := time.Date(year, month, *slot.DayOfMonth, 0, 0, 0, 0, loc)
				emit(atSlotTime(day, slot, loc))
			}
			year, month = nextMonth(year, month)
		}

	case RecurrencePatternYearly:
		for year := start.Year(); year <= endDay.Year(); year++ {
			month := time.Month(*slot.Month)
			if *slot.DayOfMonth > daysInMonth(year, month) {
				continue
			}
			day := time.Date(year, month, *slot.DayOfMonth, 0, 0, 0, 0, loc)
			emit(atSlotTime(day, slot, loc))
		}
	}

	return occurrences
}

func atSlotTime(day time.Time, slot RecurrenceSlot, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), slot.Hour, slot.Minute, 0, 0, loc)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func isBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the following month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func nextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}
