package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProviderSchedule is a provider's standing availability for one weekday.
// Times of day are "HH:MM" strings; the schedule applies between
// EffectiveFrom and EffectiveUntil (nil means open-ended).
type ProviderSchedule struct {
	bun.BaseModel `bun:"table:provider_schedules"`

	ID             uuid.UUID  `bun:"id,pk,type:uuid"`
	ProviderID     string     `bun:"provider_id,notnull"`
	DayOfWeek      int        `bun:"day_of_week,notnull"`
	StartTime      string     `bun:"start_time,notnull"`
	EndTime        string     `bun:"end_time,notnull"`
	IsAvailable    bool       `bun:"is_available,notnull"`
	BreakStartTime string     `bun:"break_start_time"`
	BreakEndTime   string     `bun:"break_end_time"`
	EffectiveFrom  time.Time  `bun:"effective_from,notnull"`
	EffectiveUntil *time.Time `bun:"effective_until"`
	CreatedAt      time.Time  `bun:"created_at,notnull"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull"`
}

func (s *ProviderSchedule) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

// ScheduleException marks a date where a provider's standing schedule does
// not apply, optionally replaced by an alternate time range.
type ScheduleException struct {
	bun.BaseModel `bun:"table:schedule_exceptions"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	ProviderID   string    `bun:"provider_id,notnull"`
	Date         time.Time `bun:"date,notnull"`
	Reason       string    `bun:"reason"`
	AltStartTime string    `bun:"alt_start_time"`
	AltEndTime   string    `bun:"alt_end_time"`
	IsFullDayOff bool      `bun:"is_full_day_off,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

func (e *ScheduleException) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if e.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			e.ID = id
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		e.UpdatedAt = now
	}
	return nil
}
