package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"practicehq/backend/internal/domain"
)

// AppointmentQuery narrows ListAppointments. Zero-valued fields are ignored.
type AppointmentQuery struct {
	ClientID        string
	ProviderID      string
	Status          domain.AppointmentStatus
	AppointmentType string
	WindowStart     time.Time
	WindowEnd       time.Time
	Search          string
}

type AppointmentRepository interface {
	Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	CreateBatch(ctx context.Context, appts []domain.Appointment) ([]domain.Appointment, error)
	List(ctx context.Context, q AppointmentQuery) ([]domain.Appointment, error)
	Get(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	Update(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	Delete(ctx context.Context, appointmentID uuid.UUID) error

	// ListOverlapping pre-filters server side: appointments for the provider
	// or the client whose interval could touch [windowStart, windowEnd]. The
	// conflict detector re-applies the exact predicate over the result.
	ListOverlapping(ctx context.Context, providerID, clientID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
}

type WaitlistRepository interface {
	Create(ctx context.Context, entry domain.WaitlistEntry) (domain.WaitlistEntry, error)
	ListUnfulfilled(ctx context.Context) ([]domain.WaitlistEntry, error)
}

type ScheduleRepository interface {
	Create(ctx context.Context, schedule domain.ProviderSchedule) (domain.ProviderSchedule, error)
	List(ctx context.Context, providerID string) ([]domain.ProviderSchedule, error)
	ListExceptions(ctx context.Context) ([]domain.ScheduleException, error)
}
