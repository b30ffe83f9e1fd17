package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"practicehq/backend/internal/domain"
	"practicehq/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

const maxAppointmentDuration = 24 * time.Hour

type Service struct {
	appts     store.AppointmentRepository
	waitlist  store.WaitlistRepository
	schedules store.ScheduleRepository
}

func NewService(appts store.AppointmentRepository, waitlist store.WaitlistRepository, schedules store.ScheduleRepository) *Service {
	return &Service{appts: appts, waitlist: waitlist, schedules: schedules}
}

type CreateAppointmentInput struct {
	ClientID        string
	ProviderID      string
	AppointmentType string
	Title           string
	Description     string
	StartTime       time.Time
	DurationMinutes int
	Location        string
	RoomNumber      string
	CreatedBy       string

	// Recurrence, when set, materializes one appointment per occurrence
	// instead of a single row.
	Recurrence *domain.RecurrenceSpec
}

// CreateAppointment creates a single appointment, or the whole materialized
// series when a recurrence spec is supplied. Returned appointments are in
// chronological order.
func (s *Service) CreateAppointment(ctx context.Context, in CreateAppointmentInput) ([]domain.Appointment, error) {
	if in.ClientID == "" {
		return nil, validationError("client_id is required")
	}
	providerID := in.ProviderID
	if providerID == "" {
		providerID = in.CreatedBy
	}
	if providerID == "" {
		return nil, validationError("provider_id is required")
	}
	if strings.TrimSpace(in.AppointmentType) == "" {
		return nil, validationError("appointment_type is required")
	}
	if in.StartTime.IsZero() {
		return nil, validationError("start_time is required")
	}
	if in.DurationMinutes <= 0 {
		return nil, validationError("duration must be positive")
	}
	if time.Duration(in.DurationMinutes)*time.Minute > maxAppointmentDuration {
		return nil, validationError("duration too long")
	}

	base := domain.Appointment{
		ClientID:        in.ClientID,
		ProviderID:      providerID,
		AppointmentType: strings.TrimSpace(in.AppointmentType),
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		StartTime:       in.StartTime,
		DurationMinutes: in.DurationMinutes,
		Status:          domain.AppointmentStatusScheduled,
		Location:        in.Location,
		RoomNumber:      in.RoomNumber,
		CreatedBy:       in.CreatedBy,
	}

	if in.Recurrence == nil {
		appt, err := s.appts.Create(ctx, base)
		if err != nil {
			return nil, err
		}
		return []domain.Appointment{appt}, nil
	}

	spec := *in.Recurrence
	if spec.StartDate.IsZero() {
		spec.StartDate = in.StartTime
	}

	starts, err := domain.ExpandRecurrence(spec)
	if err != nil {
		return nil, validationError(err.Error())
	}
	if len(starts) == 0 {
		return nil, validationError("recurrence produces no occurrences")
	}

	occurrences := make([]domain.Appointment, 0, len(starts))
	for _, start := range starts {
		occ := base
		occ.StartTime = start
		occurrences = append(occurrences, occ)
	}

	return s.appts.CreateBatch(ctx, occurrences)
}

func (s *Service) ListAppointments(ctx context.Context, q store.AppointmentQuery) ([]domain.Appointment, error) {
	if q.WindowStart.IsZero() != q.WindowEnd.IsZero() {
		return nil, validationError("start_date and end_date must be provided together")
	}
	if !q.WindowStart.IsZero() && q.WindowEnd.Before(q.WindowStart) {
		return nil, validationError("end_date must not be before start_date")
	}
	if q.Status != "" && !domain.ValidAppointmentStatus(q.Status) {
		return nil, validationError("unknown status")
	}
	return s.appts.List(ctx, q)
}

func (s *Service) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	return s.appts.Get(ctx, appointmentID)
}

type UpdateAppointmentInput struct {
	Title           *string
	Description     *string
	StartTime       *time.Time
	DurationMinutes *int
	Status          *domain.AppointmentStatus
	Location        *string
	RoomNumber      *string
}

// UpdateAppointment applies a partial update. Status changes stamp the
// matching timestamp (checked_in, completed, cancelled).
func (s *Service) UpdateAppointment(ctx context.Context, appointmentID uuid.UUID, in UpdateAppointmentInput) (domain.Appointment, error) {
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}

	appt, err := s.appts.Get(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}

	if in.Title != nil {
		appt.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		appt.Description = *in.Description
	}
	if in.StartTime != nil {
		if in.StartTime.IsZero() {
			return domain.Appointment{}, validationError("start_time must not be zero")
		}
		appt.StartTime = *in.StartTime
	}
	if in.DurationMinutes != nil {
		if *in.DurationMinutes <= 0 {
			return domain.Appointment{}, validationError("duration must be positive")
		}
		if time.Duration(*in.DurationMinutes)*time.Minute > maxAppointmentDuration {
			return domain.Appointment{}, validationError("duration too long")
		}
		appt.DurationMinutes = *in.DurationMinutes
	}
	if in.Location != nil {
		appt.Location = *in.Location
	}
	if in.RoomNumber != nil {
		appt.RoomNumber = *in.RoomNumber
	}
	if in.Status != nil {
		if err := applyStatus(&appt, *in.Status); err != nil {
			return domain.Appointment{}, err
		}
	}

	return s.appts.Update(ctx, appt)
}

func (s *Service) UpdateAppointmentStatus(ctx context.Context, appointmentID uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error) {
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}

	appt, err := s.appts.Get(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if err := applyStatus(&appt, status); err != nil {
		return domain.Appointment{}, err
	}
	return s.appts.Update(ctx, appt)
}

func applyStatus(appt *domain.Appointment, status domain.AppointmentStatus) error {
	if !domain.ValidAppointmentStatus(status) {
		return validationError("unknown status")
	}

	now := time.Now().UTC()
	switch status {
	case domain.AppointmentStatusCheckedIn:
		appt.CheckedInAt = &now
	case domain.AppointmentStatusCompleted:
		appt.CompletedAt = &now
	case domain.AppointmentStatusCancelled:
		appt.CancelledAt = &now
	}
	appt.Status = status
	return nil
}

func (s *Service) DeleteAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	if appointmentID == uuid.Nil {
		return validationError("appointment_id is required")
	}
	return s.appts.Delete(ctx, appointmentID)
}

type CheckConflictsInput struct {
	AppointmentID uuid.UUID // appointment being edited, excluded from the check
	ProviderID    string
	ClientID      string
	StartTime     time.Time
	EndTime       time.Time
}

// CheckConflicts fetches the appointments that could overlap the candidate
// window and runs the pure detector over them. Missing required fields yield
// the neutral empty result, never an error: the check is advisory and "not
// enough information yet" must not block a half-filled form.
func (s *Service) CheckConflicts(ctx context.Context, in CheckConflictsInput) (domain.ConflictResult, error) {
	candidate := domain.ConflictCandidate{
		ExcludeID:  in.AppointmentID,
		ProviderID: in.ProviderID,
		ClientID:   in.ClientID,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
	}
	if candidate.ClientID == "" || candidate.StartTime.IsZero() || candidate.EndTime.IsZero() {
		return domain.DetectConflicts(candidate, nil), nil
	}

	existing, err := s.appts.ListOverlapping(ctx, in.ProviderID, in.ClientID, in.StartTime, in.EndTime)
	if err != nil {
		return domain.ConflictResult{}, err
	}
	return domain.DetectConflicts(candidate, existing), nil
}

type CreateWaitlistInput struct {
	ClientID           string
	ProviderID         string
	PreferredDate      time.Time
	PreferredTimeStart string
	PreferredTimeEnd   string
	AppointmentType    string
	Notes              string
	Priority           int
}

func (s *Service) CreateWaitlistEntry(ctx context.Context, in CreateWaitlistInput) (domain.WaitlistEntry, error) {
	if in.ClientID == "" {
		return domain.WaitlistEntry{}, validationError("client_id is required")
	}
	if in.PreferredDate.IsZero() {
		return domain.WaitlistEntry{}, validationError("preferred_date is required")
	}
	if strings.TrimSpace(in.AppointmentType) == "" {
		return domain.WaitlistEntry{}, validationError("appointment_type is required")
	}

	priority := in.Priority
	if priority == 0 {
		priority = 1
	}
	if priority < 1 {
		return domain.WaitlistEntry{}, validationError("priority must be at least 1")
	}

	return s.waitlist.Create(ctx, domain.WaitlistEntry{
		ClientID:           in.ClientID,
		ProviderID:         in.ProviderID,
		PreferredDate:      in.PreferredDate,
		PreferredTimeStart: in.PreferredTimeStart,
		PreferredTimeEnd:   in.PreferredTimeEnd,
		AppointmentType:    strings.TrimSpace(in.AppointmentType),
		Notes:              in.Notes,
		Priority:           priority,
		IsFulfilled:        false,
	})
}

func (s *Service) ListWaitlist(ctx context.Context) ([]domain.WaitlistEntry, error) {
	return s.waitlist.ListUnfulfilled(ctx)
}

type CreateScheduleInput struct {
	ProviderID     string
	DayOfWeek      int
	StartTime      string
	EndTime        string
	IsAvailable    *bool
	BreakStartTime string
	BreakEndTime   string
	EffectiveFrom  time.Time
	EffectiveUntil *time.Time
}

func (s *Service) CreateSchedule(ctx context.Context, in CreateScheduleInput) (domain.ProviderSchedule, error) {
	if in.ProviderID == "" {
		return domain.ProviderSchedule{}, validationError("provider_id is required")
	}
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return domain.ProviderSchedule{}, validationError("invalid day_of_week")
	}
	if err := validateTimeOfDay(in.StartTime); err != nil {
		return domain.ProviderSchedule{}, validationError("invalid start_time")
	}
	if err := validateTimeOfDay(in.EndTime); err != nil {
		return domain.ProviderSchedule{}, validationError("invalid end_time")
	}

	available := true
	if in.IsAvailable != nil {
		available = *in.IsAvailable
	}

	effectiveFrom := in.EffectiveFrom
	if effectiveFrom.IsZero() {
		effectiveFrom = time.Now().UTC()
	}

	return s.schedules.Create(ctx, domain.ProviderSchedule{
		ProviderID:     in.ProviderID,
		DayOfWeek:      in.DayOfWeek,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		IsAvailable:    available,
		BreakStartTime: in.BreakStartTime,
		BreakEndTime:   in.BreakEndTime,
		EffectiveFrom:  effectiveFrom,
		EffectiveUntil: in.EffectiveUntil,
	})
}

func (s *Service) ListSchedules(ctx context.Context, providerID string) ([]domain.ProviderSchedule, error) {
	return s.schedules.List(ctx, providerID)
}

func (s *Service) ListScheduleExceptions(ctx context.Context) ([]domain.ScheduleException, error) {
	return s.schedules.ListExceptions(ctx)
}

func validateTimeOfDay(v string) error {
	_, err := time.Parse("15:04", v)
	return err
}
