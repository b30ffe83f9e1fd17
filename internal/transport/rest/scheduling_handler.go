package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"practicehq/backend/internal/domain"
	"practicehq/backend/internal/service/scheduling"
	"practicehq/backend/internal/store"
)

type schedulingService interface {
	CreateAppointment(ctx context.Context, in scheduling.CreateAppointmentInput) ([]domain.Appointment, error)
	ListAppointments(ctx context.Context, q store.AppointmentQuery) ([]domain.Appointment, error)
	GetAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appointmentID uuid.UUID, in scheduling.UpdateAppointmentInput) (domain.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, appointmentID uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error)
	DeleteAppointment(ctx context.Context, appointmentID uuid.UUID) error
	CheckConflicts(ctx context.Context, in scheduling.CheckConflictsInput) (domain.ConflictResult, error)
	CreateWaitlistEntry(ctx context.Context, in scheduling.CreateWaitlistInput) (domain.WaitlistEntry, error)
	ListWaitlist(ctx context.Context) ([]domain.WaitlistEntry, error)
	CreateSchedule(ctx context.Context, in scheduling.CreateScheduleInput) (domain.ProviderSchedule, error)
	ListSchedules(ctx context.Context, providerID string) ([]domain.ProviderSchedule, error)
	ListScheduleExceptions(ctx context.Context) ([]domain.ScheduleException, error)
}

type SchedulingHandler struct {
	svc schedulingService
	log *slog.Logger
}

func NewSchedulingHandler(svc schedulingService, log *slog.Logger) *SchedulingHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SchedulingHandler{
		svc: svc,
		log: log.With(slog.String("component", "rest.scheduling")),
	}
}

type timeSlotRequest struct {
	Time       string `json:"time"`
	DayOfWeek  *int   `json:"dayOfWeek,omitempty"`
	DayOfMonth *int   `json:"dayOfMonth,omitempty"`
	Month      *int   `json:"month,omitempty"`
}

type createAppointmentRequest struct {
	ClientID        string `json:"clientId"`
	ProviderID      string `json:"providerId"`
	AppointmentType string `json:"appointmentType"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	StartTime       string `json:"startTime"`
	Duration        int    `json:"duration"`
	Location        string `json:"location"`
	RoomNumber      string `json:"roomNumber"`
	CreatedBy       string `json:"createdBy"`

	RecurringPattern   string            `json:"recurringPattern,omitempty"`
	RecurringTimeSlots []timeSlotRequest `json:"recurringTimeSlots,omitempty"`
	RecurringEndDate   string            `json:"recurringEndDate,omitempty"`
	IsBusinessDayOnly  *bool             `json:"isBusinessDayOnly,omitempty"`
}

type appointmentResponse struct {
	ID              string     `json:"id"`
	ClientID        string     `json:"clientId"`
	ProviderID      string     `json:"providerId"`
	AppointmentType string     `json:"appointmentType"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         time.Time  `json:"endTime"`
	Duration        int        `json:"duration"`
	Status          string     `json:"status"`
	Location        string     `json:"location"`
	RoomNumber      string     `json:"roomNumber"`
	CreatedBy       string     `json:"createdBy"`
	CheckedInAt     *time.Time `json:"checkedInAt,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	CancelledAt     *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type recurringCreatedResponse struct {
	Message      string                `json:"message"`
	Appointments []appointmentResponse `json:"appointments"`
}

func (h *SchedulingHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "CreateAppointment"))

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, log, badRequest("invalid request body"))
		return
	}

	start, err := parseTimestamp(req.StartTime)
	if err != nil {
		h.writeError(w, log, badRequest("startTime must be an RFC 3339 timestamp"))
		return
	}

	in := scheduling.CreateAppointmentInput{
		ClientID:        req.ClientID,
		ProviderID:      req.ProviderID,
		AppointmentType: req.AppointmentType,
		Title:           req.Title,
		Description:     req.Description,
		StartTime:       start,
		DurationMinutes: req.Duration,
		Location:        req.Location,
		RoomNumber:      req.RoomNumber,
		CreatedBy:       req.CreatedBy,
	}

	if req.RecurringPattern != "" {
		spec, err := buildRecurrenceSpec(req, start)
		if err != nil {
			h.writeError(w, log, err)
			return
		}
		in.Recurrence = &spec
	}

	appts, err := h.svc.CreateAppointment(r.Context(), in)
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	log.Info("appointments created",
		slog.Int("count", len(appts)),
		slog.String("client_id", req.ClientID),
		slog.String("provider_id", appts[0].ProviderID),
	)

	if in.Recurrence != nil {
		out := make([]appointmentResponse, 0, len(appts))
		for _, a := range appts {
			out = append(out, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusCreated, recurringCreatedResponse{
			Message:      fmt.Sprintf("Created %d recurring appointments", len(appts)),
			Appointments: out,
		})
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appts[0]))
}

func buildRecurrenceSpec(req createAppointmentRequest, start time.Time) (domain.RecurrenceSpec, error) {
	pattern := domain.RecurrencePattern(req.RecurringPattern)
	switch pattern {
	case domain.RecurrencePatternDaily, domain.RecurrencePatternWeekly,
		domain.RecurrencePatternMonthly, domain.RecurrencePatternYearly:
	default:
		return domain.RecurrenceSpec{}, badRequest("unknown recurringPattern")
	}

	slots := make([]domain.RecurrenceSlot, 0, len(req.RecurringTimeSlots))
	for _, ts := range req.RecurringTimeSlots {
		tod, err := time.Parse("15:04", ts.Time)
		if err != nil {
			return domain.RecurrenceSpec{}, badRequest("time slot time must be HH:MM")
		}
		slots = append(slots, domain.RecurrenceSlot{
			Hour:       tod.Hour(),
			Minute:     tod.Minute(),
			DayOfWeek:  ts.DayOfWeek,
			DayOfMonth: ts.DayOfMonth,
			Month:      ts.Month,
		})
	}

	spec := domain.RecurrenceSpec{
		Pattern:   pattern,
		Slots:     slots,
		StartDate: start,
	}
	// Business-days-only is on unless the request turns it off.
	spec.BusinessDaysOnly = req.IsBusinessDayOnly == nil || *req.IsBusinessDayOnly

	if req.RecurringEndDate != "" {
		end, err := parseTimestamp(req.RecurringEndDate)
		if err != nil {
			return domain.RecurrenceSpec{}, badRequest("recurringEndDate must be an RFC 3339 timestamp or date")
		}
		spec.EndDate = end
	}

	return spec, nil
}

func (h *SchedulingHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "ListAppointments"))

	q := store.AppointmentQuery{
		ClientID:        r.URL.Query().Get("clientId"),
		ProviderID:      r.URL.Query().Get("providerId"),
		Status:          domain.AppointmentStatus(r.URL.Query().Get("status")),
		AppointmentType: r.URL.Query().Get("appointmentType"),
		Search:          r.URL.Query().Get("search"),
	}

	if v := r.URL.Query().Get("startDate"); v != "" {
		t, err := parseTimestamp(v)
		if err != nil {
			h.writeError(w, log, badRequest("startDate must be an RFC 3339 timestamp or date"))
			return
		}
		q.WindowStart = t
	}
	if v := r.URL.Query().Get("endDate"); v != "" {
		t, err := parseTimestamp(v)
		if err != nil {
			h.writeError(w, log, badRequest("endDate must be an RFC 3339 timestamp or date"))
			return
		}
		q.WindowEnd = t
	}

	appts, err := h.svc.ListAppointments(r.Context(), q)
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SchedulingHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "GetAppointment"))

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, log, badRequest("id must be a UUID"))
		return
	}

	appt, err := h.svc.GetAppointment(r.Context(), id)
	if err != nil {
		h.writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

type updateAppointmentRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	StartTime   *string `json:"startTime"`
	Duration    *int    `json:"duration"`
	Status      *string `json:"status"`
	Location    *string `json:"location"`
	RoomNumber  *string `json:"roomNumber"`
}

func (h *SchedulingHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "UpdateAppointment"))

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, log, badRequest("id must be a UUID"))
		return
	}

	var req updateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, log, badRequest("invalid request body"))
		return
	}

	in := scheduling.UpdateAppointmentInput{
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.Duration,
		Location:        req.Location,
		RoomNumber:      req.RoomNumber,
	}
	if req.StartTime != nil {
		t, err := parseTimestamp(*req.StartTime)
		if err != nil {
			h.writeError(w, log, badRequest("startTime must be an RFC 3339 timestamp"))
			return
		}
		in.StartTime = &t
	}
	if req.Status != nil {
		status := domain.AppointmentStatus(*req.Status)
		in.Status = &status
	}

	appt, err := h.svc.UpdateAppointment(r.Context(), id, in)
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	log.Info("appointment updated", slog.String("appointment_id", id.String()))
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *SchedulingHandler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "UpdateAppointmentStatus"))

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, log, badRequest("id must be a UUID"))
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, log, badRequest("invalid request body"))
		return
	}

	appt, err := h.svc.UpdateAppointmentStatus(r.Context(), id, domain.AppointmentStatus(req.Status))
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	log.Info("appointment status updated",
		slog.String("appointment_id", id.String()),
		slog.String("status", req.Status),
	)
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *SchedulingHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "DeleteAppointment"))

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, log, badRequest("id must be a UUID"))
		return
	}

	if err := h.svc.DeleteAppointment(r.Context(), id); err != nil {
		h.writeError(w, log, err)
		return
	}

	log.Info("appointment deleted", slog.String("appointment_id", id.String()))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Appointment deleted successfully"})
}

type checkConflictsRequest struct {
	AppointmentID string `json:"appointmentId,omitempty"`
	ProviderID    string `json:"providerId"`
	ClientID      string `json:"clientId"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
}

type conflictResponse struct {
	Appointment  appointmentResponse `json:"appointment"`
	ConflictType string              `json:"conflictType"`
	Message      string              `json:"message"`
}

type conflictResultResponse struct {
	Conflicts    []conflictResponse `json:"conflicts"`
	HasConflicts bool               `json:"hasConflicts"`
}

func (h *SchedulingHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "CheckConflicts"))

	var req checkConflictsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, log, badRequest("invalid request body"))
		return
	}

	in := scheduling.CheckConflictsInput{
		ProviderID: req.ProviderID,
		ClientID:   req.ClientID,
	}
	if req.AppointmentID != "" {
		id, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			h.writeError(w, log, badRequest("appointmentId must be a UUID"))
			return
		}
		in.AppointmentID = id
	}
	// Unparseable or absent timestamps stay zero: the check degrades to the
	// neutral "no conflicts" answer instead of failing the request.
	if t, err := parseTimestamp(req.StartTime); err == nil {
		in.StartTime = t
	}
	if t, err := parseTimestamp(req.EndTime); err == nil {
		in.EndTime = t
	}

	res, err := h.svc.CheckConflicts(r.Context(), in)
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	out := conflictResultResponse{
		Conflicts:    make([]conflictResponse, 0, len(res.Conflicts)),
		HasConflicts: res.HasConflicts,
	}
	for _, c := range res.Conflicts {
		out.Conflicts = append(out.Conflicts, conflictResponse{
			Appointment:  toAppointmentResponse(c.Appointment),
			ConflictType: string(c.Type),
			Message:      c.Message,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type createWaitlistRequest struct {
	ClientID           string `json:"clientId"`
	ProviderID         string `json:"providerId"`
	PreferredDate      string `json:"preferredDate"`
	PreferredTimeStart string `json:"preferredTimeStart"`
	PreferredTimeEnd   string `json:"preferredTimeEnd"`
	AppointmentType    string `json:"appointmentType"`
	Notes              string `json:"notes"`
	Priority           int    `json:"priority"`
}

type waitlistResponse struct {
	ID                 string    `json:"id"`
	ClientID           string    `json:"clientId"`
	ProviderID         string    `json:"providerId"`
	PreferredDate      time.Time `json:"preferredDate"`
	PreferredTimeStart string    `json:"preferredTimeStart"`
	PreferredTimeEnd   string    `json:"preferredTimeEnd"`
	AppointmentType    string    `json:"appointmentType"`
	Notes              string    `json:"notes"`
	Priority           int       `json:"priority"`
	IsFulfilled        bool      `json:"isFulfilled"`
	CreatedAt          time.Time `json:"createdAt"`
}

func (h *SchedulingHandler) CreateWaitlistEntry(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "CreateWaitlistEntry"))

	var req createWaitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, log, badRequest("invalid request body"))
		return
	}

	preferred, err := parseTimestamp(req.PreferredDate)
	if err != nil {
		h.writeError(w, log, badRequest("preferredDate must be an RFC 3339 timestamp or date"))
		return
	}

	entry, err := h.svc.CreateWaitlistEntry(r.Context(), scheduling.CreateWaitlistInput{
		ClientID:           req.ClientID,
		ProviderID:         req.ProviderID,
		PreferredDate:      preferred,
		PreferredTimeStart: req.PreferredTimeStart,
		PreferredTimeEnd:   req.PreferredTimeEnd,
		AppointmentType:    req.AppointmentType,
		Notes:              req.Notes,
		Priority:           req.Priority,
	})
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	log.Info("waitlist entry created", slog.String("waitlist_id", entry.ID.String()))
	writeJSON(w, http.StatusCreated, toWaitlistResponse(entry))
}

func (h *SchedulingHandler) ListWaitlist(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "ListWaitlist"))

	entries, err := h.svc.ListWaitlist(r.Context())
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	out := make([]waitlistResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toWaitlistResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

type createScheduleRequest struct {
	ProviderID     string `json:"providerId"`
	DayOfWeek      int    `json:"dayOfWeek"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	IsAvailable    *bool  `json:"isAvailable"`
	BreakStartTime string `json:"breakStartTime"`
	BreakEndTime   string `json:"breakEndTime"`
	EffectiveFrom  string `json:"effectiveFrom"`
	EffectiveUntil string `json:"effectiveUntil"`
}

type scheduleResponse struct {
	ID             string     `json:"id"`
	ProviderID     string     `json:"providerId"`
	DayOfWeek      int        `json:"dayOfWeek"`
	StartTime      string     `json:"startTime"`
	EndTime        string     `json:"endTime"`
	IsAvailable    bool       `json:"isAvailable"`
	BreakStartTime string     `json:"breakStartTime,omitempty"`
	BreakEndTime   string     `json:"breakEndTime,omitempty"`
	EffectiveFrom  time.Time  `json:"effectiveFrom"`
	EffectiveUntil *time.Time `json:"effectiveUntil,omitempty"`
}

type scheduleExceptionResponse struct {
	ID           string    `json:"id"`
	ProviderID   string    `json:"providerId"`
	Date         time.Time `json:"date"`
	Reason       string    `json:"reason,omitempty"`
	AltStartTime string    `json:"altStartTime,omitempty"`
	AltEndTime   string    `json:"altEndTime,omitempty"`
	IsFullDayOff bool      `json:"isFullDayOff"`
}

func (h *SchedulingHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "CreateSchedule"))

	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, log, badRequest("invalid request body"))
		return
	}

	in := scheduling.CreateScheduleInput{
		ProviderID:     req.ProviderID,
		DayOfWeek:      req.DayOfWeek,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		IsAvailable:    req.IsAvailable,
		BreakStartTime: req.BreakStartTime,
		BreakEndTime:   req.BreakEndTime,
	}
	if req.EffectiveFrom != "" {
		t, err := parseTimestamp(req.EffectiveFrom)
		if err != nil {
			h.writeError(w, log, badRequest("effectiveFrom must be an RFC 3339 timestamp or date"))
			return
		}
		in.EffectiveFrom = t
	}
	if req.EffectiveUntil != "" {
		t, err := parseTimestamp(req.EffectiveUntil)
		if err != nil {
			h.writeError(w, log, badRequest("effectiveUntil must be an RFC 3339 timestamp or date"))
			return
		}
		in.EffectiveUntil = &t
	}

	schedule, err := h.svc.CreateSchedule(r.Context(), in)
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	log.Info("provider schedule created",
		slog.String("schedule_id", schedule.ID.String()),
		slog.String("provider_id", schedule.ProviderID),
	)
	writeJSON(w, http.StatusCreated, toScheduleResponse(schedule))
}

func (h *SchedulingHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "ListSchedules"))

	schedules, err := h.svc.ListSchedules(r.Context(), r.URL.Query().Get("providerId"))
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	out := make([]scheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, toScheduleResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SchedulingHandler) ListScheduleExceptions(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "ListScheduleExceptions"))

	exceptions, err := h.svc.ListScheduleExceptions(r.Context())
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	out := make([]scheduleExceptionResponse, 0, len(exceptions))
	for _, e := range exceptions {
		out = append(out, scheduleExceptionResponse{
			ID:           e.ID.String(),
			ProviderID:   e.ProviderID,
			Date:         e.Date,
			Reason:       e.Reason,
			AltStartTime: e.AltStartTime,
			AltEndTime:   e.AltEndTime,
			IsFullDayOff: e.IsFullDayOff,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func toAppointmentResponse(a domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID.String(),
		ClientID:        a.ClientID,
		ProviderID:      a.ProviderID,
		AppointmentType: a.AppointmentType,
		Title:           a.Title,
		Description:     a.Description,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime(),
		Duration:        a.DurationMinutes,
		Status:          string(a.Status),
		Location:        a.Location,
		RoomNumber:      a.RoomNumber,
		CreatedBy:       a.CreatedBy,
		CheckedInAt:     a.CheckedInAt,
		CompletedAt:     a.CompletedAt,
		CancelledAt:     a.CancelledAt,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func toWaitlistResponse(e domain.WaitlistEntry) waitlistResponse {
	return waitlistResponse{
		ID:                 e.ID.String(),
		ClientID:           e.ClientID,
		ProviderID:         e.ProviderID,
		PreferredDate:      e.PreferredDate,
		PreferredTimeStart: e.PreferredTimeStart,
		PreferredTimeEnd:   e.PreferredTimeEnd,
		AppointmentType:    e.AppointmentType,
		Notes:              e.Notes,
		Priority:           e.Priority,
		IsFulfilled:        e.IsFulfilled,
		CreatedAt:          e.CreatedAt,
	}
}

func toScheduleResponse(s domain.ProviderSchedule) scheduleResponse {
	return scheduleResponse{
		ID:             s.ID.String(),
		ProviderID:     s.ProviderID,
		DayOfWeek:      s.DayOfWeek,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		IsAvailable:    s.IsAvailable,
		BreakStartTime: s.BreakStartTime,
		BreakEndTime:   s.BreakEndTime,
		EffectiveFrom:  s.EffectiveFrom,
		EffectiveUntil: s.EffectiveUntil,
	}
}

// parseTimestamp accepts RFC 3339 timestamps and bare dates, the two shapes
// the frontend sends.
func parseTimestamp(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
