package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"practicehq/backend/internal/domain"
	"practicehq/backend/internal/service/scheduling"
	"practicehq/backend/internal/store"
)

type fakeService struct {
	createAppointmentFn       func(ctx context.Context, in scheduling.CreateAppointmentInput) ([]domain.Appointment, error)
	listAppointmentsFn        func(ctx context.Context, q store.AppointmentQuery) ([]domain.Appointment, error)
	getAppointmentFn          func(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	updateAppointmentFn       func(ctx context.Context, id uuid.UUID, in scheduling.UpdateAppointmentInput) (domain.Appointment, error)
	updateAppointmentStatusFn func(ctx context.Context, id uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error)
	deleteAppointmentFn       func(ctx context.Context, id uuid.UUID) error
	checkConflictsFn          func(ctx context.Context, in scheduling.CheckConflictsInput) (domain.ConflictResult, error)
	createWaitlistEntryFn     func(ctx context.Context, in scheduling.CreateWaitlistInput) (domain.WaitlistEntry, error)
	listWaitlistFn            func(ctx context.Context) ([]domain.WaitlistEntry, error)
	createScheduleFn          func(ctx context.Context, in scheduling.CreateScheduleInput) (domain.ProviderSchedule, error)
	listSchedulesFn           func(ctx context.Context, providerID string) ([]domain.ProviderSchedule, error)
	listScheduleExceptionsFn  func(ctx context.Context) ([]domain.ScheduleException, error)
}

func (f *fakeService) CreateAppointment(ctx context.Context, in scheduling.CreateAppointmentInput) ([]domain.Appointment, error) {
	return f.createAppointmentFn(ctx, in)
}

func (f *fakeService) ListAppointments(ctx context.Context, q store.AppointmentQuery) ([]domain.Appointment, error) {
	return f.listAppointmentsFn(ctx, q)
}

func (f *fakeService) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return f.getAppointmentFn(ctx, id)
}

func (f *fakeService) UpdateAppointment(ctx context.Context, id uuid.UUID, in scheduling.UpdateAppointmentInput) (domain.Appointment, error) {
	return f.updateAppointmentFn(ctx, id, in)
}

func (f *fakeService) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error) {
	return f.updateAppointmentStatusFn(ctx, id, status)
}

func (f *fakeService) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	return f.deleteAppointmentFn(ctx, id)
}

func (f *fakeService) CheckConflicts(ctx context.Context, in scheduling.CheckConflictsInput) (domain.ConflictResult, error) {
	return f.checkConflictsFn(ctx, in)
}

func (f *fakeService) CreateWaitlistEntry(ctx context.Context, in scheduling.CreateWaitlistInput) (domain.WaitlistEntry, error) {
	return f.createWaitlistEntryFn(ctx, in)
}

func (f *fakeService) ListWaitlist(ctx context.Context) ([]domain.WaitlistEntry, error) {
	return f.listWaitlistFn(ctx)
}

func (f *fakeService) CreateSchedule(ctx context.Context, in scheduling.CreateScheduleInput) (domain.ProviderSchedule, error) {
	return f.createScheduleFn(ctx, in)
}

func (f *fakeService) ListSchedules(ctx context.Context, providerID string) ([]domain.ProviderSchedule, error) {
	return f.listSchedulesFn(ctx, providerID)
}

func (f *fakeService) ListScheduleExceptions(ctx context.Context) ([]domain.ScheduleException, error) {
	return f.listScheduleExceptionsFn(ctx)
}

func newTestRouter(svc *fakeService) http.Handler {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return NewRouter(NewSchedulingHandler(svc, log))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func testAppointment() domain.Appointment {
	return domain.Appointment{
		ID:              uuid.MustParse("0190c3a1-0000-7000-8000-000000000001"),
		ClientID:        "client-1",
		ProviderID:      "provider-1",
		AppointmentType: "therapy",
		Title:           "Weekly session",
		StartTime:       time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Status:          domain.AppointmentStatusScheduled,
		CreatedAt:       time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakeService{})

	rec := doJSON(t, router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateAppointment_Single(t *testing.T) {
	var captured scheduling.CreateAppointmentInput
	svc := &fakeService{
		createAppointmentFn: func(_ context.Context, in scheduling.CreateAppointmentInput) ([]domain.Appointment, error) {
			captured = in
			return []domain.Appointment{testAppointment()}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/scheduling/appointments", map[string]any{
		"clientId":        "client-1",
		"providerId":      "provider-1",
		"appointmentType": "therapy",
		"title":           "Weekly session",
		"startTime":       "2024-06-03T09:00:00Z",
		"duration":        60,
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, "client-1", captured.ClientID)
	assert.Equal(t, 60, captured.DurationMinutes)
	assert.True(t, captured.StartTime.Equal(time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)))
	assert.Nil(t, captured.Recurrence)

	var got appointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "client-1", got.ClientID)
	assert.Equal(t, "scheduled", got.Status)
	assert.True(t, got.EndTime.Equal(time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)))
}

func TestCreateAppointment_Recurring(t *testing.T) {
	var captured scheduling.CreateAppointmentInput
	svc := &fakeService{
		createAppointmentFn: func(_ context.Context, in scheduling.CreateAppointmentInput) ([]domain.Appointment, error) {
			captured = in
			first := testAppointment()
			second := testAppointment()
			second.ID = uuid.MustParse("0190c3a1-0000-7000-8000-000000000002")
			second.StartTime = first.StartTime.AddDate(0, 0, 7)
			return []domain.Appointment{first, second}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/scheduling/appointments", map[string]any{
		"clientId":         "client-1",
		"providerId":       "provider-1",
		"appointmentType":  "therapy",
		"startTime":        "2024-06-03T09:00:00Z",
		"duration":         60,
		"recurringPattern": "weekly",
		"recurringTimeSlots": []map[string]any{
			{"time": "09:00", "dayOfWeek": 1},
		},
		"recurringEndDate":  "2024-06-10",
		"isBusinessDayOnly": false,
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	require.NotNil(t, captured.Recurrence)
	assert.Equal(t, domain.RecurrencePatternWeekly, captured.Recurrence.Pattern)
	require.Len(t, captured.Recurrence.Slots, 1)
	assert.Equal(t, 9, captured.Recurrence.Slots[0].Hour)
	require.NotNil(t, captured.Recurrence.Slots[0].DayOfWeek)
	assert.Equal(t, 1, *captured.Recurrence.Slots[0].DayOfWeek)
	assert.False(t, captured.Recurrence.BusinessDaysOnly)

	var got recurringCreatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Created 2 recurring appointments", got.Message)
	assert.Len(t, got.Appointments, 2)
}

func TestCreateAppointment_BusinessDaysDefaultOn(t *testing.T) {
	var captured scheduling.CreateAppointmentInput
	svc := &fakeService{
		createAppointmentFn: func(_ context.Context, in scheduling.CreateAppointmentInput) ([]domain.Appointment, error) {
			captured = in
			return []domain.Appointment{testAppointment()}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/scheduling/appointments", map[string]any{
		"clientId":           "client-1",
		"appointmentType":    "therapy",
		"startTime":          "2024-06-03T09:00:00Z",
		"duration":           30,
		"recurringPattern":   "daily",
		"recurringTimeSlots": []map[string]any{{"time": "09:00"}},
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, captured.Recurrence)
	assert.True(t, captured.Recurrence.BusinessDaysOnly)
}

func TestCreateAppointment_BadRequests(t *testing.T) {
	router := newTestRouter(&fakeService{})

	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "malformed start time",
			body: map[string]any{"clientId": "c", "startTime": "yesterday", "duration": 30},
		},
		{
			name: "unknown pattern",
			body: map[string]any{
				"clientId": "c", "startTime": "2024-06-03T09:00:00Z", "duration": 30,
				"recurringPattern":   "fortnightly",
				"recurringTimeSlots": []map[string]any{{"time": "09:00"}},
			},
		},
		{
			name: "malformed slot time",
			body: map[string]any{
				"clientId": "c", "startTime": "2024-06-03T09:00:00Z", "duration": 30,
				"recurringPattern":   "daily",
				"recurringTimeSlots": []map[string]any{{"time": "9am"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/scheduling/appointments", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateAppointment_ValidationErrorMapsTo400(t *testing.T) {
	svc := &fakeService{
		createAppointmentFn: func(_ context.Context, _ scheduling.CreateAppointmentInput) ([]domain.Appointment, error) {
			return nil, &scheduling.ValidationError{}
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/scheduling/appointments", map[string]any{
		"startTime": "2024-06-03T09:00:00Z",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAppointments_QueryPassthrough(t *testing.T) {
	var captured store.AppointmentQuery
	svc := &fakeService{
		listAppointmentsFn: func(_ context.Context, q store.AppointmentQuery) ([]domain.Appointment, error) {
			captured = q
			return []domain.Appointment{testAppointment()}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodGet,
		"/scheduling/appointments?clientId=client-1&providerId=provider-1&status=scheduled&startDate=2024-06-01&endDate=2024-06-30T23:00:00Z", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "client-1", captured.ClientID)
	assert.Equal(t, "provider-1", captured.ProviderID)
	assert.Equal(t, domain.AppointmentStatusScheduled, captured.Status)
	assert.True(t, captured.WindowStart.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, captured.WindowEnd.Equal(time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC)))

	var got []appointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 1)
}

func TestGetAppointment(t *testing.T) {
	appt := testAppointment()
	svc := &fakeService{
		getAppointmentFn: func(_ context.Context, id uuid.UUID) (domain.Appointment, error) {
			if id != appt.ID {
				return domain.Appointment{}, store.ErrNotFound
			}
			return appt, nil
		},
	}
	router := newTestRouter(svc)

	t.Run("found", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/scheduling/appointments/"+appt.ID.String(), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/scheduling/appointments/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/scheduling/appointments/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateAppointmentStatus(t *testing.T) {
	appt := testAppointment()
	var gotStatus domain.AppointmentStatus
	svc := &fakeService{
		updateAppointmentStatusFn: func(_ context.Context, _ uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error) {
			gotStatus = status
			updated := appt
			updated.Status = status
			return updated, nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPatch, "/scheduling/appointments/"+appt.ID.String()+"/status",
		map[string]any{"status": "checked_in"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.AppointmentStatusCheckedIn, gotStatus)

	var got appointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "checked_in", got.Status)
}

func TestDeleteAppointment(t *testing.T) {
	appt := testAppointment()
	svc := &fakeService{
		deleteAppointmentFn: func(_ context.Context, id uuid.UUID) error {
			if id != appt.ID {
				return store.ErrNotFound
			}
			return nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodDelete, "/scheduling/appointments/"+appt.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Appointment deleted successfully"}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodDelete, "/scheduling/appointments/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckConflicts(t *testing.T) {
	appt := testAppointment()
	svc := &fakeService{
		checkConflictsFn: func(_ context.Context, in scheduling.CheckConflictsInput) (domain.ConflictResult, error) {
			return domain.ConflictResult{
				Conflicts: []domain.Conflict{{
					Appointment: appt,
					Type:        domain.ConflictTypeProviderOverlap,
					Message:     "Provider already has an appointment at this time",
				}},
				HasConflicts: true,
			}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/scheduling/conflicts/check", map[string]any{
		"providerId": "provider-1",
		"clientId":   "client-1",
		"startTime":  "2024-06-03T09:30:00Z",
		"endTime":    "2024-06-03T10:30:00Z",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var got conflictResultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.HasConflicts)
	require.Len(t, got.Conflicts, 1)
	assert.Equal(t, "provider_overlap", got.Conflicts[0].ConflictType)
	assert.Equal(t, "Provider already has an appointment at this time", got.Conflicts[0].Message)
}

func TestCheckConflicts_MissingTimesStillAnswered(t *testing.T) {
	var captured scheduling.CheckConflictsInput
	svc := &fakeService{
		checkConflictsFn: func(_ context.Context, in scheduling.CheckConflictsInput) (domain.ConflictResult, error) {
			captured = in
			return domain.ConflictResult{Conflicts: []domain.Conflict{}}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/scheduling/conflicts/check", map[string]any{
		"providerId": "provider-1",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, captured.StartTime.IsZero())
	assert.False(t, mustDecode(t, rec)["hasConflicts"].(bool))
}

func mustDecode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestWaitlistEndpoints(t *testing.T) {
	entry := domain.WaitlistEntry{
		ID:              uuid.MustParse("0190c3a1-0000-7000-8000-000000000009"),
		ClientID:        "client-2",
		AppointmentType: "consult",
		PreferredDate:   time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		Priority:        3,
	}

	svc := &fakeService{
		createWaitlistEntryFn: func(_ context.Context, in scheduling.CreateWaitlistInput) (domain.WaitlistEntry, error) {
			assert.Equal(t, "client-2", in.ClientID)
			assert.Equal(t, 3, in.Priority)
			return entry, nil
		},
		listWaitlistFn: func(_ context.Context) ([]domain.WaitlistEntry, error) {
			return []domain.WaitlistEntry{entry}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/scheduling/waitlist", map[string]any{
		"clientId":        "client-2",
		"appointmentType": "consult",
		"preferredDate":   "2024-07-01",
		"priority":        3,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/scheduling/waitlist", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []waitlistResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "client-2", got[0].ClientID)
}

func TestScheduleEndpoints(t *testing.T) {
	schedule := domain.ProviderSchedule{
		ID:            uuid.MustParse("0190c3a1-0000-7000-8000-000000000011"),
		ProviderID:    "provider-1",
		DayOfWeek:     1,
		StartTime:     "09:00",
		EndTime:       "17:00",
		IsAvailable:   true,
		EffectiveFrom: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	svc := &fakeService{
		createScheduleFn: func(_ context.Context, in scheduling.CreateScheduleInput) (domain.ProviderSchedule, error) {
			assert.Equal(t, "provider-1", in.ProviderID)
			assert.Equal(t, 1, in.DayOfWeek)
			return schedule, nil
		},
		listSchedulesFn: func(_ context.Context, providerID string) ([]domain.ProviderSchedule, error) {
			assert.Equal(t, "provider-1", providerID)
			return []domain.ProviderSchedule{schedule}, nil
		},
		listScheduleExceptionsFn: func(_ context.Context) ([]domain.ScheduleException, error) {
			return []domain.ScheduleException{{
				ID:           uuid.MustParse("0190c3a1-0000-7000-8000-000000000012"),
				ProviderID:   "provider-1",
				Date:         time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC),
				IsFullDayOff: true,
			}}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/scheduling/schedules", map[string]any{
		"providerId": "provider-1",
		"dayOfWeek":  1,
		"startTime":  "09:00",
		"endTime":    "17:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/scheduling/schedules?providerId=provider-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/scheduling/schedules/exceptions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var exceptions []scheduleExceptionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exceptions))
	require.Len(t, exceptions, 1)
	assert.True(t, exceptions[0].IsFullDayOff)
}
