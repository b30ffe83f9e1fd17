package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"practicehq/backend/internal/domain"
	"practicehq/backend/internal/store"
)

type SchedulingRepo struct {
	db *bun.DB
}

func NewSchedulingRepo(db *bun.DB) *SchedulingRepo {
	return &SchedulingRepo{db: db}
}

func (r *SchedulingRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r *SchedulingRepo) CreateBatch(ctx context.Context, appts []domain.Appointment) ([]domain.Appointment, error) {
	if len(appts) == 0 {
		return nil, nil
	}

	rows := make([]domain.Appointment, len(appts))
	copy(rows, appts)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SchedulingRepo) List(ctx context.Context, q store.AppointmentQuery) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	sel := r.db.NewSelect().Model(&rows)

	if q.ClientID != "" {
		sel = sel.Where("client_id = ?", q.ClientID)
	}
	if q.ProviderID != "" {
		sel = sel.Where("provider_id = ?", q.ProviderID)
	}
	if q.Status != "" {
		sel = sel.Where("status = ?", q.Status)
	}
	if q.AppointmentType != "" {
		sel = sel.Where("appointment_type = ?", q.AppointmentType)
	}
	if !q.WindowStart.IsZero() && !q.WindowEnd.IsZero() {
		sel = sel.Where("start_time >= ?", q.WindowStart).Where("start_time <= ?", q.WindowEnd)
	}

	if err := sel.OrderExpr("start_time ASC").Scan(ctx); err != nil {
		return nil, err
	}

	if q.Search == "" {
		return rows, nil
	}

	// Substring search on title and type is applied after the fetch, matching
	// the scoped result sets this API serves.
	needle := strings.ToLower(q.Search)
	out := make([]domain.Appointment, 0, len(rows))
	for _, a := range rows {
		if strings.Contains(strings.ToLower(a.Title), needle) ||
			strings.Contains(strings.ToLower(a.AppointmentType), needle) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *SchedulingRepo) Get(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	var row domain.Appointment
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", appointmentID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return row, nil
}

func (r *SchedulingRepo) Update(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	res, err := r.db.NewUpdate().
		Model(&m).
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return m, nil
}

func (r *SchedulingRepo) Delete(ctx context.Context, appointmentID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", appointmentID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SchedulingRepo) ListOverlapping(ctx context.Context, providerID, clientID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("provider_id = ?", providerID).WhereOr("client_id = ?", clientID)
		}).
		Where("status NOT IN (?)", bun.In([]domain.AppointmentStatus{
			domain.AppointmentStatusCancelled,
			domain.AppointmentStatusNoShow,
		})).
		Where("start_time <= ?", windowEnd).
		Where("start_time + make_interval(mins => duration_minutes) >= ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type WaitlistRepo struct {
	db *bun.DB
}

func NewWaitlistRepo(db *bun.DB) *WaitlistRepo {
	return &WaitlistRepo{db: db}
}

func (r *WaitlistRepo) Create(ctx context.Context, entry domain.WaitlistEntry) (domain.WaitlistEntry, error) {
	m := entry
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.WaitlistEntry{}, err
	}
	return m, nil
}

func (r *WaitlistRepo) ListUnfulfilled(ctx context.Context) ([]domain.WaitlistEntry, error) {
	var rows []domain.WaitlistEntry
	err := r.db.NewSelect().
		Model(&rows).
		Where("is_fulfilled = FALSE").
		OrderExpr("priority DESC, created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) Create(ctx context.Context, schedule domain.ProviderSchedule) (domain.ProviderSchedule, error) {
	m := schedule
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.ProviderSchedule{}, err
	}
	return m, nil
}

func (r *ScheduleRepo) List(ctx context.Context, providerID string) ([]domain.ProviderSchedule, error) {
	var rows []domain.ProviderSchedule
	sel := r.db.NewSelect().Model(&rows)
	if providerID != "" {
		sel = sel.Where("provider_id = ?", providerID)
	}
	err := sel.OrderExpr("provider_id ASC, day_of_week ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) ListExceptions(ctx context.Context) ([]domain.ScheduleException, error) {
	var rows []domain.ScheduleException
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
