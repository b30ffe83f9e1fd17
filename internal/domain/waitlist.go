package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// WaitlistEntry records a client waiting for an opening with a provider.
// Entries stay listed until fulfilled; higher priority surfaces first.
type WaitlistEntry struct {
	bun.BaseModel `bun:"table:appointment_waitlist"`

	ID                 uuid.UUID `bun:"id,pk,type:uuid"`
	ClientID           string    `bun:"client_id,notnull"`
	ProviderID         string    `bun:"provider_id"`
	PreferredDate      time.Time `bun:"preferred_date,notnull"`
	PreferredTimeStart string    `bun:"preferred_time_start"`
	PreferredTimeEnd   string    `bun:"preferred_time_end"`
	AppointmentType    string    `bun:"appointment_type,notnull"`
	Notes              string    `bun:"notes"`
	Priority           int       `bun:"priority,notnull"`
	IsFulfilled        bool      `bun:"is_fulfilled,notnull"`
	CreatedAt          time.Time `bun:"created_at,notnull"`
	UpdatedAt          time.Time `bun:"updated_at,notnull"`
}

func (w *WaitlistEntry) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if w.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			w.ID = id
		}
		if w.CreatedAt.IsZero() {
			w.CreatedAt = now
		}
		if w.UpdatedAt.IsZero() {
			w.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		w.UpdatedAt = now
	}
	return nil
}
