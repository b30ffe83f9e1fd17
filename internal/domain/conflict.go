package domain

import (
	"time"

	"github.com/google/uuid"
)

type ConflictType string

const (
	ConflictTypeProviderOverlap ConflictType = "provider_overlap"
	ConflictTypeClientOverlap   ConflictType = "client_overlap"
)

const (
	providerConflictMessage = "Provider already has an appointment at this time"
	clientConflictMessage   = "Client already has an appointment at this time"
)

// ConflictCandidate is a proposed appointment time that has not been
// committed yet. ExcludeID carries the id of the appointment being edited so
// it does not conflict with itself.
type ConflictCandidate struct {
	ExcludeID  uuid.UUID
	ProviderID string
	ClientID   string
	StartTime  time.Time
	EndTime    time.Time
}

type Conflict struct {
	Appointment Appointment
	Type        ConflictType
	Message     string
}

type ConflictResult struct {
	Conflicts    []Conflict
	HasConflicts bool
}

// DetectConflicts reports which of the existing appointments overlap the
// candidate for the same provider or the same client. Cancelled and no-show
// appointments never participate. The check is advisory: it is computed over
// whatever snapshot the caller fetched, and a concurrent write can still slip
// in between check and book.
//
// When the candidate is missing its client id or either endpoint, there is
// not enough information to judge yet and the neutral empty result is
// returned rather than an error.
func DetectConflicts(candidate ConflictCandidate, existing []Appointment) ConflictResult {
	if candidate.ClientID == "" || candidate.StartTime.IsZero() || candidate.EndTime.IsZero() {
		return ConflictResult{Conflicts: []Conflict{}}
	}

	conflicts := make([]Conflict, 0)
	for _, appt := range existing {
		if appt.Status == AppointmentStatusCancelled || appt.Status == AppointmentStatusNoShow {
			continue
		}
		if candidate.ExcludeID != uuid.Nil && appt.ID == candidate.ExcludeID {
			continue
		}
		if appt.ProviderID != candidate.ProviderID && appt.ClientID != candidate.ClientID {
			continue
		}
		// Inclusive on both boundaries: back-to-back appointments that touch
		// at an endpoint count as a conflict.
		if appt.EndTime().Before(candidate.StartTime) || appt.StartTime.After(candidate.EndTime) {
			continue
		}

		c := Conflict{Appointment: appt}
		if appt.ProviderID == candidate.ProviderID {
			// Provider wins the tie-break when both parties match.
			c.Type = ConflictTypeProviderOverlap
			c.Message = providerConflictMessage
		} else {
			c.Type = ConflictTypeClientOverlap
			c.Message = clientConflictMessage
		}
		conflicts = append(conflicts, c)
	}

	return ConflictResult{
		Conflicts:    conflicts,
		HasConflicts: len(conflicts) > 0,
	}
}
