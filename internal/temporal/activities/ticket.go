package activities

import (
	"context"

	"train-booking-system/internal/models"
	"train-booking-system/internal/railclient"
)

// TicketActivities covers availability queries.
type TicketActivities struct {
	Rail *railclient.Client
}

func NewTicketActivities(rail *railclient.Client) *TicketActivities {
	return &TicketActivities{Rail: rail}
}

// AvailabilityOutcome pairs one poll's candidates with the session state the
// query may have refreshed.
type AvailabilityOutcome struct {
	Candidates []models.Candidate `json:"candidates"`
	Session    *models.Session    `json:"session"`
}

// QueryAvailability runs one availability query. An empty candidate list
// means no train currently qualifies; the workflow decides how long to wait
// before asking again.
func (a *TicketActivities) QueryAvailability(ctx context.Context, sess *models.Session, q railclient.AvailabilityQuery) (*AvailabilityOutcome, error) {
	candidates, err := a.Rail.QueryAvailability(ctx, sess, q)
	if err != nil {
		return nil, err
	}
	return &AvailabilityOutcome{Candidates: candidates, Session: sess}, nil
}
