package activities

import (
	"context"
	"errors"
	"log"

	"go.temporal.io/sdk/temporal"

	"train-booking-system/internal/database"
	"train-booking-system/internal/models"
)

// ReportActivities persists run outcomes and booking reports.
type ReportActivities struct {
	DB *database.DB
}

func NewReportActivities(db *database.DB) *ReportActivities {
	return &ReportActivities{DB: db}
}

// RecordOutcome stores a run's terminal outcome.
func (a *ReportActivities) RecordOutcome(ctx context.Context, runID, outcome, reason, orderID string) error {
	err := a.DB.RecordRunOutcome(runID, outcome, reason, orderID)
	if err != nil {
		// A missing run record is permanent - don't retry
		if errors.Is(err, database.ErrRunNotFound) {
			return temporal.NewNonRetryableApplicationError(
				err.Error(),
				"RunNotFound",
				err,
			)
		}
		return err
	}
	return nil
}

// WriteReport persists a successful booking's summary. Fire-and-forget from
// the workflow's perspective.
func (a *ReportActivities) WriteReport(ctx context.Context, runID string, report *models.Report) error {
	if err := a.DB.SaveReport(runID, report); err != nil {
		return err
	}
	log.Printf("booking report written for run %s (order %s)", runID, report.OrderID)
	return nil
}
