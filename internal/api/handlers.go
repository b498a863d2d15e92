package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.temporal.io/sdk/client"

	"train-booking-system/internal/config"
	"train-booking-system/internal/database"
	"train-booking-system/internal/models"
	"train-booking-system/internal/stations"
	"train-booking-system/internal/temporal/workflows"
)

type Handler struct {
	DB             *database.DB
	TemporalClient client.Client
	Config         *config.Config
	Defaults       *config.BookingDefaults
}

func NewHandler(db *database.DB, temporalClient client.Client, cfg *config.Config, defaults *config.BookingDefaults) *Handler {
	return &Handler{
		DB:             db,
		TemporalClient: temporalClient,
		Config:         cfg,
		Defaults:       defaults,
	}
}

// Health check endpoint
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// StartRun launches a booking workflow for one passenger group, route and
// travel date.
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req models.StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	input, err := h.buildInput(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Start booking workflow
	workflowOptions := client.StartWorkflowOptions{
		ID:        "booking-" + input.RunID,
		TaskQueue: workflows.TaskQueue,
	}

	we, err := h.TemporalClient.ExecuteWorkflow(context.Background(), workflowOptions,
		workflows.BookingWorkflow, *input)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to start workflow: %v", err), http.StatusInternalServerError)
		return
	}

	run := &database.Run{
		RunID:      input.RunID,
		WorkflowID: we.GetID(),
		TemporalID: we.GetRunID(),
		Username:   input.Username,
		TrainDate:  input.TrainDate,
		From:       input.FromStation,
		To:         input.ToStation,
		Stage:      models.StageUnauthenticated,
	}
	if err := h.DB.CreateRun(run); err != nil {
		http.Error(w, fmt.Sprintf("failed to create run: %v", err), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.StartRunResponse{
		RunID:      input.RunID,
		WorkflowID: we.GetID(),
		Stage:      models.StageUnauthenticated,
	})
}

// buildInput merges the request with the configured booking defaults and
// validates the resulting run configuration.
func (h *Handler) buildInput(req *models.StartRunRequest) (*models.BookingInput, error) {
	merged := func(v, def string) string {
		if strings.TrimSpace(v) != "" {
			return v
		}
		return def
	}

	passengers, err := models.ParsePassengers(merged(req.Passengers, h.Defaults.Passengers))
	if err != nil {
		return nil, err
	}
	seats, err := models.ParseSeats(merged(req.Seats, h.Defaults.Seats))
	if err != nil {
		return nil, err
	}

	from, err := stations.Find(merged(req.From, h.Defaults.From))
	if err != nil {
		return nil, err
	}
	to, err := stations.Find(merged(req.To, h.Defaults.To))
	if err != nil {
		return nil, err
	}

	interval := h.Config.QueryInterval
	if req.QueryInterval > 0 {
		interval = time.Duration(req.QueryInterval) * time.Millisecond
	}

	input := &models.BookingInput{
		RunID:         uuid.New().String(),
		Username:      h.Config.Username,
		Passengers:    passengers,
		Seats:         seats,
		TrainDate:     merged(req.TrainDate, h.Defaults.TrainDate),
		FromStation:   from,
		ToStation:     to,
		IncludeTrains: splitTrains(merged(req.IncludeTrains, h.Defaults.IncludeTrains)),
		ExcludeTrains: splitTrains(merged(req.ExcludeTrains, h.Defaults.ExcludeTrains)),
		QueryInterval: interval,
		CaptchaMode:   merged(req.CaptchaMode, h.Config.CaptchaMode),
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return input, nil
}

func splitTrains(source string) []string {
	if strings.TrimSpace(source) == "" {
		return nil
	}
	var trains []string
	for _, t := range strings.Split(source, ",") {
		if t = strings.TrimSpace(t); t != "" {
			trains = append(trains, t)
		}
	}
	return trains
}

// GetRunStatus retrieves the live state of a run.
func (h *Handler) GetRunStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runID := vars["runId"]

	run, err := h.DB.GetRun(runID)
	if err != nil {
		http.Error(w, fmt.Sprintf("run not found: %v", err), http.StatusNotFound)
		return
	}

	// Query the workflow for current state
	resp, err := h.TemporalClient.QueryWorkflow(context.Background(), run.WorkflowID, run.TemporalID, workflows.QueryGetStatus)
	if err != nil {
		// Workflow no longer running - serve the recorded outcome
		json.NewEncoder(w).Encode(models.RunStatusResponse{
			RunID:   run.RunID,
			Stage:   run.Stage,
			Outcome: run.Outcome,
			Reason:  run.Reason,
			OrderID: run.OrderID,
		})
		return
	}

	var state *models.BookingState
	if err := resp.Get(&state); err != nil {
		http.Error(w, fmt.Sprintf("failed to get workflow state: %v", err), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(models.RunStatusResponse{
		RunID:           state.RunID,
		Stage:           state.Stage,
		Outcome:         state.Outcome,
		Reason:          state.Reason,
		OrderID:         state.OrderID,
		CandidateTrain:  state.CandidateTrain,
		CandidatesFound: state.CandidatesFound,
		Queries:         state.Queries,
		WaitSeconds:     state.WaitSeconds,
		CaptchaImage:    state.CaptchaImage,
	})
}

// SubmitCaptcha delivers an operator-resolved CAPTCHA code to a run waiting
// in interactive mode.
func (h *Handler) SubmitCaptcha(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runID := vars["runId"]

	var req models.SubmitCaptchaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		http.Error(w, "code required", http.StatusBadRequest)
		return
	}

	run, err := h.DB.GetRun(runID)
	if err != nil {
		http.Error(w, fmt.Sprintf("run not found: %v", err), http.StatusNotFound)
		return
	}

	err = h.TemporalClient.SignalWorkflow(context.Background(), run.WorkflowID, run.TemporalID,
		workflows.SignalSubmitCaptcha, req.Code)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to send signal: %v", err), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "captcha code submitted"})
}

// CancelRun asks a run to stop at the next stage boundary.
func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runID := vars["runId"]

	run, err := h.DB.GetRun(runID)
	if err != nil {
		http.Error(w, fmt.Sprintf("run not found: %v", err), http.StatusNotFound)
		return
	}

	err = h.TemporalClient.SignalWorkflow(context.Background(), run.WorkflowID, run.TemporalID,
		workflows.SignalCancelRun, true)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to send signal: %v", err), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "run cancelled"})
}
