package workflows

import (
	"encoding/base64"
	"fmt"
	"time"

	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"train-booking-system/internal/models"
	"train-booking-system/internal/railclient"
	"train-booking-system/internal/temporal/activities"
)

const (
	TaskQueue = "booking-task-queue"

	SignalSubmitCaptcha = "submitCaptcha"
	SignalCancelRun     = "cancelRun"
	QueryGetStatus      = "getStatus"
)

// BookingWorkflow drives one booking run end to end: session establishment,
// eligibility check, availability polling, then the order pipeline over each
// candidate train until one books or a fatal condition ends the run. Exactly
// one outcome is produced per run.
func BookingWorkflow(ctx workflow.Context, input models.BookingInput) (*models.BookingResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("booking run started",
		"runID", input.RunID,
		"date", input.TrainDate,
		"from", input.FromStation,
		"to", input.ToStation,
		"seats", models.SeatDescription(input.Seats))

	if err := input.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError("invalid booking request", "InvalidRequest", err)
	}

	state := &models.BookingState{
		RunID:     input.RunID,
		Username:  input.Username,
		Stage:     models.StageUnauthenticated,
		StartedAt: workflow.Now(ctx),
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetStatus, func() (*models.BookingState, error) {
		return state, nil
	}); err != nil {
		return nil, err
	}

	// External cancellation is coarse: the operator may stop the run
	// between any two stages. The signal cancels the run context, which
	// fails the in-flight activity or sleep.
	cancelled := false
	runCtx, cancelRun := workflow.WithCancel(ctx)
	workflow.Go(ctx, func(gctx workflow.Context) {
		workflow.GetSignalChannel(gctx, SignalCancelRun).Receive(gctx, nil)
		logger.Info("cancel signal received", "runID", input.RunID)
		cancelled = true
		cancelRun()
	})

	actCtx := workflow.WithActivityOptions(runCtx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	})

	r := &bookingRun{
		ctx:       runCtx,
		actCtx:    actCtx,
		logger:    logger,
		input:     input,
		state:     state,
		captchaCh: workflow.GetSignalChannel(ctx, SignalSubmitCaptcha),
		cancelled: &cancelled,
	}

	if result := r.ensureSession(); result != nil {
		return result, nil
	}
	if result := r.checkEligibility(); result != nil {
		return result, nil
	}

	candidates, result := r.pollAvailability()
	if result != nil {
		return result, nil
	}

	// Candidates are tried strictly in server order, one at a time. Order
	// submission is stateful on the server, so nothing here parallelizes.
	for _, cand := range candidates {
		if result := r.attemptCandidate(cand); result != nil {
			return result, nil
		}
	}

	// Every candidate failed non-fatally. The run ends rather than
	// re-polling; a caller that wants to keep hunting starts a new run.
	return r.finish(models.OutcomeNoAvailability, "all candidate trains rejected the order", "", nil), nil
}

// bookingRun carries one run's state through the workflow stages.
type bookingRun struct {
	ctx       workflow.Context
	actCtx    workflow.Context
	logger    log.Logger
	input     models.BookingInput
	state     *models.BookingState
	sess      *models.Session
	captchaCh workflow.ReceiveChannel
	cancelled *bool
}

// ensureSession reuses a cached signed-in session when the remote service
// still accepts it, otherwise initializes fresh transport state and loops
// through the CAPTCHA-gated login until the service lets us in. The loop is
// bounded only by CAPTCHA attempts: the server, not the client, decides
// correctness.
func (r *bookingRun) ensureSession() *models.BookingResult {
	var sessionAct *activities.SessionActivities

	if err := workflow.ExecuteActivity(r.actCtx, sessionAct.CheckCachedSession).Get(r.actCtx, &r.sess); err != nil {
		return r.failStage("session check", err)
	}
	if r.sess != nil && r.sess.SignedIn {
		r.logger.Info("reusing cached session", "username", r.sess.Username)
		r.state.Stage = models.StageAuthenticated
		return nil
	}

	if err := workflow.ExecuteActivity(r.actCtx, sessionAct.InitSession).Get(r.actCtx, &r.sess); err != nil {
		return r.failStage("session init", err)
	}

	for !r.sess.SignedIn {
		code, result := r.resolveChallenge(railclient.CaptchaKindLogin)
		if result != nil {
			return result
		}

		var attempt *activities.LoginAttempt
		if err := workflow.ExecuteActivity(r.actCtx, sessionAct.Login, r.sess, code).Get(r.actCtx, &attempt); err != nil {
			return r.failStage("login", err)
		}
		r.sess = attempt.Session

		switch attempt.Result.Status {
		case railclient.LoginOK:
			if err := workflow.ExecuteActivity(r.actCtx, sessionAct.PersistSession, r.sess).Get(r.actCtx, nil); err != nil {
				r.logger.Warn("failed to persist session cookies", "error", err)
			}
		case railclient.LoginMaintenance:
			return r.finish(models.OutcomeAborted, "maintenance window: "+attempt.Result.Message, "", nil)
		case railclient.LoginRejected:
			r.logger.Warn("login rejected", "message", attempt.Result.Message)
		}
	}

	r.logger.Info("session established", "username", r.sess.Username)
	r.state.Stage = models.StageAuthenticated
	return nil
}

// checkEligibility verifies every requested passenger against the account's
// authorized set. A missing passenger is fatal: purchasing is impossible
// without server-side registration, so retrying cannot help.
func (r *bookingRun) checkEligibility() *models.BookingResult {
	var sessionAct *activities.SessionActivities

	var authorized []models.Passenger
	if err := workflow.ExecuteActivity(r.actCtx, sessionAct.QueryAuthorizedPassengers, r.sess).Get(r.actCtx, &authorized); err != nil {
		return r.failStage("eligibility check", err)
	}

	for _, p := range r.input.Passengers {
		if !passengerAuthorized(authorized, p) {
			return r.finish(models.OutcomeRejected,
				fmt.Sprintf("passenger %s is not authorized to purchase under this account", p), "", nil)
		}
	}

	r.logger.Info("all passengers eligible", "count", len(r.input.Passengers))
	r.state.Stage = models.StageEligible
	return nil
}

func passengerAuthorized(authorized []models.Passenger, p models.Passenger) bool {
	for _, a := range authorized {
		if a.Name != p.Name {
			continue
		}
		if p.IDNumber == "" || a.IDNumber == p.IDNumber {
			return true
		}
	}
	return false
}

// pollAvailability repeats the availability query until a qualifying train
// set appears. Absence of tickets is a normal long-lived state here, so the
// loop has no terminal failure other than external cancellation.
func (r *bookingRun) pollAvailability() ([]models.Candidate, *models.BookingResult) {
	var ticketAct *activities.TicketActivities

	query := railclient.AvailabilityQuery{
		TrainDate:     r.input.TrainDate,
		FromStation:   r.input.FromStation,
		ToStation:     r.input.ToStation,
		Seats:         r.input.Seats,
		IncludeTrains: r.input.IncludeTrains,
		ExcludeTrains: r.input.ExcludeTrains,
		Quantity:      len(r.input.Passengers),
	}

	r.state.Stage = models.StagePolling
	for {
		var out *activities.AvailabilityOutcome
		if err := workflow.ExecuteActivity(r.actCtx, ticketAct.QueryAvailability, r.sess, query).Get(r.actCtx, &out); err != nil {
			return nil, r.failStage("availability query", err)
		}
		r.sess = out.Session
		r.state.Queries++

		if len(out.Candidates) > 0 {
			r.state.CandidatesFound = len(out.Candidates)
			r.logger.Info("qualifying trains found", "count", len(out.Candidates))
			return out.Candidates, nil
		}

		r.logger.Info("no qualifying trains yet", "queries", r.state.Queries)
		if err := workflow.Sleep(r.ctx, r.input.QueryInterval); err != nil {
			return nil, r.failStage("availability poll", err)
		}
	}
}

// resolveChallenge fetches a fresh verification image of the given kind and
// resolves it, either through the OCR activity or by blocking on an
// operator-submitted code. The resolved code is used once and discarded.
func (r *bookingRun) resolveChallenge(kind string) (string, *models.BookingResult) {
	var sessionAct *activities.SessionActivities
	var orderAct *activities.OrderActivities

	for {
		var challenge *activities.Challenge
		var err error
		if kind == railclient.CaptchaKindLogin {
			err = workflow.ExecuteActivity(r.actCtx, sessionAct.FetchLoginCaptcha, r.sess).Get(r.actCtx, &challenge)
		} else {
			err = workflow.ExecuteActivity(r.actCtx, orderAct.FetchOrderCaptcha, r.sess).Get(r.actCtx, &challenge)
		}
		if err != nil {
			return "", r.failStage("captcha fetch", err)
		}
		r.sess = challenge.Session

		if r.input.CaptchaMode == models.CaptchaInteractive {
			return r.waitForOperatorCode(challenge.Image)
		}

		var code string
		if err := workflow.ExecuteActivity(r.actCtx, sessionAct.ResolveCaptcha, challenge.Image).Get(r.actCtx, &code); err != nil {
			r.logger.Warn("captcha recognition failed, fetching a new challenge", "error", err)
			if err := workflow.Sleep(r.ctx, time.Second); err != nil {
				return "", r.failStage("captcha resolve", err)
			}
			continue
		}
		return code, nil
	}
}

// waitForOperatorCode publishes the challenge through the status query and
// blocks until the operator submits a code or the run is cancelled.
func (r *bookingRun) waitForOperatorCode(image []byte) (string, *models.BookingResult) {
	r.state.CaptchaImage = base64.StdEncoding.EncodeToString(image)
	defer func() { r.state.CaptchaImage = "" }()

	var code string
	received := false
	selector := workflow.NewSelector(r.ctx)
	selector.AddReceive(r.captchaCh, func(c workflow.ReceiveChannel, more bool) {
		c.Receive(r.ctx, &code)
		received = true
	})
	selector.AddReceive(r.ctx.Done(), func(c workflow.ReceiveChannel, more bool) {
		c.Receive(r.ctx, nil)
	})
	selector.Select(r.ctx)

	if !received {
		return "", r.failStage("captcha entry", r.ctx.Err())
	}
	return code, nil
}

// failStage classifies an unexpected collaborator failure: cancellation
// becomes the operator abort, anything else surfaces as Aborted with the
// failing stage recorded. Nothing is swallowed.
func (r *bookingRun) failStage(stage string, err error) *models.BookingResult {
	if *r.cancelled {
		return r.finish(models.OutcomeAborted, "cancelled by operator", "", nil)
	}
	return r.finish(models.OutcomeAborted, fmt.Sprintf("%s: %v", stage, err), "", nil)
}

// finish records the terminal outcome and builds the run result. Recording
// runs on a disconnected context so it still happens after cancellation.
func (r *bookingRun) finish(outcome, reason, orderID string, report *models.Report) *models.BookingResult {
	r.state.Stage = models.StageCompleted
	r.state.Outcome = outcome
	r.state.Reason = reason
	r.state.OrderID = orderID

	r.logger.Info("booking run finished", "runID", r.input.RunID, "outcome", outcome, "reason", reason)

	var reportAct *activities.ReportActivities
	dctx, _ := workflow.NewDisconnectedContext(r.actCtx)
	if err := workflow.ExecuteActivity(dctx, reportAct.RecordOutcome, r.input.RunID, outcome, reason, orderID).Get(dctx, nil); err != nil {
		r.logger.Error("failed to record run outcome", "error", err)
	}

	return &models.BookingResult{
		Outcome: outcome,
		Reason:  reason,
		OrderID: orderID,
		Report:  report,
	}
}
