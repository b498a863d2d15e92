package workflows

import (
	"time"

	"go.temporal.io/sdk/workflow"

	"train-booking-system/internal/models"
	"train-booking-system/internal/railclient"
	"train-booking-system/internal/temporal/activities"
)

// attemptCandidate runs the order pipeline for one candidate train:
// submit -> token fetch -> integrity check -> confirm -> wait-for-processing
// -> completion poll. A nil result means this candidate is spent and the
// next one should be tried; a non-nil result ends the run.
func (r *bookingRun) attemptCandidate(cand models.Candidate) *models.BookingResult {
	var orderAct *activities.OrderActivities

	r.state.Stage = models.StageSubmitting
	r.state.CandidateTrain = cand.TrainCode

	var submit *activities.SubmitOutcome
	if err := workflow.ExecuteActivity(r.actCtx, orderAct.Submit, r.sess, r.input.TrainDate, cand).Get(r.actCtx, &submit); err != nil {
		return r.failStage("submit", err)
	}
	r.sess = submit.Session
	switch submit.Result.Status {
	case railclient.SubmitPendingOrder:
		// A pre-existing unresolved order blocks the whole account.
		return r.finish(models.OutcomeAborted, "unprocessed order pending: "+submit.Result.Message, "", nil)
	case railclient.SubmitRejected:
		r.logger.Warn("submission rejected, trying next train",
			"train", cand.TrainCode, "message", submit.Result.Message)
		return nil
	}

	// Token scoped to this submission; consumed by exactly one confirm.
	var tokenOut *activities.TokenOutcome
	if err := workflow.ExecuteActivity(r.actCtx, orderAct.FetchToken, r.sess).Get(r.actCtx, &tokenOut); err != nil {
		return r.failStage("token fetch", err)
	}
	r.sess = tokenOut.Session
	token := tokenOut.Token
	r.state.Stage = models.StageTokenFetched

	if len(cand.CanBuySeats) == 0 {
		r.logger.Warn("candidate has no buyable seats, trying next train", "train", cand.TrainCode)
		return nil
	}
	seat := cand.CanBuySeats[0]
	ticketStr := models.PassengerTicketStr(r.input.Passengers, seat, cand.SeatTypes)
	r.logger.Info("seat class chosen", "train", cand.TrainCode, "seat", seat)

	// Integrity check, gated by its own CAPTCHA. Unbounded for the same
	// reason as login: each attempt is a fresh gate the server judges.
	r.state.Stage = models.StageChecking
	var code string
	for {
		var result *models.BookingResult
		code, result = r.resolveChallenge(railclient.CaptchaKindOrder)
		if result != nil {
			return result
		}

		var check *activities.CheckOutcome
		req := railclient.CheckOrderRequest{
			Token:              *token,
			PassengerTicketStr: ticketStr,
			Code:               code,
		}
		if err := workflow.ExecuteActivity(r.actCtx, orderAct.CheckOrderInfo, r.sess, req).Get(r.actCtx, &check); err != nil {
			return r.failStage("integrity check", err)
		}
		r.sess = check.Session
		if check.Result.Status == railclient.CheckOK {
			break
		}
		if check.Result.Status == railclient.CheckThrottled {
			// Account-level lockout, not a per-candidate failure.
			return r.finish(models.OutcomeAborted, "cancellation throttle: "+check.Result.Message, "", nil)
		}
		r.logger.Warn("integrity check rejected", "message", check.Result.Message)
	}

	r.state.Stage = models.StageConfirming
	var confirm *activities.ConfirmOutcome
	confirmReq := railclient.ConfirmRequest{
		Token:              *token,
		PassengerTicketStr: ticketStr,
		Code:               code,
		TrainLocation:      cand.LocationCode,
		LeftTicketStr:      cand.LeftTicketStr,
	}
	if err := workflow.ExecuteActivity(r.actCtx, orderAct.Confirm, r.sess, confirmReq).Get(r.actCtx, &confirm); err != nil {
		return r.failStage("confirm", err)
	}
	r.sess = confirm.Session
	if !confirm.Result.OK {
		// The token is spent; never retried against this candidate.
		r.logger.Warn("confirmation rejected, trying next train",
			"train", cand.TrainCode, "message", confirm.Result.Message)
		return nil
	}

	// The submission is now in the server's asynchronous queue.
	r.state.Stage = models.StageWaiting
	var orderID string
	for {
		var wait *activities.WaitOutcome
		if err := workflow.ExecuteActivity(r.actCtx, orderAct.QueryWaitTime, r.sess, *token).Get(r.actCtx, &wait); err != nil {
			return r.failStage("wait-time poll", err)
		}
		r.sess = wait.Session
		if wait.Result.Complete {
			if wait.Result.OrderID == "" {
				// Ambiguous server-side state: the queue finished but
				// assigned no order id. Retrying could double-submit.
				return r.finish(models.OutcomeTransientFailure,
					"order processing completed without an order id", "", nil)
			}
			orderID = wait.Result.OrderID
			r.state.OrderID = orderID
			break
		}
		r.state.WaitSeconds = wait.Result.WaitSeconds
		r.logger.Info("order queued", "waitSeconds", wait.Result.WaitSeconds)
		if err := workflow.Sleep(r.ctx, time.Second); err != nil {
			return r.failStage("wait-time poll", err)
		}
	}

	for {
		var completion *activities.CompletionOutcome
		if err := workflow.ExecuteActivity(r.actCtx, orderAct.QueryIncompleteOrders, r.sess).Get(r.actCtx, &completion); err != nil {
			return r.failStage("completion poll", err)
		}
		r.sess = completion.Session
		if completion.Result.Ready && containsOrder(completion.Result.Orders, orderID) {
			report := &models.Report{
				Username: r.input.Username,
				OrderID:  orderID,
				Orders:   completion.Result.Orders,
			}
			var reportAct *activities.ReportActivities
			if err := workflow.ExecuteActivity(r.actCtx, reportAct.WriteReport, r.input.RunID, report).Get(r.actCtx, nil); err != nil {
				r.logger.Warn("failed to write booking report", "error", err)
			}
			r.logger.Info("booking succeeded, pay through the service backend promptly",
				"train", cand.TrainCode, "orderID", orderID)
			return r.finish(models.OutcomeBooked, "", orderID, report)
		}
		if err := workflow.Sleep(r.ctx, time.Second); err != nil {
			return r.failStage("completion poll", err)
		}
	}
}

func containsOrder(orders []models.OrderRecord, orderID string) bool {
	for _, o := range orders {
		if o.OrderID == orderID {
			return true
		}
	}
	return false
}
