package activities

import (
	"context"

	"train-booking-system/internal/models"
	"train-booking-system/internal/railclient"
)

// OrderActivities covers the order pipeline endpoints: submit, token fetch,
// integrity check, confirmation, and the two completion polls. Every result
// carries the session back across the activity boundary so cookie rotation
// during the exchange is not lost.
type OrderActivities struct {
	Rail *railclient.Client
}

func NewOrderActivities(rail *railclient.Client) *OrderActivities {
	return &OrderActivities{Rail: rail}
}

type SubmitOutcome struct {
	Result  *railclient.SubmitResult `json:"result"`
	Session *models.Session          `json:"session"`
}

type TokenOutcome struct {
	Token   *models.OrderToken `json:"token"`
	Session *models.Session    `json:"session"`
}

type CheckOutcome struct {
	Result  *railclient.CheckResult `json:"result"`
	Session *models.Session         `json:"session"`
}

type ConfirmOutcome struct {
	Result  *railclient.ConfirmResult `json:"result"`
	Session *models.Session           `json:"session"`
}

type WaitOutcome struct {
	Result  *railclient.WaitResult `json:"result"`
	Session *models.Session        `json:"session"`
}

type CompletionOutcome struct {
	Result  *railclient.CompletionResult `json:"result"`
	Session *models.Session              `json:"session"`
}

// Submit opens an order for the candidate train.
func (a *OrderActivities) Submit(ctx context.Context, sess *models.Session, trainDate string, cand models.Candidate) (*SubmitOutcome, error) {
	result, err := a.Rail.SubmitOrder(ctx, sess, trainDate, cand)
	if err != nil {
		return nil, err
	}
	return &SubmitOutcome{Result: &result, Session: sess}, nil
}

// FetchToken obtains the token pair scoped to the open submission.
func (a *OrderActivities) FetchToken(ctx context.Context, sess *models.Session) (*TokenOutcome, error) {
	token, err := a.Rail.FetchOrderToken(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &TokenOutcome{Token: &token, Session: sess}, nil
}

// FetchOrderCaptcha retrieves a fresh order-integrity verification image.
func (a *OrderActivities) FetchOrderCaptcha(ctx context.Context, sess *models.Session) (*Challenge, error) {
	img, err := a.Rail.FetchCaptcha(ctx, sess, railclient.CaptchaKindOrder)
	if err != nil {
		return nil, err
	}
	return &Challenge{Image: img, Session: sess}, nil
}

// CheckOrderInfo runs the CAPTCHA-gated integrity check.
func (a *OrderActivities) CheckOrderInfo(ctx context.Context, sess *models.Session, req railclient.CheckOrderRequest) (*CheckOutcome, error) {
	result, err := a.Rail.CheckOrderInfo(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	return &CheckOutcome{Result: &result, Session: sess}, nil
}

// Confirm submits the confirmation into the asynchronous order queue.
func (a *OrderActivities) Confirm(ctx context.Context, sess *models.Session, req railclient.ConfirmRequest) (*ConfirmOutcome, error) {
	result, err := a.Rail.ConfirmQueue(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	return &ConfirmOutcome{Result: &result, Session: sess}, nil
}

// QueryWaitTime polls the order queue for the submission bound to token.
func (a *OrderActivities) QueryWaitTime(ctx context.Context, sess *models.Session, token models.OrderToken) (*WaitOutcome, error) {
	result, err := a.Rail.QueryOrderWaitTime(ctx, sess, token)
	if err != nil {
		return nil, err
	}
	return &WaitOutcome{Result: &result, Session: sess}, nil
}

// QueryIncompleteOrders polls the unfinished-orders listing.
func (a *OrderActivities) QueryIncompleteOrders(ctx context.Context, sess *models.Session) (*CompletionOutcome, error) {
	result, err := a.Rail.QueryIncompleteOrders(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &CompletionOutcome{Result: &result, Session: sess}, nil
}
