package railclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"train-booking-system/internal/models"
)

// Submit outcome classification. A pending unprocessed order on the account
// blocks the whole run; other rejections only fail the current candidate.
type SubmitStatus int

const (
	SubmitOK SubmitStatus = iota
	SubmitPendingOrder
	SubmitRejected
)

type SubmitResult struct {
	Status  SubmitStatus
	Message string
}

// Integrity-check outcome classification. The cancellation throttle is an
// account-level lockout; other failures mean another CAPTCHA attempt.
type CheckStatus int

const (
	CheckOK CheckStatus = iota
	CheckThrottled
	CheckRejected
)

type CheckResult struct {
	Status  CheckStatus
	Message string
}

type ConfirmResult struct {
	OK      bool
	Message string
}

// WaitResult is one poll of the asynchronous order queue.
type WaitResult struct {
	Complete    bool
	WaitSeconds int
	OrderID     string
}

// CompletionResult is one poll of the incomplete-orders listing.
type CompletionResult struct {
	Ready  bool
	Orders []models.OrderRecord
}

// SubmitOrder opens an order for the candidate train.
func (c *Client) SubmitOrder(ctx context.Context, sess *models.Session, trainDate string, cand models.Candidate) (SubmitResult, error) {
	form := url.Values{}
	form.Set("orderRequest.train_date", toGBK(trainDate))
	form.Set("orderRequest.train_no", cand.TrainNo)
	form.Set("orderRequest.station_train_code", cand.TrainCode)
	form.Set("orderRequest.tour_flag", "dc")
	form.Set("secretStr", cand.Secret)

	env, err := c.call(ctx, sess, "/orderAction.do?method=submitOrderRequest", form)
	if err != nil {
		return SubmitResult{}, err
	}
	if env.Continue {
		return SubmitResult{Status: SubmitOK}, nil
	}
	if strings.HasPrefix(env.Message, pendingOrderMarker) {
		return SubmitResult{Status: SubmitPendingOrder, Message: env.Message}, nil
	}
	return SubmitResult{Status: SubmitRejected, Message: env.Message}, nil
}

// FetchOrderToken obtains the token pair scoped to the submission just
// opened. Consumed by exactly one confirm attempt.
func (c *Client) FetchOrderToken(ctx context.Context, sess *models.Session) (models.OrderToken, error) {
	env, err := c.call(ctx, sess, "/orderAction.do?method=getToken", nil)
	if err != nil {
		return models.OrderToken{}, err
	}
	if !env.Continue {
		return models.OrderToken{}, fmt.Errorf("token fetch rejected: %s", env.Message)
	}
	var token models.OrderToken
	if err := json.Unmarshal(env.Data, &token); err != nil {
		return models.OrderToken{}, fmt.Errorf("failed to decode token: %w", err)
	}
	if token.SubmitToken == "" {
		return models.OrderToken{}, fmt.Errorf("token fetch returned empty token")
	}
	return token, nil
}

// CheckOrderRequest carries the integrity-check parameters.
type CheckOrderRequest struct {
	Token              models.OrderToken
	PassengerTicketStr string
	Code               string
}

// CheckOrderInfo runs the CAPTCHA-gated order integrity check.
func (c *Client) CheckOrderInfo(ctx context.Context, sess *models.Session, req CheckOrderRequest) (CheckResult, error) {
	form := url.Values{}
	form.Set("org.apache.struts.taglib.html.TOKEN", req.Token.SubmitToken)
	form.Set("passengerTicketStr", toGBK(req.PassengerTicketStr))
	form.Set("randCode", req.Code)

	env, err := c.call(ctx, sess, "/confirmPassengerAction.do?method=checkOrderInfo", form)
	if err != nil {
		return CheckResult{}, err
	}
	if env.Continue {
		return CheckResult{Status: CheckOK}, nil
	}
	if strings.Contains(env.Message, throttleMarker) {
		return CheckResult{Status: CheckThrottled, Message: env.Message}, nil
	}
	return CheckResult{Status: CheckRejected, Message: env.Message}, nil
}

// ConfirmRequest carries the queue confirmation parameters. The token must
// be the one issued for this candidate's submission.
type ConfirmRequest struct {
	Token              models.OrderToken
	PassengerTicketStr string
	Code               string
	TrainLocation      string
	LeftTicketStr      string
}

// ConfirmQueue submits the confirmation into the asynchronous order queue.
func (c *Client) ConfirmQueue(ctx context.Context, sess *models.Session, req ConfirmRequest) (ConfirmResult, error) {
	form := url.Values{}
	form.Set("org.apache.struts.taglib.html.TOKEN", req.Token.SubmitToken)
	form.Set("keyCheckIsChange", req.Token.OrderKey)
	form.Set("passengerTicketStr", toGBK(req.PassengerTicketStr))
	form.Set("randCode", req.Code)
	form.Set("trainLocation", req.TrainLocation)
	form.Set("leftTicketStr", req.LeftTicketStr)

	env, err := c.call(ctx, sess, "/confirmPassengerAction.do?method=confirmSingleForQueue", form)
	if err != nil {
		return ConfirmResult{}, err
	}
	return ConfirmResult{OK: env.Continue, Message: env.Message}, nil
}

// QueryOrderWaitTime polls the asynchronous queue for the submission bound
// to token.
func (c *Client) QueryOrderWaitTime(ctx context.Context, sess *models.Session, token models.OrderToken) (WaitResult, error) {
	form := url.Values{}
	form.Set("org.apache.struts.taglib.html.TOKEN", token.SubmitToken)

	env, err := c.call(ctx, sess, "/confirmPassengerAction.do?method=queryOrderWaitTime", form)
	if err != nil {
		return WaitResult{}, err
	}
	var data struct {
		WaitTime int    `json:"waitTime"`
		OrderID  string `json:"orderId"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return WaitResult{}, fmt.Errorf("failed to decode wait time: %w", err)
		}
	}
	return WaitResult{
		Complete:    env.Continue,
		WaitSeconds: data.WaitTime,
		OrderID:     data.OrderID,
	}, nil
}

// QueryIncompleteOrders polls the unfinished-orders listing where a freshly
// queued order eventually appears.
func (c *Client) QueryIncompleteOrders(ctx context.Context, sess *models.Session) (CompletionResult, error) {
	env, err := c.call(ctx, sess, "/queryOrderAction.do?method=queryMyOrderNotComplete", nil)
	if err != nil {
		return CompletionResult{}, err
	}
	if !env.Continue {
		return CompletionResult{Ready: false}, nil
	}
	var data struct {
		Orders []models.OrderRecord `json:"orderDBList"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return CompletionResult{}, fmt.Errorf("failed to decode order list: %w", err)
		}
	}
	return CompletionResult{Ready: true, Orders: data.Orders}, nil
}
