package railclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"train-booking-system/internal/models"
)

// Login outcome classification. The maintenance-window rejection is fatal
// for a run; anything else just means another CAPTCHA attempt.
type LoginStatus int

const (
	LoginOK LoginStatus = iota
	LoginMaintenance
	LoginRejected
)

type LoginResult struct {
	Status  LoginStatus
	Message string
}

// Server message markers. These are the only places the run's control flow
// depends on message text.
const (
	maintenanceMarker  = "00：00至07：00为系统维护时间"
	pendingOrderMarker = "您还有未处理的订单"
	throttleMarker     = "由于您取消次数过多"
)

// CAPTCHA kinds
const (
	CaptchaKindLogin = "login"
	CaptchaKindOrder = "order"
)

// CheckSession reports whether the session's cookies are still accepted as
// signed in.
func (c *Client) CheckSession(ctx context.Context, sess *models.Session) (bool, error) {
	env, err := c.call(ctx, sess, "/loginAction.do?method=checkUser", nil)
	if err != nil {
		return false, err
	}
	return env.Continue, nil
}

// Initialize obtains fresh transport state: a new cookie set with no
// sign-in.
func (c *Client) Initialize(ctx context.Context, username string) (*models.Session, error) {
	sess := &models.Session{Username: username}
	if _, err := c.fetch(ctx, sess, "/loginAction.do?method=init"); err != nil {
		return nil, fmt.Errorf("session init: %w", err)
	}
	return sess, nil
}

// FetchCaptcha retrieves a verification image of the given kind. The image
// bytes are the challenge handle; they are never cached or reused.
func (c *Client) FetchCaptcha(ctx context.Context, sess *models.Session, kind string) ([]byte, error) {
	var path string
	switch kind {
	case CaptchaKindLogin:
		path = "/passCodeAction.do?rand=sjrand"
	case CaptchaKindOrder:
		path = "/passCodeAction.do?rand=randp"
	default:
		return nil, fmt.Errorf("unknown captcha kind %q", kind)
	}
	img, err := c.fetch(ctx, sess, path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s captcha: %w", kind, err)
	}
	return img, nil
}

// Login submits credentials with the resolved CAPTCHA code and classifies
// the server's answer.
func (c *Client) Login(ctx context.Context, sess *models.Session, username, password, code string) (LoginResult, error) {
	form := url.Values{}
	form.Set("loginUser.user_name", username)
	form.Set("user.password", password)
	form.Set("randCode", code)

	env, err := c.call(ctx, sess, "/loginAction.do?method=login", form)
	if err != nil {
		return LoginResult{}, err
	}
	if env.Continue {
		sess.SignedIn = true
		return LoginResult{Status: LoginOK}, nil
	}
	if strings.Contains(env.Message, maintenanceMarker) {
		return LoginResult{Status: LoginMaintenance, Message: env.Message}, nil
	}
	return LoginResult{Status: LoginRejected, Message: env.Message}, nil
}

// QueryAuthorizedPassengers returns the passengers the signed-in account may
// purchase for.
func (c *Client) QueryAuthorizedPassengers(ctx context.Context, sess *models.Session) ([]models.Passenger, error) {
	env, err := c.call(ctx, sess, "/confirmPassengerAction.do?method=getPassengerJson", nil)
	if err != nil {
		return nil, err
	}
	if !env.Continue {
		return nil, fmt.Errorf("passenger query rejected: %s", env.Message)
	}
	var data struct {
		NormalPassengers []models.Passenger `json:"normal_passengers"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode passenger list: %w", err)
	}
	return data.NormalPassengers, nil
}
