package activities

import (
	"context"
	"errors"
	"log"

	"train-booking-system/internal/captcha"
	"train-booking-system/internal/database"
	"train-booking-system/internal/models"
	"train-booking-system/internal/railclient"
)

// SessionActivities covers session establishment: cookie-cache lookup,
// transport initialization, the CAPTCHA-gated login exchange, and the
// passenger directory.
type SessionActivities struct {
	Rail       *railclient.Client
	DB         *database.DB
	Recognizer captcha.Recognizer
	Username   string
	Password   string
}

func NewSessionActivities(rail *railclient.Client, db *database.DB, rec captcha.Recognizer, username, password string) *SessionActivities {
	return &SessionActivities{
		Rail:       rail,
		DB:         db,
		Recognizer: rec,
		Username:   username,
		Password:   password,
	}
}

// Challenge is a fetched verification image together with the session state
// the fetch may have refreshed.
type Challenge struct {
	Image   []byte          `json:"image"`
	Session *models.Session `json:"session"`
}

// LoginAttempt is the classified result of one login submission.
type LoginAttempt struct {
	Result  railclient.LoginResult `json:"result"`
	Session *models.Session        `json:"session"`
}

// CheckCachedSession looks for persisted cookies and verifies the remote
// service still accepts them. Returns nil when no valid session exists;
// that is a normal state, not an error.
func (a *SessionActivities) CheckCachedSession(ctx context.Context) (*models.Session, error) {
	cookies, err := a.DB.LoadSession(a.Username)
	if errors.Is(err, database.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sess := &models.Session{Username: a.Username, Cookies: cookies}
	valid, err := a.Rail.CheckSession(ctx, sess)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, nil
	}
	sess.SignedIn = true
	return sess, nil
}

// InitSession obtains fresh transport state and persists its cookies.
func (a *SessionActivities) InitSession(ctx context.Context) (*models.Session, error) {
	sess, err := a.Rail.Initialize(ctx, a.Username)
	if err != nil {
		return nil, err
	}
	if err := a.DB.SaveSession(a.Username, sess.Cookies); err != nil {
		log.Printf("failed to cache session for %s: %v", a.Username, err)
	}
	return sess, nil
}

// FetchLoginCaptcha retrieves a fresh login verification image.
func (a *SessionActivities) FetchLoginCaptcha(ctx context.Context, sess *models.Session) (*Challenge, error) {
	img, err := a.Rail.FetchCaptcha(ctx, sess, railclient.CaptchaKindLogin)
	if err != nil {
		return nil, err
	}
	return &Challenge{Image: img, Session: sess}, nil
}

// ResolveCaptcha recognizes a challenge image via the OCR service.
func (a *SessionActivities) ResolveCaptcha(ctx context.Context, image []byte) (string, error) {
	return a.Recognizer.Recognize(ctx, image, 4)
}

// Login submits credentials with the resolved code.
func (a *SessionActivities) Login(ctx context.Context, sess *models.Session, code string) (*LoginAttempt, error) {
	result, err := a.Rail.Login(ctx, sess, a.Username, a.Password, code)
	if err != nil {
		return nil, err
	}
	return &LoginAttempt{Result: result, Session: sess}, nil
}

// PersistSession writes the signed-in session's cookies to the cache keyed
// by account identity.
func (a *SessionActivities) PersistSession(ctx context.Context, sess *models.Session) error {
	return a.DB.SaveSession(sess.Username, sess.Cookies)
}

// QueryAuthorizedPassengers lists the passengers the account may book for.
func (a *SessionActivities) QueryAuthorizedPassengers(ctx context.Context, sess *models.Session) ([]models.Passenger, error) {
	return a.Rail.QueryAuthorizedPassengers(ctx, sess)
}
