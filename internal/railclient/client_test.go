package railclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"train-booking-system/internal/models"
)

func respond(w http.ResponseWriter, env map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(env)
}

func TestLoginClassification(t *testing.T) {
	tests := []struct {
		name   string
		reply  map[string]any
		status LoginStatus
		signed bool
	}{
		{
			name:   "accepted",
			reply:  map[string]any{"continue": true},
			status: LoginOK,
			signed: true,
		},
		{
			name:   "maintenance window",
			reply:  map[string]any{"continue": false, "message": "00：00至07：00为系统维护时间"},
			status: LoginMaintenance,
		},
		{
			name:   "wrong captcha",
			reply:  map[string]any{"continue": false, "message": "验证码错误"},
			status: LoginRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				respond(w, tt.reply)
			}))
			defer srv.Close()

			c := New(srv.URL)
			sess := &models.Session{Username: "traveler01"}
			result, err := c.Login(context.Background(), sess, "traveler01", "secret", "abcd")
			require.NoError(t, err)
			require.Equal(t, tt.status, result.Status)
			require.Equal(t, tt.signed, sess.SignedIn)
		})
	}
}

func TestSubmitOrderClassification(t *testing.T) {
	tests := []struct {
		name   string
		reply  map[string]any
		status SubmitStatus
	}{
		{
			name:   "accepted",
			reply:  map[string]any{"continue": true},
			status: SubmitOK,
		},
		{
			name:   "pending order blocks the account",
			reply:  map[string]any{"continue": false, "message": "您还有未处理的订单，请先处理"},
			status: SubmitPendingOrder,
		},
		{
			name:   "sold out",
			reply:  map[string]any{"continue": false, "message": "车票已售完"},
			status: SubmitRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				respond(w, tt.reply)
			}))
			defer srv.Close()

			c := New(srv.URL)
			result, err := c.SubmitOrder(context.Background(), &models.Session{}, "2026-01-10", models.Candidate{TrainCode: "G1"})
			require.NoError(t, err)
			require.Equal(t, tt.status, result.Status)
		})
	}
}

func TestCheckOrderInfoClassification(t *testing.T) {
	tests := []struct {
		name   string
		reply  map[string]any
		status CheckStatus
	}{
		{
			name:   "accepted",
			reply:  map[string]any{"continue": true},
			status: CheckOK,
		},
		{
			name:   "cancellation throttle",
			reply:  map[string]any{"continue": false, "message": "对不起，由于您取消次数过多，今日将不能继续受理您的订票请求"},
			status: CheckThrottled,
		},
		{
			name:   "wrong captcha",
			reply:  map[string]any{"continue": false, "message": "验证码错误"},
			status: CheckRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				respond(w, tt.reply)
			}))
			defer srv.Close()

			c := New(srv.URL)
			result, err := c.CheckOrderInfo(context.Background(), &models.Session{}, CheckOrderRequest{
				Token: models.OrderToken{SubmitToken: "tok"},
				Code:  "abcd",
			})
			require.NoError(t, err)
			require.Equal(t, tt.status, result.Status)
		})
	}
}

func TestQueryAvailabilityFiltersCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, map[string]any{
			"continue": true,
			"data": map[string]any{
				"trains": []map[string]any{
					{"trainCode": "G1", "seatCounts": map[string]string{"O": "有"}},
					{"trainCode": "K2", "seatCounts": map[string]string{"O": "1"}},
					{"trainCode": "G3", "seatCounts": map[string]string{"O": "5"}},
					{"trainCode": "G9", "seatCounts": map[string]string{"M": "有"}},
				},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	candidates, err := c.QueryAvailability(context.Background(), &models.Session{}, AvailabilityQuery{
		TrainDate:     "2026-01-10",
		FromStation:   "BJP",
		ToStation:     "SHH",
		Seats:         []models.SeatPreference{{Code: "O", Name: "second-class"}},
		ExcludeTrains: []string{"G3"},
		Quantity:      2,
	})
	require.NoError(t, err)

	// K2 has too few seats, G3 is excluded, G9 has no requested class.
	require.Len(t, candidates, 1)
	require.Equal(t, "G1", candidates[0].TrainCode)
	require.Equal(t, []string{"O"}, candidates[0].CanBuySeats)
}

func TestQueryAvailabilityHonorsIncludeList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, map[string]any{
			"continue": true,
			"data": map[string]any{
				"trains": []map[string]any{
					{"trainCode": "G1", "seatCounts": map[string]string{"O": "有"}},
					{"trainCode": "G3", "seatCounts": map[string]string{"O": "有"}},
				},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	candidates, err := c.QueryAvailability(context.Background(), &models.Session{}, AvailabilityQuery{
		TrainDate:     "2026-01-10",
		FromStation:   "BJP",
		ToStation:     "SHH",
		Seats:         []models.SeatPreference{{Code: "O", Name: "second-class"}},
		IncludeTrains: []string{"g3"},
		Quantity:      1,
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "G3", candidates[0].TrainCode)
}

func TestQueryAvailabilitySendsFilterCondition(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		respond(w, map[string]any{"continue": true, "data": map[string]any{}})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.QueryAvailability(context.Background(), &models.Session{}, AvailabilityQuery{
		TrainDate:   "2026-01-10",
		FromStation: "BJP",
		ToStation:   "SHH",
		Seats: []models.SeatPreference{
			{Code: "O", Name: "second-class"},
			{Code: "M", Name: "first-class"},
		},
		IncludeTrains: []string{"G1", "G3"},
		ExcludeTrains: []string{"K511"},
		Quantity:      2,
	})
	require.NoError(t, err)

	require.Equal(t, "O,M", form.Get("orderRequest.seat_types"))
	require.Equal(t, "G1,G3", form.Get("orderRequest.include_train"))
	require.Equal(t, "K511", form.Get("orderRequest.exclude_train"))
	require.Equal(t, "2", form.Get("orderRequest.ticket_num"))
}

func TestSessionCookiesRoundTrip(t *testing.T) {
	var sawCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("method") {
		case "init":
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc123"})
			w.WriteHeader(http.StatusOK)
		case "checkUser":
			sawCookie = r.Header.Get("Cookie")
			respond(w, map[string]any{"continue": true})
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	sess, err := c.Initialize(context.Background(), "traveler01")
	require.NoError(t, err)
	require.Contains(t, sess.Cookies, "JSESSIONID=abc123")

	valid, err := c.CheckSession(context.Background(), sess)
	require.NoError(t, err)
	require.True(t, valid)
	require.Contains(t, sawCookie, "JSESSIONID=abc123")
}

func TestQueryOrderWaitTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, map[string]any{
			"continue": false,
			"data":     map[string]any{"waitTime": 5, "orderId": ""},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	result, err := c.QueryOrderWaitTime(context.Background(), &models.Session{}, models.OrderToken{SubmitToken: "tok"})
	require.NoError(t, err)
	require.False(t, result.Complete)
	require.Equal(t, 5, result.WaitSeconds)
	require.Empty(t, result.OrderID)
}

func TestFetchOrderTokenRejectsEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, map[string]any{
			"continue": true,
			"data":     map[string]any{"submitToken": "", "orderKey": ""},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.FetchOrderToken(context.Background(), &models.Session{})
	require.Error(t, err)
}
