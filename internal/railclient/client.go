// Package railclient adapts the remote ticketing service's HTTP endpoints
// into typed results. All interpretation of server message text happens
// here; callers branch on the typed status values, never on strings.
package railclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"train-booking-system/internal/models"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// envelope is the common response shape of the protected endpoints.
type envelope struct {
	Continue bool            `json:"continue"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
}

// call POSTs a form to path with the session's cookies attached and decodes
// the response envelope. Cookies issued by the server are folded back into
// the session.
func (c *Client) call(ctx context.Context, sess *models.Session, path string, form url.Values) (*envelope, error) {
	body := ""
	if form != nil {
		body = form.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	attachCookies(req, sess)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	absorbCookies(resp, sess)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", path, err)
	}
	return &env, nil
}

// fetch GETs a raw resource (CAPTCHA images, the init page) with the
// session's cookies attached.
func (c *Client) fetch(ctx context.Context, sess *models.Session, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	attachCookies(req, sess)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	absorbCookies(resp, sess)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func attachCookies(req *http.Request, sess *models.Session) {
	if sess == nil {
		return
	}
	if len(sess.Cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(sess.Cookies, "; "))
	}
}

// absorbCookies folds Set-Cookie headers back into the session, replacing
// cookies that share a name.
func absorbCookies(resp *http.Response, sess *models.Session) {
	if sess == nil {
		return
	}
	for _, sc := range resp.Header.Values("Set-Cookie") {
		pair, _, _ := strings.Cut(sc, ";")
		pair = strings.TrimSpace(pair)
		name, _, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		replaced := false
		for i, existing := range sess.Cookies {
			if strings.HasPrefix(existing, name+"=") {
				sess.Cookies[i] = pair
				replaced = true
				break
			}
		}
		if !replaced {
			sess.Cookies = append(sess.Cookies, pair)
		}
	}
}

// toGBK normalizes free text to the charset the remote service expects.
func toGBK(s string) string {
	out, _, err := transform.String(simplifiedchinese.GBK.NewEncoder(), s)
	if err != nil {
		return s
	}
	return out
}
