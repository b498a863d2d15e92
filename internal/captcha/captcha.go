// Package captcha resolves verification-challenge images. Automatic
// recognition delegates to an external OCR service; interactive entry is the
// workflow's concern and never reaches this package.
package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Recognizer turns a challenge image into its code.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, length int) (string, error)
}

// OCRClient calls a sidecar OCR service.
type OCRClient struct {
	address string
	http    *http.Client
}

func NewOCRClient(address string) *OCRClient {
	return &OCRClient{
		address: address,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *OCRClient) Recognize(ctx context.Context, image []byte, length int) (string, error) {
	if c.address == "" {
		return "", errors.New("no OCR service configured")
	}
	url := c.address + "/recognize?length=" + strconv.Itoa(length)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(image))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr request: unexpected status %d", resp.StatusCode)
	}

	var result struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("ocr response: %w", err)
	}
	if len(result.Code) != length {
		return "", fmt.Errorf("ocr returned %d characters, want %d", len(result.Code), length)
	}
	return result.Code, nil
}
