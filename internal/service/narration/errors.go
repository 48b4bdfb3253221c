package narration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrNotConfigured = errors.New("narration is not configured")
	ErrEmptyText     = errors.New("nothing to say")
)

// StatusError is a non-200 answer from a remote API.
type StatusError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.StatusCode, e.Message)
}

// parseAPIError extracts a readable message from an error response body.
func parseAPIError(service string, statusCode int, body []byte) *StatusError {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	msg := ""
	if json.Unmarshal(body, &errResp) == nil {
		msg = errResp.Error.Message
		if msg == "" {
			msg = errResp.Message
		}
		if msg == "" && errResp.Detail != nil {
			msg = fmt.Sprint(errResp.Detail)
		}
	}

	if msg == "" {
		switch statusCode {
		case 400:
			msg = "bad request"
		case 401, 403:
			msg = "authentication failed, check the API key"
		case 404:
			msg = "model or endpoint not found"
		case 429:
			msg = "rate limited"
		case 502, 503:
			msg = "service temporarily unavailable"
		default:
			s := string(body)
			if len(s) > 200 {
				s = s[:200] + "..."
			}
			msg = s
		}
	}
	return &StatusError{Service: service, StatusCode: statusCode, Message: msg}
}

// retryer repeats transient failures with exponential backoff.
type retryer struct {
	maxRetries int
	baseDelay  time.Duration
}

func (r retryer) do(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) || attempt == r.maxRetries {
			break
		}
		if err := r.backoff(ctx, attempt); err != nil {
			return lastErr
		}
	}
	if r.maxRetries > 0 && isRetryable(lastErr) {
		return fmt.Errorf("after %d retries: %w", r.maxRetries, lastErr)
	}
	return lastErr
}

func (r retryer) backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(float64(r.baseDelay) * math.Pow(2, float64(attempt)))
	if delay > 10*time.Second {
		delay = 10 * time.Second
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case 429, 500, 502, 503, 504, 529:
			return true
		}
		return false
	}
	msg := err.Error()
	for _, s := range []string{"connection refused", "timeout", "EOF", "reset by peer"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
