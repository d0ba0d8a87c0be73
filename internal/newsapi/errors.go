package newsapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

var (
	ErrUnauthorized = errors.New("newsapi: invalid or missing API key")
	ErrRateLimited  = errors.New("newsapi: rate limited")
)

const defaultRetryAfter = 15 * time.Minute

// APIError is a non-2xx response or a 200 with status "error".
type APIError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("newsapi: %s (HTTP %d, %s)", e.Message, e.Status, e.Code)
	case e.Code != "":
		return fmt.Sprintf("newsapi: HTTP %d, %s", e.Status, e.Code)
	default:
		return fmt.Sprintf("newsapi: HTTP %d", e.Status)
	}
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Code == "apiKeyInvalid" ||
			e.Code == "apiKeyMissing" || e.Code == "apiKeyDisabled"
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests || e.Code == "rateLimited"
	}
	return false
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultRetryAfter
}
