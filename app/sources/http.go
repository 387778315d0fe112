package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent identifies the collector to the platform APIs.
const DefaultUserAgent = "SocialMediaAnalytics/1.0"

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 30 * time.Second

// HTTPClient is satisfied by *http.Client and by test doubles.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type ErrorKind string

const (
	KindAuth        ErrorKind = "authentication"
	KindForbidden   ErrorKind = "quota or forbidden"
	KindRateLimited ErrorKind = "rate limited"
	KindServer      ErrorKind = "server error"
	KindHTTP        ErrorKind = "http error"
	KindTimeout     ErrorKind = "timeout"
	KindMalformed   ErrorKind = "malformed response"
	KindRequest     ErrorKind = "request"
)

var ErrMalformedResponse = errors.New("malformed response")

// StatusError reports a non-200 answer from a platform API.
type StatusError struct {
	StatusCode int
	Kind       ErrorKind
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP error: %d (%s)", e.StatusCode, e.Kind)
	}
	return fmt.Sprintf("HTTP error: %d (%s): %s", e.StatusCode, e.Kind, e.Body)
}

func classifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized:
		return KindAuth
	case code == http.StatusForbidden:
		return KindForbidden
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code >= 500:
		return KindServer
	default:
		return KindHTTP
	}
}

// KindOf classifies a fetch error for logging.
func KindOf(err error) ErrorKind {
	var statusErr *StatusError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &statusErr):
		return statusErr.Kind
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformed
	default:
		return KindRequest
	}
}

const maxErrorBody = 512

// GetJSON issues a GET bounded by timeout and decodes a 200 response body into out.
func GetJSON(ctx context.Context, client HTTPClient, timeout time.Duration, rawURL string, header http.Header, out any) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", stripURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			StatusCode: resp.StatusCode,
			Kind:       classifyStatus(resp.StatusCode),
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// stripURL drops the request URL from transport errors; it can carry an API key.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
