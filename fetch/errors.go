package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// Kind labels a fetch failure category. The values double as metrics labels.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindConnection  Kind = "connection"
	KindForbidden   Kind = "forbidden"
	KindNotFound    Kind = "not_found"
	KindRateLimited Kind = "rate_limited"
	KindHTTP        Kind = "http"
	KindParse       Kind = "parse"
	KindOther       Kind = "other"
)

// Error is the typed failure returned for every fetch that does not yield a
// parsed document. Failures never propagate past the Fetcher as raw
// transport errors; the caller decides whether to skip or abort.
type Error struct {
	URL        string
	StatusCode int
	Kind       Kind
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds an Error, classifying the underlying cause.
func newError(pageURL string, statusCode int, err error) *Error {
	return &Error{
		URL:        pageURL,
		StatusCode: statusCode,
		Kind:       classify(err, statusCode),
		Err:        err,
	}
}

func classify(err error, statusCode int) Kind {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return KindTimeout
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return KindTimeout
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return KindConnection
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return KindConnection
		}
	}

	switch statusCode {
	case 0:
		return KindOther
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindHTTP
	}
}
