package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pokerjest/animeshelf/internal/anilist"
	"github.com/pokerjest/animeshelf/internal/jikan"
)

// Kind classifies a failed provider call.
type Kind string

const (
	KindNetwork     Kind = "network"
	KindRateLimited Kind = "rate_limited"
	KindNotFound    Kind = "not_found"
	KindHTTP        Kind = "http"
	KindMalformed   Kind = "malformed"
	KindCircuitOpen Kind = "circuit_open"
)

// FetchError is what both fetch operations return on failure. Callers use
// errors.As to read Kind and Attempts.
type FetchError struct {
	Provider   string
	ExternalID int
	Kind       Kind
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s %d: %s after %d attempts: %v", e.Provider, e.ExternalID, e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s %d: %s: %v", e.Provider, e.ExternalID, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed: network errors,
// rate limiting and 5xx answers.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindRateLimited:
		return true
	case KindHTTP:
		return e.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

type httpStatuser interface {
	HTTPStatus() int
}

func classify(provider string, externalID int, err error) *FetchError {
	fe := &FetchError{Provider: provider, ExternalID: externalID, Err: err}

	var hs httpStatuser
	switch {
	case errors.Is(err, jikan.ErrNotFound), errors.Is(err, anilist.ErrNotFound):
		fe.Kind = KindNotFound
		fe.StatusCode = http.StatusNotFound
	case errors.Is(err, jikan.ErrMalformed), errors.Is(err, anilist.ErrMalformed):
		fe.Kind = KindMalformed
	case errors.As(err, &hs):
		fe.StatusCode = hs.HTTPStatus()
		if fe.StatusCode == http.StatusTooManyRequests {
			fe.Kind = KindRateLimited
		} else {
			fe.Kind = KindHTTP
		}
	default:
		// transport failures: refused, reset, timeout, DNS
		fe.Kind = KindNetwork
	}
	return fe
}

// IsKind reports whether err is a FetchError of kind k.
func IsKind(err error, k Kind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == k
}

// callerCancelled reports an unclassified context error, i.e. one returned
// because the caller's ctx ended. Timeouts of the HTTP client are wrapped in a
// FetchError of KindNetwork and do not count.
func callerCancelled(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
