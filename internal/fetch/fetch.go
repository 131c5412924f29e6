// Package fetch retrieves upstream source lists over HTTP. Fetches are
// synchronous and bounded; resilience (retry, backoff, scheduling) belongs
// to whoever wraps the generator, not here.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

type Kind int

const (
	KindFilterList Kind = iota
	KindDomainList
	KindCIDRList
	KindDataFile
)

func (k Kind) String() string {
	switch k {
	case KindFilterList:
		return "filter-list"
	case KindDomainList:
		return "domain-list"
	case KindCIDRList:
		return "cidr-list"
	case KindDataFile:
		return "data-file"
	default:
		return "source"
	}
}

func (k Kind) defaultMaxBytes() int64 {
	switch k {
	case KindDataFile:
		// MaxMind country databases run to tens of megabytes.
		return 128 * 1024 * 1024
	default:
		return 16 * 1024 * 1024
	}
}

type Options struct {
	Timeout      time.Duration // default 15s
	MaxBytes     int64         // default per kind
	MaxRedirects int           // default 5
}

type FetchError struct {
	Code    string
	Message string
	URL     string
	Cause   error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.URL != "" {
		msg += fmt.Sprintf(" (url: %s)", e.URL)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Cause }

var (
	errTooManyRedirects  = errors.New("too many redirects")
	errRedirectBadScheme = errors.New("redirect target scheme is not http/https")
)

// Text fetches a source as UTF-8 text and returns it split into lines.
func Text(ctx context.Context, kind Kind, rawURL string) ([]string, error) {
	body, err := Bytes(ctx, kind, rawURL, Options{})
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(body) {
		return nil, &FetchError{
			Code:    "FETCH_INVALID_UTF8",
			Message: fmt.Sprintf("%s is not valid UTF-8 text", kind),
			URL:     rawURL,
		}
	}
	return strings.Split(strings.ReplaceAll(string(body), "\r\n", "\n"), "\n"), nil
}

// Bytes fetches a source with bounded size, redirects and timeout. One
// request, no retry: a failed fetch is fatal to the stage that needed it.
func Bytes(ctx context.Context, kind Kind, rawURL string, opt Options) ([]byte, error) {
	timeout := opt.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	maxRedirects := opt.MaxRedirects
	if maxRedirects == 0 {
		maxRedirects = 5
	}
	maxBytes := opt.MaxBytes
	if maxBytes == 0 {
		maxBytes = kind.defaultMaxBytes()
	}

	u, err := url.Parse(rawURL)
	if err != nil || u == nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &FetchError{
			Code:    "INVALID_ARGUMENT",
			Message: "only http/https URLs are allowed",
			URL:     rawURL,
			Cause:   err,
		}
	}

	client := &http.Client{
		Timeout:   timeout,
		Transport: http.DefaultTransport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return errTooManyRedirects
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return errRedirectBadScheme
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{
			Code:    "INVALID_ARGUMENT",
			Message: "malformed request URL",
			URL:     rawURL,
			Cause:   err,
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		switch {
		case errors.Is(err, errTooManyRedirects):
			return nil, &FetchError{
				Code:    "FETCH_FAILED",
				Message: fmt.Sprintf("redirect limit exceeded (>%d)", maxRedirects),
				URL:     rawURL,
				Cause:   err,
			}
		case errors.Is(err, errRedirectBadScheme):
			return nil, &FetchError{
				Code:    "INVALID_ARGUMENT",
				Message: "redirect target is not http/https",
				URL:     rawURL,
				Cause:   err,
			}
		}
		var ne net.Error
		if (errors.As(err, &ne) && ne.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &FetchError{
				Code:    "FETCH_TIMEOUT",
				Message: fmt.Sprintf("fetching %s timed out", kind),
				URL:     rawURL,
				Cause:   err,
			}
		}
		return nil, &FetchError{
			Code:    "FETCH_FAILED",
			Message: fmt.Sprintf("fetching %s failed", kind),
			URL:     rawURL,
			Cause:   err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{
			Code:    "FETCH_FAILED",
			Message: fmt.Sprintf("upstream returned status %d", resp.StatusCode),
			URL:     rawURL,
		}
	}

	// Read at most maxBytes+1 to detect overflow deterministically.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, &FetchError{
			Code:    "FETCH_FAILED",
			Message: "reading upstream response failed",
			URL:     rawURL,
			Cause:   err,
		}
	}
	if int64(len(body)) > maxBytes {
		return nil, &FetchError{
			Code:    "TOO_LARGE",
			Message: fmt.Sprintf("%s exceeds %d bytes", kind, maxBytes),
			URL:     rawURL,
		}
	}
	return body, nil
}
