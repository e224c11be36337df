package mode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/quantmind-br/dpm/internal/core"
)

// DefaultCheckURLs are checked when the configuration lists none
var DefaultCheckURLs = []string{
	"http://deb.debian.org/debian/dists/stable/Release",
}

// ErrUnreachable matches every UnreachableError
var ErrUnreachable = errors.New("repository unreachable")

// UnreachableError means the check target could not be reached from here.
// Timeouts, DNS failures, refused connections and bad statuses all map
// to it.
type UnreachableError struct {
	URL string
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("%s unreachable: %v", e.URL, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// Is matches ErrUnreachable
func (e *UnreachableError) Is(target error) bool {
	return target == ErrUnreachable
}

// IsUnreachable reports whether err means "no network" rather than a fault
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// HTTPChecker checks repository reachability with HEAD requests. The first
// reachable URL wins.
type HTTPChecker struct {
	URLs    []string
	Timeout time.Duration
	Client  *http.Client
}

// NewHTTPChecker creates a checker, falling back to DefaultCheckURLs
func NewHTTPChecker(urls []string, timeout time.Duration) *HTTPChecker {
	if len(urls) == 0 {
		urls = DefaultCheckURLs
	}
	return &HTTPChecker{
		URLs:    urls,
		Timeout: timeout,
		Client:  &http.Client{},
	}
}

// Check implements Checker
func (p *HTTPChecker) Check(ctx context.Context) error {
	if len(p.URLs) == 0 {
		return core.NewError(core.CodeConfig, "no network check URLs configured")
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	var lastErr error
	for _, raw := range p.URLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return core.NewErrorf(core.CodeConfig, "invalid check URL %q", raw)
		}

		err = p.head(ctx, client, raw)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !IsUnreachable(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (p *HTTPChecker) head(ctx context.Context, client *http.Client, raw string) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, raw, nil)
	if err != nil {
		return core.WrapErrorf(err, core.CodeConfig, "build check request for %s", raw)
	}

	resp, err := client.Do(req)
	if err != nil {
		if isNetworkError(err) {
			return &UnreachableError{URL: raw, Err: err}
		}
		return fmt.Errorf("check %s: %w", raw, err)
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UnreachableError{URL: raw, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
