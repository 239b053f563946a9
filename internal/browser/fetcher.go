package browser

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNavigation      = errors.New("navigation failed")
	ErrSelectorTimeout = errors.New("selector did not appear")
)

// Session is one isolated view of a rendered page. Sessions are never
// shared between tasks and must be closed on every exit path.
type Session interface {
	// WaitForSelector blocks until the selector's content is present, up
	// to timeout, and returns its text.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (string, error)
	// FullPageText returns the whole rendered page as text for keyword
	// scanning.
	FullPageText(ctx context.Context) (string, error)
	Close() error
}

// Fetcher opens isolated page sessions. The engine does not care whether
// the implementation is a real browser, an HTTP shim, or a test fake.
type Fetcher interface {
	Open(ctx context.Context, url string) (Session, error)
	Close() error
}
