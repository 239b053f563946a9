package engine

import (
	"context"
	"sync"
	"time"

	"github.com/EdreyFreitas/monitor-dental/internal/browser"
)

// fakePage scripts what the fetcher serves for one URL.
type fakePage struct {
	priceText string
	pageText  string
	openErr   error
	waitErr   error
}

type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]fakePage
	opens    map[string]int
	sessions []*fakeSession

	// gate, when set, blocks every WaitForSelector until it is closed,
	// keeping sessions open so concurrency can be observed.
	gate chan struct{}

	inFlight     int
	peakInFlight int
}

func newFakeFetcher(pages map[string]fakePage) *fakeFetcher {
	return &fakeFetcher{
		pages: pages,
		opens: make(map[string]int),
	}
}

func (f *fakeFetcher) Open(ctx context.Context, url string) (browser.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.opens[url]++

	page, ok := f.pages[url]
	if !ok {
		return nil, browser.ErrNavigation
	}
	if page.openErr != nil {
		return nil, page.openErr
	}

	f.inFlight++
	if f.inFlight > f.peakInFlight {
		f.peakInFlight = f.inFlight
	}

	s := &fakeSession{fetcher: f, page: page}
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeFetcher) Close() error {
	return nil
}

func (f *fakeFetcher) openCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens[url]
}

// currentOpen is the number of sessions handed out and not yet released.
func (f *fakeFetcher) currentOpen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// peakOpen is the highest number of simultaneously open sessions seen.
func (f *fakeFetcher) peakOpen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peakInFlight
}

// allSessionsClosed reports whether every session handed out was released.
func (f *fakeFetcher) allSessionsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if !s.closed {
			return false
		}
	}
	return true
}

type fakeSession struct {
	fetcher *fakeFetcher
	page    fakePage
	closed  bool
}

func (s *fakeSession) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	s.fetcher.mu.Lock()
	gate := s.fetcher.gate
	s.fetcher.mu.Unlock()

	if gate != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-gate:
		}
	}

	if s.page.waitErr != nil {
		return "", s.page.waitErr
	}
	return s.page.priceText, nil
}

func (s *fakeSession) FullPageText(ctx context.Context) (string, error) {
	return s.page.pageText, nil
}

func (s *fakeSession) Close() error {
	s.fetcher.mu.Lock()
	defer s.fetcher.mu.Unlock()

	if !s.closed {
		s.closed = true
		s.fetcher.inFlight--
	}
	return nil
}
