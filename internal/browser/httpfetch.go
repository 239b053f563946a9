package browser

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// HTTPFetcher is a Fetcher that fetches the raw HTML over plain HTTP and
// resolves selectors with goquery. It sees no client-side rendering, so it
// only works for stores that serve prices in the initial document, but it
// needs no browser install and is what the integration tests run against.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (f *HTTPFetcher) Open(ctx context.Context, url string) (Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrNavigation, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNavigation, err)
	}

	return &docSession{doc: doc}, nil
}

func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// docSession resolves selectors against a static document. There is
// nothing to wait for, so the timeout only distinguishes the error.
type docSession struct {
	doc *goquery.Document
}

func (s *docSession) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: %q", ErrSelectorTimeout, selector)
	}

	return strings.TrimSpace(sel.Text()), nil
}

func (s *docSession) FullPageText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	html, err := s.doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return html, nil
}

func (s *docSession) Close() error {
	return nil
}
