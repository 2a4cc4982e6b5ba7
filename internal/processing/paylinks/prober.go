package paylinks

import (
	"context"
	"io"
	"net/http"
	"time"
)

// maxPageBytes caps how much of a payment page is read for classification.
const maxPageBytes = 1 << 20

// PageProber fetches a link's page once and classifies it. Retries are the
// reconciliation loop's concern, at the next cycle; the prober never mutates
// storage.
type PageProber struct {
	client *http.Client
}

func NewPageProber(timeout time.Duration) *PageProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PageProber{
		client: &http.Client{Timeout: timeout},
	}
}

// Probe issues a single GET with no retry. A transport error or non-2xx
// response is reported as OutcomeFetchFailed carrying the status text, never
// conflated with a malformed or failed page.
func (p *PageProber) Probe(ctx context.Context, url string) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Outcome{Kind: OutcomeFetchFailed, StatusText: err.Error()}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Outcome{Kind: OutcomeFetchFailed, StatusText: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{Kind: OutcomeFetchFailed, StatusText: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Outcome{Kind: OutcomeFetchFailed, StatusText: err.Error()}
	}

	return ParseOutcome(string(body))
}
