package debrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

// httpClient is the shared ambient HTTP-with-retry-and-rate-limit core each
// provider adapter embeds, generalizing the teacher's one-off
// *http.Client{Timeout: ...} construction in services/debrid/alldebrid_client.go
// into a reusable component backed by avast/retry-go and x/time/rate.
type httpClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPClient(apiKey, baseURL string, requestsPerSecond float64) httpClient {
	return httpClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// doJSON performs an HTTP request with rate limiting and a bounded retry
// policy, decoding the JSON response body into out. Retryable failures
// (5xx, timeouts) are retried with backoff, for at most 3 attempts in total;
// the last error is returned, and the CircuitBreaker wrapper counts it as one
// provider failure.
func (h httpClient) doJSON(ctx context.Context, method, path string, body any, out any) error {
	if err := h.limiter.Wait(ctx); err != nil {
		return err
	}

	return retry.Do(
		func() error {
			req, err := h.newRequest(ctx, method, path, body)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := h.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 500 {
				return fmt.Errorf("debrid: server error %d", resp.StatusCode)
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				return fmt.Errorf("debrid: rate limited")
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("debrid: client error %d", resp.StatusCode))
			}

			if out == nil {
				return nil
			}
			return json.NewDecoder(resp.Body).Decode(out)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
	)
}

func (h httpClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	url := h.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
