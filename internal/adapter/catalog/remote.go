package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/hashicorp/go-retryablehttp"
)

// FetchRemote downloads a JSON shelter array from url. Transient failures
// are retried up to three times.
func FetchRemote(ctx context.Context, url string, timeout time.Duration) (*Static, error) {
	rC := retryablehttp.NewClient()
	rC.Logger = nil
	rC.RetryMax = 3
	rC.RetryWaitMin = 100 * time.Millisecond
	rC.RetryWaitMax = time.Second
	client := rC.StandardClient()
	client.Timeout = timeout

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch catalog: status %d: %s", resp.StatusCode, body)
	}

	var shelters []domain.Shelter
	if err := json.NewDecoder(resp.Body).Decode(&shelters); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return NewStatic(shelters), nil
}
