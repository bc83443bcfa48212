package rates

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"YieldOptimizer/internal/model"

	"github.com/tidwall/gjson"
)

// HTTPSource reads rates from a REST oracle. The endpoint is
// GET {BaseURL}/api/v1/rates?protocol=<id> and RatePath is a gjson path
// selecting an unsigned integer rate from the response body.
type HTTPSource struct {
	BaseURL  string
	APIKey   string
	RatePath string
	Client   *http.Client
}

// NewHTTPSource creates a source with optional proxy support.
func NewHTTPSource(baseURL, apiKey, ratePath, proxyURL string, timeout time.Duration) *HTTPSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if ratePath == "" {
		ratePath = "rate"
	}
	return &HTTPSource{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		RatePath: ratePath,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (s *HTTPSource) Name() string { return "http" }

func (s *HTTPSource) CurrentRate(ctx context.Context, protocol model.ProtocolID) (uint64, error) {
	endpoint := fmt.Sprintf("%s/api/v1/rates?protocol=%s", s.BaseURL, url.QueryEscape(string(protocol)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch rate %s: %w", protocol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read rate %s: %w", protocol, err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch rate %s: status %d, body: %s", protocol, resp.StatusCode, string(body))
	}
	if !gjson.ValidBytes(body) {
		return 0, fmt.Errorf("decode rate %s: invalid json", protocol)
	}

	res := gjson.GetBytes(body, s.RatePath)
	if !res.Exists() {
		return 0, fmt.Errorf("decode rate %s: path %q not found", protocol, s.RatePath)
	}
	if res.Type != gjson.Number || res.Num < 0 || res.Num != float64(uint64(res.Num)) {
		return 0, fmt.Errorf("decode rate %s: %q is not an unsigned integer", protocol, res.Raw)
	}
	return res.Uint(), nil
}
