package padstore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// HTTPSource fetches pads from a running Etherpad through its ".etherpad"
// export and rebuilds revisions locally.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// Fetch downloads the pad's full history and returns it at rev.
func (h *HTTPSource) Fetch(ctx context.Context, padID string, rev int) (*Pad, error) {
	if h.BaseURL == "" {
		return nil, fmt.Errorf("padstore http: BaseURL is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	target := strings.TrimRight(h.BaseURL, "/") + "/p/" + url.PathEscape(padID) + "/export/etherpad"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("padstore http: build request: %w", err)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return nil, fmt.Errorf("padstore http: unsupported scheme %q", req.URL.Scheme)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("padstore http: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{PadID: padID}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("padstore http: status %s", resp.Status)
	}
	mem := NewMemory()
	if _, err := LoadEtherpad(ctx, resp.Body, mem); err != nil {
		return nil, err
	}
	return New(mem).Fetch(ctx, padID, rev)
}
