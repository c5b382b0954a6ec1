package notion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ashureev/mockdy/internal/config"
	"github.com/ashureev/mockdy/internal/shared"
)

const maxResponseBytes = 4 << 20

// PagesClient forwards page-creation requests using a caller-supplied bearer token.
type PagesClient struct {
	baseURL    string
	version    string
	httpClient *http.Client
}

// NewPagesClient creates a PagesClient. A nil httpClient gets one bounded by cfg.Timeout.
func NewPagesClient(cfg config.NotionConfig, httpClient *http.Client) *PagesClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &PagesClient{
		baseURL:    cfg.APIURL,
		version:    cfg.Version,
		httpClient: httpClient,
	}
}

// CreatePage posts body to the pages endpoint with authorization forwarded
// unchanged. The provider's status and body are returned as-is; callers decide
// what a 401 means.
func (c *PagesClient) CreatePage(ctx context.Context, authorization string, body []byte) (int, []byte, error) {
	if authorization == "" {
		return 0, nil, &shared.InputError{Message: "Missing Authorization header"}
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pages", bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build pages request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Authorization", authorization)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("call notion pages: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read notion response: %w", err)
	}
	return resp.StatusCode, data, nil
}
