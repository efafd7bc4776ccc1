package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fentz26/tracker/internal/api"
	"github.com/fentz26/tracker/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// Client wraps HTTP calls to the tracker API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client. A zero timeout uses DefaultClientTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Prioritized fetches scheduled items by start time.
func (c *Client) Prioritized() ([]api.ItemJSON, error) {
	var items []api.ItemJSON
	return items, c.get("/prioritized", &items)
}

// History fetches recently viewed items, least recent first.
func (c *Client) History() ([]api.ItemJSON, error) {
	var items []api.ItemJSON
	return items, c.get("/history", &items)
}

// Item fetches one item. The daemon records the view in its history.
func (c *Client) Item(kind models.Kind, id int) (*api.ItemJSON, error) {
	var item api.ItemJSON
	if err := c.get(fmt.Sprintf("/%ss/%d", strings.ToLower(string(kind)), id), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Health checks whether the daemon is reachable.
func (c *Client) Health() (*api.HealthResponse, error) {
	var health api.HealthResponse
	if err := c.get("/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *Client) get(path string, out interface{}) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr api.ErrorResponse
		body, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("API error %d: %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("API error: %s", strings.TrimSpace(string(body)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
