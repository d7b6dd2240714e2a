// Package remote talks to the hosted order backend: the change feed arrives
// over a WebSocket, writes go over its JSON API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Riboost-Studio/print-station/internal/store"
)

// Client is a store backed by the hosted API.
type Client struct {
	apiURL string
	wsURL  string
	apiKey string
	http   *http.Client
	logger *log.Logger
}

var _ store.Store = (*Client)(nil)

type Options struct {
	APIURL string
	WSURL  string
	APIKey string
	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client
	Logger     *log.Logger
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIURL) == "" {
		return nil, fmt.Errorf("api url is required")
	}
	if strings.TrimSpace(opts.WSURL) == "" {
		return nil, fmt.Errorf("websocket url is required")
	}
	c := &Client{
		apiURL: strings.TrimRight(opts.APIURL, "/"),
		wsURL:  opts.WSURL,
		apiKey: opts.APIKey,
		http:   opts.HTTPClient,
		logger: opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	return c, nil
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// envelope is the API's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

// do sends body as JSON and decodes the response data into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, store.ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API Error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return fmt.Errorf("%s %s: empty response data", method, path)
	}
	return json.Unmarshal(env.Data, out)
}

func escape(id string) string { return url.PathEscape(id) }
