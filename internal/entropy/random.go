// Package entropy picks playthrough seeds from random.org.
// Falls back to crypto/rand when the API is unavailable.
package entropy

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultURL = "https://api.random.org/json-rpc/4/invoke"

// randomMax is the largest integer random.org will generate.
const randomMax = 1_000_000_000

// Client fetches true random integers from random.org.
type Client struct {
	apiKey string
	url    string
	client *http.Client
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey: apiKey,
		url:    defaultURL,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Integers fetches n integers in [0, 1e9] from random.org.
func (c *Client) Integers(ctx context.Context, n int) ([]int64, error) {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateIntegers",
		"params": map[string]any{
			"apiKey": c.apiKey,
			"n":      n,
			"min":    0,
			"max":    randomMax,
		},
		"id": 1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("random.org fetch: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("random.org read: %w", err)
	}

	var result struct {
		Result struct {
			Random struct {
				Data []int64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("random.org parse: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("random.org API error: %s", result.Error.Message)
	}
	if len(result.Result.Random.Data) < n {
		return nil, fmt.Errorf("random.org returned %d of %d integers", len(result.Result.Random.Data), n)
	}
	return result.Result.Random.Data[:n], nil
}

// Seed returns a non-zero playthrough seed. It asks random.org when c is
// enabled and uses crypto/rand otherwise or on any failure.
func Seed(ctx context.Context, c *Client) int64 {
	if c.Enabled() {
		data, err := c.Integers(ctx, 2)
		if err == nil {
			if seed := data[0]*(randomMax+1) + data[1]; seed != 0 {
				slog.Debug("seed from random.org", "seed", seed)
				return seed
			}
		} else {
			slog.Warn("random.org unavailable, using crypto/rand", "error", err)
		}
	}
	return cryptoSeed()
}

// cryptoSeed generates a positive seed using crypto/rand.
func cryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen; fall back to the clock.
		return time.Now().UnixNano() | 1
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}
