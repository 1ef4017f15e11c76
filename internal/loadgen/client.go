package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/okian/brewrank/internal/adapters/auth"
	"github.com/okian/brewrank/internal/domain/types"
	"github.com/tidwall/gjson"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("unexpected status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Message)
}

// statusError reads the code and message of an error body. Bodies that are
// not JSON are kept whole as the message.
func statusError(status int, body []byte) *StatusError {
	e := &StatusError{Status: status}
	if gjson.ValidBytes(body) {
		e.Code = gjson.GetBytes(body, "code").String()
		e.Message = gjson.GetBytes(body, "message").String()
	}
	if e.Message == "" {
		e.Message = string(bytes.TrimSpace(body))
	}
	return e
}

// Client talks to the brewrank HTTP API.
type Client struct {
	baseURL  string
	http     *http.Client
	tokens   *auth.Verifier
	requests *int64
}

// NewClient builds a client that mints bearer tokens with secret.
func NewClient(baseURL, secret string, timeout time.Duration) (*Client, error) {
	tokens, err := auth.NewVerifier(secret)
	if err != nil {
		return nil, fmt.Errorf("auth verifier: %w", err)
	}
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		tokens:   tokens,
		requests: new(int64),
	}, nil
}

// Requests is the number of requests issued so far.
func (c *Client) Requests() int64 { return atomic.LoadInt64(c.requests) }

// do sends one request as owner (anonymous when empty) and decodes a JSON
// response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path, owner string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if owner != "" {
		token, err := c.tokens.Issue(owner)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	atomic.AddInt64(c.requests, 1)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, statusError(resp.StatusCode, data)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// Health calls GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", "", nil, nil)
	return err
}

// SearchBeers calls GET /beers/search.
func (c *Client) SearchBeers(ctx context.Context, text string, limit int) ([]types.Beer, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("limit", fmt.Sprint(limit))
	var out []types.Beer
	_, err := c.do(ctx, http.MethodGet, "/beers/search?"+q.Encode(), "", nil, &out)
	return out, err
}

// AddBeer calls POST /beers.
func (c *Client) AddBeer(ctx context.Context, owner, name, brewery, beerType string) (types.Beer, error) {
	var out types.Beer
	_, err := c.do(ctx, http.MethodPost, "/beers", owner, map[string]string{
		"name":    name,
		"brewery": brewery,
		"type":    beerType,
	}, &out)
	return out, err
}

// AddCandidate calls POST /lists/{name}/beers/{beerID}.
func (c *Client) AddCandidate(ctx context.Context, owner, list, beerID string) (types.Placement, error) {
	var out types.Placement
	path := "/lists/" + url.PathEscape(list) + "/beers/" + url.PathEscape(beerID)
	_, err := c.do(ctx, http.MethodPost, path, owner, nil, &out)
	return out, err
}

// Submit calls POST /lists/{name}/comparisons.
func (c *Client) Submit(ctx context.Context, owner, list, token, winnerID string) (types.Placement, error) {
	var out types.Placement
	_, err := c.do(ctx, http.MethodPost, "/lists/"+url.PathEscape(list)+"/comparisons", owner, map[string]string{
		"session_token": token,
		"winner_id":     winnerID,
	}, &out)
	return out, err
}

// Ranked calls GET /lists/{name}.
func (c *Client) Ranked(ctx context.Context, owner, list string) (types.RankedList, error) {
	var out types.RankedList
	_, err := c.do(ctx, http.MethodGet, "/lists/"+url.PathEscape(list), owner, nil, &out)
	return out, err
}
