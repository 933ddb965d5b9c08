// Package api is the authenticated REST client for the marketplace
// backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kashguard/go-market-client/internal/market"
	"github.com/kashguard/go-market-client/internal/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Client talks to the marketplace backend. The bearer credential is read
// from the injected session store on every authenticated call; its absence
// is a precondition failure, not a network error.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   session.Store
	log        zerolog.Logger
}

func NewClient(baseURL string, sessions session.Store, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		sessions: sessions,
		log:      log,
	}
}

// apiError is the backend's error body, in either of its two spellings.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e apiError) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

func (c *Client) makeRequest(ctx context.Context, method, path string, body interface{}, authed bool) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request body")
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	if authed {
		token, err := c.sessions.Get()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read session")
		}
		if token == "" {
			return nil, market.E(market.ReasonNotAuthenticated, "no session token for %s %s", method, path)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "request %s %s failed", method, path)
	}
	return resp, nil
}

func (c *Client) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.text() != "" {
			return market.E(market.ReasonBackendRejected, "HTTP %d: %s", resp.StatusCode, apiErr.text())
		}
		return market.E(market.ReasonBackendRejected, "HTTP %d: %s", resp.StatusCode, string(body))
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return errors.Wrap(err, "failed to unmarshal response")
		}
	}
	return nil
}

// call is the shared request/parse helper.
func (c *Client) call(ctx context.Context, method, path string, body, result interface{}, authed bool) error {
	resp, err := c.makeRequest(ctx, method, path, body, authed)
	if err != nil {
		return err
	}
	return c.parseResponse(resp, result)
}

// preparedEnvelope is the shape of every prepare endpoint's response. Mint
// endpoints may return a final transaction instead of an intent.
type preparedEnvelope struct {
	Success         bool            `json:"success"`
	Error           string          `json:"error,omitempty"`
	TrackingID      string          `json:"trackingId,omitempty"`
	TransactionMeta json.RawMessage `json:"transactionMeta,omitempty"`
	Transaction     json.RawMessage `json:"transaction,omitempty"`
	TransactionHash string          `json:"transactionHash,omitempty"`
	TokenIndex      *uint64         `json:"tokenIndex,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	Instructions    string          `json:"instructions,omitempty"`
}

// prepare calls a prepare endpoint and lifts the envelope into an intent.
func (c *Client) prepare(ctx context.Context, method, path string, body interface{}) (*market.TransactionIntent, error) {
	var env preparedEnvelope
	if err := c.call(ctx, method, path, body, &env, true); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, market.E(market.ReasonBackendRejected, "%s", fallback(env.Error, "backend reported failure"))
	}
	meta := env.TransactionMeta
	if len(meta) == 0 {
		meta = env.Transaction
	}
	return &market.TransactionIntent{TrackingID: env.TrackingID, Meta: meta}, nil
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func fmtPath(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
