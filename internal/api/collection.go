package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/kashguard/go-market-client/internal/market"
)

// ConfigurePayload is the all-in-one collection configuration: sale phases,
// prices and the allowlist in a single prepared transaction.
type ConfigurePayload struct {
	Phase         market.SalePhase `json:"phase"`
	PresalePrice  string           `json:"presalePrice,omitempty"`
	PublicPrice   string           `json:"publicPrice,omitempty"`
	MaxPerAddress uint64           `json:"maxPerAddress,omitempty"`
	Allowlist     []string         `json:"allowlist,omitempty"`
}

// GetDraft fetches the collection draft aggregate.
func (c *Client) GetDraft(ctx context.Context, draftID string) (market.Draft, error) {
	var draft market.Draft
	err := c.call(ctx, http.MethodGet, fmtPath("/collections/%s", draftID), nil, &draft, true)
	return draft, err
}

// BuildDeploy prepares the on-chain collection creation transaction.
func (c *Client) BuildDeploy(ctx context.Context, draftID string) (*market.TransactionIntent, error) {
	return c.prepare(ctx, http.MethodPost, fmtPath("/collections/%s/deploy-build", draftID), nil)
}

// ConfigureCollection prepares the all-in-one configure transaction.
func (c *Client) ConfigureCollection(ctx context.Context, draftID string, payload ConfigurePayload) (*market.TransactionIntent, error) {
	return c.prepare(ctx, http.MethodPost, fmtPath("/collections/%s/configure", draftID), payload)
}

// AddAllowlist prepares an allowlist extension transaction.
func (c *Client) AddAllowlist(ctx context.Context, draftID string, addresses []string) (*market.TransactionIntent, error) {
	body := struct {
		Addresses []string `json:"addresses"`
	}{Addresses: addresses}
	return c.prepare(ctx, http.MethodPost, fmtPath("/collections/%s/allowlist", draftID), body)
}

// SyncOnchain asks the backend to read back the deployed collection's
// owning account and collection id. Pure server-side read, no transaction.
func (c *Client) SyncOnchain(ctx context.Context, draftID string) (market.Draft, error) {
	var draft market.Draft
	err := c.call(ctx, http.MethodPost, fmtPath("/collections/%s/onchain-sync", draftID), nil, &draft, true)
	return draft, err
}

// MintResult is the random-mint response. The backend either returns a
// transaction intent for the wallet to sign, or - when it executes the mint
// itself - a final transaction that needs no confirm call.
type MintResult struct {
	Intent          *market.TransactionIntent
	Immediate       bool
	TransactionHash string
	TokenIndex      *uint64
	Metadata        json.RawMessage
}

type mintPayload struct {
	Count uint64 `json:"count"`
}

// RandomMint requests a random mint from the collection.
func (c *Client) RandomMint(ctx context.Context, draftID string, count uint64) (*MintResult, error) {
	var env preparedEnvelope
	path := fmtPath("/collections/%s/random-mint", draftID)
	if err := c.call(ctx, http.MethodPost, path, mintPayload{Count: count}, &env, true); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, market.E(market.ReasonBackendRejected, "%s", fallback(env.Error, "mint rejected"))
	}

	// A response with a final hash but no tracking id was executed by the
	// backend itself and is already applied.
	if env.TrackingID == "" && env.TransactionHash != "" {
		return &MintResult{
			Immediate:       true,
			TransactionHash: env.TransactionHash,
			TokenIndex:      env.TokenIndex,
			Metadata:        env.Metadata,
		}, nil
	}

	meta := env.TransactionMeta
	if len(meta) == 0 {
		meta = env.Transaction
	}
	return &MintResult{
		Intent: &market.TransactionIntent{TrackingID: env.TrackingID, Meta: meta},
	}, nil
}

// CollectionAddress resolves a deployed collection's on-chain address via
// the backend's view-function proxy.
func (c *Client) CollectionAddress(ctx context.Context, creator, name string) (string, error) {
	var resp struct {
		Address string `json:"address"`
	}
	path := fmtPath("/collections/address?creator=%s&name=%s", url.QueryEscape(creator), url.QueryEscape(name))
	if err := c.call(ctx, http.MethodGet, path, nil, &resp, true); err != nil {
		return "", err
	}
	return resp.Address, nil
}
