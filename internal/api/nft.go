package api

import (
	"context"
	"net/http"

	"github.com/kashguard/go-market-client/internal/market"
)

type listPayload struct {
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

type relistPayload struct {
	NewPrice string `json:"newPrice"`
	Currency string `json:"currency"`
}

type bidPayload struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// ListNFT prepares a listing transaction for one token.
func (c *Client) ListNFT(ctx context.Context, nftID, price, currency string) (*market.TransactionIntent, error) {
	return c.prepare(ctx, http.MethodPost, fmtPath("/nft/%s/list", nftID), listPayload{Price: price, Currency: currency})
}

// RelistNFT prepares a price change for an existing listing.
func (c *Client) RelistNFT(ctx context.Context, nftID, newPrice, currency string) (*market.TransactionIntent, error) {
	return c.prepare(ctx, http.MethodPut, fmtPath("/nft/%s/relist", nftID), relistPayload{NewPrice: newPrice, Currency: currency})
}

// DelistNFT prepares cancellation of a listing.
func (c *Client) DelistNFT(ctx context.Context, nftID string) (*market.TransactionIntent, error) {
	return c.prepare(ctx, http.MethodDelete, fmtPath("/nft/%s/list", nftID), nil)
}

// BuyNFT prepares a purchase of a listed token.
func (c *Client) BuyNFT(ctx context.Context, nftID string) (*market.TransactionIntent, error) {
	return c.prepare(ctx, http.MethodPost, fmtPath("/nft/%s/buy", nftID), nil)
}

// PlaceBid prepares a bid on a listed token.
func (c *Client) PlaceBid(ctx context.Context, nftID, amount, currency string) (*market.TransactionIntent, error) {
	return c.prepare(ctx, http.MethodPost, fmtPath("/nft/%s/bid/place", nftID), bidPayload{Amount: amount, Currency: currency})
}

// CancelBid prepares withdrawal of the caller's bid.
func (c *Client) CancelBid(ctx context.Context, nftID, bidID string) (*market.TransactionIntent, error) {
	return c.prepare(ctx, http.MethodPost, fmtPath("/nft/%s/bid/%s/cancel", nftID, bidID), nil)
}

// AcceptBid prepares acceptance of a bid by the seller.
func (c *Client) AcceptBid(ctx context.Context, nftID, bidID string) (*market.TransactionIntent, error) {
	return c.prepare(ctx, http.MethodPost, fmtPath("/nft/%s/bid/%s/accept", nftID, bidID), nil)
}

// ConfirmTransaction reports an observed on-chain inclusion for one
// tracking record. The trackingID scopes the call server-side, so a repeat
// with the same hash is safe.
func (c *Client) ConfirmTransaction(ctx context.Context, trackingID string, confirmation market.Confirmation) error {
	var env struct {
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}
	path := fmtPath("/transactions/%s/confirm", trackingID)
	if err := c.call(ctx, http.MethodPost, path, confirmation, &env, true); err != nil {
		return err
	}
	if !env.Success {
		return market.E(market.ReasonBackendRejected, "%s", fallback(env.Error, "confirm rejected"))
	}
	return nil
}
