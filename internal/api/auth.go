package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/kashguard/go-market-client/internal/market"
	"github.com/kashguard/go-market-client/internal/signing"
)

type challengePayload struct {
	Address string `json:"address"`
}

// RequestChallenge asks for a login challenge with the address in the POST
// body.
func (c *Client) RequestChallenge(ctx context.Context, address string) (market.Challenge, error) {
	var challenge market.Challenge
	err := c.call(ctx, http.MethodPost, "/auth/challenge", challengePayload{Address: address}, &challenge, false)
	return challenge, err
}

// RequestChallengeGET is the fallback form with the address as a query
// parameter.
func (c *Client) RequestChallengeGET(ctx context.Context, address string) (market.Challenge, error) {
	var challenge market.Challenge
	err := c.call(ctx, http.MethodGet, "/auth/challenge?address="+url.QueryEscape(address), nil, &challenge, false)
	return challenge, err
}

type verifyPayload struct {
	Address     string            `json:"address"`
	PublicKey   string            `json:"publicKey"`
	Signature   signing.Canonical `json:"signature"`
	FullMessage string            `json:"fullMessage"`
}

type verifyResponse struct {
	AccessToken string `json:"access_token"`
}

// VerifySignature exchanges the signed challenge for a bearer token.
func (c *Client) VerifySignature(ctx context.Context, address, publicKey string, sig signing.Canonical, fullMessage string) (string, error) {
	payload := verifyPayload{
		Address:     address,
		PublicKey:   publicKey,
		Signature:   sig,
		FullMessage: fullMessage,
	}
	var resp verifyResponse
	if err := c.call(ctx, http.MethodPost, "/auth/verify", payload, &resp, false); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", market.E(market.ReasonVerifyRejected, "verify response carried no access token")
	}
	return resp.AccessToken, nil
}

// Me fetches the authenticated profile.
func (c *Client) Me(ctx context.Context) (market.AccountProfile, error) {
	var profile market.AccountProfile
	err := c.call(ctx, http.MethodGet, "/me", nil, &profile, true)
	return profile, err
}

// MeOverview fetches the dashboard aggregates.
func (c *Client) MeOverview(ctx context.Context) (market.AccountOverview, error) {
	var overview market.AccountOverview
	err := c.call(ctx, http.MethodGet, "/me/overview", nil, &overview, true)
	return overview, err
}

type nftPage struct {
	Items []market.OwnedToken `json:"items"`
	Total int                 `json:"total"`
}

// MeNFTs fetches one page of the authenticated user's tokens.
func (c *Client) MeNFTs(ctx context.Context, page, limit int) ([]market.OwnedToken, int, error) {
	var result nftPage
	path := fmtPath("/me/nfts?page=%d&limit=%d", page, limit)
	if err := c.call(ctx, http.MethodGet, path, nil, &result, true); err != nil {
		return nil, 0, err
	}
	return result.Items, result.Total, nil
}
