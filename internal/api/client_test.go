package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kashguard/go-market-client/internal/market"
	"github.com/kashguard/go-market-client/internal/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := session.NewMemStore()
	if token != "" {
		require.NoError(t, store.Set(token))
	}
	return NewClient(srv.URL, store, zerolog.Nop())
}

func TestAuthenticatedCallWithoutTokenFailsBeforeNetwork(t *testing.T) {
	hit := false
	client := newTestClient(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		hit = true
	}), "")

	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrNotAuthenticated)
	assert.False(t, hit, "no request may be sent without a token")
}

func TestBearerTokenAttached(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		json.NewEncoder(rw).Encode(market.AccountProfile{Address: "0xa1"})
	}), "tok-1")

	profile, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xa1", profile.Address)
}

func TestChallengeEndpointsAreUnauthenticated(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodPost:
			var body struct {
				Address string `json:"address"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "0x1", body.Address)
		case http.MethodGet:
			assert.Equal(t, "0x1", r.URL.Query().Get("address"))
		}
		json.NewEncoder(rw).Encode(market.Challenge{MessageToSign: "m", Nonce: "n"})
	}), "")

	ch, err := client.RequestChallenge(context.Background(), "0x1")
	require.NoError(t, err)
	assert.Equal(t, "n", ch.Nonce)

	ch, err = client.RequestChallengeGET(context.Background(), "0x1")
	require.NoError(t, err)
	assert.Equal(t, "m", ch.MessageToSign)
}

func TestNonSuccessStatusSurfacesBackendText(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusConflict)
		json.NewEncoder(rw).Encode(map[string]string{"error": "already listed"})
	}), "tok-1")

	_, err := client.ListNFT(context.Background(), "nft1", "5", "APT")
	require.Error(t, err)
	assert.ErrorIs(t, err, &market.Error{Reason: market.ReasonBackendRejected})
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "already listed")
}

func TestPrepareEnvelopeFailureFailsFast(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		json.NewEncoder(rw).Encode(map[string]interface{}{"success": false, "error": "nft not owned by caller"})
	}), "tok-1")

	_, err := client.ListNFT(context.Background(), "nft1", "5", "APT")
	require.Error(t, err)
	assert.ErrorIs(t, err, &market.Error{Reason: market.ReasonBackendRejected})
	assert.Contains(t, err.Error(), "nft not owned by caller")
}

func TestPrepareReturnsIntent(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nft/nft1/list", r.URL.Path)
		json.NewEncoder(rw).Encode(map[string]interface{}{
			"success":    true,
			"trackingId": "t1",
			"transactionMeta": map[string]interface{}{
				"function":          "0x1::marketplace::list",
				"typeArguments":     []string{},
				"functionArguments": []interface{}{"nft1", "5"},
			},
		})
	}), "tok-1")

	intent, err := client.ListNFT(context.Background(), "nft1", "5", "APT")
	require.NoError(t, err)
	assert.Equal(t, "t1", intent.TrackingID)
	assert.Contains(t, string(intent.Meta), "0x1::marketplace::list")
}

func TestRandomMintImmediate(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		json.NewEncoder(rw).Encode(map[string]interface{}{
			"success":         true,
			"transactionHash": "0xmint",
			"tokenIndex":      3,
		})
	}), "tok-1")

	res, err := client.RandomMint(context.Background(), "d1", 1)
	require.NoError(t, err)
	assert.True(t, res.Immediate)
	assert.Equal(t, "0xmint", res.TransactionHash)
	require.NotNil(t, res.TokenIndex)
	assert.Equal(t, uint64(3), *res.TokenIndex)
}

func TestRandomMintTwoPhase(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		json.NewEncoder(rw).Encode(map[string]interface{}{
			"success":    true,
			"trackingId": "t9",
			"transaction": map[string]interface{}{
				"function": "0x1::minting::mint_random",
			},
		})
	}), "tok-1")

	res, err := client.RandomMint(context.Background(), "d1", 1)
	require.NoError(t, err)
	assert.False(t, res.Immediate)
	require.NotNil(t, res.Intent)
	assert.Equal(t, "t9", res.Intent.TrackingID)
}

func TestConfirmTransaction(t *testing.T) {
	var gotPath string
	var gotBody market.Confirmation
	client := newTestClient(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(rw).Encode(map[string]interface{}{"success": true})
	}), "tok-1")

	block := uint64(12)
	err := client.ConfirmTransaction(context.Background(), "t1", market.Confirmation{
		TransactionHash: "0xabc",
		BlockNumber:     &block,
	})
	require.NoError(t, err)
	assert.Equal(t, "/transactions/t1/confirm", gotPath)
	assert.Equal(t, "0xabc", gotBody.TransactionHash)
}
