package devserver

import (
	"crypto/ed25519"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/kashguard/go-market-client/internal/market"
	"github.com/kashguard/go-market-client/internal/signing"
)

func (s *Server) postChallenge(c echo.Context) error {
	var body struct {
		Address string `json:"address"`
	}
	if err := c.Bind(&body); err != nil || body.Address == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "address is required")
	}
	return c.JSON(http.StatusOK, s.issueChallenge(body.Address))
}

func (s *Server) getChallenge(c echo.Context) error {
	address := c.QueryParam("address")
	if address == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "address query parameter is required")
	}
	return c.JSON(http.StatusOK, s.issueChallenge(address))
}

func (s *Server) issueChallenge(address string) market.Challenge {
	nonce := uuid.NewString()
	message := fmt.Sprintf("Sign in to the marketplace as %s", strings.ToLower(address))

	s.mu.Lock()
	s.challenges[nonce] = &challengeRecord{
		Address:   strings.ToLower(address),
		Message:   message,
		ExpiresAt: time.Now().Add(challengeTTL),
	}
	s.mu.Unlock()

	return market.Challenge{MessageToSign: message, Nonce: nonce}
}

type verifyBody struct {
	Address     string            `json:"address"`
	PublicKey   string            `json:"publicKey"`
	Signature   signing.Canonical `json:"signature"`
	FullMessage string            `json:"fullMessage"`
}

func (s *Server) postVerify(c echo.Context) error {
	var body verifyBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed verify payload")
	}
	if body.Address == "" || body.PublicKey == "" || body.FullMessage == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "address, publicKey and fullMessage are required")
	}

	// The nonce travels inside the signed envelope; reparse it to tie the
	// proof back to an issued challenge.
	nonce := extractEnvelopeField(body.FullMessage, "nonce")
	if nonce == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "full message carries no nonce")
	}

	s.mu.Lock()
	challenge, ok := s.challenges[nonce]
	switch {
	case !ok:
		s.mu.Unlock()
		return echo.NewHTTPError(http.StatusUnauthorized, "unknown challenge nonce")
	case challenge.Used:
		s.mu.Unlock()
		return echo.NewHTTPError(http.StatusUnauthorized, "challenge already used")
	case time.Now().After(challenge.ExpiresAt):
		s.mu.Unlock()
		return echo.NewHTTPError(http.StatusUnauthorized, "challenge expired")
	case challenge.Address != strings.ToLower(body.Address):
		s.mu.Unlock()
		return echo.NewHTTPError(http.StatusUnauthorized, "challenge was issued for a different address")
	}
	challenge.Used = true
	s.mu.Unlock()

	if body.Signature.IsPair() {
		// The dev chain signs plain ed25519; r/s pairs belong to other
		// schemes and cannot be verified here.
		return echo.NewHTTPError(http.StatusBadRequest, "r/s pair signatures are not supported by the dev verifier")
	}
	pub, err := hexutil.Decode(body.PublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed public key")
	}
	sig, err := hexutil.Decode(body.Signature.Value)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed signature encoding")
	}
	if !ed25519.Verify(pub, []byte(body.FullMessage), sig) {
		return echo.NewHTTPError(http.StatusUnauthorized, "signature does not verify")
	}

	token, err := s.issueToken(strings.ToLower(body.Address))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}
	return c.JSON(http.StatusOK, map[string]string{"access_token": token})
}

// extractEnvelopeField pulls one "key: value" line out of the signed
// message envelope.
func extractEnvelopeField(fullMessage, key string) string {
	for _, line := range strings.Split(fullMessage, "\n") {
		if strings.HasPrefix(line, key+": ") {
			return strings.TrimPrefix(line, key+": ")
		}
	}
	return ""
}

func (s *Server) getMe(c echo.Context) error {
	return c.JSON(http.StatusOK, market.AccountProfile{Address: callerAddress(c)})
}

func (s *Server) getMeOverview(c echo.Context) error {
	addr := callerAddress(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	overview := market.AccountOverview{Owned: len(s.tokens[addr])}
	for _, l := range s.listings {
		if l.Seller == addr {
			overview.Listed++
		}
	}
	for _, b := range s.bids {
		if b.Bidder == addr {
			overview.OpenBids++
		}
	}
	return c.JSON(http.StatusOK, overview)
}

func (s *Server) getMeNFTs(c echo.Context) error {
	addr := callerAddress(c)

	s.mu.Lock()
	owned := append([]market.OwnedToken(nil), s.tokens[addr]...)
	s.mu.Unlock()

	page, limit := 1, 20
	if p := c.QueryParam("page"); p != "" {
		fmt.Sscanf(p, "%d", &page)
	}
	if l := c.QueryParam("limit"); l != "" {
		fmt.Sscanf(l, "%d", &limit)
	}
	start := (page - 1) * limit
	if start > len(owned) {
		start = len(owned)
	}
	end := start + limit
	if end > len(owned) {
		end = len(owned)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"items": owned[start:end],
		"total": len(owned),
	})
}
