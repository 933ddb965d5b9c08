// Package devserver is an in-memory implementation of the marketplace
// backend contract plus a minimal fullnode facade. It exists for local
// development and for integration tests that exercise the real client,
// wallet and lifecycle end to end in one process.
package devserver

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/kashguard/go-market-client/internal/market"
	"github.com/rs/zerolog"
)

const challengeTTL = 5 * time.Minute

type challengeRecord struct {
	Address   string
	Message   string
	ExpiresAt time.Time
	Used      bool
}

type trackingRecord struct {
	Entity        string
	ConfirmedHash string
}

type txRecord struct {
	Success     bool
	VMStatus    string
	BlockHeight uint64
	GasUsed     uint64
}

// Server holds all backend state in memory.
type Server struct {
	Echo   *echo.Echo
	secret []byte
	log    zerolog.Logger

	mu         sync.Mutex
	challenges map[string]*challengeRecord // keyed by nonce
	tracking   map[string]*trackingRecord
	txs        map[string]*txRecord
	drafts     map[string]*market.Draft
	listings   map[string]*market.Listing
	bids       map[string]*market.Bid
	tokens     map[string][]market.OwnedToken // keyed by owner address

	// metaShape rotates the transaction-metadata shape across prepare
	// responses so clients must normalize all of them.
	metaShape int

	blockHeight uint64

	// pendingVMFailure, when set, makes the next submitted transaction
	// fail on-chain with this status.
	pendingVMFailure string
}

func New(secret string, log zerolog.Logger) *Server {
	s := &Server{
		secret:     []byte(secret),
		log:        log,
		challenges: make(map[string]*challengeRecord),
		tracking:   make(map[string]*trackingRecord),
		txs:        make(map[string]*txRecord),
		drafts:     make(map[string]*market.Draft),
		listings:   make(map[string]*market.Listing),
		bids:       make(map[string]*market.Bid),
		tokens:     make(map[string][]market.OwnedToken),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.POST("/auth/challenge", s.postChallenge)
	e.GET("/auth/challenge", s.getChallenge)
	e.POST("/auth/verify", s.postVerify)

	authed := e.Group("", s.bearerAuth)
	authed.GET("/me", s.getMe)
	authed.GET("/me/overview", s.getMeOverview)
	authed.GET("/me/nfts", s.getMeNFTs)

	authed.POST("/nft/:id/list", s.postList)
	authed.PUT("/nft/:id/relist", s.putRelist)
	authed.DELETE("/nft/:id/list", s.deleteList)
	authed.POST("/nft/:id/buy", s.postBuy)
	authed.POST("/nft/:id/bid/place", s.postPlaceBid)
	authed.POST("/nft/:id/bid/:bidId/cancel", s.postCancelBid)
	authed.POST("/nft/:id/bid/:bidId/accept", s.postAcceptBid)
	authed.POST("/transactions/:trackingId/confirm", s.postConfirm)

	authed.GET("/collections/:id", s.getDraft)
	authed.POST("/collections/:id/deploy-build", s.postDeployBuild)
	authed.POST("/collections/:id/configure", s.postConfigure)
	authed.POST("/collections/:id/allowlist", s.postAllowlist)
	authed.POST("/collections/:id/onchain-sync", s.postOnchainSync)
	authed.POST("/collections/:id/random-mint", s.postRandomMint)
	authed.GET("/collections/address", s.getCollectionAddress)

	// Fullnode facade.
	e.POST("/v1/transactions", s.postSubmitTransaction)
	e.GET("/v1/transactions/by_hash/:hash", s.getTransactionByHash)

	s.Echo = e
	return s
}

// Start serves until the listener fails.
func (s *Server) Start(addr string) error {
	s.log.Info().Str("addr", addr).Msg("Dev server listening")
	return s.Echo.Start(addr)
}

// SeedDraft installs a collection draft.
func (s *Server) SeedDraft(d market.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := d
	s.drafts[d.ID] = &copied
}

// SeedToken installs an owned token for an address.
func (s *Server) SeedToken(owner string, tok market.OwnedToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[strings.ToLower(owner)] = append(s.tokens[strings.ToLower(owner)], tok)
}

// FailNextTransaction makes the next submitted transaction fail on-chain
// with the given VM status.
func (s *Server) FailNextTransaction(vmStatus string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingVMFailure = vmStatus
}

func (s *Server) bearerAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, echo.NewHTTPError(http.StatusUnauthorized, "unexpected signing method")
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid bearer token")
		}
		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
		}
		c.Set("address", sub)
		return next(c)
	}
}

func (s *Server) issueToken(address string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   address,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		Issuer:    "market-devserver",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func callerAddress(c echo.Context) string {
	addr, _ := c.Get("address").(string)
	return addr
}
