package devserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/kashguard/go-market-client/internal/market"
	"golang.org/x/crypto/sha3"
)

func (s *Server) getDraft(c echo.Context) error {
	s.mu.Lock()
	draft, ok := s.drafts[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown draft")
	}
	return c.JSON(http.StatusOK, draft)
}

func (s *Server) postDeployBuild(c echo.Context) error {
	draftID := c.Param("id")

	s.mu.Lock()
	draft, ok := s.drafts[draftID]
	if ok && draft.BaseURI == "" {
		s.mu.Unlock()
		return rejected(c, "draft has no IPFS base URI")
	}
	if ok {
		draft.Status = market.DraftStatusDeployPending
	}
	s.mu.Unlock()
	if !ok {
		return rejected(c, "unknown draft")
	}

	return c.JSON(http.StatusOK, s.preparedResponse("draft:"+draftID,
		"0x1::launchpad::create_collection", []string{},
		[]interface{}{draft.Name, draft.BaseURI, fmt.Sprintf("%d", draft.Supply)}))
}

func (s *Server) postConfigure(c echo.Context) error {
	draftID := c.Param("id")
	var body struct {
		Phase         market.SalePhase `json:"phase"`
		PresalePrice  string           `json:"presalePrice"`
		PublicPrice   string           `json:"publicPrice"`
		MaxPerAddress uint64           `json:"maxPerAddress"`
		Allowlist     []string         `json:"allowlist"`
	}
	if err := c.Bind(&body); err != nil {
		return rejected(c, "malformed configure payload")
	}

	s.mu.Lock()
	draft, ok := s.drafts[draftID]
	owner := ""
	if ok {
		owner = draft.OwnerAddr
		if body.Phase != "" {
			draft.Phase = body.Phase
		}
	}
	s.mu.Unlock()
	if !ok {
		return rejected(c, "unknown draft")
	}
	if owner == "" {
		return rejected(c, "collection has no owning account yet")
	}

	return c.JSON(http.StatusOK, s.preparedResponse("draft:"+draftID,
		"0x1::launchpad::configure_all", []string{},
		[]interface{}{string(body.Phase), body.PresalePrice, body.PublicPrice, body.Allowlist}))
}

func (s *Server) postAllowlist(c echo.Context) error {
	draftID := c.Param("id")
	var body struct {
		Addresses []string `json:"addresses"`
	}
	if err := c.Bind(&body); err != nil || len(body.Addresses) == 0 {
		return rejected(c, "addresses are required")
	}

	s.mu.Lock()
	_, ok := s.drafts[draftID]
	s.mu.Unlock()
	if !ok {
		return rejected(c, "unknown draft")
	}

	return c.JSON(http.StatusOK, s.preparedResponse("draft:"+draftID,
		"0x1::launchpad::add_allowlist", []string{}, []interface{}{body.Addresses}))
}

// postOnchainSync resolves the deployed collection's owning account. The
// dev chain derives it deterministically from the draft id.
func (s *Server) postOnchainSync(c echo.Context) error {
	draftID := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[draftID]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown draft")
	}
	if draft.Status != market.DraftStatusDeployPending && draft.Status != market.DraftStatusOnchainCreated {
		return echo.NewHTTPError(http.StatusConflict, "draft is not deployed")
	}
	draft.OwnerAddr = deriveDevAddress("owner:" + draftID)
	draft.CollectionID = deriveDevAddress("collection:" + draftID)
	draft.Status = market.DraftStatusOnchainCreated
	return c.JSON(http.StatusOK, draft)
}

func (s *Server) postRandomMint(c echo.Context) error {
	draftID := c.Param("id")
	var body struct {
		Count uint64 `json:"count"`
	}
	if err := c.Bind(&body); err != nil {
		return rejected(c, "malformed mint payload")
	}

	s.mu.Lock()
	draft, ok := s.drafts[draftID]
	owner := ""
	if ok {
		owner = draft.OwnerAddr
	}
	s.mu.Unlock()
	if !ok {
		return rejected(c, "unknown draft")
	}
	if owner == "" {
		return rejected(c, "collection has no owning account yet")
	}

	// The dev backend executes mints itself, exercising the client's
	// immediate-execution path: no tracking id, no confirm expected.
	hash := deriveDevAddress("mint:" + draftID + ":" + uuid.NewString())
	tokenIndex := uint64(len(s.tokensForDraft(draftID)))

	s.mu.Lock()
	s.txs[hash] = &txRecord{Success: true, VMStatus: "Executed successfully", BlockHeight: s.nextBlockLocked(), GasUsed: 11}
	addr := callerAddress(c)
	s.tokens[addr] = append(s.tokens[addr], market.OwnedToken{
		ID:           fmt.Sprintf("%s-%d", draftID, tokenIndex),
		CollectionID: draftID,
		TokenIndex:   tokenIndex,
	})
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":         true,
		"transactionHash": hash,
		"tokenIndex":      tokenIndex,
		"metadata":        map[string]interface{}{"collection": draftID},
	})
}

func (s *Server) tokensForDraft(draftID string) []market.OwnedToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []market.OwnedToken
	for _, owned := range s.tokens {
		for _, tok := range owned {
			if tok.CollectionID == draftID {
				out = append(out, tok)
			}
		}
	}
	return out
}

func (s *Server) getCollectionAddress(c echo.Context) error {
	creator := c.QueryParam("creator")
	name := c.QueryParam("name")
	if creator == "" || name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "creator and name are required")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"address": deriveDevAddress(strings.ToLower(creator) + ":" + name),
	})
}

// deriveDevAddress produces a stable 0x hash for dev entities.
func deriveDevAddress(seed string) string {
	h := sha3.Sum256([]byte(seed))
	return hexutil.Encode(h[:])
}
