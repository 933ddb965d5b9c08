package devserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/kashguard/go-market-client/internal/market"
)

// preparedResponse builds a prepare envelope with the transaction metadata
// in one of the three shapes real backends produce, rotating per call so
// every client run exercises the normalizer.
func (s *Server) preparedResponse(entity, function string, typeArgs []string, args []interface{}) map[string]interface{} {
	trackingID := uuid.NewString()

	s.mu.Lock()
	shape := s.metaShape
	s.metaShape = (s.metaShape + 1) % 3
	s.tracking[trackingID] = &trackingRecord{Entity: entity}
	s.mu.Unlock()

	var meta map[string]interface{}
	switch shape {
	case 0:
		meta = map[string]interface{}{
			"payload": map[string]interface{}{
				"function":          function,
				"typeArguments":     typeArgs,
				"functionArguments": args,
			},
		}
	case 1:
		meta = map[string]interface{}{
			"function":          function,
			"typeArguments":     typeArgs,
			"functionArguments": args,
		}
	default:
		meta = map[string]interface{}{
			"functionId":     function,
			"type_arguments": typeArgs,
			"arguments":      args,
		}
	}

	return map[string]interface{}{
		"success":         true,
		"trackingId":      trackingID,
		"transactionMeta": meta,
	}
}

func rejected(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"success": false, "error": message})
}

const coinType = "0x1::aptos_coin::AptosCoin"

func (s *Server) postList(c echo.Context) error {
	nftID := c.Param("id")
	var body struct {
		Price    string `json:"price"`
		Currency string `json:"currency"`
	}
	if err := c.Bind(&body); err != nil || body.Price == "" {
		return rejected(c, "price is required")
	}

	s.mu.Lock()
	s.listings[nftID] = &market.Listing{NFTID: nftID, Price: body.Price, Currency: body.Currency, Seller: callerAddress(c)}
	s.mu.Unlock()

	return c.JSON(http.StatusOK, s.preparedResponse("nft:"+nftID,
		"0x1::marketplace::list", []string{coinType}, []interface{}{nftID, body.Price}))
}

func (s *Server) putRelist(c echo.Context) error {
	nftID := c.Param("id")
	var body struct {
		NewPrice string `json:"newPrice"`
		Currency string `json:"currency"`
	}
	if err := c.Bind(&body); err != nil || body.NewPrice == "" {
		return rejected(c, "newPrice is required")
	}

	s.mu.Lock()
	listing, ok := s.listings[nftID]
	if ok {
		listing.Price = body.NewPrice
	}
	s.mu.Unlock()
	if !ok {
		return rejected(c, "nft is not listed")
	}

	return c.JSON(http.StatusOK, s.preparedResponse("nft:"+nftID,
		"0x1::marketplace::relist", []string{coinType}, []interface{}{nftID, body.NewPrice}))
}

func (s *Server) deleteList(c echo.Context) error {
	nftID := c.Param("id")

	s.mu.Lock()
	_, ok := s.listings[nftID]
	delete(s.listings, nftID)
	s.mu.Unlock()
	if !ok {
		return rejected(c, "nft is not listed")
	}

	return c.JSON(http.StatusOK, s.preparedResponse("nft:"+nftID,
		"0x1::marketplace::cancel_listing", []string{coinType}, []interface{}{nftID}))
}

func (s *Server) postBuy(c echo.Context) error {
	nftID := c.Param("id")

	s.mu.Lock()
	listing, ok := s.listings[nftID]
	s.mu.Unlock()
	if !ok {
		return rejected(c, "nft is not listed")
	}

	return c.JSON(http.StatusOK, s.preparedResponse("nft:"+nftID,
		"0x1::marketplace::buy", []string{coinType}, []interface{}{nftID, listing.Price}))
}

func (s *Server) postPlaceBid(c echo.Context) error {
	nftID := c.Param("id")
	var body struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := c.Bind(&body); err != nil || body.Amount == "" {
		return rejected(c, "amount is required")
	}

	bidID := uuid.NewString()
	s.mu.Lock()
	s.bids[bidID] = &market.Bid{ID: bidID, NFTID: nftID, Amount: body.Amount, Currency: body.Currency, Bidder: callerAddress(c)}
	s.mu.Unlock()

	return c.JSON(http.StatusOK, s.preparedResponse("nft:"+nftID,
		"0x1::marketplace::place_bid", []string{coinType}, []interface{}{nftID, body.Amount}))
}

func (s *Server) postCancelBid(c echo.Context) error {
	nftID := c.Param("id")
	bidID := c.Param("bidId")

	s.mu.Lock()
	_, ok := s.bids[bidID]
	delete(s.bids, bidID)
	s.mu.Unlock()
	if !ok {
		return rejected(c, "unknown bid")
	}

	return c.JSON(http.StatusOK, s.preparedResponse("nft:"+nftID,
		"0x1::marketplace::cancel_bid", []string{coinType}, []interface{}{nftID, bidID}))
}

func (s *Server) postAcceptBid(c echo.Context) error {
	nftID := c.Param("id")
	bidID := c.Param("bidId")

	s.mu.Lock()
	_, ok := s.bids[bidID]
	delete(s.bids, bidID)
	delete(s.listings, nftID)
	s.mu.Unlock()
	if !ok {
		return rejected(c, "unknown bid")
	}

	return c.JSON(http.StatusOK, s.preparedResponse("nft:"+nftID,
		"0x1::marketplace::accept_bid", []string{coinType}, []interface{}{nftID, bidID}))
}

func (s *Server) postConfirm(c echo.Context) error {
	trackingID := c.Param("trackingId")
	var body market.Confirmation
	if err := c.Bind(&body); err != nil || body.TransactionHash == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "transactionHash is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tracking[trackingID]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown tracking id")
	}
	// Idempotent for the same hash; a second hash for one tracking id is a
	// protocol violation.
	if record.ConfirmedHash != "" && record.ConfirmedHash != body.TransactionHash {
		return echo.NewHTTPError(http.StatusConflict, "tracking id already confirmed with a different hash")
	}
	record.ConfirmedHash = body.TransactionHash

	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}
