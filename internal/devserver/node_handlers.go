package devserver

import (
	"fmt"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/sha3"
)

// postSubmitTransaction is the fullnode facade's submit endpoint. The dev
// chain commits everything in the next block; the transaction hash is the
// digest of the signed body.
func (s *Server) postSubmitTransaction(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil || len(body) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "empty transaction body")
	}

	digest := sha3.Sum256(body)
	hash := hexutil.Encode(digest[:])

	s.mu.Lock()
	record := &txRecord{Success: true, VMStatus: "Executed successfully", BlockHeight: s.nextBlockLocked(), GasUsed: 9}
	if s.pendingVMFailure != "" {
		record.Success = false
		record.VMStatus = s.pendingVMFailure
		s.pendingVMFailure = ""
	}
	s.txs[hash] = record
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]string{"hash": hash})
}

func (s *Server) getTransactionByHash(c echo.Context) error {
	hash := c.Param("hash")

	s.mu.Lock()
	record, ok := s.txs[hash]
	s.mu.Unlock()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "transaction not found")
	}

	// Numeric fields are strings, matching the fullnode wire format.
	return c.JSON(http.StatusOK, map[string]interface{}{
		"type":         "user_transaction",
		"hash":         hash,
		"success":      record.Success,
		"vm_status":    record.VMStatus,
		"block_height": fmt.Sprintf("%d", record.BlockHeight),
		"gas_used":     fmt.Sprintf("%d", record.GasUsed),
	})
}

// nextBlockLocked advances the dev chain height. Callers hold s.mu.
func (s *Server) nextBlockLocked() uint64 {
	s.blockHeight++
	return s.blockHeight
}
