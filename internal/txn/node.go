package txn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TxResult is the committed transaction as reported by the fullnode.
type TxResult struct {
	Hash        string `json:"hash"`
	Success     bool   `json:"success"`
	VMStatus    string `json:"vm_status"`
	BlockHeight uint64 `json:"block_height,string"`
	GasUsed     uint64 `json:"gas_used,string"`
}

// NodeClient reads transaction state from the fullnode REST API.
type NodeClient struct {
	endpoint     string
	client       *http.Client
	pollInterval time.Duration
	log          zerolog.Logger
}

func NewNodeClient(endpoint string, pollInterval time.Duration, log zerolog.Logger) *NodeClient {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &NodeClient{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		pollInterval: pollInterval,
		log:          log,
	}
}

// WaitForTransaction polls until the hash is committed or ctx expires. A
// 404 means the transaction is still pending in the mempool.
func (c *NodeClient) WaitForTransaction(ctx context.Context, hash string) (*TxResult, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		result, found, err := c.getByHash(ctx, hash)
		if err != nil {
			return nil, err
		}
		if found {
			c.log.Debug().Str("hash", hash).Bool("success", result.Success).Str("vm_status", result.VMStatus).Msg("Transaction committed")
			return result, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "timed out waiting for transaction %s", hash)
		case <-ticker.C:
		}
	}
}

func (c *NodeClient) getByHash(ctx context.Context, hash string) (*TxResult, bool, error) {
	url := fmt.Sprintf("%s/v1/transactions/by_hash/%s", c.endpoint, hash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to create fullnode request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to query fullnode")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to read fullnode response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, errors.Errorf("fullnode returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		Type string `json:"type"`
		TxResult
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, false, errors.Wrap(err, "failed to parse fullnode response")
	}
	// Pending transactions are returned with a pending type and no
	// execution result yet.
	if envelope.Type == "pending_transaction" {
		return nil, false, nil
	}
	result := envelope.TxResult
	if result.Hash == "" {
		result.Hash = hash
	}
	return &result, true, nil
}
