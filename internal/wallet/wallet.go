// Package wallet defines the capability surface the marketplace client
// expects from a wallet, independent of any vendor SDK, plus a local
// key-file wallet for development and testing.
package wallet

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kashguard/go-market-client/internal/market"
	"golang.org/x/crypto/sha3"
)

// Account is the connected on-chain identity.
type Account struct {
	Address   string
	PublicKey string
}

// SignMessageRequest asks the wallet to sign a login challenge together
// with the connection context.
type SignMessageRequest struct {
	Message     string
	Nonce       string
	Address     string
	Application string
	ChainID     uint8
}

// SignMessageResult carries whatever the vendor returned. Signature is
// deliberately untyped: vendors return arrays, strings and nested objects,
// and normalization happens downstream.
type SignMessageResult struct {
	Signature   interface{}
	PublicKey   string
	FullMessage string
}

// SubmitRequest is the combined sign-and-submit input, already normalized.
type SubmitRequest struct {
	Sender string               `json:"sender"`
	Data   market.EntryFunction `json:"data"`
}

// SubmitResult is the chain's acknowledgement of a submitted transaction.
type SubmitResult struct {
	Hash string `json:"hash"`
}

// Wallet is the vendor-independent capability set. All blocking calls take
// a context; signing popups cannot be cancelled, so callers bound waits
// with their own timeout.
type Wallet interface {
	Connect(ctx context.Context, name string) (Account, error)
	Disconnect(ctx context.Context) error
	Account() (Account, error)
	SignMessage(ctx context.Context, req SignMessageRequest) (SignMessageResult, error)
	SignAndSubmitTransaction(ctx context.Context, req SubmitRequest) (SubmitResult, error)
}

// authKeySchemeEd25519 is the scheme byte appended to the public key when
// deriving the authentication-key address.
const authKeySchemeEd25519 = 0x00

// DeriveAddress computes the account address for an ed25519 public key:
// sha3-256(pubkey || scheme byte), 0x-prefixed.
func DeriveAddress(publicKey []byte) string {
	h := sha3.New256()
	h.Write(publicKey)
	h.Write([]byte{authKeySchemeEd25519})
	return hexutil.Encode(h.Sum(nil))
}

// CanonicalAddress normalizes an address to the lower-case 0x-prefixed
// form the backend expects. Empty input fails rather than defaulting.
func CanonicalAddress(addr string) (string, error) {
	a := strings.TrimSpace(strings.ToLower(addr))
	a = strings.TrimPrefix(a, "0x")
	if a == "" {
		return "", market.E(market.ReasonMissingSender, "address is empty")
	}
	return "0x" + a, nil
}
