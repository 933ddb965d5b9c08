package market

import (
	"encoding/json"
)

// Challenge is the server-issued login challenge. Single use; the server
// owns expiry.
type Challenge struct {
	MessageToSign string `json:"messageToSign"`
	Nonce         string `json:"nonce"`
}

// EntryFunction is the canonical transaction payload shape expected by the
// wallet signing interface. Backend responses arrive in several shapes and
// are normalized into this one before any signing call.
type EntryFunction struct {
	Function          string        `json:"function"`
	TypeArguments     []string      `json:"typeArguments"`
	FunctionArguments []interface{} `json:"functionArguments"`
}

// TransactionIntent is the backend's prepare response: one pending mutation
// identified by TrackingID plus the raw transaction metadata to normalize.
// TrackingID must be reused verbatim in the confirm call.
type TransactionIntent struct {
	TrackingID string          `json:"trackingId"`
	Meta       json.RawMessage `json:"transactionMeta"`
}

// Confirmation is posted to the backend once on-chain inclusion has been
// observed - never before.
type Confirmation struct {
	TransactionHash string  `json:"transactionHash"`
	BlockNumber     *uint64 `json:"blockNumber,omitempty"`
	GasUsed         *uint64 `json:"gasUsed,omitempty"`
}

// DraftStatus is the ordered collection lifecycle.
type DraftStatus string

const (
	DraftStatusDraft          DraftStatus = "draft"
	DraftStatusFilesUploaded  DraftStatus = "files_uploaded"
	DraftStatusIPFSPublished  DraftStatus = "ipfs_published"
	DraftStatusDeployPending  DraftStatus = "deploy_pending"
	DraftStatusOnchainCreated DraftStatus = "onchain_created"
)

// SalePhase gates which mint price and availability rules apply.
type SalePhase string

const (
	SalePhasePresale SalePhase = "presale"
	SalePhasePublic  SalePhase = "public"
	SalePhaseClosed  SalePhase = "closed"
)

// Draft is the server-owned collection aggregate. OwnerAddr and CollectionID
// are populated only after a successful deploy and on-chain sync.
type Draft struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Status       DraftStatus `json:"status"`
	OwnerAddr    string      `json:"ownerAddr,omitempty"`
	CollectionID string      `json:"collectionId,omitempty"`
	BaseURI      string      `json:"baseUri,omitempty"`
	Supply       uint64      `json:"supply,omitempty"`
	Phase        SalePhase   `json:"phase,omitempty"`
}

// Listing is an active sale entry for one token.
type Listing struct {
	NFTID    string `json:"nftId"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Seller   string `json:"seller"`
}

// Bid is an open offer on a listed token.
type Bid struct {
	ID       string `json:"id"`
	NFTID    string `json:"nftId"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Bidder   string `json:"bidder"`
}

// OwnedToken is one NFT in the authenticated user's inventory.
type OwnedToken struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CollectionID string `json:"collectionId"`
	TokenIndex   uint64 `json:"tokenIndex"`
	Listed       bool   `json:"listed"`
}

// AccountProfile is the authenticated user's backend profile.
type AccountProfile struct {
	Address   string `json:"address"`
	Username  string `json:"username,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// AccountOverview aggregates the profile dashboard numbers.
type AccountOverview struct {
	Owned    int `json:"owned"`
	Listed   int `json:"listed"`
	OpenBids int `json:"openBids"`
}
