// Package marketplace exposes the user-level flows: every mutating action
// runs the shared prepare/sign/submit/confirm lifecycle with its own
// endpoints wired in.
package marketplace

import (
	"context"

	"github.com/kashguard/go-market-client/internal/api"
	"github.com/kashguard/go-market-client/internal/market"
	"github.com/kashguard/go-market-client/internal/txn"
	"github.com/rs/zerolog"
)

// Service drives marketplace actions through the lifecycle orchestrator.
type Service struct {
	api          *api.Client
	orchestrator *txn.Orchestrator
	log          zerolog.Logger
}

func New(apiClient *api.Client, orchestrator *txn.Orchestrator, log zerolog.Logger) *Service {
	return &Service{
		api:          apiClient,
		orchestrator: orchestrator,
		log:          log,
	}
}

func intentPrepare(fn func(ctx context.Context) (*market.TransactionIntent, error)) func(ctx context.Context) (*txn.PrepareResult, error) {
	return func(ctx context.Context) (*txn.PrepareResult, error) {
		intent, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return &txn.PrepareResult{Intent: intent}, nil
	}
}

func (s *Service) run(ctx context.Context, name, entityKey string, prepare func(ctx context.Context) (*market.TransactionIntent, error), refresh func(ctx context.Context) error) (*txn.Outcome, error) {
	return s.orchestrator.Run(ctx, txn.Action{
		Name:      name,
		EntityKey: entityKey,
		Prepare:   intentPrepare(prepare),
		Confirm:   s.api.ConfirmTransaction,
		Refresh:   refresh,
	})
}

// ListNFT lists one token for sale.
func (s *Service) ListNFT(ctx context.Context, nftID, price, currency string) (*txn.Outcome, error) {
	if nftID == "" || price == "" {
		return nil, market.E(market.ReasonMissingParameter, "nft id and price are required")
	}
	return s.run(ctx, "list", "nft:"+nftID, func(ctx context.Context) (*market.TransactionIntent, error) {
		return s.api.ListNFT(ctx, nftID, price, currency)
	}, nil)
}

// RelistNFT changes the price of an existing listing.
func (s *Service) RelistNFT(ctx context.Context, nftID, newPrice, currency string) (*txn.Outcome, error) {
	if nftID == "" || newPrice == "" {
		return nil, market.E(market.ReasonMissingParameter, "nft id and new price are required")
	}
	return s.run(ctx, "relist", "nft:"+nftID, func(ctx context.Context) (*market.TransactionIntent, error) {
		return s.api.RelistNFT(ctx, nftID, newPrice, currency)
	}, nil)
}

// DelistNFT cancels a listing.
func (s *Service) DelistNFT(ctx context.Context, nftID string) (*txn.Outcome, error) {
	if nftID == "" {
		return nil, market.E(market.ReasonMissingParameter, "nft id is required")
	}
	return s.run(ctx, "cancel-list", "nft:"+nftID, func(ctx context.Context) (*market.TransactionIntent, error) {
		return s.api.DelistNFT(ctx, nftID)
	}, nil)
}

// BuyNFT buys a listed token.
func (s *Service) BuyNFT(ctx context.Context, nftID string) (*txn.Outcome, error) {
	if nftID == "" {
		return nil, market.E(market.ReasonMissingParameter, "nft id is required")
	}
	return s.run(ctx, "buy", "nft:"+nftID, func(ctx context.Context) (*market.TransactionIntent, error) {
		return s.api.BuyNFT(ctx, nftID)
	}, nil)
}

// PlaceBid places a bid on a listed token.
func (s *Service) PlaceBid(ctx context.Context, nftID, amount, currency string) (*txn.Outcome, error) {
	if nftID == "" || amount == "" {
		return nil, market.E(market.ReasonMissingParameter, "nft id and amount are required")
	}
	return s.run(ctx, "place-bid", "nft:"+nftID, func(ctx context.Context) (*market.TransactionIntent, error) {
		return s.api.PlaceBid(ctx, nftID, amount, currency)
	}, nil)
}

// CancelBid withdraws the caller's bid.
func (s *Service) CancelBid(ctx context.Context, nftID, bidID string) (*txn.Outcome, error) {
	if nftID == "" || bidID == "" {
		return nil, market.E(market.ReasonMissingParameter, "nft id and bid id are required")
	}
	return s.run(ctx, "cancel-bid", "nft:"+nftID, func(ctx context.Context) (*market.TransactionIntent, error) {
		return s.api.CancelBid(ctx, nftID, bidID)
	}, nil)
}

// AcceptBid accepts a bid as the seller.
func (s *Service) AcceptBid(ctx context.Context, nftID, bidID string) (*txn.Outcome, error) {
	if nftID == "" || bidID == "" {
		return nil, market.E(market.ReasonMissingParameter, "nft id and bid id are required")
	}
	return s.run(ctx, "accept-bid", "nft:"+nftID, func(ctx context.Context) (*market.TransactionIntent, error) {
		return s.api.AcceptBid(ctx, nftID, bidID)
	}, nil)
}

// DeployCollection deploys a draft on-chain. The draft must have a
// published IPFS base URI.
func (s *Service) DeployCollection(ctx context.Context, draftID string) (*txn.Outcome, error) {
	draft, err := s.api.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.BaseURI == "" {
		return nil, market.E(market.ReasonMissingParameter, "draft %s has no IPFS base URI yet; publish files first", draftID)
	}
	return s.run(ctx, "deploy", "draft:"+draftID, func(ctx context.Context) (*market.TransactionIntent, error) {
		return s.api.BuildDeploy(ctx, draftID)
	}, s.refreshDraft(draftID))
}

// ConfigureCollection applies phases/prices/allowlist in one transaction.
// Valid only once the owning account is known (deploy + sync done).
func (s *Service) ConfigureCollection(ctx context.Context, draftID string, payload api.ConfigurePayload) (*txn.Outcome, error) {
	if err := s.requireOwnerAddr(ctx, draftID); err != nil {
		return nil, err
	}
	return s.run(ctx, "configure", "draft:"+draftID, func(ctx context.Context) (*market.TransactionIntent, error) {
		return s.api.ConfigureCollection(ctx, draftID, payload)
	}, s.refreshDraft(draftID))
}

// AddAllowlist extends the collection allowlist.
func (s *Service) AddAllowlist(ctx context.Context, draftID string, addresses []string) (*txn.Outcome, error) {
	if len(addresses) == 0 {
		return nil, market.E(market.ReasonMissingParameter, "at least one address is required")
	}
	if err := s.requireOwnerAddr(ctx, draftID); err != nil {
		return nil, err
	}
	return s.run(ctx, "add-allowlist", "draft:"+draftID, func(ctx context.Context) (*market.TransactionIntent, error) {
		return s.api.AddAllowlist(ctx, draftID, addresses)
	}, s.refreshDraft(draftID))
}

// SyncCollection reads the deployed collection's owning account back from
// chain via the backend.
func (s *Service) SyncCollection(ctx context.Context, draftID string) (market.Draft, error) {
	return s.api.SyncOnchain(ctx, draftID)
}

// MintRandom mints from the collection. The backend may execute the mint
// itself, in which case the response is final and no confirm call happens.
func (s *Service) MintRandom(ctx context.Context, draftID string, count uint64) (*txn.Outcome, error) {
	if count == 0 {
		count = 1
	}
	if err := s.requireOwnerAddr(ctx, draftID); err != nil {
		return nil, err
	}
	return s.orchestrator.Run(ctx, txn.Action{
		Name:      "random-mint",
		EntityKey: "draft:" + draftID,
		Prepare: func(ctx context.Context) (*txn.PrepareResult, error) {
			res, err := s.api.RandomMint(ctx, draftID, count)
			if err != nil {
				return nil, err
			}
			if res.Immediate {
				return &txn.PrepareResult{Immediate: &txn.ImmediateResult{
					TransactionHash: res.TransactionHash,
					TokenIndex:      res.TokenIndex,
					Metadata:        res.Metadata,
				}}, nil
			}
			return &txn.PrepareResult{Intent: res.Intent}, nil
		},
		Confirm: s.api.ConfirmTransaction,
		Refresh: s.refreshDraft(draftID),
	})
}

func (s *Service) requireOwnerAddr(ctx context.Context, draftID string) error {
	if draftID == "" {
		return market.E(market.ReasonMissingParameter, "draft id is required")
	}
	draft, err := s.api.GetDraft(ctx, draftID)
	if err != nil {
		return err
	}
	if draft.OwnerAddr == "" {
		return market.E(market.ReasonMissingParameter, "draft %s has no owning account yet; deploy and sync first", draftID)
	}
	return nil
}

func (s *Service) refreshDraft(draftID string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.api.GetDraft(ctx, draftID)
		return err
	}
}
