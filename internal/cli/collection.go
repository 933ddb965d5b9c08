package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kashguard/go-market-client/internal/api"
	"github.com/kashguard/go-market-client/internal/market"
)

func newCollectionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection",
		Short: "Collection deployment and minting",
	}
	cmd.AddCommand(
		newCollectionShow(a),
		newCollectionDeploy(a),
		newCollectionConfigure(a),
		newCollectionAllowlist(a),
		newCollectionSync(a),
		newCollectionMint(a),
		newCollectionAddress(a),
	)
	return cmd
}

func newCollectionShow(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <draft-id>",
		Short: "Show a collection draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := a.api.GetDraft(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(draft)
		},
	}
}

func newCollectionDeploy(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy <draft-id>",
		Short: "Deploy a prepared draft on-chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			out, err := a.service.DeployCollection(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newCollectionConfigure(a *app) *cobra.Command {
	var (
		phase         string
		presalePrice  string
		publicPrice   string
		maxPerAddress uint64
	)
	cmd := &cobra.Command{
		Use:   "configure <draft-id>",
		Short: "Set sale phase and pricing for a deployed collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			out, err := a.service.ConfigureCollection(ctx, args[0], api.ConfigurePayload{
				Phase:         market.SalePhase(phase),
				PresalePrice:  presalePrice,
				PublicPrice:   publicPrice,
				MaxPerAddress: maxPerAddress,
			})
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&phase, "phase", string(market.SalePhasePublic), "Sale phase: presale, public or closed")
	cmd.Flags().StringVar(&presalePrice, "presale-price", "", "Presale mint price")
	cmd.Flags().StringVar(&publicPrice, "public-price", "", "Public mint price")
	cmd.Flags().Uint64Var(&maxPerAddress, "max-per-address", 0, "Mint cap per address, 0 for unlimited")
	return cmd
}

func newCollectionAllowlist(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "allowlist <draft-id> <address>...",
		Short: "Add addresses to the presale allowlist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			out, err := a.service.AddAllowlist(ctx, args[0], args[1:])
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newCollectionSync(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <draft-id>",
		Short: "Pull on-chain deployment state into the draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := a.service.SyncCollection(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(draft)
		},
	}
}

func newCollectionMint(a *app) *cobra.Command {
	var count uint64
	cmd := &cobra.Command{
		Use:   "mint <draft-id>",
		Short: "Mint random tokens from an open collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			out, err := a.service.MintRandom(ctx, args[0], count)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().Uint64Var(&count, "count", 1, "Number of tokens to mint")
	return cmd
}

func newCollectionAddress(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "address <creator> <name>",
		Short: "Resolve the on-chain address of a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := a.api.CollectionAddress(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(addr)
			return nil
		},
	}
}
