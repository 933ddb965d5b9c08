package cli

import (
	"github.com/spf13/cobra"
)

func newNFTCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nft",
		Short: "Listing and purchase flows",
	}
	cmd.AddCommand(newNFTList(a), newNFTRelist(a), newNFTDelist(a), newNFTBuy(a))
	return cmd
}

func newNFTList(a *app) *cobra.Command {
	var currency string
	cmd := &cobra.Command{
		Use:   "list <nft-id> <price>",
		Short: "List a token for sale",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			out, err := a.service.ListNFT(ctx, args[0], args[1], currency)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "APT", "Listing currency")
	return cmd
}

func newNFTRelist(a *app) *cobra.Command {
	var currency string
	cmd := &cobra.Command{
		Use:   "relist <nft-id> <new-price>",
		Short: "Change the price of an active listing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			out, err := a.service.RelistNFT(ctx, args[0], args[1], currency)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "APT", "Listing currency")
	return cmd
}

func newNFTDelist(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delist <nft-id>",
		Short: "Cancel an active listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			out, err := a.service.DelistNFT(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newNFTBuy(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <nft-id>",
		Short: "Buy a listed token at its asking price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			out, err := a.service.BuyNFT(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}
