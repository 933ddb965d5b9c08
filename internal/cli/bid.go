package cli

import (
	"github.com/spf13/cobra"
)

func newBidCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bid",
		Short: "Bidding flows",
	}
	cmd.AddCommand(newBidPlace(a), newBidCancel(a), newBidAccept(a))
	return cmd
}

func newBidPlace(a *app) *cobra.Command {
	var currency string
	cmd := &cobra.Command{
		Use:   "place <nft-id> <amount>",
		Short: "Place a bid on a token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			out, err := a.service.PlaceBid(ctx, args[0], args[1], currency)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "APT", "Bid currency")
	return cmd
}

func newBidCancel(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <nft-id> <bid-id>",
		Short: "Withdraw a bid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			out, err := a.service.CancelBid(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newBidAccept(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "accept <nft-id> <bid-id>",
		Short: "Accept a bid as the token owner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			out, err := a.service.AcceptBid(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}
