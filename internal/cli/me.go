package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "me",
		Short: "Show the authenticated account profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := a.api.Me(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(profile)
		},
	}
	cmd.AddCommand(newMeOverview(a), newMeNFTs(a))
	return cmd
}

func newMeOverview(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show the account dashboard numbers",
		RunE: func(cmd *cobra.Command, args []string) error {
			overview, err := a.api.MeOverview(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(overview)
		},
	}
}

func newMeNFTs(a *app) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "nfts",
		Short: "List tokens owned by the authenticated account",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, total, err := a.api.MeNFTs(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			if err := printJSON(items); err != nil {
				return err
			}
			fmt.Printf("%d of %d\n", len(items), total)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	return cmd
}
