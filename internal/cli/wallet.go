package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWalletCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Local wallet key management",
	}
	cmd.AddCommand(newWalletInit(a), newWalletShow(a))
	return cmd
}

func newWalletInit(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the local wallet key file if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := a.wallet.Connect(cmd.Context(), a.cfg.WalletName)
			if err != nil {
				return err
			}
			fmt.Println("Wallet ready at", a.cfg.WalletKeyFile)
			fmt.Println("Address:", account.Address)
			return nil
		},
	}
}

func newWalletShow(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the wallet address and public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := a.wallet.Connect(cmd.Context(), a.cfg.WalletName)
			if err != nil {
				return err
			}
			return printJSON(account)
		},
	}
}
