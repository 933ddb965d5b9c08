package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Wallet login and session management",
	}
	cmd.AddCommand(newAuthLogin(a), newAuthLogout(a), newAuthStatus(a))
	return cmd
}

func newAuthLogin(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Connect the wallet and complete the signature handshake",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.SigningTimeout)
			defer cancel()

			account, err := a.wallet.Connect(ctx, a.cfg.WalletName)
			if err != nil {
				return err
			}
			if _, err := a.auth.Login(ctx); err != nil {
				return err
			}
			fmt.Println("Logged in as", account.Address)
			return nil
		},
	}
}

func newAuthLogout(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

func newAuthStatus(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session token is stored and still accepted",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.store.Get()
			if err != nil {
				return err
			}
			if token == "" {
				fmt.Println("Not logged in")
				return nil
			}
			profile, err := a.api.Me(cmd.Context())
			if err != nil {
				fmt.Println("Stored token is no longer accepted:", userFacing(err))
				return nil
			}
			fmt.Println("Logged in as", profile.Address)
			return nil
		},
	}
}
