// Package cli implements the marketctl command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"
)

const verboseFlag = "verbose"

// New builds the root command with every subcommand attached.
func New() *cobra.Command {
	app := &app{}

	root := &cobra.Command{
		Use:           "marketctl",
		Short:         "marketctl - NFT marketplace client",
		Long:          "marketctl talks to the marketplace backend and the chain fullnode:\nwallet login, listing and bidding flows, and collection deployment.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			gotenv.Load()

			verbose, _ := cmd.Flags().GetBool(verboseFlag)
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

			return app.load(verbose)
		},
	}
	root.PersistentFlags().Bool(verboseFlag, false, "Enable debug logging")

	root.AddCommand(
		newAuthCmd(app),
		newMeCmd(app),
		newNFTCmd(app),
		newBidCmd(app),
		newCollectionCmd(app),
		newWalletCmd(app),
		newDevServerCmd(app),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure, printing
// the user-facing form of typed marketplace errors.
func Execute() {
	if err := New().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", userFacing(err))
		os.Exit(1)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
