package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	mode        string
	rpcURL      string
	binary      string
	chainSpec   string
	syncTimeout string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "balancectl",
		Short: "Resolve Polkadot account balances through a light client",
		Long: `balancectl starts a light client, waits for the first finalized block and
reads an account's balance from the System.Account storage entry.

Defaults come from the same environment variables as the API server
(LIGHT_CLIENT_MODE, RPC_URL, SYNC_TIMEOUT, ...); flags override them.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.mode, "mode", "", "light client mode: process or remote")
	pf.StringVar(&flags.rpcURL, "rpc-url", "", "websocket endpoint used in remote mode")
	pf.StringVar(&flags.binary, "bin", "", "light client executable used in process mode")
	pf.StringVar(&flags.chainSpec, "chain-spec", "", "chain specification path used in process mode")
	pf.StringVar(&flags.syncTimeout, "sync-timeout", "", "bound on the wait for the first finalized block, e.g. 90s (0 waits forever)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level written to stderr")

	cmd.AddCommand(newResolveCmd(flags))
	return cmd
}
