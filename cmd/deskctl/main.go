package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &client{}
	root := &cobra.Command{
		Use:           "deskctl",
		Short:         "Support desk management CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.baseURL, "addr", envOr("DESK_API_URL", "http://localhost:8080"), "Daemon URL")
	root.PersistentFlags().StringVar(&c.key, "key", os.Getenv("DESK_API_KEY"), "API key for authentication")

	root.AddCommand(
		newHealthCmd(c),
		newAgentsCmd(c),
		newTicketsCmd(c),
		newLogsCmd(c),
		newConfigCmd(),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
