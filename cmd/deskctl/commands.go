package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Riv33R/Support-bot/internal/config"
	"github.com/Riv33R/Support-bot/internal/ticket"
	"github.com/Riv33R/Support-bot/pkg/protocol"
)

func newHealthCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check daemon health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := c.get("/api/health", nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(body))
			return nil
		},
	}
}

func newAgentsCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List agent IDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := c.get("/api/agents", nil)
			if err != nil {
				return err
			}
			var agents []string
			if err := json.Unmarshal(body, &agents); err != nil {
				return fmt.Errorf("decode agents: %w", err)
			}
			for _, id := range agents {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newTicketsCmd(c *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "Inspect and import tickets",
	}

	var submitter, q string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List open tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			query := url.Values{}
			query.Set("limit", strconv.Itoa(limit))
			if submitter != "" {
				query.Set("submitter", submitter)
			}
			if q != "" {
				query.Set("q", q)
			}
			body, err := c.get("/api/tickets", query)
			if err != nil {
				return err
			}
			var tickets []protocol.Ticket
			if err := json.Unmarshal(body, &tickets); err != nil {
				return fmt.Errorf("decode tickets: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, t := range tickets {
				fmt.Fprintf(out, "%-36s %-20s %s\n", t.ID, t.DisplayName(), summarize(t.Body, 60))
			}
			return nil
		},
	}
	list.Flags().StringVar(&submitter, "submitter", "", "Filter by submitter ID")
	list.Flags().StringVar(&q, "q", "", "Search ticket text and submitter name")
	list.Flags().IntVar(&limit, "limit", 50, "Max results")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show ticket details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.get("/api/tickets/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(body))
			return nil
		},
	}

	var dataDir, backend string
	importCmd := &cobra.Command{
		Use:   "import <tickets.json>",
		Short: "Import a legacy tickets.json into a local store",
		Long: "Import copies every ticket from a legacy tickets.json file into the store\n" +
			"under --data-dir. Run it while the daemon is stopped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ticket.Open(backend, dataDir)
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := ticket.ImportLegacy(store, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d tickets into %s store at %s\n", n, backend, dataDir)
			return nil
		},
	}
	importCmd.Flags().StringVar(&dataDir, "data-dir", envOr("DESK_DATA_DIR", "./data"), "Ticket store directory")
	importCmd.Flags().StringVar(&backend, "store", envOr("DESK_STORE", ticket.BackendJSON), "Store backend: json or sqlite")

	cmd.AddCommand(list, show, importCmd)
	return cmd
}

func newLogsCmd(c *client) *cobra.Command {
	var level, q string
	var since time.Duration
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			query := url.Values{}
			query.Set("limit", strconv.Itoa(limit))
			if level != "" {
				query.Set("level", level)
			}
			if q != "" {
				query.Set("q", q)
			}
			if since > 0 {
				query.Set("since", time.Now().Add(-since).UTC().Format(time.RFC3339))
			}
			body, err := c.get("/api/logs", query)
			if err != nil {
				return err
			}
			var entries []struct {
				Time    time.Time      `json:"time"`
				Level   string         `json:"level"`
				Message string         `json:"message"`
				Attrs   map[string]any `json:"attrs"`
			}
			if err := json.Unmarshal(body, &entries); err != nil {
				return fmt.Errorf("decode logs: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%s %-5s %s", e.Time.Local().Format(time.DateTime), e.Level, e.Message)
				if len(e.Attrs) > 0 {
					attrs, _ := json.Marshal(e.Attrs)
					fmt.Fprintf(out, " %s", attrs)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&q, "q", "", "Substring match on message")
	cmd.Flags().DurationVar(&since, "since", 0, "Only entries newer than this, e.g. 15m")
	cmd.Flags().IntVar(&limit, "limit", 200, "Max entries")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Config file helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <path>",
		Short: "Validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return fmt.Errorf("invalid: %w", err)
			}
			if _, err := cfg.DeskMessages(); err != nil {
				return fmt.Errorf("invalid: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config is valid")
			return nil
		},
	})
	return cmd
}

func summarize(s string, n int) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' {
			r = r[:i]
			break
		}
	}
	if len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return string(r)
}
