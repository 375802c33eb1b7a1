package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jcmexdev/portal-flows/internal/config"
	"github.com/jcmexdev/portal-flows/internal/confirmation"
	"github.com/jcmexdev/portal-flows/internal/confirmation/flowlog"
	"github.com/jcmexdev/portal-flows/internal/confirmation/flowlog/sqlite"
)

type rootOptions struct {
	dbPath     string
	configPath string
	asJSON     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "flowlog",
		Short: "Inspect confirmation flows",
		Long: `Inspect the confirmation flow log the API gateway writes.

Available subcommands:
  history - Every transition of one flow, oldest first
  latest  - The most recent transition of one flow
  routes  - The effective request type catalog`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", envOr("FLOW_LOG_PATH", "./data/flows.db"), "flow log database path")
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_FILE"), "gateway config file")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")

	root.AddCommand(
		&cobra.Command{
			Use:   "history <flow-id>",
			Short: "Show every transition of a flow",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withReader(opts.dbPath, func(r flowlog.Reader) error {
					entries, err := r.History(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					return printEntries(cmd.OutOrStdout(), entries, opts.asJSON)
				})
			},
		},
		&cobra.Command{
			Use:   "latest <flow-id>",
			Short: "Show the most recent transition of a flow",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withReader(opts.dbPath, func(r flowlog.Reader) error {
					entry, err := r.Latest(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					return printEntries(cmd.OutOrStdout(), []flowlog.Entry{*entry}, opts.asJSON)
				})
			},
		},
		&cobra.Command{
			Use:   "routes",
			Short: "Show the request type catalog with config overrides applied",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load(opts.configPath)
				if err != nil {
					return err
				}
				return printCatalog(cmd.OutOrStdout(), cfg.Catalog(), opts.asJSON)
			},
		},
	)
	return root
}

func withReader(path string, fn func(flowlog.Reader) error) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("flow log %q: %w", path, err)
	}
	repo, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer repo.Close()
	return fn(repo)
}

type entryView struct {
	FlowID        string          `json:"flowId"`
	Status        flowlog.Status  `json:"status"`
	RequestType   string          `json:"requestType"`
	Route         string          `json:"route,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	ErrorMessages json.RawMessage `json:"errors,omitempty"`
	TraceID       string          `json:"traceId,omitempty"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func printEntries(w io.Writer, entries []flowlog.Entry, asJSON bool) error {
	if asJSON {
		views := make([]entryView, len(entries))
		for i, e := range entries {
			views[i] = entryView{
				FlowID:      e.FlowID,
				Status:      e.Status,
				RequestType: e.RequestType,
				Route:       e.Route,
				TraceID:     e.TraceID,
				UpdatedAt:   e.UpdatedAt,
			}
			if e.Payload != "" {
				views[i].Payload = json.RawMessage(e.Payload)
			}
			if e.ErrorMessages != "" && e.ErrorMessages != "[]" {
				views[i].ErrorMessages = json.RawMessage(e.ErrorMessages)
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSTATUS\tTYPE\tROUTE\tTRACE\tERRORS")
	for _, e := range entries {
		errs := e.ErrorMessages
		if errs == "[]" {
			errs = ""
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.UpdatedAt.Format(time.RFC3339), e.Status, e.RequestType, dash(e.Route), dash(e.TraceID), errs)
	}
	return tw.Flush()
}

type routeView struct {
	Type string `json:"type"`
	confirmation.Config
}

func printCatalog(w io.Writer, catalog *confirmation.Catalog, asJSON bool) error {
	views := make([]routeView, 0, len(confirmation.RequestTypes))
	for _, t := range confirmation.RequestTypes {
		views = append(views, routeView{Type: t.String(), Config: catalog.Resolve(t)})
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tTITLE\tNEXT ROUTE")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Type, v.Title, dash(v.NextRoute))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
