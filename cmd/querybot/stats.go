package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/querybot/internal/intent"
)

const statsTimeout = 10 * time.Second

func newStatsCommand() *cobra.Command {
	var (
		serverURL string
		reset     bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show routing statistics of a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := resty.New().
				SetBaseURL(strings.TrimRight(serverURL, "/")).
				SetTimeout(statsTimeout)

			var stats intent.Stats
			req := client.R().
				SetContext(cmd.Context()).
				ForceContentType("application/json").
				SetResult(&stats)

			var (
				resp *resty.Response
				err  error
			)
			if reset {
				resp, err = req.Post("/api/routing/reset")
			} else {
				resp, err = req.Get("/api/routing/stats")
			}
			if err != nil {
				return fmt.Errorf("fetch stats: %w", err)
			}
			if resp.IsError() {
				return fmt.Errorf("fetch stats: server returned %s", resp.Status())
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "classifications: %d\n", stats.ClassificationsTotal)
			fmt.Fprintf(out, "cache hits:      %d\n", stats.CacheHits)
			fmt.Fprintf(out, "heuristic hits:  %d\n", stats.HeuristicHits)
			fmt.Fprintf(out, "model calls:     %d\n", stats.ModelCalls)
			fmt.Fprintf(out, "cached queries:  %d\n", stats.CachedQueries)
			fmt.Fprintf(out, "hit rate:        %s\n", stats.HitRateString())
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8000", "base URL of a running querybot")
	cmd.Flags().BoolVar(&reset, "reset", false, "reset the cache and counters first")
	return cmd
}
