package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show platform statistics",
		Run: func(cmd *cobra.Command, args []string) {
			stats, err := apiClient.Stats(context.Background())
			if err != nil {
				fatal("get stats", err)
			}
			if flagFmt == "table" {
				formatTable(
					[]string{"COMPANIES", "USERS", "ACTIVE", "RECENT SIGNUPS"},
					[][]string{{
						strconv.Itoa(stats.TotalTenants),
						strconv.Itoa(stats.TotalUsers),
						strconv.Itoa(stats.ActiveTenants),
						strconv.Itoa(stats.RecentSignups),
					}},
				)
				return
			}
			output(stats, "")
		},
	}
}
