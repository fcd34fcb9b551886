package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ripsline/job-scraper-node/internal/browser"
	"github.com/ripsline/job-scraper-node/internal/status"
)

func statusCmd(f *rootFlags, version string) *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the service state, recent log output and the Google Sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(*f)
			if err != nil {
				return err
			}
			c := status.Collector{Settings: s, LogLines: lines}

			if f.plain || !isTerminal(os.Stdout) {
				status.Print(cmd.OutOrStdout(), c.Collect(cmd.Context()))
				return nil
			}
			return status.Show(cmd.Context(), c, version)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 200, "service log lines to load")
	return cmd
}

func doctorCmd(f *rootFlags) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the scraper has everything it needs to run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(*f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n  Checking %s\n\n", s.UnitName())

			checks := status.Doctor(cmd.Context(), status.Collector{Settings: s},
				func(ctx context.Context, execPath string) (string, error) {
					return browser.Probe(ctx, execPath, timeout)
				})
			status.PrintChecks(out, checks)

			if !status.Healthy(checks) {
				return fmt.Errorf("%d check(s) failed", countFailed(checks))
			}
			fmt.Fprintln(out, "\n  All checks passed.")
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 45*time.Second, "headless browser launch timeout")
	return cmd
}

func countFailed(checks []status.Check) int {
	n := 0
	for _, c := range checks {
		if !c.OK {
			n++
		}
	}
	return n
}
