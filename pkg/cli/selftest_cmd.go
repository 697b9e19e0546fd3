package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"deltashare-mock/internal/selftest"
)

func newSelftestCmd(host, token *string) *cobra.Command {
	var (
		limitHint   int
		concurrency int
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run a client session against a server and report each step",
		Long: `Walks a running server the way a sharing client does: health, shares,
schemas, tables, metadata, a query per table, and a download of every file
URL the queries return. Exits non-zero if any step fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if *token == "" {
				return errors.New("a bearer token is required: pass --token or set DELTA_SHARING_BEARER_TOKEN")
			}
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			rep := selftest.NewRunner(selftest.Options{
				BaseURL:     *host,
				Token:       *token,
				LimitHint:   limitHint,
				Concurrency: concurrency,
			}).Run(ctx)

			if err := printReport(cmd, rep); err != nil {
				return err
			}
			if !rep.OK() {
				return fmt.Errorf("self-test failed against %s", rep.Server)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limitHint, "limit-hint", 5, "limitHint sent with each query")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "parallel queries and downloads")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall deadline (0 for none)")
	return cmd
}

func printReport(cmd *cobra.Command, rep *selftest.Report) error {
	out := cmd.OutOrStdout()
	if getOutputFormat(cmd) == "json" {
		return printJSON(out, struct {
			*selftest.Report
			OK bool `json:"ok"`
		}{rep, rep.OK()})
	}

	_, _ = fmt.Fprintf(out, "Server: %s\n\n", rep.Server)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STEP\tRESULT\tDETAIL\tTIME")
	for _, s := range rep.Steps {
		result := "ok"
		if !s.OK {
			result = "FAIL"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, result, s.Detail, s.Duration.Round(time.Millisecond))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if rep.OK() {
		_, _ = fmt.Fprintln(out, "\nAll checks passed.")
	}
	return nil
}
