package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sweeney/hydration-cup/internal/config"
	"github.com/sweeney/hydration-cup/internal/logic"
)

type reportOptions struct {
	logPath string
	params  logic.ClassifyParams
	format  string
	dbPath  string
	follow  bool
}

func newRootCmd() *cobra.Command {
	defaults := config.Default()
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:          "intake-report [log-file]",
		Short:        "Estimate drinks from the cup weight log",
		Long:         "Reads the weight log written by hydration-cup, infers each drink or refill from consecutive weights and prints the events with the total volume.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.logPath = defaults.Log.Path
			if len(args) == 1 {
				opts.logPath = args[0]
			}
			if opts.format != formatText && opts.format != formatJSON {
				return fmt.Errorf("unknown format %q (want %s or %s)", opts.format, formatText, formatJSON)
			}
			if opts.params.GramToML <= 0 {
				return fmt.Errorf("--gram-to-ml must be positive, got %v", opts.params.GramToML)
			}

			r, err := newReporter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer r.Close()

			if opts.follow {
				return r.follow(cmd.Context())
			}
			return r.report(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.params.CupWeightG, "cup-weight", defaults.Monitoring.CupWeightG, "Weight of the empty cup in grams")
	f.Float64Var(&opts.params.GramToML, "gram-to-ml", defaults.Monitoring.GramToML, "Millilitres per gram of liquid")
	f.StringVar(&opts.format, "format", formatText, "Output format: text or json")
	f.StringVar(&opts.dbPath, "db", "", "Also store events in this SQLite file")
	f.BoolVar(&opts.follow, "follow", false, "Keep running and report again whenever the log changes")
	return cmd
}
