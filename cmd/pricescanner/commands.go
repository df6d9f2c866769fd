package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"PriceScanner/internal/analysis"
	"PriceScanner/internal/app"
	"PriceScanner/internal/domain"
	"PriceScanner/internal/report"
	"PriceScanner/internal/usecase"
)

type filterFlags struct {
	store             string
	hasAlert          bool
	competitorWinning bool
	noCompetitors     bool
	json              bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.store, "store", "", "Show only listings whose seller contains this text")
	cmd.Flags().BoolVar(&f.hasAlert, "has-alert", false, "Show only groups with a price recommendation")
	cmd.Flags().BoolVar(&f.competitorWinning, "competitor-winning", false, "Show only groups where a competitor has the lowest price")
	cmd.Flags().BoolVar(&f.noCompetitors, "no-competitors", false, "Show only groups without competitor listings")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print the report as JSON")
}

func (f *filterFlags) filter() analysis.Filter {
	return analysis.Filter{
		Store:             f.store,
		HasAlert:          f.hasAlert,
		CompetitorWinning: f.competitorWinning,
		NoCompetitors:     f.noCompetitors,
	}
}

func (c *cli) newAnalyzeCmd() *cobra.Command {
	var (
		feedName string
		flags    filterFlags
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Fetch and analyze the configured feeds once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer application.Close()

			reports, err := application.Analyze(cmd.Context(), feedName)
			if err != nil {
				return err
			}
			return printReports(cmd.OutOrStdout(), reports, flags.filter(), flags.json)
		},
	}

	cmd.Flags().StringVar(&feedName, "feed", "", "Analyze only the named feed")
	flags.register(cmd)
	return cmd
}

func (c *cli) newLastCmd() *cobra.Command {
	var (
		feedName string
		flags    filterFlags
	)

	cmd := &cobra.Command{
		Use:   "last",
		Short: "Show the most recent stored analysis without fetching",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer application.Close()

			reports, err := application.LastSnapshots(cmd.Context(), feedName)
			if err != nil {
				return err
			}
			return printReports(cmd.OutOrStdout(), reports, flags.filter(), flags.json)
		},
	}

	cmd.Flags().StringVar(&feedName, "feed", "", "Show only the named feed")
	flags.register(cmd)
	return cmd
}

func (c *cli) newParseCmd() *cobra.Command {
	var (
		stores    []string
		threshold float64
		flags     filterFlags
	)

	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a local XML feed with ad-hoc options",
		Long: `Parses a local feed file without persisting or exporting anything.
Own stores default to those of the first configured feed when --own-store is not given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(stores) == 0 && len(c.cfg.Feeds) > 0 {
				stores = c.cfg.Feeds[0].OwnStores
			}
			opts := domain.AnalysisOptions{
				Stores:           domain.NewStoreSet(stores...),
				ThresholdPercent: threshold,
			}

			application, err := app.New(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer application.Close()

			result, err := application.ParseFile(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			reports := []usecase.FeedReport{{Feed: args[0], Result: result}}
			return printReports(cmd.OutOrStdout(), reports, flags.filter(), flags.json)
		},
	}

	cmd.Flags().StringArrayVar(&stores, "own-store", nil, "Own store name (repeatable)")
	cmd.Flags().Float64Var(&threshold, "threshold", domain.DefaultThresholdPercent, "Recommendation threshold in percent")
	flags.register(cmd)
	return cmd
}

func (c *cli) newWatchCmd() *cobra.Command {
	var (
		feedName string
		interval time.Duration
		flags    filterFlags
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-analyze the configured feeds on an interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer application.Close()

			out := cmd.OutOrStdout()
			onRun := func(trigger time.Time, reports []usecase.FeedReport, err error) {
				if err != nil {
					c.logger.Error("analysis run failed", "trigger", trigger, "error", err)
					return
				}
				if err := printReports(out, reports, flags.filter(), flags.json); err != nil {
					c.logger.Error("print report", "error", err)
				}
			}

			return application.Watch(cmd.Context(), feedName, interval, onRun)
		},
	}

	cmd.Flags().StringVar(&feedName, "feed", "", "Watch only the named feed")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Time between runs (defaults to scheduler.interval)")
	flags.register(cmd)
	return cmd
}

func printReports(out io.Writer, reports []usecase.FeedReport, filter analysis.Filter, asJSON bool) error {
	if asJSON {
		docs := make([]report.Document, 0, len(reports))
		for _, r := range reports {
			groups := selectGroups(r.Result.ProductGroups, filter)
			docs = append(docs, report.NewDocument(r.Feed, r.RunID, r.Result.ExtractionDate, groups))
		}
		return report.WriteJSON(out, docs)
	}

	renderer := report.NewTextRenderer(out)
	for i, r := range reports {
		if i > 0 {
			if _, err := fmt.Fprintln(out); err != nil {
				return err
			}
		}
		if err := renderer.Render(r.Feed, selectGroups(r.Result.ProductGroups, filter)); err != nil {
			return fmt.Errorf("render %s: %w", r.Feed, err)
		}
	}
	return nil
}

func selectGroups(groups []domain.ProductGroup, filter analysis.Filter) []domain.ProductGroup {
	if filter.IsZero() {
		return groups
	}
	return analysis.Apply(groups, filter)
}
