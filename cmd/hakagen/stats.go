package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/HerbHall/hakagen/pkg/detection"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the per-bucket statistics of the history month",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().String("month", "", "history month, YYYY-MM")
	statsCmd.Flags().Int("anomalous-week", 0, "ISO week left out of the statistics")
	statsCmd.Flags().String("day", "", "only show this weekday (e.g. Friday)")
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd, map[string]string{
		"month":          "source.month",
		"anomalous-week": "run.anomalous_week",
	})
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	day, filter, err := parseWeekday(cmd)
	if err != nil {
		return err
	}
	period, err := a.cfg.Source.Period(a.loc)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	p, _, cleanup, err := a.pipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	model, err := p.Fit(ctx, period.Start, period.End, a.cfg.Run.AnomalousWeek)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tTIME\tZONE\tCAMERA\tMEAN\tSTD\tMONTHLY")
	for _, row := range model.Stats {
		if filter && row.Key.DayOfWeek != day {
			continue
		}
		fmt.Fprintf(tw, "%s\t%02d:%02d\t%s\t%s\t%.3f\t%s\t%d\n",
			row.Key.DayOfWeek, row.Key.Hour, row.Key.Minute,
			row.Key.Zone, row.Key.Camera, row.Mean, row.Std, row.MonthlyCount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d buckets from %d detections\n", len(model.Stats), model.Events)
	return nil
}

func parseWeekday(cmd *cobra.Command) (time.Weekday, bool, error) {
	name, _ := cmd.Flags().GetString("day")
	if name == "" {
		return 0, false, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if d.String() == name {
			return d, true, nil
		}
	}
	return 0, false, detection.NewValidationError("day", fmt.Sprintf("unknown weekday %q", name))
}
