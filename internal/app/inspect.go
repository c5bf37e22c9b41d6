package app

import (
	"fmt"
	"io"
	"math"

	"github.com/fatih/color"
	"github.com/mrcode/nightscout-autotune/internal/autotune"
	"github.com/mrcode/nightscout-autotune/internal/chart"
	"github.com/mrcode/nightscout-autotune/internal/models"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

func (a *App) inspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <profile.json>",
		Short: "Show the hourly working profile next to its source.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("profile")
			spark, _ := cmd.Flags().GetBool("sparkline")

			tuned, err := a.loadTuned(args[0], name)
			if err != nil {
				return err
			}
			return writeInspection(a.stdout, tuned, spark)
		},
	}

	cmd.Flags().StringP("profile", "p", "", "Profile name within the store (default: settings, then the store default)")
	cmd.Flags().Bool("sparkline", false, "Print a Braille sparkline of the hourly basal")
	return cmd
}

// writeInspection writes the hourly table and the profile summary
func writeInspection(w io.Writer, tuned *autotune.TunedProfile, spark bool) error {
	units := tuned.Source().GetUnits()

	if _, err := fmt.Fprintf(w, "Profile: %s (%s)\n", tuned.Name, models.DisplayUnits(units)); err != nil {
		return err
	}
	if !tuned.Valid {
		_, err := fmt.Fprintln(w, color.New(color.FgRed, color.Bold).Sprint("Profile failed validation; no working values"))
		return err
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Hour", "Source U/h", "Working U/h", "Delta", "Untuned"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	basal := tuned.HourlyBasal()
	var data [][]string
	var total float64
	for h := range basal {
		src := tuned.SourceBasalAt(h * 3600)
		delta := basal[h] - src
		var deltaStr string
		switch {
		case math.Abs(delta) < 0.0005:
			deltaStr = "0.000"
		case delta > 0:
			deltaStr = red(fmt.Sprintf("+%.3f ▲", delta))
		default:
			deltaStr = green(fmt.Sprintf("%.3f ▼", delta))
		}
		data = append(data, []string{
			fmt.Sprintf("%02d:00", h),
			fmt.Sprintf("%.3f", src),
			fmt.Sprintf("%.3f", basal[h]),
			deltaStr,
			fmt.Sprintf("%d", tuned.Untuned[h]),
		})
		total += basal[h]
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Total daily basal: %.3f U\n", total); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "ISF: %.2f %s/U (%d segments), IC: %.2f g/U (%d segments)\n",
		models.FromMgdlToUnits(tuned.ISF, units), models.DisplayUnits(units), tuned.ISFSize(),
		tuned.IC, tuned.ICSize()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "DIA: %.1f h, insulin peak: %d min\n", tuned.DIA(), tuned.Peak()); err != nil {
		return err
	}

	if spark {
		_, err := fmt.Fprintln(w, chart.Sparkline(basal[:], 4))
		return err
	}
	return nil
}
