package app

import (
	"fmt"
	"io"

	"github.com/mrcode/nightscout-autotune/internal/insulin"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

func (a *App) curveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Print the insulin activity curve selected by the settings.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			step, _ := cmd.Flags().GetInt("step")
			if step <= 0 {
				return fmt.Errorf("step must be positive, got %d", step)
			}

			ins, err := a.insulin()
			if err != nil {
				return err
			}
			return writeCurve(a.stdout, ins, a.settings.InsulinPeak, step)
		},
	}

	cmd.Flags().Int("step", 30, "Minutes between rows")
	return cmd
}

// writeCurve prints the oref0 curve selection and the remaining insulin activity over the DIA
func writeCurve(w io.Writer, ins insulin.Local, freePeak, step int) error {
	curve := insulin.ResolveCurve(ins.Type(), freePeak)
	if _, err := fmt.Fprintf(w, "Insulin: %s, oref0 curve: %s, peak: %d min, DIA: %.1f h\n",
		ins.Type(), curve.Name, ins.Peak(), ins.DIA()); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Minutes", "Remaining"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	end := int(ins.DIA() * 60)
	var data [][]string
	for m := 0; m <= end; m += step {
		data = append(data, []string{
			fmt.Sprintf("%d", m),
			fmt.Sprintf("%.1f%%", ins.ActivityRemaining(float64(m))*100),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
