package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mrcode/nightscout-autotune/internal/autotune"
	"github.com/mrcode/nightscout-autotune/internal/chart"
	"github.com/mrcode/nightscout-autotune/internal/insulin"
	"github.com/mrcode/nightscout-autotune/internal/models"
	"github.com/mrcode/nightscout-autotune/internal/notifications"
	"github.com/spf13/cobra"
)

// Export formats
const (
	formatOref       = "oref"
	formatNightscout = "nightscout"
	formatStore      = "store"
)

// importedProfileName names a bare profile document that carries no store key
const importedProfileName = "Imported"

func (a *App) exportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <profile.json>",
		Short: "Export a profile as an autotune working profile.",
		Long: `Reads a Nightscout profile (bare profile, profile store or the /api/v1/profile array),
builds the hourly tuned profile and writes it in the requested format.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runExport,
	}

	cmd.Flags().StringP("profile", "p", "", "Profile name within the store (default: settings, then the store default)")
	cmd.Flags().StringP("format", "f", formatOref, "Output format: oref or nightscout or store")
	cmd.Flags().StringP("out", "o", "", "Write output to this file instead of stdout")
	cmd.Flags().String("chart", "", "Also render the hourly basal as a PNG to this file")
	cmd.Flags().Bool("notify", false, "Send a desktop notification with the outcome")
	return cmd
}

func (a *App) runExport(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	name, _ := flags.GetString("profile")
	format, _ := flags.GetString("format")
	out, _ := flags.GetString("out")
	chartPath, _ := flags.GetString("chart")
	notify, _ := flags.GetBool("notify")

	format = strings.ToLower(format)
	switch format {
	case formatOref, formatNightscout, formatStore:
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	if notify {
		a.settings.Notify = true
	}

	tuned, err := a.loadTuned(args[0], name)
	if err != nil {
		return err
	}

	outcome := notifications.Outcome{Profile: tuned.Name, Format: format, Path: out, Valid: tuned.Valid}
	outcome.Err = a.writeExport(tuned, format, out)
	switch {
	case outcome.Err != nil || chartPath == "":
	case !tuned.Valid:
		a.logger.Warn("skipping chart for invalid profile", "profile", tuned.Name)
	default:
		outcome.Err = a.writeChart(tuned, chartPath)
	}

	if err := a.notifier.Notify(outcome); err != nil {
		a.logger.Warn("notification failed", "err", err)
	}

	if outcome.Err != nil {
		a.status(failColor, "✗ %s export of %q failed", format, tuned.Name)
		return outcome.Err
	}
	if !tuned.Valid {
		a.status(warnColor, "! profile %q is invalid; exported with empty values", tuned.Name)
		return nil
	}
	if out != "" {
		a.status(okColor, "✓ %s export of %q written to %s", format, tuned.Name, out)
	}
	return nil
}

// loadTuned reads a profile file and builds the tuned profile for the selected entry
func (a *App) loadTuned(path, name string) (*autotune.TunedProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	store, err := models.ParseProfileStore(data, importedProfileName)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = a.settings.ProfileName
	}
	profile, err := store.Profile(name)
	if err != nil {
		return nil, err
	}

	ins, err := a.insulin()
	if err != nil {
		return nil, err
	}

	tuned := autotune.New(profile, ins,
		autotune.WithPreferences(a.store),
		autotune.WithClock(a.clock),
		autotune.WithLogger(a.logger),
	)
	a.logger.Debug("profile loaded",
		"profile", tuned.Name,
		"valid", tuned.Valid,
		"isf_segments", tuned.ISFSize(),
		"ic_segments", tuned.ICSize())
	return tuned, nil
}

// insulin builds the insulin model from settings
func (a *App) insulin() (insulin.Local, error) {
	t, err := insulin.ParseType(a.settings.InsulinType)
	if err != nil {
		return insulin.Local{}, fmt.Errorf("settings %s: %w", models.KeyInsulinType, err)
	}
	return insulin.New(t, a.settings.InsulinDIA, a.settings.InsulinPeak), nil
}

func (a *App) writeExport(tuned *autotune.TunedProfile, format, out string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case formatNightscout:
		data, err = tuned.MarshalNightscout()
	case formatStore:
		if err = tuned.ApplyTuning(); err == nil {
			data, err = tuned.MarshalProfileStore()
		}
	default:
		data, err = tuned.MarshalOref()
	}
	if err != nil {
		return err
	}

	if out == "" {
		return writeLine(a.stdout, data)
	}
	if err := os.WriteFile(out, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	return nil
}

func (a *App) writeChart(tuned *autotune.TunedProfile, path string) error {
	png, err := chart.RenderBasal(tuned.HourlyBasal(), sourceHourly(tuned), tuned.Name)
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	if err := os.WriteFile(path, png, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	a.logger.Info("chart written", "path", path)
	return nil
}

// sourceHourly samples the live source basal at each clock hour
func sourceHourly(tuned *autotune.TunedProfile) [24]float64 {
	var rates [24]float64
	for h := range rates {
		rates[h] = tuned.SourceBasalAt(h * 3600)
	}
	return rates
}

func writeLine(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
