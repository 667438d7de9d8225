package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lazypower/waypoint/internal/model"
)

// runWithApp opens the app for one command invocation and closes it after.
func runWithApp(opts *rootOptions, fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), opts)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), cmd, a, args)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printGoal(w io.Writer, g *model.Goal) {
	fmt.Fprintf(w, "%s  %s\n", g.ID, g.Title)
	fmt.Fprintf(w, "  dimension: %s  status: %s  progress: %d%%\n", g.Dimension, g.Status, g.Progress)
}

func printTask(w io.Writer, t model.Task) {
	date := "-"
	if !t.ScheduledDate.IsZero() {
		date = t.ScheduledDate.Format("2006-01-02")
	}
	fmt.Fprintf(w, "%s  %s  [%s] %s (%d min, %s, p%d)\n",
		t.ID, date, t.Status, t.Title, t.EstimatedDuration, t.EnergyLevel, t.Priority)
}

func printAdjustment(w io.Writer, a *model.Adjustment) {
	fmt.Fprintf(w, "adjustment %s: %s (%s, source: %s)\n", a.ID, a.AdjustmentType, a.Accepted, a.Source)
	fmt.Fprintf(w, "  %s\n", a.Rationale)
	for _, o := range a.Options {
		line := fmt.Sprintf("  %s) %s [%s", o.ID, o.Label, o.Action)
		if o.ShiftDays > 0 {
			line += fmt.Sprintf(" +%dd", o.ShiftDays)
		}
		if len(o.Tasks) > 0 {
			titles := make([]string, len(o.Tasks))
			for i, s := range o.Tasks {
				titles[i] = fmt.Sprintf("%s %dm", s.Title, s.EstimatedDuration)
			}
			line += ": " + strings.Join(titles, ", ")
		}
		fmt.Fprintln(w, line+"]")
	}
}
