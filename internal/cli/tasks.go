package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/waypoint/internal/model"
	"github.com/lazypower/waypoint/internal/planner"
)

func newTaskCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Add, start and list tasks",
	}
	cmd.AddCommand(newTaskAddCmd(opts), newTaskStartCmd(opts), newTaskListCmd(opts))
	return cmd
}

func newTaskAddCmd(opts *rootOptions) *cobra.Command {
	var (
		in   planner.CreateTaskInput
		date string
	)
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
	}
	var energy string
	cmd.RunE = runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		in.OwnerID = opts.owner
		in.Title = strings.Join(args, " ")
		in.EnergyLevel = model.EnergyLevel(energy)
		if date != "" {
			d, err := time.ParseInLocation(time.DateOnly, date, time.Local)
			if err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
			}
			in.ScheduledDate = d
		}
		t, err := a.planner.CreateTask(ctx, in)
		if err != nil {
			return err
		}
		if opts.json {
			return printJSON(cmd.OutOrStdout(), t)
		}
		printTask(cmd.OutOrStdout(), *t)
		return nil
	})

	f := cmd.Flags()
	f.IntVarP(&in.EstimatedDuration, "minutes", "m", 30, "Estimated duration in minutes")
	f.StringVarP(&energy, "energy", "e", "", "Energy level: low, medium, high (default medium)")
	f.IntVarP(&in.Priority, "priority", "p", 0, "Priority 1-5 (default 3)")
	f.StringVar(&in.GoalID, "goal", "", "Attach to a goal")
	f.StringVar(&in.Milestone, "milestone", "", "Milestone label")
	f.StringVar(&date, "date", "", "Scheduled date YYYY-MM-DD (default today)")
	return cmd
}

func newTaskStartCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start [task-id]",
		Short: "Mark a task in progress",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		t, err := a.planner.StartTask(ctx, args[0])
		if err != nil {
			return err
		}
		if opts.json {
			return printJSON(cmd.OutOrStdout(), t)
		}
		printTask(cmd.OutOrStdout(), *t)
		return nil
	})
	return cmd
}

func newTaskListCmd(opts *rootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks scheduled from today",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		now := time.Now()
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
		tasks, err := a.planner.Tasks(ctx, opts.owner, from, from.AddDate(0, 0, days))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if opts.json {
			if tasks == nil {
				tasks = []model.Task{}
			}
			return printJSON(out, tasks)
		}
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks scheduled.")
		}
		for _, t := range tasks {
			printTask(out, t)
		}
		return nil
	})
	cmd.Flags().IntVar(&days, "days", 7, "How many days ahead to show")
	return cmd
}

func newCheckInCmd(opts *rootOptions) *cobra.Command {
	var (
		reason string
		in     planner.CheckInInput
	)
	cmd := &cobra.Command{
		Use:   "checkin [task-id] [completed|partial|not_completed]",
		Short: "Report how a task went",
		Long: "Record a task outcome. A partial or missed task with --reason proposes an adjustment " +
			"you can accept or reject with `waypoint adjustment`.",
		Args: cobra.ExactArgs(2),
	}
	cmd.RunE = runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		in.TaskID = args[0]
		in.Outcome = model.Outcome(args[1])
		in.ReasonCode = model.ReasonCode(reason)
		res, err := a.planner.CheckIn(ctx, in)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if opts.json {
			return printJSON(out, res)
		}
		printTask(out, *res.Task)
		if res.Goal != nil {
			printGoal(out, res.Goal)
		}
		if res.Adjustment != nil {
			fmt.Fprintln(out)
			printAdjustment(out, res.Adjustment)
		}
		return nil
	})

	f := cmd.Flags()
	f.StringVarP(&reason, "reason", "r", "", "time_insufficient, energy_low, external_interrupt, priority_changed, forgot, other")
	f.StringVar(&in.ReasonNote, "note", "", "Free-text detail")
	f.IntVar(&in.ActualDuration, "minutes", 0, "Minutes actually spent")
	f.IntVar(&in.MoodRating, "mood", 0, "Mood 1-5 (default 3)")
	return cmd
}

func newAdjustmentCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adjustment",
		Short: "Review and resolve proposed plan adjustments",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List pending adjustments",
		Args:  cobra.NoArgs,
	}
	list.RunE = runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		adjs, err := a.planner.PendingAdjustments(ctx, opts.owner)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if opts.json {
			if adjs == nil {
				adjs = []model.Adjustment{}
			}
			return printJSON(out, adjs)
		}
		if len(adjs) == 0 {
			fmt.Fprintln(out, "No pending adjustments.")
		}
		for i := range adjs {
			printAdjustment(out, &adjs[i])
		}
		return nil
	})

	accept := &cobra.Command{
		Use:   "accept [adjustment-id] [option-id]",
		Short: "Apply an adjustment option (default: the first)",
		Args:  cobra.RangeArgs(1, 2),
	}
	accept.RunE = runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		option := ""
		if len(args) == 2 {
			option = args[1]
		}
		res, err := a.planner.AcceptAdjustment(ctx, args[0], option)
		if err != nil {
			return err
		}
		return printResolution(cmd, opts, res)
	})

	reject := &cobra.Command{
		Use:   "reject [adjustment-id]",
		Short: "Discard an adjustment",
		Args:  cobra.ExactArgs(1),
	}
	reject.RunE = runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		res, err := a.planner.RejectAdjustment(ctx, args[0])
		if err != nil {
			return err
		}
		return printResolution(cmd, opts, res)
	})

	cmd.AddCommand(list, accept, reject)
	return cmd
}

func printResolution(cmd *cobra.Command, opts *rootOptions, res *planner.AdjustmentResult) error {
	out := cmd.OutOrStdout()
	if opts.json {
		return printJSON(out, res)
	}
	printAdjustment(out, res.Adjustment)
	if res.Task != nil {
		printTask(out, *res.Task)
	}
	for _, t := range res.NewTasks {
		printTask(out, t)
	}
	if res.Goal != nil {
		printGoal(out, res.Goal)
	}
	return nil
}
