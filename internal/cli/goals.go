package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lazypower/waypoint/internal/decision"
	"github.com/lazypower/waypoint/internal/model"
	"github.com/lazypower/waypoint/internal/planner"
	"github.com/lazypower/waypoint/internal/report"
)

func newGoalCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Create and manage goals",
	}
	cmd.AddCommand(
		newGoalClarifyCmd(opts),
		newGoalCreateCmd(opts),
		newGoalListCmd(opts),
		newGoalShowCmd(opts),
		newGoalStatusCmd(opts),
	)
	return cmd
}

func newGoalClarifyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clarify [goal]",
		Short: "Show the questions to answer before creating a goal",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.RunE = runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		res := a.decisions.Clarify(ctx, opts.owner, strings.Join(args, " "))
		out := cmd.OutOrStdout()
		if opts.json {
			return printJSON(out, res)
		}
		for _, q := range res.Value.Questions {
			fmt.Fprintf(out, "%s: %s\n", q.ID, q.Prompt)
			for _, o := range q.Options {
				fmt.Fprintf(out, "  - %s (%s)\n", o.Label, o.Value)
			}
		}
		if res.Source == decision.SourceFallback {
			fmt.Fprintf(out, "\n(default questions; generation unavailable: %s)\n", res.FallbackReason)
		}
		fmt.Fprintln(out, "\nAnswer with: waypoint goal create --answer id=value ...")
		return nil
	})
	return cmd
}

func newGoalCreateCmd(opts *rootOptions) *cobra.Command {
	var answers map[string]string
	cmd := &cobra.Command{
		Use:   "create [goal]",
		Short: "Create a goal and its first tasks",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.RunE = runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		plan, err := a.planner.CreateGoal(ctx, planner.CreateGoalInput{
			OwnerID: opts.owner,
			Prompt:  strings.Join(args, " "),
			Answers: answers,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if opts.json {
			return printJSON(out, plan)
		}
		printGoal(out, plan.Goal)
		for _, t := range plan.Tasks {
			printTask(out, t)
		}
		if plan.Balance != nil && plan.Balance.Commentary != "" {
			fmt.Fprintf(out, "\n%s\n", plan.Balance.Commentary)
		}
		if plan.FallbackReason != "" {
			fmt.Fprintf(out, "(default plan; generation unavailable: %s)\n", plan.FallbackReason)
		}
		return nil
	})
	cmd.Flags().StringToStringVarP(&answers, "answer", "a", nil, "Clarifying answer as id=value (repeatable)")
	return cmd
}

func newGoalListCmd(opts *rootOptions) *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		var st []model.GoalStatus
		for _, s := range statuses {
			st = append(st, model.GoalStatus(s))
		}
		goals, err := a.planner.ListGoals(ctx, opts.owner, st...)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if opts.json {
			if goals == nil {
				goals = []model.Goal{}
			}
			return printJSON(out, goals)
		}
		if len(goals) == 0 {
			fmt.Fprintln(out, "No goals.")
			return nil
		}
		for i := range goals {
			printGoal(out, &goals[i])
		}
		return nil
	})
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	return cmd
}

func newGoalShowCmd(opts *rootOptions) *cobra.Command {
	var html bool
	cmd := &cobra.Command{
		Use:   "show [goal-id]",
		Short: "Print a goal's plan as Markdown",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		plan, err := a.planner.Goal(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch {
		case opts.json:
			return printJSON(out, plan)
		case html:
			body, err := report.PlanHTML(*plan.Goal, plan.Tasks)
			if err != nil {
				return err
			}
			fmt.Fprint(out, body)
		default:
			fmt.Fprint(out, report.PlanMarkdown(*plan.Goal, plan.Tasks))
		}
		return nil
	})
	cmd.Flags().BoolVar(&html, "html", false, "Render HTML instead of Markdown")
	return cmd
}

func newGoalStatusCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [goal-id] [status]",
		Short: "Move a goal to draft, active, paused, completed or cancelled",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		g, err := a.planner.SetGoalStatus(ctx, args[0], model.GoalStatus(args[1]))
		if err != nil {
			return err
		}
		if opts.json {
			return printJSON(cmd.OutOrStdout(), g)
		}
		printGoal(cmd.OutOrStdout(), g)
		return nil
	})
	return cmd
}

func newBalanceCmd(opts *rootOptions) *cobra.Command {
	var candidate string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show how your goals spread across the life wheel",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		rep, err := a.planner.Balance(ctx, opts.owner, model.Dimension(candidate))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if opts.json {
			return printJSON(out, rep)
		}
		for _, d := range model.Dimensions {
			n := rep.Distribution[d]
			fmt.Fprintf(out, "%-17s %s %d\n", d, strings.Repeat("#", n), n)
		}
		fmt.Fprintf(out, "\n%s\n", rep.Commentary)
		return nil
	})
	cmd.Flags().StringVarP(&candidate, "dimension", "d", "", "Include a candidate goal in this dimension")
	return cmd
}
