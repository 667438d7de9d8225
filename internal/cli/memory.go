package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/waypoint/internal/engine"
	"github.com/lazypower/waypoint/internal/model"
)

func newCaptureCmd(opts *rootOptions) *cobra.Command {
	var (
		typ        string
		systemTags []string
		userTags   []string
		remind     string
	)
	cmd := &cobra.Command{
		Use:   "capture [text]",
		Short: "Remember a fact about yourself",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.RunE = runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		in := engine.CaptureInput{
			OwnerID:    opts.owner,
			Text:       strings.Join(args, " "),
			Type:       model.MemoryType(typ),
			SystemTags: systemTags,
			UserTags:   userTags,
		}
		if remind != "" {
			d, err := time.ParseInLocation(time.DateOnly, remind, time.Local)
			if err != nil {
				return fmt.Errorf("--remind must be YYYY-MM-DD: %w", err)
			}
			in.ReminderDate = &d
		}

		res, err := a.engine.Capture(ctx, in)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if opts.json {
			return printJSON(out, res)
		}
		m := res.Memory
		fmt.Fprintf(out, "saved %s [%s] (classified by %s)\n", m.ID, m.Type, res.ClassifiedBy)
		if tags := m.AllTags(); len(tags) > 0 {
			fmt.Fprintf(out, "  tags: %s\n", strings.Join(tags, ", "))
		}
		return nil
	})

	f := cmd.Flags()
	f.StringVarP(&typ, "type", "t", "", "Memory type: important_info, personal_trait, key_event, date_reminder")
	f.StringSliceVar(&systemTags, "system-tag", nil, "System tag: preference, constraint, habit, milestone")
	f.StringSliceVar(&userTags, "tag", nil, "Free-form tag (repeatable)")
	f.StringVar(&remind, "remind", "", "Reminder date YYYY-MM-DD")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		typ   string
		tags  []string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories",
		Long:  "Rank memories by key type, vector similarity, text match and impact. An empty query lists memories matching the filters.",
	}
	cmd.RunE = runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		results, err := a.engine.Search(ctx, engine.SearchRequest{
			OwnerID: opts.owner,
			Query:   strings.Join(args, " "),
			Type:    model.MemoryType(typ),
			Tags:    tags,
			Limit:   limit,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if opts.json {
			if results == nil {
				results = []engine.Result{}
			}
			return printJSON(out, results)
		}
		if len(results) == 0 {
			fmt.Fprintln(out, "No results found.")
			return nil
		}
		for i, r := range results {
			fmt.Fprintf(out, "%d. [%.3f] %s [%s]\n", i+1, r.Explanation.Total, r.Memory.Text, r.Memory.Type)
			fmt.Fprintf(out, "   id: %s  matched: %s\n", r.Memory.ID, strings.Join(r.Explanation.MatchedBy, "+"))
		}
		return nil
	})

	f := cmd.Flags()
	f.StringVarP(&typ, "type", "t", "", "Filter by memory type")
	f.StringSliceVar(&tags, "tag", nil, "Filter by tag; all must match (repeatable)")
	f.IntVarP(&limit, "limit", "n", 0, "Maximum number of results (default from config)")
	return cmd
}
