package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	dbPath     string
	logLevel   string
	owner      string
	json       bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "waypoint",
		Short: "Goal planning with long-term personal memory",
		Long: "Waypoint turns goals into SMART plans, schedules daily tasks, adapts them after each " +
			"check-in and remembers what matters about you. Single Go binary, SQLite storage.",
		SilenceUsage: true,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "Config file (default ~/.waypoint/config.yaml)")
	f.StringVar(&opts.dbPath, "db", "", "Database path (overrides config and WAYPOINT_DB)")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&opts.owner, "owner", defaultOwner(), "Owner id for memories, goals and tasks (env WAYPOINT_OWNER)")
	f.BoolVar(&opts.json, "json", false, "Print results as JSON")

	cmd.AddCommand(
		newVersionCmd(),
		newServeCmd(opts),
		newMCPCmd(opts),
		newCaptureCmd(opts),
		newSearchCmd(opts),
		newGoalCmd(opts),
		newBalanceCmd(opts),
		newTaskCmd(opts),
		newCheckInCmd(opts),
		newAdjustmentCmd(opts),
	)
	return cmd
}

func defaultOwner() string {
	if v := os.Getenv("WAYPOINT_OWNER"); v != "" {
		return v
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return "me"
}

func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}
