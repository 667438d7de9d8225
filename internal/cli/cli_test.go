package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/waypoint/internal/config"
	"github.com/lazypower/waypoint/internal/model"
	"github.com/lazypower/waypoint/internal/planner"
)

const testConfig = `llm:
  provider: none
  embedding_provider: tfidf
log:
  level: error
`

// testEnv writes a config with generation disabled and returns the flags
// every invocation shares.
func testEnv(t *testing.T) []string {
	t.Helper()
	t.Setenv("WAYPOINT_NATS_URL", "")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig), 0o644))
	return []string{"--config", cfgPath, "--db", filepath.Join(dir, "waypoint.db"), "--owner", "tester"}
}

func run(t *testing.T, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, env...))
	err := cmd.Execute()
	return out.String(), err
}

func runJSON(t *testing.T, env []string, v any, args ...string) {
	t.Helper()
	out, err := run(t, env, append(args, "--json")...)
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func TestVersion(t *testing.T) {
	out, err := run(t, nil, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "waypoint dev"), out)
}

func TestLoadConfigOverrides(t *testing.T) {
	env := testEnv(t)
	opts := &rootOptions{configPath: env[1], dbPath: "/tmp/x.db", logLevel: "debug"}
	cfg, err := loadConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.LLM.Provider)
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Log.Level)

	opts.logLevel = "loud"
	_, err = loadConfig(opts)
	assert.ErrorContains(t, err, "log.level")
}

func TestNewLogger(t *testing.T) {
	l := newLogger(config.LogConfig{Level: "warn", Format: "json"})
	assert.False(t, l.Enabled(t.Context(), -4))
	assert.True(t, l.Enabled(t.Context(), 4))
}

func TestCaptureAndSearchCommands(t *testing.T) {
	env := testEnv(t)

	out, err := run(t, env, "capture", "I", "prefer", "morning", "workouts", "--tag", "fitness")
	require.NoError(t, err, out)
	assert.Contains(t, out, "[personal_trait]")
	assert.Contains(t, out, "tags: fitness, preference")

	out, err = run(t, env, "search", "workouts")
	require.NoError(t, err, out)
	assert.Contains(t, out, "I prefer morning workouts")

	out, err = run(t, env, "search", "workouts", "--tag", "work")
	require.NoError(t, err, out)
	assert.Contains(t, out, "No results found.")

	_, err = run(t, env, "capture", "x", "--type", "rumor")
	assert.Error(t, err)
}

func TestGoalCommands(t *testing.T) {
	env := testEnv(t)

	out, err := run(t, env, "goal", "clarify", "learn", "spanish")
	require.NoError(t, err, out)
	assert.Contains(t, out, "default questions")

	var plan planner.GoalPlan
	runJSON(t, env, &plan, "goal", "create", "learn spanish", "--answer", "timeframe=3_months")
	require.NotNil(t, plan.Goal)
	assert.Equal(t, "learn spanish", plan.Goal.Title)
	assert.Len(t, plan.Tasks, 3)

	var goals []model.Goal
	runJSON(t, env, &goals, "goal", "list", "--status", "active")
	require.Len(t, goals, 1)

	out, err = run(t, env, "goal", "show", plan.Goal.ID)
	require.NoError(t, err, out)
	assert.Contains(t, out, "# learn spanish")
	assert.Contains(t, out, "0 of 3 tasks completed.")

	out, err = run(t, env, "goal", "status", plan.Goal.ID, "paused")
	require.NoError(t, err, out)
	assert.Contains(t, out, "status: paused")

	_, err = run(t, env, "goal", "status", plan.Goal.ID, "finished")
	assert.Error(t, err)

	out, err = run(t, env, "balance", "--dimension", "health")
	require.NoError(t, err, out)
	assert.Contains(t, out, "health            # 1")
}

func TestTaskCheckInAdjustmentCommands(t *testing.T) {
	env := testEnv(t)

	var task model.Task
	runJSON(t, env, &task, "task", "add", "Deep", "work", "--minutes", "90", "--energy", "high")
	assert.Equal(t, 90, task.EstimatedDuration)
	assert.Equal(t, model.EnergyHigh, task.EnergyLevel)

	out, err := run(t, env, "task", "start", task.ID)
	require.NoError(t, err, out)
	assert.Contains(t, out, "[in_progress]")

	var res planner.CheckInResult
	runJSON(t, env, &res, "checkin", task.ID, "partial", "--reason", "time_insufficient", "--mood", "2")
	require.NotNil(t, res.Adjustment)
	assert.Equal(t, model.AdjustSplit, res.Adjustment.AdjustmentType)

	out, err = run(t, env, "adjustment", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, res.Adjustment.ID)

	out, err = run(t, env, "adjustment", "accept", res.Adjustment.ID)
	require.NoError(t, err, out)
	assert.Contains(t, out, "(part 1)")
	assert.Contains(t, out, "(part 2)")

	_, err = run(t, env, "adjustment", "reject", res.Adjustment.ID)
	assert.Error(t, err, "already resolved")

	out, err = run(t, env, "task", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "[skipped] Deep work")
}
