// Package report renders a goal and its tasks as Markdown or HTML.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/lazypower/waypoint/internal/model"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// PlanMarkdown renders a goal's SMART fields and its task schedule.
func PlanMarkdown(g model.Goal, tasks []model.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escape(g.Title))
	fmt.Fprintf(&b, "**Dimension:** %s · **Status:** %s · **Progress:** %d%%\n\n",
		g.Dimension, g.Status, g.Progress)

	smart := []struct{ label, value string }{
		{"Specific", g.Specific},
		{"Measurable", g.Measurable},
		{"Achievable", g.Achievable},
		{"Relevant", g.Relevant},
		{"Time-bound", g.TimeBound},
	}
	wrote := false
	for _, s := range smart {
		if s.value == "" {
			continue
		}
		if !wrote {
			b.WriteString("## SMART\n\n")
			wrote = true
		}
		fmt.Fprintf(&b, "- **%s:** %s\n", s.label, escape(s.value))
	}
	if wrote {
		b.WriteString("\n")
	}

	b.WriteString("## Tasks\n\n")
	if len(tasks) == 0 {
		b.WriteString("_No tasks yet._\n")
		return b.String()
	}

	b.WriteString("| Date | Task | Milestone | Minutes | Energy | Priority | Status |\n")
	b.WriteString("|---|---|---|---:|---|---:|---|\n")
	done := 0
	for _, t := range tasks {
		if t.Status == model.TaskCompleted {
			done++
		}
		date := "-"
		if !t.ScheduledDate.IsZero() {
			date = t.ScheduledDate.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %s | %d | %s |\n",
			date, cell(t.Title), cell(t.Milestone), t.EstimatedDuration, t.EnergyLevel, t.Priority, t.Status)
	}
	fmt.Fprintf(&b, "\n%d of %d tasks completed.\n", done, len(tasks))
	return b.String()
}

// PlanHTML converts PlanMarkdown output to an HTML fragment.
func PlanHTML(g model.Goal, tasks []model.Task) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(PlanMarkdown(g, tasks)), &buf); err != nil {
		return "", fmt.Errorf("render plan: %w", err)
	}
	return buf.String(), nil
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;",
)

func escape(s string) string {
	return mdEscaper.Replace(strings.Join(strings.Fields(s), " "))
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(escape(s), "|", `\|`)
}
