package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lazypower/waypoint/internal/model"
)

const plannerSystem = `You are a personal planning assistant. You help one person turn vague intentions
into concrete plans that fit their life. You always answer with strict JSON matching the
schema you are given. Never invent fields. Never wrap the JSON in prose.`

// memoryBlock renders retrieved memories as a bulleted context section.
func memoryBlock(memories []string) string {
	if len(memories) == 0 {
		return "No relevant memories."
	}
	var b strings.Builder
	for _, m := range memories {
		fmt.Fprintf(&b, "- %s\n", m)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ClarifyPrompt asks for 2-5 multiple-choice questions that sharpen a goal.
func ClarifyPrompt(goal string, memories []string) []Message {
	user := fmt.Sprintf(`The user wants to pursue this goal:

GOAL: %s

WHAT WE KNOW ABOUT THEM:
%s

Ask between 2 and 5 clarifying questions that would most change the plan. Each question has
2 to 4 short answer options. Skip anything the memories already answer.

Return JSON:
{"questions": [{"id": "snake_case_id", "prompt": "question text",
  "options": [{"value": "machine_value", "label": "Human label"}]}]}`, goal, memoryBlock(memories))
	return Prompt(plannerSystem, user)
}

// DecomposePrompt asks for a SMART goal with milestones and tasks.
func DecomposePrompt(goal string, answers map[string]string, memories []string) []Message {
	var ans strings.Builder
	if len(answers) == 0 {
		ans.WriteString("No answers given.")
	} else {
		keys := make([]string, 0, len(answers))
		for k := range answers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&ans, "- %s: %s\n", k, answers[k])
		}
	}

	dims := make([]string, len(model.Dimensions))
	for i, d := range model.Dimensions {
		dims[i] = string(d)
	}

	user := fmt.Sprintf(`Turn this goal into a SMART plan.

GOAL: %s

CLARIFYING ANSWERS:
%s

WHAT WE KNOW ABOUT THEM:
%s

Rules:
- dimension must be one of: %s
- every SMART field is a single concrete sentence
- 1 to 5 milestones in order; each milestone has 1 to 6 tasks
- estimatedDuration is minutes (> 0); energyLevel is low, medium or high; priority is 1 (lowest) to 5

Return JSON:
{"goal": {"title": "...", "specific": "...", "measurable": "...", "achievable": "...",
  "relevant": "...", "timeBound": "...", "dimension": "..."},
 "milestones": [{"title": "...", "tasks": [{"title": "...", "estimatedDuration": 30,
  "energyLevel": "medium", "priority": 3}]}]}`,
		goal, strings.TrimRight(ans.String(), "\n"), memoryBlock(memories), strings.Join(dims, ", "))
	return Prompt(plannerSystem, user)
}

// AdjustPrompt asks for adjustment options after a task was not completed.
func AdjustPrompt(task model.Task, reason model.ReasonCode, note string) []Message {
	if note == "" {
		note = "none"
	}
	user := fmt.Sprintf(`The user did not finish a task.

TASK: %s
ESTIMATED DURATION: %d minutes
ENERGY NEEDED: %s
PRIORITY: %d
REASON: %s
NOTE: %s

Propose how to adjust. adjustmentType is one of split, reschedule, postpone, cancel.
Give 1 to 3 options. Each option action is one of split, reschedule, postpone, cancel, reduce_scope.
Options with action split or reduce_scope MUST list at least one replacement task.
Options with action reschedule or postpone may set shiftDays (days to move the task, >= 1).

Return JSON:
{"adjustmentType": "...", "rationale": "one or two sentences",
 "options": [{"id": "a", "label": "...", "action": "...", "shiftDays": 1,
  "tasks": [{"title": "...", "estimatedDuration": 15, "energyLevel": "low"}]}]}`,
		task.Title, task.EstimatedDuration, task.EnergyLevel, task.Priority, reason, note)
	return Prompt(plannerSystem, user)
}

// ClassifyPrompt asks for the memory type, system tags and scores of a captured note.
func ClassifyPrompt(text string) []Message {
	user := fmt.Sprintf(`Classify this note the user asked us to remember.

NOTE: %s

type is one of:
- personal_trait: who they are, what they prefer, habits ("I am a night owl")
- key_event: a life event that changes context ("we moved to Lisbon")
- date_reminder: something tied to a date ("mom's birthday is March 3")
- important_info: anything else worth keeping

systemTags is a subset of: preference, constraint, habit, milestone.
confidence is 0 to 1. impactScore is 0 to 10 (how much this should shape future plans).

Return JSON:
{"type": "...", "systemTags": ["..."], "confidence": 0.8, "impactScore": 3}`, text)
	return Prompt(plannerSystem, user)
}

// RerankPrompt asks for candidate indexes ordered by relevance to query.
func RerankPrompt(query string, texts []string, limit int) []Message {
	var b strings.Builder
	for i, t := range texts {
		fmt.Fprintf(&b, "[%d] %s\n", i, t)
	}
	user := fmt.Sprintf(`Rank these memories by relevance to the query.

QUERY: %s

MEMORIES:
%s
Return the %d most relevant indexes, most relevant first, as JSON:
{"order": [3, 0, 7]}`, query, b.String(), limit)
	return Prompt("You rank search results. Answer with strict JSON only.", user)
}
