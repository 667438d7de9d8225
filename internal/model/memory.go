// Package model holds the planning and memory entities shared by the
// ranker, the decision engine and the planner.
package model

import (
	"sort"
	"strings"
	"time"
)

// MemoryType classifies a captured memory.
type MemoryType string

const (
	TypeImportantInfo MemoryType = "important_info"
	TypePersonalTrait MemoryType = "personal_trait"
	TypeKeyEvent      MemoryType = "key_event"
	TypeDateReminder  MemoryType = "date_reminder"
)

// MemoryTypes lists every memory type in canonical order.
var MemoryTypes = []MemoryType{TypeImportantInfo, TypePersonalTrait, TypeKeyEvent, TypeDateReminder}

// Valid reports whether t is a known memory type.
func (t MemoryType) Valid() bool {
	switch t {
	case TypeImportantInfo, TypePersonalTrait, TypeKeyEvent, TypeDateReminder:
		return true
	}
	return false
}

// IsKey reports whether t is privileged evidence in ranking.
func (t MemoryType) IsKey() bool {
	return t == TypePersonalTrait || t == TypeKeyEvent || t == TypeDateReminder
}

// MaxImpactScore caps stored impact so log1p(impact) stays below the
// default key-type boost.
const MaxImpactScore = 10

// SystemTag is drawn from a fixed four-value vocabulary.
type SystemTag string

const (
	TagPreference SystemTag = "preference"
	TagConstraint SystemTag = "constraint"
	TagHabit      SystemTag = "habit"
	TagMilestone  SystemTag = "milestone"
)

// SystemTags is the full system tag vocabulary.
var SystemTags = []SystemTag{TagPreference, TagConstraint, TagHabit, TagMilestone}

func (t SystemTag) Valid() bool {
	switch t {
	case TagPreference, TagConstraint, TagHabit, TagMilestone:
		return true
	}
	return false
}

// MemoryRecord is a single captured memory.
type MemoryRecord struct {
	ID                string            `json:"id"`
	OwnerID           string            `json:"ownerId"`
	Type              MemoryType        `json:"type"`
	Text              string            `json:"text"`
	StructuredExtract map[string]string `json:"structuredExtract,omitempty"`
	SystemTags        []SystemTag       `json:"systemTags"`
	UserTags          []string          `json:"userTags"`
	Embedding         []float64         `json:"-"`
	Confidence        float64           `json:"confidence"`
	ImpactScore       float64           `json:"impactScore"`
	UsageCount        int               `json:"usageCount"`
	ReminderDate      *time.Time        `json:"reminderDate,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// HasEmbedding reports whether a vector is attached.
func (m *MemoryRecord) HasEmbedding() bool {
	return len(m.Embedding) > 0
}

// AllTags returns system and user tags merged into one sorted, de-duplicated slice.
func (m *MemoryRecord) AllTags() []string {
	seen := make(map[string]bool, len(m.SystemTags)+len(m.UserTags))
	var out []string
	for _, t := range m.SystemTags {
		if !seen[string(t)] {
			seen[string(t)] = true
			out = append(out, string(t))
		}
	}
	for _, t := range m.UserTags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// NormalizeTags trims, lowercases and de-duplicates free-form tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ParseSystemTags keeps only vocabulary tags, de-duplicated, in vocabulary order.
func ParseSystemTags(tags []string) []SystemTag {
	present := make(map[SystemTag]bool, len(tags))
	for _, t := range tags {
		present[SystemTag(strings.ToLower(strings.TrimSpace(t)))] = true
	}
	var out []SystemTag
	for _, t := range SystemTags {
		if present[t] {
			out = append(out, t)
		}
	}
	return out
}

// Classification is the derived metadata for a captured note.
type Classification struct {
	Type        MemoryType  `json:"type"`
	SystemTags  []SystemTag `json:"systemTags"`
	Confidence  float64     `json:"confidence"`
	ImpactScore float64     `json:"impactScore"`
}
