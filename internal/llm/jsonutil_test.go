package llm

import (
	"encoding/json"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "Sure!\n```json\n{\"a\":1}\n```\nDone.", `{"a":1}`},
		{"prose around", `Here you go: {"a":1} hope it helps`, `{"a":1}`},
		{"none", "I cannot help with that.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.input); got != tt.want {
				t.Errorf("ExtractJSON = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSONCleansArtifacts(t *testing.T) {
	input := "```json\n{\n  \"url\": \"http://example.com\", // homepage\n  \"tags\": [\"a\", \"b\",],\n}\n```"
	got := ExtractJSON(input)
	var v struct {
		URL  string   `json:"url"`
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(got), &v); err != nil {
		t.Fatalf("cleaned JSON does not parse: %v\n%s", err, got)
	}
	if v.URL != "http://example.com" || len(v.Tags) != 2 {
		t.Errorf("decoded = %+v", v)
	}
}

func TestExtractJSONArray(t *testing.T) {
	if got := ExtractJSONArray("```\n[1, 2, 3,]\n```"); got != "[1, 2, 3]" {
		t.Errorf("fenced array = %q", got)
	}
	if got := ExtractJSONArray("order: [2,0]"); got != "[2,0]" {
		t.Errorf("bare array = %q", got)
	}
	if got := ExtractJSONArray("nothing"); got != "" {
		t.Errorf("no array = %q", got)
	}
}
