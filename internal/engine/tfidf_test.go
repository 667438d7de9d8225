package engine

import (
	"context"
	"math"
	"testing"

	"github.com/lazypower/waypoint/internal/model"
	"github.com/lazypower/waypoint/internal/store"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"Hello World", 2},
		{"Runs 5k every Saturday morning.", 5},
		{"a b c", 0}, // single chars skipped
		{"self-care day", 2},
		{"", 0},
	}

	for _, tt := range tests {
		tokens := tokenize(tt.input)
		if len(tokens) != tt.want {
			t.Errorf("tokenize(%q) = %d tokens %v, want %d", tt.input, len(tokens), tokens, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	vec := []float64{3, 4}
	normalize(vec)

	norm := math.Sqrt(vec[0]*vec[0] + vec[1]*vec[1])
	if math.Abs(norm-1.0) > 1e-10 {
		t.Errorf("normalized magnitude = %f, want 1", norm)
	}
}

func TestNormalizeZero(t *testing.T) {
	vec := []float64{0, 0, 0}
	normalize(vec) // should not panic
	for i, v := range vec {
		if v != 0 {
			t.Errorf("vec[%d] = %f, want 0", i, v)
		}
	}
}

func TestTFIDFEmbedder(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	texts := []string{
		"Prefers running in the morning before work",
		"Running a half marathon in October",
		"Daughter's piano recital is on Friday",
		"Allergic to peanuts",
	}
	for _, text := range texts {
		if err := db.InsertMemory(ctx, &model.MemoryRecord{OwnerID: "u1", Type: model.TypeImportantInfo, Text: text}); err != nil {
			t.Fatalf("InsertMemory: %v", err)
		}
	}

	emb, err := NewTFIDFEmbedder(ctx, db, 512)
	if err != nil {
		t.Fatalf("NewTFIDFEmbedder: %v", err)
	}
	if emb.Dimensions() == 0 {
		t.Fatal("expected non-zero dimensions")
	}

	run1, _ := emb.Embed(ctx, texts[0])
	run2, _ := emb.Embed(ctx, texts[1])
	piano, _ := emb.Embed(ctx, texts[2])
	if len(run1) != emb.Dimensions() {
		t.Fatalf("vector length = %d, want %d", len(run1), emb.Dimensions())
	}

	related := store.CosineSimilarity(run1, run2)
	unrelated := store.CosineSimilarity(run1, piano)
	if related <= unrelated {
		t.Errorf("running texts similarity %f should exceed unrelated %f", related, unrelated)
	}

	batch, err := emb.EmbedBatch(ctx, texts[:2])
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(batch) != 2 || store.CosineSimilarity(batch[0], run1) < 0.999 {
		t.Errorf("EmbedBatch disagrees with Embed")
	}

	empty, _ := emb.Embed(ctx, "")
	for _, v := range empty {
		if v != 0 {
			t.Fatal("empty text should embed to the zero vector")
		}
	}
}

func TestTFIDFModelTracksVocabulary(t *testing.T) {
	a := FitTFIDF([]string{"morning run", "evening swim"}, 16)
	b := FitTFIDF([]string{"evening swim", "morning run"}, 16)
	c := FitTFIDF([]string{"tax return", "dentist visit"}, 16)

	if a.Model() != b.Model() {
		t.Errorf("same corpus should give same model: %s vs %s", a.Model(), b.Model())
	}
	if a.Model() == c.Model() {
		t.Errorf("different corpus should give different model: %s", a.Model())
	}
}

func TestTFIDFEmptyCorpus(t *testing.T) {
	emb := FitTFIDF(nil, 0)
	if emb.Dimensions() != 1 {
		t.Errorf("Dimensions = %d, want 1", emb.Dimensions())
	}
	vec, err := emb.Embed(context.Background(), "anything at all")
	if err != nil || len(vec) != 1 {
		t.Errorf("Embed = %v, %v", vec, err)
	}
}
