package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/waypoint/internal/config"
	werrors "github.com/lazypower/waypoint/internal/errors"
	"github.com/lazypower/waypoint/internal/llm"
	"github.com/lazypower/waypoint/internal/model"
	"github.com/lazypower/waypoint/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(testDB(t), config.Default().Search, nil)
	t.Cleanup(e.Stop)
	return e
}

type stubClassifier struct {
	class  model.Classification
	source string
	calls  int
}

func (s *stubClassifier) ClassifyMemory(_ context.Context, _ string) (model.Classification, string) {
	s.calls++
	return s.class, s.source
}

func ptr(f float64) *float64 { return &f }

func TestCaptureClassifiesMissingMetadata(t *testing.T) {
	e := testEngine(t)
	cls := &stubClassifier{
		class: model.Classification{
			Type:        model.TypePersonalTrait,
			SystemTags:  []model.SystemTag{model.TagPreference},
			Confidence:  0.9,
			ImpactScore: 4,
		},
		source: "ai",
	}
	e.Classifier = cls

	res, err := e.Capture(context.Background(), CaptureInput{
		OwnerID:  "u1",
		Text:     "  I prefer working out in the morning  ",
		UserTags: []string{"Fitness Goals", "fitness goals", "!!"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cls.calls)
	assert.Equal(t, "ai", res.ClassifiedBy)
	assert.False(t, res.Embedded)

	m := res.Memory
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "I prefer working out in the morning", m.Text)
	assert.Equal(t, model.TypePersonalTrait, m.Type)
	assert.Equal(t, []model.SystemTag{model.TagPreference}, m.SystemTags)
	assert.Equal(t, []string{"fitness-goals"}, m.UserTags)
	assert.Equal(t, 0.9, m.Confidence)
	assert.Equal(t, 4.0, m.ImpactScore)

	stored, err := e.DB.GetMemory(context.Background(), m.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.TypePersonalTrait, stored.Type)
}

func TestCaptureCallerMetadataSkipsClassifier(t *testing.T) {
	e := testEngine(t)
	cls := &stubClassifier{source: "ai"}
	e.Classifier = cls

	res, err := e.Capture(context.Background(), CaptureInput{
		OwnerID:     "u1",
		Text:        "Started at the new company",
		Type:        model.TypeKeyEvent,
		Confidence:  ptr(1),
		ImpactScore: ptr(7),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, cls.calls)
	assert.Equal(t, "caller", res.ClassifiedBy)
	assert.Equal(t, model.TypeKeyEvent, res.Memory.Type)
	assert.Equal(t, 7.0, res.Memory.ImpactScore)
}

func TestCaptureClampsCallerImpact(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	info, err := e.Capture(ctx, CaptureInput{OwnerID: "u1", Text: "violin exam grades", Type: model.TypeImportantInfo,
		Confidence: ptr(1), ImpactScore: ptr(50)})
	require.NoError(t, err)
	assert.Equal(t, float64(model.MaxImpactScore), info.Memory.ImpactScore)

	stored, err := e.DB.GetMemory(ctx, info.Memory.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(model.MaxImpactScore), stored.ImpactScore)

	trait, err := e.Capture(ctx, CaptureInput{OwnerID: "u1", Text: "violin practice makes me anxious", Type: model.TypePersonalTrait,
		Confidence: ptr(1), ImpactScore: ptr(0)})
	require.NoError(t, err)

	results, err := e.Search(ctx, SearchRequest{OwnerID: "u1", Query: "violin"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, trait.Memory.ID, results[0].Memory.ID, "key type still outranks capped impact")
}

func TestCaptureWithoutClassifierDefaults(t *testing.T) {
	e := testEngine(t)
	res, err := e.Capture(context.Background(), CaptureInput{OwnerID: "u1", Text: "wifi password is on the fridge"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", res.ClassifiedBy)
	assert.Equal(t, model.TypeImportantInfo, res.Memory.Type)
	assert.Equal(t, 0.5, res.Memory.Confidence)
}

func TestCaptureValidation(t *testing.T) {
	e := testEngine(t)
	tests := []struct {
		name string
		in   CaptureInput
	}{
		{"no owner", CaptureInput{Text: "x"}},
		{"blank text", CaptureInput{OwnerID: "u1", Text: "   "}},
		{"bad type", CaptureInput{OwnerID: "u1", Text: "x", Type: "gossip"}},
		{"bad system tag", CaptureInput{OwnerID: "u1", Text: "x", SystemTags: []string{"mood"}}},
		{"confidence range", CaptureInput{OwnerID: "u1", Text: "x", Confidence: ptr(1.5)}},
		{"negative impact", CaptureInput{OwnerID: "u1", Text: "x", ImpactScore: ptr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Capture(context.Background(), tt.in)
			require.Error(t, err)
			assert.True(t, werrors.Is(err, werrors.ErrInvalidRequest), "got %v", err)
		})
	}
}

func TestCaptureEmbedsBestEffort(t *testing.T) {
	e := testEngine(t)
	e.SetEmbedder(&llm.MockEmbedder{Dims: 4})

	res, err := e.Capture(context.Background(), CaptureInput{OwnerID: "u1", Text: "likes jazz", Type: model.TypeImportantInfo})
	require.NoError(t, err)
	assert.True(t, res.Embedded)

	e.SetEmbedder(&llm.MockEmbedder{Err: errors.New("embedding service down")})
	res, err = e.Capture(context.Background(), CaptureInput{OwnerID: "u1", Text: "likes blues", Type: model.TypeImportantInfo})
	require.NoError(t, err, "embedding failure must not fail capture")
	assert.False(t, res.Embedded)
}

func TestUpdateTags(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	res, err := e.Capture(ctx, CaptureInput{OwnerID: "u1", Text: "x", Type: model.TypeImportantInfo,
		SystemTags: []string{"habit"}, UserTags: []string{"old"}})
	require.NoError(t, err)

	m, err := e.UpdateTags(ctx, res.Memory.ID, nil, []string{"New Tag"})
	require.NoError(t, err)
	assert.Equal(t, []string{"new-tag"}, m.UserTags)
	assert.Equal(t, []model.SystemTag{model.TagHabit}, m.SystemTags)

	m, err = e.UpdateTags(ctx, res.Memory.ID, []string{}, nil)
	require.NoError(t, err)
	assert.Empty(t, m.SystemTags)

	_, err = e.UpdateTags(ctx, res.Memory.ID, []string{"vibes"}, nil)
	assert.True(t, werrors.Is(err, werrors.ErrInvalidRequest))

	_, err = e.UpdateTags(ctx, "ghost", nil, []string{"x"})
	assert.True(t, werrors.Is(err, werrors.ErrNotFound))
}

func TestEmbedMissing(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	for _, text := range []string{"one", "two", "three"} {
		_, err := e.Capture(ctx, CaptureInput{OwnerID: "u1", Text: text, Type: model.TypeImportantInfo})
		require.NoError(t, err)
	}

	n, err := e.EmbedMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "no embedder configured")

	e.SetEmbedder(&llm.MockEmbedder{Dims: 4})
	n, err = e.EmbedMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = e.EmbedMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "second pass has nothing to do")
}

func TestUsageRecorderWait(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	res, err := e.Capture(ctx, CaptureInput{OwnerID: "u1", Text: "x", Type: model.TypeImportantInfo})
	require.NoError(t, err)

	e.Usage.Record([]string{res.Memory.ID})
	e.Usage.Record(nil)
	e.Usage.Wait()

	m, err := e.DB.GetMemory(ctx, res.Memory.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, m.UsageCount)
}

func TestTruncateClean(t *testing.T) {
	long := ""
	for len(long) < maxTextChars+100 {
		long += "word "
	}
	got := truncateClean(long, maxTextChars)
	assert.LessOrEqual(t, len(got), maxTextChars)
	assert.NotContains(t, got[len(got)-1:], " ")

	assert.Equal(t, "short", truncateClean("short", 10))
}
