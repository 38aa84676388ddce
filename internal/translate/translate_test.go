package translate

import (
	"context"
	"testing"

	"github.com/hbq0405/emby-actor-processor/internal/config"
	"github.com/hbq0405/emby-actor-processor/internal/database"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	name    string
	results map[string]string
	calls   int
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Translate(ctx context.Context, texts []string) ([]string, error) {
	f.calls++
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = f.results[t]
	}
	return out, nil
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestShouldSkip(t *testing.T) {
	require.True(t, shouldSkip(""))
	require.True(t, shouldSkip("   "))
	require.True(t, shouldSkip("周星驰"))
	require.True(t, shouldSkip("JR"))
	require.True(t, shouldSkip("D"))
	require.False(t, shouldSkip("Stephen Chow"))
	require.False(t, shouldSkip("ABC"))
}

func TestTranslateBatch_SkipsCJKAndShort(t *testing.T) {
	db := openTestDB(t)
	svc := New(db, nil, nil, nil)

	out, err := svc.TranslateBatch(context.Background(), []string{"周星驰", "JR", ""})
	require.NoError(t, err)
	require.Equal(t, []string{"周星驰", "JR", ""}, out)
}

func TestTranslateBatch_AIHitCachesResult(t *testing.T) {
	db := openTestDB(t)
	ai := &fakeEngine{name: "ai", results: map[string]string{"Stephen Chow": "周星驰"}}
	svc := New(db, ai, nil, nil)

	out, err := svc.TranslateBatch(context.Background(), []string{"Stephen Chow"})
	require.NoError(t, err)
	require.Equal(t, []string{"周星驰"}, out)
	require.Equal(t, 1, ai.calls)

	entry, found, err := database.GetTranslation(db.Raw(), "Stephen Chow")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "周星驰", entry.TranslatedText.String)
	require.Equal(t, "ai", entry.EngineUsed)

	out, err = svc.TranslateBatch(context.Background(), []string{"Stephen Chow"})
	require.NoError(t, err)
	require.Equal(t, []string{"周星驰"}, out)
	require.Equal(t, 1, ai.calls, "second lookup should be served from cache, not call the engine again")
}

func TestTranslateBatch_FallsBackWhenAIFails(t *testing.T) {
	db := openTestDB(t)
	ai := &fakeEngine{name: "ai", results: map[string]string{}}
	fallback := &fakeEngine{name: "bing", results: map[string]string{"Tony Leung": "梁朝伟"}}
	svc := New(db, ai, []Engine{fallback}, nil)

	out, err := svc.TranslateBatch(context.Background(), []string{"Tony Leung"})
	require.NoError(t, err)
	require.Equal(t, []string{"梁朝伟"}, out)

	entry, found, err := database.GetTranslation(db.Raw(), "Tony Leung")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "bing", entry.EngineUsed)
}

func TestTranslateBatch_NegativeCacheOnTotalFailure(t *testing.T) {
	db := openTestDB(t)
	svc := New(db, nil, nil, nil)

	out, err := svc.TranslateBatch(context.Background(), []string{"Unresolvable Name"})
	require.NoError(t, err)
	require.Equal(t, []string{"Unresolvable Name"}, out)

	entry, found, err := database.GetTranslation(db.Raw(), "Unresolvable Name")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, entry.IsNegative())
	require.Equal(t, "failed_or_same", entry.EngineUsed, "no engine configured at all falls back to the bare tag")

	out, err = svc.TranslateBatch(context.Background(), []string{"Unresolvable Name"})
	require.NoError(t, err)
	require.Equal(t, []string{"Unresolvable Name"}, out, "negative cache short-circuits without retrying")
}

func TestTranslateBatch_NegativeCacheNamesLastTriedEngine(t *testing.T) {
	db := openTestDB(t)
	ai := &fakeEngine{name: "ai", results: map[string]string{}}
	fallback := &fakeEngine{name: "baidu", results: map[string]string{}}
	svc := New(db, ai, []Engine{fallback}, nil)

	out, err := svc.TranslateBatch(context.Background(), []string{"Unresolvable Name"})
	require.NoError(t, err)
	require.Equal(t, []string{"Unresolvable Name"}, out)

	entry, found, err := database.GetTranslation(db.Raw(), "Unresolvable Name")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, entry.IsNegative())
	require.Equal(t, "failed_or_same_via_baidu", entry.EngineUsed, "negative cache tag must name the last engine actually tried")
}

func TestMergePriority(t *testing.T) {
	cfg := config.TranslationConfig{Priorities: map[string]int{"ai": 1, "bing": 0}}

	require.True(t, MergePriority("bing", ManualEngineName, cfg))
	require.True(t, MergePriority("bing", "ai", cfg))
	require.False(t, MergePriority(ManualEngineName, "ai", cfg))
	require.False(t, MergePriority("ai", "bing", cfg))
}
