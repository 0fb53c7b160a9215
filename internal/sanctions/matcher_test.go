package sanctions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txguard/internal/compliance/models"
)

var loadedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func testEntries() []models.SanctionsEntry {
	return []models.SanctionsEntry{
		{
			Name:    "Ivan Petrovich Sidorov",
			Aliases: []string{"Ivan Sidorov", " Ivan Sidorov "},
			Program: "RUSSIA-EO14024",
		},
		{
			Name:    "Lazarus Group",
			Aliases: []string{"Hidden Cobra"},
			Identifiers: []models.Identifier{
				{Type: "address", Value: "0x098B716B8Aaf21512996dC57EB0615e2383E2f96"},
			},
			Program: "DPRK3",
		},
		{
			Name:        "José Müller-Ñúñez",
			Identifiers: []models.Identifier{{Type: "passport", Value: "X1234567"}},
			Program:     "SDGT",
		},
	}
}

func newTestMatcher(t *testing.T, now time.Time) (*Matcher, *Holder) {
	t.Helper()
	h := NewHolder()
	require.True(t, h.Swap(NewSnapshot(7, testEntries(), loadedAt)))
	return NewMatcher(h, 0.85, WithClock(func() time.Time { return now })), h
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "jose muller nunez", Normalize("  José Müller-Ñúñez "))
	assert.Equal(t, "ivan sidorov", Normalize("IVAN, SIDOROV."))
	assert.Equal(t, "fi", Normalize("ﬁ"), "compatibility ligature decomposes")
	assert.Equal(t, "", Normalize("--- "))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("abc", "abc"))
	assert.Equal(t, 0.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("abc", ""))
	assert.InDelta(t, 0.75, Similarity("abcd", "abcx"), 1e-9)
}

func TestMatcher_Screen(t *testing.T) {
	m, _ := newTestMatcher(t, loadedAt.Add(time.Hour))
	ctx := context.Background()

	t.Run("exact alias match", func(t *testing.T) {
		res := m.Screen(ctx, models.Party{ID: "p1", Name: "Ivan Sidorov"})
		assert.Equal(t, models.OutcomeMatch, res.Outcome)
		assert.Equal(t, 1.0, res.Confidence)
		assert.Equal(t, "Ivan Petrovich Sidorov", res.MatchedEntry)
		assert.Equal(t, "RUSSIA-EO14024", res.Program)
		assert.Equal(t, uint64(7), res.ListVersion)
	})

	t.Run("token order does not matter", func(t *testing.T) {
		res := m.Screen(ctx, models.Party{ID: "p1", Name: "Sidorov Ivan"})
		assert.Equal(t, models.OutcomeMatch, res.Outcome)
		assert.Equal(t, 1.0, res.Confidence)
	})

	t.Run("diacritics and punctuation are folded", func(t *testing.T) {
		res := m.Screen(ctx, models.Party{ID: "p1", Name: "JOSE MULLER NUNEZ"})
		assert.Equal(t, models.OutcomeMatch, res.Outcome)
	})

	t.Run("fuzzy match above threshold", func(t *testing.T) {
		// one substitution in 12 runes: 1 - 1/12 ≈ 0.917
		res := m.Screen(ctx, models.Party{ID: "p1", Name: "Ivan Sidorow"})
		assert.Equal(t, models.OutcomeMatch, res.Outcome)
		assert.InDelta(t, 1-1.0/12, res.Confidence, 1e-9)
	})

	t.Run("dissimilar name is no match", func(t *testing.T) {
		res := m.Screen(ctx, models.Party{ID: "p1", Name: "Alice Example"})
		assert.Equal(t, models.OutcomeNoMatch, res.Outcome)
		assert.Less(t, res.Confidence, 0.85)
		assert.Equal(t, uint64(7), res.ListVersion)
	})

	t.Run("identifier match is exact and case-insensitive", func(t *testing.T) {
		res := m.Screen(ctx, models.Party{ID: "p2", Name: "Unrelated", Identifiers: []models.Identifier{
			{Type: "PASSPORT", Value: "x1234567"},
		}})
		assert.Equal(t, models.OutcomeMatch, res.Outcome)
		assert.Equal(t, 1.0, res.Confidence)
		assert.Equal(t, "SDGT", res.Program)
	})

	t.Run("wallet address matches regardless of declared type", func(t *testing.T) {
		res := m.Screen(ctx, models.Party{ID: "0x098b716b8aaf21512996dc57eb0615e2383e2f96"})
		assert.Equal(t, models.OutcomeMatch, res.Outcome)
		assert.Equal(t, "Lazarus Group", res.MatchedEntry)
	})
}

func TestMatcher_FailsClosed(t *testing.T) {
	ctx := context.Background()

	t.Run("no snapshot loaded", func(t *testing.T) {
		m := NewMatcher(NewHolder(), 0.85)
		res := m.Screen(ctx, models.Party{ID: "p1", Name: "Alice"})
		assert.Equal(t, models.OutcomeError, res.Outcome)
		assert.Contains(t, res.Detail, "not loaded")
	})

	t.Run("stale snapshot", func(t *testing.T) {
		m, _ := newTestMatcher(t, loadedAt.Add(25*time.Hour))
		res := m.Screen(ctx, models.Party{ID: "p1", Name: "Alice"})
		assert.Equal(t, models.OutcomeError, res.Outcome)
		assert.Contains(t, res.Detail, "stale")
	})

	t.Run("cancelled context", func(t *testing.T) {
		m, _ := newTestMatcher(t, loadedAt)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		res := m.Screen(cctx, models.Party{ID: "p1", Name: "Alice"})
		assert.Equal(t, models.OutcomeTimeout, res.Outcome)
	})
}

func TestHolder_SwapIsMonotonic(t *testing.T) {
	h := NewHolder()
	assert.Nil(t, h.Current())
	assert.True(t, h.Swap(NewSnapshot(2, nil, loadedAt)))
	assert.False(t, h.Swap(NewSnapshot(2, nil, loadedAt)), "equal version rejected")
	assert.False(t, h.Swap(NewSnapshot(1, nil, loadedAt)), "older version rejected")
	assert.True(t, h.Swap(NewSnapshot(3, nil, loadedAt)))
	assert.Equal(t, uint64(3), h.Current().Version)
	assert.False(t, h.Swap(nil))
}

func TestMatcher_InFlightScreeningKeepsItsSnapshot(t *testing.T) {
	m, h := newTestMatcher(t, loadedAt)
	before := h.Current()
	require.True(t, h.Swap(NewSnapshot(8, nil, loadedAt)))

	// The old snapshot is still intact for anyone holding it.
	assert.Equal(t, 3, before.Len())
	res := m.Screen(context.Background(), models.Party{ID: "p1", Name: "Ivan Sidorov"})
	assert.Equal(t, models.OutcomeNoMatch, res.Outcome, "new empty list is used for new screenings")
	assert.Equal(t, uint64(8), res.ListVersion)
}
