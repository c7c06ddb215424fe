package slug

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testID = uuid.MustParse("e3f1a9c2-d401-4b3f-9a6e-1f2d3c4b5a69")

func neverExists(string) bool { return false }

func TestGenerate(t *testing.T) {
	t.Run("title token plus id fragment", func(t *testing.T) {
		s, err := Generate("50% Off Summer Fashion", testID, neverExists)

		assert.NoError(t, err)
		assert.Equal(t, "50-off-summer-fashion-e3f1a9c2d401", s)
	})

	t.Run("empty title falls back to item", func(t *testing.T) {
		s, err := Generate("", testID, neverExists)

		assert.NoError(t, err)
		assert.Equal(t, "item-e3f1a9c2d401", s)
	})

	t.Run("title of only punctuation falls back to item", func(t *testing.T) {
		s, err := Generate("!!! ???", testID, neverExists)

		assert.NoError(t, err)
		assert.Equal(t, "item-e3f1a9c2d401", s)
	})

	t.Run("equal titles with distinct ids never collide", func(t *testing.T) {
		otherID := uuid.MustParse("a1b2c3d4-e5f6-4a3b-8c9d-0e1f2a3b4c5d")

		s1, err := Generate("Big Sale", testID, neverExists)
		require.NoError(t, err)
		s2, err := Generate("Big Sale", otherID, neverExists)
		require.NoError(t, err)

		assert.NotEqual(t, s1, s2)
	})

	t.Run("collision appends counter", func(t *testing.T) {
		taken := map[string]bool{
			"big-sale-e3f1a9c2d401":   true,
			"big-sale-e3f1a9c2d401-1": true,
		}

		s, err := Generate("Big Sale", testID, func(c string) bool { return taken[c] })

		assert.NoError(t, err)
		assert.Equal(t, "big-sale-e3f1a9c2d401-2", s)
	})

	t.Run("retry ceiling exhausted", func(t *testing.T) {
		s, err := Generate("Big Sale", testID, func(string) bool { return true })

		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrSlugExhausted)
		assert.Empty(t, s)
	})

	t.Run("concurrent generations with colliding titles stay unique", func(t *testing.T) {
		const n = 100

		var mu sync.Mutex
		taken := make(map[string]bool)
		exists := func(c string) bool {
			mu.Lock()
			defer mu.Unlock()
			return taken[c]
		}
		claim := func(c string) {
			mu.Lock()
			defer mu.Unlock()
			taken[c] = true
		}

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s, err := Generate("Flash Deal", uuid.New(), exists)
				require.NoError(t, err)
				claim(s)
			}()
		}
		wg.Wait()

		assert.Len(t, taken, n)
	})
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"simple", "Summer Deals", "summer-deals"},
		{"punctuation collapsed", "Buy 1, Get 1 -- Free!", "buy-1-get-1-free"},
		{"whitespace runs collapsed", "  spaced   out  ", "spaced-out"},
		{"already a slug", "already-a-slug", "already-a-slug"},
		{"mixed case", "HaLf PriCe", "half-price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeTitle(tt.title))
		})
	}
}

func TestNormalizeTitleCapsLength(t *testing.T) {
	long := ""
	for i := 0; i < 60; i++ {
		long += "verylongword "
	}

	got := normalizeTitle(long)

	assert.LessOrEqual(t, len(got), maxTitleLen)
	assert.NotEqual(t, byte('-'), got[len(got)-1])
}
