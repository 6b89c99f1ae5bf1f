package trigram

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scout/internal/store"
)

func TestCandidatesIntersection(t *testing.T) {
	ix := New()
	ix.Add(1, []byte("the quick brown fox"))
	ix.Add(2, []byte("the slow brown bear"))
	ix.Add(3, []byte("completely different"))

	c := ix.Candidates("brown")
	require.NotNil(t, c)
	assert.ElementsMatch(t, []uint32{1, 2}, c.ToArray())

	c = ix.Candidates("quick")
	assert.Equal(t, []uint32{1}, c.ToArray())

	// No file contains this substring's trigrams together.
	c = ix.Candidates("zebra")
	require.NotNil(t, c)
	assert.True(t, c.IsEmpty())
}

func TestCandidatesShortQuery(t *testing.T) {
	ix := New()
	ix.Add(1, []byte("hello"))
	assert.Nil(t, ix.Candidates("he"))
	assert.Nil(t, ix.Candidates(""))
	assert.NotNil(t, ix.Candidates("hel"))
}

func TestRemoveLeavesNoOrphans(t *testing.T) {
	ix := New()
	ix.Add(1, []byte("alpha beta"))
	ix.Add(2, []byte("alpha gamma"))

	ix.Remove(1)

	c := ix.Candidates("alpha")
	assert.Equal(t, []uint32{2}, c.ToArray())
	// Trigrams unique to file 1 are gone entirely.
	c = ix.Candidates("beta")
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 1, ix.FileCount())
}

func TestReplaceRebuildsPostings(t *testing.T) {
	ix := New()
	ix.Add(1, []byte("original content"))
	ix.Replace(1, []byte("rewritten body"))

	assert.True(t, ix.Candidates("original").IsEmpty())
	assert.Equal(t, []uint32{1}, ix.Candidates("rewritten").ToArray())
}

func TestSelective(t *testing.T) {
	ix := New()
	// "common" appears in every file, "rare" in one of ten.
	for i := uint32(1); i <= 10; i++ {
		content := "common filler text"
		if i == 1 {
			content += " rare"
		}
		ix.Add(i, []byte(content))
	}

	rare := ix.Candidates("rare")
	assert.True(t, ix.Selective(rare))

	common := ix.Candidates("common")
	assert.False(t, ix.Selective(common), "matching all files is not selective")

	assert.False(t, ix.Selective(nil))
}

func TestScore(t *testing.T) {
	ix := New()
	for i := uint32(1); i <= 10; i++ {
		content := "shared prefix"
		if i == 1 {
			content += " unique"
		}
		ix.Add(i, []byte(content))
	}

	rare := ix.Score(ix.Candidates("unique"))
	common := ix.Score(ix.Candidates("shared"))
	assert.Greater(t, rare, common)
	assert.LessOrEqual(t, rare, 1.0)
	assert.GreaterOrEqual(t, common, 0.1)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer st.Close()

	ix := New()
	ix.Add(1, []byte("persisted content one"))
	ix.Add(2, []byte("persisted content two"))
	require.NoError(t, ix.SaveTo(st))

	restored := New()
	require.NoError(t, restored.LoadFrom(st))

	assert.Equal(t, ix.Len(), restored.Len())
	assert.Equal(t, 2, restored.FileCount())
	assert.ElementsMatch(t, []uint32{1, 2}, restored.Candidates("persisted").ToArray())
	assert.Equal(t, []uint32{1}, restored.Candidates("one").ToArray())
}
