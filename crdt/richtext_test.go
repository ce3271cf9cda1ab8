package crdt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertWord(t *testing.T, rt *RichText, index int, word, replica string, at Stamp) []string {
	t.Helper()
	pred, err := rt.PredecessorAt(index)
	require.NoError(t, err)
	ids := make([]string, len([]rune(word)))
	for i := range ids {
		ids[i] = replica + "-" + word + "-" + string(rune('0'+i))
	}
	require.NoError(t, rt.Insert(pred, ids, word, at))
	return ids
}

func TestRichTextInsertDelete(t *testing.T) {
	rt := NewRichText()
	insertWord(t, rt, 0, "hello", "a", stamp(1, "a"))
	assert.Equal(t, "hello", rt.String())

	ids, err := rt.RangeIDs(1, 3)
	require.NoError(t, err)
	require.NoError(t, rt.Delete(ids))
	assert.Equal(t, "ho", rt.String())
	assert.Equal(t, 2, rt.Len())
}

func TestRichTextInsertMismatchedIDs(t *testing.T) {
	rt := NewRichText()
	err := rt.Insert(RootID, []string{"one"}, "two runes", stamp(1, "a"))
	assert.Error(t, err)
}

func TestRichTextConcurrentHeadInserts(t *testing.T) {
	// replica a types "cat", replica b types "dog", both unaware of each
	// other; either merge order yields the same 6 characters with the
	// higher-stamped run first
	a := NewRichText()
	b := NewRichText()
	insertWord(t, a, 0, "cat", "a", stamp(1, "a"))
	insertWord(t, b, 0, "dog", "b", stamp(2, "b"))

	a.Merge(b)
	b.Merge(a)

	assert.Equal(t, "dogcat", a.String())
	assert.Equal(t, "dogcat", b.String())
}

func TestRichTextFormatSurvivesConcurrentDelete(t *testing.T) {
	// a formats characters 0-2 bold; b concurrently deletes character 1
	a := NewRichText()
	ids := insertWord(t, a, 0, "cat", "a", stamp(1, "a"))

	b := NewRichText()
	b.Merge(a)

	require.NoError(t, a.ApplyFormat(FormatRange{StartID: ids[0], EndID: ids[2], Kind: "bold"}, "tag-1"))
	require.NoError(t, b.Delete([]string{ids[1]}))

	a.Merge(b)
	b.Merge(a)

	assert.Equal(t, "ct", a.String())
	assert.Equal(t, "<bold>ct</bold>", a.Markup(), "range anchored past the tombstone still covers survivors")
	assert.Equal(t, a.Markup(), b.Markup())
}

func TestRichTextUnformatIsAddWins(t *testing.T) {
	a := NewRichText()
	ids := insertWord(t, a, 0, "word", "a", stamp(1, "a"))
	r := FormatRange{StartID: ids[0], EndID: ids[3], Kind: "italic"}
	require.NoError(t, a.ApplyFormat(r, "tag-1"))

	b := NewRichText()
	b.Merge(a)

	// a unformats while b concurrently re-applies the same range under a
	// fresh tag; the fresh tag survives
	tags := a.RemoveFormat(r)
	assert.Equal(t, []string{"tag-1"}, tags)
	require.NoError(t, b.ApplyFormat(r, "tag-2"))

	a.Merge(b)
	b.RemoveFormatTags(r, tags)

	assert.Equal(t, "<italic>word</italic>", a.Markup())
	assert.Equal(t, a.Markup(), b.Markup())
}

func TestRichTextSpans(t *testing.T) {
	rt := NewRichText()
	ids := insertWord(t, rt, 0, "abcd", "a", stamp(1, "a"))
	require.NoError(t, rt.ApplyFormat(FormatRange{StartID: ids[1], EndID: ids[2], Kind: "bold"}, "t1"))

	spans := rt.Spans()
	require.Len(t, spans, 3)
	assert.Equal(t, "a", spans[0].Text)
	assert.Empty(t, spans[0].Formats)
	assert.Equal(t, "bc", spans[1].Text)
	assert.Equal(t, []string{"bold"}, spans[1].Formats)
	assert.Equal(t, "d", spans[2].Text)
	assert.Empty(t, spans[2].Formats)
}

func TestRichTextFormatUnknownAnchor(t *testing.T) {
	rt := NewRichText()
	err := rt.ApplyFormat(FormatRange{StartID: "nope", EndID: "nope", Kind: "bold"}, "t1")
	assert.ErrorIs(t, err, ErrUnknownElement)
}

func TestRichTextRoundTrip(t *testing.T) {
	rt := NewRichText()
	ids := insertWord(t, rt, 0, "cat", "a", stamp(1, "a"))
	require.NoError(t, rt.ApplyFormat(FormatRange{StartID: ids[0], EndID: ids[2], Kind: "bold"}, "t1"))
	require.NoError(t, rt.Delete([]string{ids[1]}))

	data, err := json.Marshal(rt)
	require.NoError(t, err)

	loaded := NewRichText()
	require.NoError(t, json.Unmarshal(data, loaded))

	assert.Equal(t, rt.String(), loaded.String())
	assert.Equal(t, rt.Markup(), loaded.Markup())
}
