package sourcenode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/smconcat/lib/mapping"
	"github.com/liuxd6825/smconcat/lib/testutils"
)

func collect(t *testing.T, res *CodeWithSourceMap) []mapping.Mapping {
	t.Helper()
	mappings, err := testutils.CollectMappings(res.Map.SourceMap())
	require.NoError(t, err)
	return mappings
}

func TestNodeText(t *testing.T) {
	t.Parallel()

	n := NewText("b", "", "c")
	n.Prepend("a").Add("d")
	n.AddNode(NewText("e")).PrependNode(NewMapped(Original{Source: "x.js", Line: 1}, "_"))
	n.AddNode(nil)

	assert.Equal(t, "_abcde", n.String())
	assert.Equal(t, 7, n.Len())

	var chunks []string
	n.Walk(func(text string, _ *Original) {
		chunks = append(chunks, text)
	})
	assert.Equal(t, []string{"_", "a", "b", "c", "d", "e"}, chunks)
}

func TestToStringWithSourceMap(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		res := NewText().ToStringWithSourceMap("out.js")
		assert.Equal(t, "", res.Code)
		assert.JSONEq(t, `{"version":3,"file":"out.js","sources":[],"names":[],"mappings":""}`, res.Map.String())
	})

	t.Run("mapped then plain", func(t *testing.T) {
		t.Parallel()
		n := NewText("/* x */")
		n.AddNode(NewMapped(Original{Source: "a.js", Line: 3, Column: 2, Name: "foo"}, "foo"))
		n.Add("();")
		res := n.ToStringWithSourceMap("")

		assert.Equal(t, "/* x */foo();", res.Code)
		assert.Equal(t, []mapping.Mapping{
			{GeneratedLine: 1, GeneratedColumn: 7, Source: "a.js", OriginalLine: 3, OriginalColumn: 2, Name: "foo"},
			{GeneratedLine: 1, GeneratedColumn: 10},
		}, collect(t, res))
		assert.Equal(t, []string{"foo"}, res.Map.SourceMap().Names)
	})

	t.Run("multi-line chunk", func(t *testing.T) {
		t.Parallel()
		n := NewMapped(Original{Source: "a.js", Line: 1}, "a\nb\n")
		n.Add("c")
		res := n.ToStringWithSourceMap("")

		assert.Equal(t, []mapping.Mapping{
			{GeneratedLine: 1, GeneratedColumn: 0, Source: "a.js", OriginalLine: 1},
			{GeneratedLine: 2, GeneratedColumn: 0, Source: "a.js", OriginalLine: 1},
			{GeneratedLine: 3, GeneratedColumn: 0, Source: "a.js", OriginalLine: 1},
		}, collect(t, res))
	})

	t.Run("utf-16 columns", func(t *testing.T) {
		t.Parallel()
		n := NewText("é𝄞")
		n.AddNode(NewMapped(Original{Source: "a.js", Line: 1}, "x"))
		res := n.ToStringWithSourceMap("")

		assert.Equal(t, []mapping.Mapping{
			{GeneratedLine: 1, GeneratedColumn: 3, Source: "a.js", OriginalLine: 1},
		}, collect(t, res))
	})

	t.Run("source contents", func(t *testing.T) {
		t.Parallel()
		inner := NewMapped(Original{Source: "a.js", Line: 1}, "a")
		inner.SetSourceContent("a.js", "A")
		n := NewText().AddNode(inner)
		n.SetSourceContent("a.js", "overridden")

		sm := n.ToStringWithSourceMap("").Map.SourceMap()
		require.Len(t, sm.SourcesContent, 1)
		assert.Equal(t, "overridden", *sm.SourcesContent[0])
	})
}

func TestFromStringWithSourceMap(t *testing.T) {
	t.Parallel()

	tokens := []string{
		"var", " ", "foo", "=", "function", "(", ")", "{",
		"\n  ", "return", " ", "0",
		"\n", "}",
	}
	code := strings.Join(tokens, "")
	sm := testutils.DummySourceMap(tokens, "foo.js")

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		c, err := mapping.NewConsumer(sm)
		require.NoError(t, err)

		n, err := FromStringWithSourceMap(code, c, nil)
		require.NoError(t, err)
		assert.Equal(t, code, n.String())

		expected, err := testutils.CollectMappings(sm)
		require.NoError(t, err)
		require.Len(t, expected, 10)
		assert.Equal(t, expected, collect(t, n.ToStringWithSourceMap("")))
	})

	t.Run("rewrite", func(t *testing.T) {
		t.Parallel()
		content := code
		withContent := *sm
		withContent.SourcesContent = []*string{&content}
		c, err := mapping.NewConsumer(&withContent)
		require.NoError(t, err)

		n, err := FromStringWithSourceMap(code, c, func(s string) string { return "../" + s })
		require.NoError(t, err)

		out := n.ToStringWithSourceMap("").Map.SourceMap()
		assert.Equal(t, []string{"../foo.js"}, out.Sources)
		require.Len(t, out.SourcesContent, 1)
		assert.Equal(t, code, *out.SourcesContent[0])
	})

	t.Run("unmapped prefix", func(t *testing.T) {
		t.Parallel()
		c, err := mapping.NewConsumer(&mapping.SourceMap{
			Version:  3,
			Sources:  []string{"a.js"},
			Mappings: ";EAAA",
		})
		require.NoError(t, err)

		n, err := FromStringWithSourceMap("head\r\n  tail", c, nil)
		require.NoError(t, err)
		assert.Equal(t, "head\r\n  tail", n.String())

		var chunks []string
		n.Walk(func(text string, orig *Original) {
			if orig == nil {
				chunks = append(chunks, "plain:"+text)
				return
			}
			chunks = append(chunks, orig.Source+":"+text)
		})
		assert.Equal(t, []string{"plain:head\r\n", "plain:  ", "a.js:tail"}, chunks)
	})

	t.Run("mismatch", func(t *testing.T) {
		t.Parallel()
		cases := map[string]string{
			"line past end":    ";;AAAA",
			"column past end":  "gBAAA",
			"first line wider": "MAAA",
		}
		for name, mappings := range cases {
			mappings := mappings
			t.Run(name, func(t *testing.T) {
				t.Parallel()
				c, err := mapping.NewConsumer(&mapping.SourceMap{Version: 3, Sources: []string{"a.js"}, Mappings: mappings})
				require.NoError(t, err)

				_, err = FromStringWithSourceMap("short\nx", c, nil)
				assert.ErrorIs(t, err, ErrMapContentMismatch)
			})
		}
	})
}

func TestCutUTF16(t *testing.T) {
	t.Parallel()

	head, tail, ok := cutUTF16("a𝄞b\n", 3)
	require.True(t, ok)
	assert.Equal(t, "a𝄞", head)
	assert.Equal(t, "b\n", tail)

	_, _, ok = cutUTF16("a𝄞b\n", 2)
	assert.False(t, ok, "middle of a surrogate pair")

	head, tail, ok = cutUTF16("ab\r\n", 2)
	require.True(t, ok)
	assert.Equal(t, "ab", head)
	assert.Equal(t, "\r\n", tail)

	_, _, ok = cutUTF16("ab\r\n", 3)
	assert.False(t, ok)

	_, _, ok = cutUTF16("ab", -1)
	assert.False(t, ok)
}
