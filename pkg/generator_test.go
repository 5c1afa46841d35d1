package pkg

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextGenerator_Compact(t *testing.T) {
	var sb strings.Builder
	g := newGenerator(&sb, false)

	require.NoError(t, g.WriteStartObject())
	require.NoError(t, g.WriteKey("name"))
	require.NoError(t, g.WriteString("x"))
	require.NoError(t, g.WriteKey("count"))
	require.NoError(t, g.WriteNumber(json.Number("42")))
	require.NoError(t, g.WriteKey("ratio"))
	require.NoError(t, g.WriteFloat(0.5))
	require.NoError(t, g.WriteKey("ok"))
	require.NoError(t, g.WriteBool(true))
	require.NoError(t, g.WriteKey("none"))
	require.NoError(t, g.WriteNull())
	require.NoError(t, g.WriteKey("list"))
	require.NoError(t, g.WriteStartArray())
	require.NoError(t, g.WriteInt(1))
	require.NoError(t, g.WriteInt(2))
	require.NoError(t, g.WriteEnd())
	require.NoError(t, g.WriteEnd())
	require.NoError(t, g.Close())

	require.Equal(t, `{"name":"x","count":42,"ratio":0.5,"ok":true,"none":null,"list":[1,2]}`, sb.String())
}

func TestTextGenerator_Pretty(t *testing.T) {
	var sb strings.Builder
	g := newGenerator(&sb, true)

	require.NoError(t, g.WriteStartObject())
	require.NoError(t, g.WriteKey("a"))
	require.NoError(t, g.WriteStartObject())
	require.NoError(t, g.WriteKey("b"))
	require.NoError(t, g.WriteInt(1))
	require.NoError(t, g.WriteEnd())
	require.NoError(t, g.WriteKey("c"))
	require.NoError(t, g.WriteStartArray())
	require.NoError(t, g.WriteString("x"))
	require.NoError(t, g.WriteString("y"))
	require.NoError(t, g.WriteEnd())
	require.NoError(t, g.WriteEnd())
	require.NoError(t, g.Close())

	expected := "{\n" +
		"  \"a\": {\n" +
		"    \"b\": 1\n" +
		"  },\n" +
		"  \"c\": [\n" +
		"    \"x\",\n" +
		"    \"y\"\n" +
		"  ]\n" +
		"}"
	require.Equal(t, expected, sb.String())
}

func TestTextGenerator_EmptyContainers(t *testing.T) {
	var sb strings.Builder
	g := newGenerator(&sb, true)

	require.NoError(t, g.WriteStartObject())
	require.NoError(t, g.WriteKey("empty"))
	require.NoError(t, g.WriteStartArray())
	require.NoError(t, g.WriteEnd())
	require.NoError(t, g.WriteEnd())
	require.NoError(t, g.Close())

	require.Equal(t, "{\n  \"empty\": []\n}", sb.String())
}

func TestTextGenerator_EscapesKeysAndStrings(t *testing.T) {
	var sb strings.Builder
	g := newGenerator(&sb, false)

	require.NoError(t, g.WriteStartObject())
	require.NoError(t, g.WriteKey(`he said "hi"`))
	require.NoError(t, g.WriteString("line\nbreak"))
	require.NoError(t, g.WriteEnd())
	require.NoError(t, g.Close())

	require.Equal(t, `{"he said \"hi\"":"line\nbreak"}`, sb.String())
}

func TestTextGenerator_BeginValueIsIdempotent(t *testing.T) {
	var sb strings.Builder
	g := newGenerator(&sb, false)

	require.NoError(t, g.WriteStartArray())
	require.NoError(t, g.WriteInt(1))
	require.NoError(t, g.BeginValue())
	require.NoError(t, g.BeginValue())
	require.NoError(t, g.WriteInt(2))
	require.NoError(t, g.WriteEnd())
	require.NoError(t, g.Close())

	require.Equal(t, "[1,2]", sb.String())
}

func TestTextGenerator_StructuralPanics(t *testing.T) {
	t.Run("value without key in object", func(t *testing.T) {
		var sb strings.Builder
		g := newGenerator(&sb, false)
		require.NoError(t, g.WriteStartObject())
		require.Panics(t, func() { _ = g.WriteInt(1) })
	})

	t.Run("key outside object", func(t *testing.T) {
		var sb strings.Builder
		g := newGenerator(&sb, false)
		require.NoError(t, g.WriteStartArray())
		require.Panics(t, func() { _ = g.WriteKey("a") })
	})

	t.Run("key while value pending", func(t *testing.T) {
		var sb strings.Builder
		g := newGenerator(&sb, false)
		require.NoError(t, g.WriteStartObject())
		require.NoError(t, g.WriteKey("a"))
		require.Panics(t, func() { _ = g.WriteKey("b") })
	})

	t.Run("end without start", func(t *testing.T) {
		var sb strings.Builder
		g := newGenerator(&sb, false)
		require.Panics(t, func() { _ = g.WriteEnd() })
	})

	t.Run("end with value pending", func(t *testing.T) {
		var sb strings.Builder
		g := newGenerator(&sb, false)
		require.NoError(t, g.WriteStartObject())
		require.NoError(t, g.WriteKey("a"))
		require.Panics(t, func() { _ = g.WriteEnd() })
	})
}

func TestTextGenerator_CloseWithOpenContainers(t *testing.T) {
	var sb strings.Builder
	g := newGenerator(&sb, false)
	require.NoError(t, g.WriteStartObject())
	require.Error(t, g.Close())
}
