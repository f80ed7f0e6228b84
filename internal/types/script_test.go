package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNormalizedContent(t *testing.T) {
	data := []byte(`[
		{"line_id": "1", "type": "scene_header", "text": "INT. HOUSE - DAY"},
		"stray string",
		42,
		{"type": "dialogue", "text": "Alice: hi", "speaker_hint": "alice"},
		null
	]`)

	rows, err := ParseNormalizedContent(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "1", rows[0].LineID)
	assert.Equal(t, RowSceneHeader, rows[0].Type)
	assert.Equal(t, "INT. HOUSE - DAY", rows[0].Text)
	assert.Equal(t, RowDialogue, rows[1].Type)
	assert.Empty(t, rows[1].LineID)
}

func TestParseNormalizedContent_Empty(t *testing.T) {
	rows, err := ParseNormalizedContent([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseNormalizedContent_NotAList(t *testing.T) {
	for _, input := range []string{`{"rows": []}`, `null`, `"text"`, `not json`} {
		_, err := ParseNormalizedContent([]byte(input))
		assert.Error(t, err, "input %s", input)
	}
}

func TestNormalizedRow_PreservesExtraKeys(t *testing.T) {
	original := `{"line_id":"7","type":"dialogue","text":"Bob：走吧","speaker_hint":"bob","page":3}`

	var row NormalizedRow
	require.NoError(t, json.Unmarshal([]byte(original), &row))

	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, original, string(out))
}

func TestNormalizedRow_MarshalConstructed(t *testing.T) {
	row := NormalizedRow{Type: RowAction, Text: "Door opens."}
	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"action","text":"Door opens."}`, string(out))
}

func TestNormalizedRow_NonStringFields(t *testing.T) {
	var row NormalizedRow
	require.NoError(t, json.Unmarshal([]byte(`{"line_id": 12, "type": "dialogue", "text": null}`), &row))
	assert.Equal(t, "12", row.LineID)
	assert.Equal(t, "", row.Text)
}

func TestChunk_MarshalsAsArray(t *testing.T) {
	rows, err := ParseNormalizedContent([]byte(`[{"type":"action","text":"a","x":1}]`))
	require.NoError(t, err)

	out, err := json.Marshal(Chunk(rows))
	require.NoError(t, err)
	assert.Equal(t, `[{"type":"action","text":"a","x":1}]`, string(out))
}
