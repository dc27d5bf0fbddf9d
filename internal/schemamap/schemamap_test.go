package schemamap

import (
	"testing"

	"github.com/icarus-mcp/icarus-bridge/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func positionalTool() ToolDescriptor {
	return ToolDescriptor{
		Tool: Tool{Name: "get_forecast"},
		Style: StylePositional,
		Params: []ParamSpec{
			{Name: "lat", Type: "int64"},
			{Name: "lon", Type: "int64"},
		},
	}
}

func TestEncode_Positional(t *testing.T) {
	vals, err := Encode(positionalTool(), []byte(`{"lat": 37, "lon": -122}`))
	require.NoError(t, err)
	require.Len(t, vals, 2)
	assert.Equal(t, wire.Int64Value(37), vals[0])
	assert.Equal(t, wire.Int64Value(-122), vals[1])
}

func TestEncode_Positional_MissingArgument(t *testing.T) {
	_, err := Encode(positionalTool(), []byte(`{"lat": 37}`))
	assert.Error(t, err)
}

func TestEncode_Record(t *testing.T) {
	tool := ToolDescriptor{Tool: Tool{Name: "set_note"}, Style: StyleRecord}
	vals, err := Encode(tool, []byte(`{"title": "hi", "pinned": true}`))
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, wire.KindRecord, vals[0].Kind)
	assert.Equal(t, wire.TextValue("hi"), vals[0].Record["title"])
	assert.Equal(t, wire.BoolValue(true), vals[0].Record["pinned"])
}

func TestEncode_Empty(t *testing.T) {
	tool := ToolDescriptor{Tool: Tool{Name: "ping"}, Style: StyleEmpty}
	vals, err := Encode(tool, nil)
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestEncode_FallbackLadder_AllTextThenScalar(t *testing.T) {
	unresolved := ToolDescriptor{Tool: Tool{Name: "legacy_tool"}}

	vals, err := Encode(unresolved, []byte(`{"a": "x", "b": "y"}`))
	require.NoError(t, err)
	require.Len(t, vals, 2)
	assert.Equal(t, wire.TextValue("x"), vals[0])
	assert.Equal(t, wire.TextValue("y"), vals[1])

	vals, err = Encode(unresolved, []byte(`"bare string"`))
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, wire.TextValue("bare string"), vals[0])
}

func TestResolveStyle_PositionalParams(t *testing.T) {
	schema := []byte(`{"type":"object","x-icarus-params":[{"name":"id","type":"nat64"}]}`)
	style, params, err := ResolveStyle(Tool{Name: "get_item", InputSchema: schema})
	require.NoError(t, err)
	assert.Equal(t, StylePositional, style)
	require.Len(t, params, 1)
	assert.Equal(t, "id", params[0].Name)
}

func TestResolveStyle_EmptySchema(t *testing.T) {
	style, _, err := ResolveStyle(Tool{Name: "ping"})
	require.NoError(t, err)
	assert.Equal(t, StyleEmpty, style)
}

func TestResolveStyle_RecordFromProperties(t *testing.T) {
	schema := []byte(`{"type":"object","properties":{"title":{"type":"string"}}}`)
	style, params, err := ResolveStyle(Tool{Name: "set_note", InputSchema: schema})
	require.NoError(t, err)
	assert.Equal(t, StyleRecord, style)
	assert.Nil(t, params)
}

func TestParseCanisterMetadata(t *testing.T) {
	data := []byte(`{"tools":[{"name":"ping","inputSchema":null},{"name":"set_note","inputSchema":{"type":"object","properties":{"title":{"type":"string"}}}}]}`)
	meta, err := ParseCanisterMetadata(data)
	require.NoError(t, err)
	require.Len(t, meta.Tools, 2)
	assert.Equal(t, StyleEmpty, meta.Tools[0].Style)
	assert.Equal(t, StyleRecord, meta.Tools[1].Style)
}
