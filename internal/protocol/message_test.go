package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextResult(t *testing.T) {
	res, err := TextResult(WorkspaceFoldersPayload{WorkspaceFolders: []string{"/ws"}})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	assert.Equal(t, ContentTypeText, res.Content[0].Type)
	assert.Equal(t, `{"workspaceFolders":["/ws"]}`, res.Content[0].Text)
}

func TestTextResult_NullFilePath(t *testing.T) {
	res, err := TextResult(SelectionPayload{})
	require.NoError(t, err)
	assert.Equal(t, `{"filePath":null,"text":""}`, res.Content[0].Text)
}

func TestTextResult_NoHTMLEscaping(t *testing.T) {
	path := "/ws/a&b.md"
	res, err := TextResult(SelectionPayload{FilePath: &path, Text: "<h1>"})
	require.NoError(t, err)
	assert.Equal(t, `{"filePath":"/ws/a&b.md","text":"<h1>"}`, res.Content[0].Text)
}

func TestNewResponse(t *testing.T) {
	res, err := TextResult(WorkspaceFoldersPayload{WorkspaceFolders: []string{"/ws"}})
	require.NoError(t, err)

	data, err := NewResponse(json.RawMessage(`1`), res)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"{\"workspaceFolders\":[\"/ws\"]}"}]}}`,
		string(data))
}

func TestNewResponse_StringID(t *testing.T) {
	data, err := NewResponse(json.RawMessage(`"req-7"`), &ContentResult{Content: []ContentBlock{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"req-7","result":{"content":[]}}`, string(data))
}

func TestNewResponse_EchoesIDVerbatim(t *testing.T) {
	for _, id := range []string{`3000000000`, `1.5`, `0`, `""`} {
		data, err := NewResponse(json.RawMessage(id), &ContentResult{Content: []ContentBlock{}})
		require.NoError(t, err)
		assert.JSONEq(t, `{"jsonrpc":"2.0","id":`+id+`,"result":{"content":[]}}`, string(data))
		assert.Contains(t, string(data), `"id":`+id)
	}
}

func TestNewErrorResponse(t *testing.T) {
	data, err := NewErrorResponse(json.RawMessage(`2`), MethodNotFound("foo"))
	require.NoError(t, err)

	var resp struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      int             `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.Equal(t, 2, resp.ID)
	assert.Nil(t, resp.Result)
	assert.Equal(t, -32601, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "foo")
}

func TestNewSelectionChanged(t *testing.T) {
	data, err := NewSelectionChanged("/ws/notes.md", "# hi")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"jsonrpc": "2.0",
		"method": "selection_changed",
		"params": {
			"filePath": "/ws/notes.md",
			"fileUrl": "file:///ws/notes.md",
			"text": "# hi",
			"selection": {
				"start": {"line": 0, "character": 0},
				"end": {"line": 0, "character": 0},
				"isEmpty": true
			}
		}
	}`, string(data))
	assert.NotContains(t, string(data), `"id"`)
}

func TestOpenEditorsPayload_EmptyIsArray(t *testing.T) {
	res, err := TextResult(OpenEditorsPayload{Editors: []Editor{}})
	require.NoError(t, err)
	assert.Equal(t, `{"editors":[]}`, res.Content[0].Text)
}
