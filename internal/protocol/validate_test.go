package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest_Call(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"jsonrpc":"2.0","method":"getWorkspaceFolders","id":1}`))
	require.NoError(t, err)

	require.True(t, req.IsCall())
	assert.Equal(t, MethodGetWorkspaceFolders, req.Method)
	assert.Equal(t, json.RawMessage(`1`), req.ID)
}

func TestDecodeRequest_IDs(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"zero", `0`},
		{"negative", `-4`},
		{"string", `"abc"`},
		{"empty string", `""`},
		{"beyond int32", `3000000000`},
		{"fraction", `1.5`},
		{"exponent", `1e3`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest([]byte(`{"jsonrpc":"2.0","method":"getOpenEditors","id":` + tt.id + `}`))
			require.NoError(t, err)
			require.True(t, req.IsCall())
			assert.Equal(t, MethodGetOpenEditors, req.Method)
			assert.Equal(t, tt.id, string(req.ID))
		})
	}
}

func TestDecodeRequest_Notification(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"jsonrpc":"2.0","method":"foo","params":{"x":1}}`))
	require.NoError(t, err)

	assert.False(t, req.IsCall())
	assert.Nil(t, req.ID)
	assert.Equal(t, "foo", req.Method)
}

func TestDecodeRequest_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "not json"},
		{"truncated", `{"jsonrpc":"2.0","method":`},
		{"empty object", `{}`},
		{"response frame", `{"jsonrpc":"2.0","id":1,"result":{}}`},
		{"response frame with large id", `{"jsonrpc":"2.0","id":3000000000,"result":{}}`},
		{"wrong version", `{"jsonrpc":"1.0","method":"foo","id":1}`},
		{"wrong version with large id", `{"jsonrpc":"1.0","method":"foo","id":3000000000}`},
		{"boolean id", `{"jsonrpc":"2.0","method":"foo","id":true}`},
		{"object id", `{"jsonrpc":"2.0","method":"foo","id":{"n":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrMalformedFrame)
		})
	}
}
