package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.lsp.dev/jsonrpc2"
)

// AuthHeader carries the session token on the WebSocket handshake.
const AuthHeader = "x-claude-code-ide-authorization"

// Close frame sent to peers that fail authentication.
const (
	CloseInvalidAuth  = 1008 // policy violation
	ReasonInvalidAuth = "Invalid auth token"
)

// Client → Server methods.
const (
	MethodGetCurrentSelection = "getCurrentSelection"
	MethodGetLatestSelection  = "getLatestSelection"
	MethodGetWorkspaceFolders = "getWorkspaceFolders"
	MethodGetOpenEditors      = "getOpenEditors"
)

// Server → Client notifications.
const (
	MethodSelectionChanged = "selection_changed"
)

const jsonrpcVersion = "2.0"

// ContentTypeText is the only content block type produced today.
const ContentTypeText = "text"

// ContentResult is the envelope every method result is wrapped in.
type ContentResult struct {
	Content []ContentBlock `json:"content"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Method payloads, JSON-encoded into a text block.

type SelectionPayload struct {
	FilePath *string `json:"filePath"` // null until a file is active
	Text     string  `json:"text"`
}

type WorkspaceFoldersPayload struct {
	WorkspaceFolders []string `json:"workspaceFolders"`
}

type OpenEditorsPayload struct {
	Editors []Editor `json:"editors"`
}

type Editor struct {
	FilePath string `json:"filePath"`
	IsActive bool   `json:"isActive"`
}

// Notification params.

type SelectionChangedParams struct {
	FilePath  string    `json:"filePath"`
	FileURL   string    `json:"fileUrl"`
	Text      string    `json:"text"`
	Selection Selection `json:"selection"`
}

type Selection struct {
	Start   Position `json:"start"`
	End     Position `json:"end"`
	IsEmpty bool     `json:"isEmpty"`
}

type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// EmptySelection is the degenerate range reported with every selection_changed
// notification; only the active file is tracked, not the cursor.
var EmptySelection = Selection{IsEmpty: true}

// FileURL returns the file:// URL reported alongside a path.
func FileURL(path string) string {
	return "file://" + path
}

// TextResult encodes payload as JSON and wraps it in a single text block.
// HTML characters are left unescaped.
func TextResult(payload interface{}) (*ContentResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &ContentResult{
		Content: []ContentBlock{{
			Type: ContentTypeText,
			Text: string(bytes.TrimRight(buf.Bytes(), "\n")),
		}},
	}, nil
}

// response is a reply frame. The id is echoed byte for byte from the
// request, so ids outside the ranges jsonrpc2.ID models still round-trip.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *jsonrpc2.Error `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// NewResponse encodes a successful response frame.
func NewResponse(id json.RawMessage, result interface{}) ([]byte, error) {
	data, err := json.Marshal(response{JSONRPC: jsonrpcVersion, Result: result, ID: id})
	if err != nil {
		return nil, fmt.Errorf("build response: %w", err)
	}
	return data, nil
}

// NewErrorResponse encodes an error response frame.
func NewErrorResponse(id json.RawMessage, rpcErr *jsonrpc2.Error) ([]byte, error) {
	data, err := json.Marshal(response{JSONRPC: jsonrpcVersion, Error: rpcErr, ID: id})
	if err != nil {
		return nil, fmt.Errorf("build error response: %w", err)
	}
	return data, nil
}

// NewNotification encodes a server-originated notification frame.
func NewNotification(method string, params interface{}) ([]byte, error) {
	n, err := jsonrpc2.NewNotification(method, params)
	if err != nil {
		return nil, fmt.Errorf("build notification: %w", err)
	}
	return json.Marshal(n)
}

// NewSelectionChanged encodes the selection_changed notification for a file.
func NewSelectionChanged(path, text string) ([]byte, error) {
	return NewNotification(MethodSelectionChanged, SelectionChangedParams{
		FilePath:  path,
		FileURL:   FileURL(path),
		Text:      text,
		Selection: EmptySelection,
	})
}

// MethodNotFound builds the error returned for unknown methods.
func MethodNotFound(method string) *jsonrpc2.Error {
	return jsonrpc2.Errorf(jsonrpc2.MethodNotFound, "Method not found: %s", method)
}
