package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.lsp.dev/jsonrpc2"
)

// ErrMalformedFrame is returned for frames that are not a JSON-RPC request.
var ErrMalformedFrame = errors.New("malformed frame")

// Request is one inbound request frame. ID holds the id exactly as it is
// echoed back and is nil for notifications.
type Request struct {
	Method string
	ID     json.RawMessage
}

// IsCall reports whether the request carries an id and expects a reply.
func (r *Request) IsCall() bool {
	return r.ID != nil
}

// DecodeRequest parses a raw text frame from a peer. Frames jsonrpc2 rejects
// only because of their id (numbers outside int32, fractions) are still
// accepted so every id-bearing request gets its reply. The id is kept as
// sent, since jsonrpc2.ID cannot represent every valid id.
func DecodeRequest(raw []byte) (*Request, error) {
	msg, err := jsonrpc2.DecodeMessage(raw)
	if err != nil {
		req, lenientErr := decodeLenient(raw)
		if lenientErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return req, nil
	}

	switch m := msg.(type) {
	case *jsonrpc2.Call:
		id, err := rawID(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return &Request{Method: m.Method(), ID: id}, nil
	case *jsonrpc2.Notification:
		return &Request{Method: m.Method()}, nil
	default:
		return nil, fmt.Errorf("%w: not a request", ErrMalformedFrame)
	}
}

type wireRequest struct {
	Version *string         `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      json.RawMessage `json:"id"`
}

func decodeLenient(raw []byte) (*Request, error) {
	var w wireRequest
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	if w.Version != nil && *w.Version != "2.0" {
		return nil, fmt.Errorf("unsupported version %q", *w.Version)
	}
	if w.Method == "" {
		return nil, errors.New("missing method")
	}
	if !validID(w.ID) {
		return nil, fmt.Errorf("invalid id %s", w.ID)
	}
	return &Request{Method: w.Method, ID: w.ID}, nil
}

func rawID(raw []byte) (json.RawMessage, error) {
	var w wireRequest
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	if !validID(w.ID) {
		return nil, fmt.Errorf("invalid id %s", w.ID)
	}
	return w.ID, nil
}

// validID accepts JSON numbers and strings.
func validID(id json.RawMessage) bool {
	if len(id) == 0 {
		return false
	}
	switch c := id[0]; {
	case c == '"', c == '-':
		return true
	default:
		return c >= '0' && c <= '9'
	}
}
