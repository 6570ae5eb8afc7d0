package realtime

import (
	"encoding/json"

	"marker-ide/internal/protocol"

	"go.lsp.dev/jsonrpc2"
)

// handlerFunc produces the result of one method.
type handlerFunc func() (*protocol.ContentResult, error)

// routes binds method names to handlers. No separate "latest" selection is
// tracked, so both selection methods answer from the active file.
func (s *Server) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		protocol.MethodGetCurrentSelection: s.currentSelection,
		protocol.MethodGetLatestSelection:  s.currentSelection,
		protocol.MethodGetWorkspaceFolders: s.workspaceFolders,
		protocol.MethodGetOpenEditors:      s.openEditors,
	}
}

// handleFrame routes one inbound text frame. Calls get exactly one reply;
// notifications never do.
func (s *Server) handleFrame(p *peer, raw []byte) {
	req, err := protocol.DecodeRequest(raw)
	if err != nil {
		s.metrics.framesMalformed.Inc(1)
		s.logger.Warnw("dropping malformed frame", "peer", p.id, "error", err)
		return
	}

	method := req.Method
	handler, known := s.handlers[method]

	if !req.IsCall() {
		if !known {
			s.logger.Debugw("ignoring notification for unknown method", "peer", p.id, "method", method)
			return
		}
		if _, err := handler(); err != nil {
			s.logger.Warnw("notification handler failed", "peer", p.id, "method", method, "error", err)
		}
		return
	}

	s.logger.Debugw("call received", "peer", p.id, "method", method, "id", string(req.ID))

	if !known {
		s.metrics.methodNotFound.Inc(1)
		s.replyError(p, req.ID, protocol.MethodNotFound(method))
		return
	}

	result, err := handler()
	if err != nil {
		s.logger.Errorw("method failed", "peer", p.id, "method", method, "error", err)
		s.replyError(p, req.ID, jsonrpc2.NewError(jsonrpc2.InternalError, err.Error()))
		return
	}
	s.reply(p, req.ID, result)
}

func (s *Server) reply(p *peer, id json.RawMessage, result *protocol.ContentResult) {
	data, err := protocol.NewResponse(id, result)
	if err != nil {
		s.logger.Errorw("encoding response failed", "peer", p.id, "error", err)
		return
	}
	s.deliver(p, data)
}

func (s *Server) replyError(p *peer, id json.RawMessage, rpcErr *jsonrpc2.Error) {
	data, err := protocol.NewErrorResponse(id, rpcErr)
	if err != nil {
		s.logger.Errorw("encoding error response failed", "peer", p.id, "error", err)
		return
	}
	s.deliver(p, data)
}

func (s *Server) deliver(p *peer, data []byte) {
	if !p.enqueue(data) {
		s.logger.Warnw("peer send queue full, dropping response", "peer", p.id)
	}
}

func (s *Server) currentSelection() (*protocol.ContentResult, error) {
	f, ok := s.tracker.Current()
	if !ok || f.Path == "" {
		return protocol.TextResult(protocol.SelectionPayload{})
	}
	path := f.Path
	return protocol.TextResult(protocol.SelectionPayload{FilePath: &path, Text: f.Content})
}

func (s *Server) workspaceFolders() (*protocol.ContentResult, error) {
	s.mu.Lock()
	workspace := s.workspace
	s.mu.Unlock()

	folders := []string{}
	if workspace != "" {
		folders = append(folders, workspace)
	}
	return protocol.TextResult(protocol.WorkspaceFoldersPayload{WorkspaceFolders: folders})
}

func (s *Server) openEditors() (*protocol.ContentResult, error) {
	editors := []protocol.Editor{}
	if f, ok := s.tracker.Current(); ok && f.Path != "" {
		editors = append(editors, protocol.Editor{FilePath: f.Path, IsActive: true})
	}
	return protocol.TextResult(protocol.OpenEditorsPayload{Editors: editors})
}

// UpdateActiveFile records the host's active file and pushes a
// selection_changed notification to every peer. With no peers connected
// only the state changes.
func (s *Server) UpdateActiveFile(path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracker.Set(path, content)

	if len(s.peers) == 0 || path == "" {
		return
	}

	data, err := protocol.NewSelectionChanged(path, content)
	if err != nil {
		s.logger.Errorw("encoding selection_changed failed", "path", path, "error", err)
		return
	}

	for _, p := range s.peers {
		if p.enqueue(data) {
			s.metrics.notificationsSent.Inc(1)
			continue
		}
		s.metrics.notificationsDropped.Inc(1)
		s.logger.Warnw("peer send queue full, dropping notification", "peer", p.id)
	}
	s.logger.Debugw("selection_changed sent", "path", path, "peers", len(s.peers))
}
