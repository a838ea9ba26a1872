package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"tessera/internal/events"
	"tessera/internal/layout"
	"tessera/internal/server"
	"tessera/internal/tree"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// CommandRequest is the body of POST /api/command.
type CommandRequest struct {
	Command string `json:"command"`
}

// OutputRequest is the body of POST /api/outputs and PUT /api/outputs/{name}.
type OutputRequest struct {
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (o OutputRequest) box() layout.Box {
	return layout.Box{X: o.X, Y: o.Y, Width: o.Width, Height: o.Height}
}

// WorkspaceInfo is one entry of GET /api/workspaces.
type WorkspaceInfo struct {
	ID      uint64      `json:"id"`
	Name    string      `json:"name"`
	Output  string      `json:"output"`
	Focused bool        `json:"focused"`
	Visible bool        `json:"visible"`
	Urgent  bool        `json:"urgent"`
	Rect    events.Rect `json:"rect"`
	Windows int         `json:"windows"`
}

// OutputInfo is one entry of GET /api/outputs.
type OutputInfo struct {
	ID               uint64      `json:"id"`
	Name             string      `json:"name"`
	Rect             events.Rect `json:"rect"`
	CurrentWorkspace string      `json:"current_workspace,omitempty"`
	Workspaces       []string    `json:"workspaces"`
}

// ClientResponse is returned by POST /api/clients.
type ClientResponse struct {
	ID uint64 `json:"id"`
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps a backend error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tree.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, server.ErrOutputExists):
		return http.StatusConflict
	case errors.Is(err, server.ErrUnknownInput):
		return http.StatusBadRequest
	case errors.Is(err, server.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	node, err := s.backend.Tree(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// workspaces flattens the workspace entries out of a described tree.
func workspaces(root events.TreeNode) []WorkspaceInfo {
	out := []WorkspaceInfo{}
	for _, o := range root.Nodes {
		if o.Type != "output" {
			continue
		}
		for _, ws := range o.Nodes {
			if ws.Type != "workspace" {
				continue
			}
			info := WorkspaceInfo{
				ID:      ws.ID,
				Name:    ws.Name,
				Output:  o.Name,
				Visible: ws.Active,
				Urgent:  ws.Urgent,
				Rect:    ws.Rect,
			}
			ws.Walk(func(n events.TreeNode, _ int) {
				if n.Type == "window" {
					info.Windows++
				}
				if n.Focused {
					info.Focused = true
				}
			})
			out = append(out, info)
		}
	}
	return out
}

// outputs lists the outputs of a described tree.
func outputs(root events.TreeNode) []OutputInfo {
	out := []OutputInfo{}
	for _, o := range root.Nodes {
		if o.Type != "output" {
			continue
		}
		info := OutputInfo{ID: o.ID, Name: o.Name, Rect: o.Rect, Workspaces: []string{}}
		for _, ws := range o.Nodes {
			if ws.Type != "workspace" {
				continue
			}
			info.Workspaces = append(info.Workspaces, ws.Name)
			if ws.Active {
				info.CurrentWorkspace = ws.Name
			}
		}
		out = append(out, info)
	}
	return out
}

func (s *Server) handleWorkspaces(w http.ResponseWriter, r *http.Request) {
	node, err := s.backend.Tree(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workspaces(node))
}

func (s *Server) handleOutputs(w http.ResponseWriter, r *http.Request) {
	node, err := s.backend.Tree(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outputs(node))
}

func (s *Server) handleAddOutput(w http.ResponseWriter, r *http.Request) {
	var req OutputRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.box().Empty() {
		writeError(w, http.StatusBadRequest, "width and height must be positive")
		return
	}
	if err := s.backend.AddOutput(r.Context(), req.Name, req.box()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) handleResizeOutput(w http.ResponseWriter, r *http.Request) {
	var req OutputRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = r.PathValue("name")
	if req.box().Empty() {
		writeError(w, http.StatusBadRequest, "width and height must be positive")
		return
	}
	if err := s.backend.ResizeOutput(r.Context(), req.Name, req.box()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleRemoveOutput(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.RemoveOutput(r.Context(), r.PathValue("name")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.backend.Stats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDecorations(w http.ResponseWriter, r *http.Request) {
	decos, err := s.backend.Decorations(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decos)
}

// handleCommand runs a command line. The response is 200 even when
// individual commands fail; each result carries its own status.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if !decodeBody(w, r, &req) {
		return
	}
	results, err := s.backend.Execute(r.Context(), req.Command)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if results == nil {
		results = []events.CommandResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleOpenClient(w http.ResponseWriter, r *http.Request) {
	var spec server.ClientSpec
	if !decodeBody(w, r, &spec) {
		return
	}
	if spec.AppID == "" {
		writeError(w, http.StatusBadRequest, "app_id is required")
		return
	}
	id, err := s.backend.OpenClient(r.Context(), spec)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ClientResponse{ID: uint64(id)})
}

func (s *Server) handleCloseClient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	if err := s.backend.CloseClient(r.Context(), tree.WindowID(id)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var ev server.Input
	if !decodeBody(w, r, &ev) {
		return
	}
	if err := s.backend.Input(r.Context(), ev); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
