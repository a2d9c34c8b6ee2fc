package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/nodewire/pkg/buildinfo"
	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/editor"
	"github.com/matzehuels/nodewire/pkg/errors"
	"github.com/matzehuels/nodewire/pkg/geometry"
	"github.com/matzehuels/nodewire/pkg/pipeline"
	"github.com/matzehuels/nodewire/pkg/projection"
	"github.com/matzehuels/nodewire/pkg/render/sink"
)

var startTime = time.Now()

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
	Uptime     string `json:"uptime"`
	Workspaces int    `json:"workspaces"`
	GoVersion  string `json:"go_version"`
}

// WorkspaceResponse summarizes a workspace.
type WorkspaceResponse struct {
	ID           string    `json:"id"`
	ActiveModule string    `json:"active_module"`
	Modules      []string  `json:"modules"`
	Nodes        int       `json:"nodes"`
	Mode         string    `json:"mode"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NodeResponse is the JSON form of a node.
type NodeResponse struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Module  string          `json:"module"`
	X       float64         `json:"x"`
	Y       float64         `json:"y"`
	Data    json.RawMessage `json:"data,omitempty"`
	Inputs  []string        `json:"inputs"`
	Outputs []string        `json:"outputs"`
}

// ConnectionResponse is the JSON form of a wire.
type ConnectionResponse struct {
	document.ConnectionKey
	Waypoints []PointJSON `json:"waypoints"`
}

// PointJSON is a point on the canvas.
type PointJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AddNodeRequest is the body of POST /nodes.
type AddNodeRequest struct {
	Name    string          `json:"name"`
	Module  string          `json:"module,omitempty"`
	Inputs  int             `json:"inputs"`
	Outputs int             `json:"outputs"`
	X       float64         `json:"x"`
	Y       float64         `json:"y"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// WaypointRequest is the body of POST /waypoints.
type WaypointRequest struct {
	Connection document.ConnectionKey `json:"connection"`
	X          float64                `json:"x"`
	Y          float64                `json:"y"`
	Index      int                    `json:"index"`
}

type moduleRequest struct {
	Name string `json:"name"`
}

type portRequest struct {
	Direction string `json:"direction"`
}

// =============================================================================
// Service
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Uptime:     time.Since(startTime).Round(time.Second).String(),
		Workspaces: s.store.Len(),
		GoVersion:  runtime.Version(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

// =============================================================================
// Workspaces
// =============================================================================

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var snap document.Snapshot
	if r.ContentLength != 0 {
		if err := decode(r, &snap); err != nil {
			writeError(w, err)
			return
		}
	}
	ws, err := s.store.Create(snap)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Debug("workspace created", "id", ws.ID)
	w.Header().Set("Location", "/workspaces/"+ws.ID)
	s.respondWorkspace(w, http.StatusCreated, ws)
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	s.respondWorkspace(w, http.StatusOK, ws)
}

func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.Delete(id) {
		writeError(w, errors.New(errors.ErrCodeNotFound, "workspace %s", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondWorkspace(w http.ResponseWriter, status int, ws *Workspace) {
	var resp WorkspaceResponse
	_ = ws.Do(func(ed *editor.Editor) error {
		doc := ed.Document()
		resp = WorkspaceResponse{
			ID:           ws.ID,
			ActiveModule: doc.ActiveModule(),
			Modules:      doc.Modules(),
			Mode:         ed.Mode().String(),
			CreatedAt:    ws.CreatedAt,
			ExpiresAt:    ws.ExpiresAt,
		}
		for _, m := range resp.Modules {
			resp.Nodes += doc.NodeCount(m)
		}
		return nil
	})
	writeJSON(w, status, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	var snap document.Snapshot
	_ = ws.Do(func(ed *editor.Editor) error {
		snap = ed.Export()
		return nil
	})
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	var snap document.Snapshot
	if err := decode(r, &snap); err != nil {
		writeError(w, err)
		return
	}
	err := ws.Do(func(ed *editor.Editor) error {
		return ed.Import(snap, true)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.respondWorkspace(w, http.StatusOK, ws)
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	var body []byte
	err := ws.Do(func(ed *editor.Editor) error {
		scene := ed.Scene()
		// other modules are projected read-only, without the active selection
		if m := r.URL.Query().Get("module"); m != "" && m != scene.Module {
			if !ed.Document().HasModule(m) {
				return errors.New(errors.ErrCodeModuleNotFound, "module %q", m)
			}
			scene = ed.Projector().Scene(projection.View{Module: m})
		}
		var err error
		body, err = sink.RenderJSON(scene)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

var contentTypes = map[string]string{
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatPNG:  "image/png",
	pipeline.FormatPDF:  "application/pdf",
	pipeline.FormatJSON: "application/json",
	pipeline.FormatDOT:  "text/vnd.graphviz",
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	opts, err := renderOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	opts.Metrics = s.store.metrics
	opts.Curvature = s.store.cfg.Curvature

	var snap document.Snapshot
	_ = ws.Do(func(ed *editor.Editor) error {
		snap = ed.Export()
		if opts.Module == "" {
			opts.Module = ed.Document().ActiveModule()
		}
		return nil
	})

	result, err := s.runner.Execute(r.Context(), snap, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	format := opts.Formats[0]
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("X-Snapshot-Hash", result.SnapshotHash)
	w.Header().Set("X-Cache", strconv.FormatBool(result.CacheInfo.RenderHit))
	_, _ = w.Write(result.Artifacts[format])
}

func renderOptions(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Module:       q.Get("module"),
		VizType:      q.Get("viz"),
		Style:        q.Get("style"),
		Refresh:      queryBool(q.Get("refresh")),
		SegmentPaths: queryBool(q.Get("segments")),
		Waypoints:    queryBool(q.Get("waypoints")),
		Detailed:     queryBool(q.Get("detailed")),
		Pinned:       queryBool(q.Get("pinned")),
	}
	format := q.Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	opts.Formats = []string{strings.ToLower(format)}
	if v := q.Get("scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid scale %q", v)
		}
		opts.Scale = scale
	}
	return opts, nil
}

func queryBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

// =============================================================================
// Modules
// =============================================================================

func (s *Server) handleListModules(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	var modules []string
	_ = ws.Do(func(ed *editor.Editor) error {
		modules = ed.Document().Modules()
		return nil
	})
	writeJSON(w, http.StatusOK, modules)
}

func (s *Server) handleAddModule(w http.ResponseWriter, r *http.Request) {
	var req moduleRequest
	s.mutate(w, r, &req, http.StatusCreated, func(ed *editor.Editor) (any, error) {
		if err := ed.AddModule(req.Name); err != nil {
			return nil, err
		}
		return ed.Document().Modules(), nil
	})
}

func (s *Server) handleSwitchModule(w http.ResponseWriter, r *http.Request) {
	var req moduleRequest
	s.mutate(w, r, &req, http.StatusOK, func(ed *editor.Editor) (any, error) {
		if err := ed.SwitchModule(req.Name); err != nil {
			return nil, err
		}
		return moduleRequest{Name: ed.Document().ActiveModule()}, nil
	})
}

func (s *Server) handleRemoveModule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mutate(w, r, nil, http.StatusOK, func(ed *editor.Editor) (any, error) {
		if err := ed.RemoveModule(name); err != nil {
			return nil, err
		}
		return ed.Document().Modules(), nil
	})
}

// =============================================================================
// Nodes
// =============================================================================

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	var nodes []NodeResponse
	err := ws.Do(func(ed *editor.Editor) error {
		doc := ed.Document()
		module := r.URL.Query().Get("module")
		if module == "" {
			module = doc.ActiveModule()
		}
		if !doc.HasModule(module) {
			return errors.New(errors.ErrCodeModuleNotFound, "module %q", module)
		}
		for _, n := range doc.Nodes(module) {
			nodes = append(nodes, nodeResponse(n, module))
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if nodes == nil {
		nodes = []NodeResponse{}
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req AddNodeRequest
	s.mutate(w, r, &req, http.StatusCreated, func(ed *editor.Editor) (any, error) {
		if req.Name == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "node name is required")
		}
		if req.Module != "" && req.Module != ed.Document().ActiveModule() {
			if err := ed.SwitchModule(req.Module); err != nil {
				return nil, err
			}
		}
		var data any
		if len(req.Data) > 0 {
			data = req.Data
		}
		id, err := ed.AddNode(req.Name, req.Inputs, req.Outputs, req.X, req.Y, data, nil)
		if err != nil {
			return nil, err
		}
		return lookupNode(ed, id)
	})
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "node")
	s.query(w, r, func(ed *editor.Editor) (any, error) {
		return lookupNode(ed, id)
	})
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "node")
	s.mutate(w, r, nil, http.StatusNoContent, func(ed *editor.Editor) (any, error) {
		return nil, ed.RemoveNode(id)
	})
}

func (s *Server) handleMoveNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "node")
	var req PointJSON
	s.mutate(w, r, &req, http.StatusOK, func(ed *editor.Editor) (any, error) {
		if err := ed.MoveNode(id, req.X, req.Y); err != nil {
			return nil, err
		}
		return lookupNode(ed, id)
	})
}

func (s *Server) handleUpdateNodeData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "node")
	var req json.RawMessage
	s.mutate(w, r, &req, http.StatusOK, func(ed *editor.Editor) (any, error) {
		if err := ed.UpdateNodeData(id, req); err != nil {
			return nil, err
		}
		return lookupNode(ed, id)
	})
}

func (s *Server) handleAddPort(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "node")
	var req portRequest
	s.mutate(w, r, &req, http.StatusCreated, func(ed *editor.Editor) (any, error) {
		dir, ok := document.ParseDirection(req.Direction)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid direction %q", req.Direction)
		}
		if _, err := ed.AddPort(id, dir); err != nil {
			return nil, err
		}
		return lookupNode(ed, id)
	})
}

func (s *Server) handleRemovePort(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "node")
	direction := chi.URLParam(r, "direction")
	port := chi.URLParam(r, "port")
	s.mutate(w, r, nil, http.StatusOK, func(ed *editor.Editor) (any, error) {
		dir, ok := document.ParseDirection(direction)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid direction %q", direction)
		}
		if err := ed.RemovePort(id, dir, port); err != nil {
			return nil, err
		}
		return lookupNode(ed, id)
	})
}

func lookupNode(ed *editor.Editor, id string) (NodeResponse, error) {
	n, ok := ed.Node(id)
	if !ok {
		return NodeResponse{}, errors.New(errors.ErrCodeNodeNotFound, "node %s", id)
	}
	module, _ := ed.ModuleOf(id)
	return nodeResponse(n, module), nil
}

func nodeResponse(n document.Node, module string) NodeResponse {
	resp := NodeResponse{
		ID:      n.ID,
		Name:    n.Name,
		Module:  module,
		X:       n.X,
		Y:       n.Y,
		Data:    n.Data,
		Inputs:  make([]string, 0, len(n.Inputs)),
		Outputs: make([]string, 0, len(n.Outputs)),
	}
	for _, p := range n.Inputs {
		resp.Inputs = append(resp.Inputs, p.ID)
	}
	for _, p := range n.Outputs {
		resp.Outputs = append(resp.Outputs, p.ID)
	}
	return resp
}

// =============================================================================
// Connections
// =============================================================================

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(ed *editor.Editor) (any, error) {
		doc := ed.Document()
		module := r.URL.Query().Get("module")
		if module == "" {
			module = doc.ActiveModule()
		}
		if !doc.HasModule(module) {
			return nil, errors.New(errors.ErrCodeModuleNotFound, "module %q", module)
		}
		conns := doc.Connections(module)
		out := make([]ConnectionResponse, 0, len(conns))
		for _, c := range conns {
			out = append(out, ConnectionResponse{ConnectionKey: c.Key, Waypoints: points(c.Points)})
		}
		return out, nil
	})
}

func (s *Server) handleAddConnection(w http.ResponseWriter, r *http.Request) {
	var key document.ConnectionKey
	s.mutate(w, r, &key, http.StatusOK, func(ed *editor.Editor) (any, error) {
		added, err := ed.AddConnection(key)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"added": added}, nil
	})
}

func (s *Server) handleRemoveConnection(w http.ResponseWriter, r *http.Request) {
	key := connectionKey(r)
	s.mutate(w, r, nil, http.StatusNoContent, func(ed *editor.Editor) (any, error) {
		return nil, ed.RemoveConnection(key)
	})
}

func (s *Server) handleAddWaypoint(w http.ResponseWriter, r *http.Request) {
	var req WaypointRequest
	s.mutate(w, r, &req, http.StatusOK, func(ed *editor.Editor) (any, error) {
		at := geometry.Point{X: req.X, Y: req.Y}
		if err := ed.AddWaypoint(req.Connection, at, req.Index); err != nil {
			return nil, err
		}
		pts, err := ed.Document().Waypoints(req.Connection)
		if err != nil {
			return nil, err
		}
		return points(pts), nil
	})
}

func (s *Server) handleRemoveWaypoint(w http.ResponseWriter, r *http.Request) {
	key := connectionKey(r)
	raw := r.URL.Query().Get("index")
	s.mutate(w, r, nil, http.StatusOK, func(ed *editor.Editor) (any, error) {
		index, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid waypoint index %q", raw)
		}
		if err := ed.RemoveWaypoint(key, index); err != nil {
			return nil, err
		}
		pts, err := ed.Document().Waypoints(key)
		if err != nil {
			return nil, err
		}
		return points(pts), nil
	})
}

func connectionKey(r *http.Request) document.ConnectionKey {
	q := r.URL.Query()
	return document.ConnectionKey{
		OutputNode: q.Get("outputNode"),
		OutputPort: q.Get("outputPort"),
		InputNode:  q.Get("inputNode"),
		InputPort:  q.Get("inputPort"),
	}
}

func points(pts []geometry.Point) []PointJSON {
	out := make([]PointJSON, len(pts))
	for i, p := range pts {
		out[i] = PointJSON{X: p.X, Y: p.Y}
	}
	return out
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) workspace(w http.ResponseWriter, r *http.Request) (*Workspace, bool) {
	ws, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return ws, true
}

// query runs a read-only fn on the request's workspace and writes its result.
func (s *Server) query(w http.ResponseWriter, r *http.Request, fn func(*editor.Editor) (any, error)) {
	s.mutate(w, r, nil, http.StatusOK, fn)
}

// mutate decodes the body into req (when non-nil), runs fn on the request's
// workspace and writes its result with status.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, req any, status int, fn func(*editor.Editor) (any, error)) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	if req != nil {
		if err := decode(r, req); err != nil {
			writeError(w, err)
			return
		}
	}
	var out any
	err := ws.Do(func(ed *editor.Editor) error {
		var err error
		out, err = fn(ed)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, out)
}
