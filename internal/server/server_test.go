package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/nodewire/pkg/cache"
	"github.com/matzehuels/nodewire/pkg/editor"
	"github.com/matzehuels/nodewire/pkg/errors"
	"github.com/matzehuels/nodewire/pkg/observability"
	"github.com/matzehuels/nodewire/pkg/pipeline"
	"github.com/matzehuels/nodewire/pkg/projection"
)

const fixture = `{"Home":{"data":{
	"n1":{"id":"n1","name":"source","data":{"v":1},"inputs":{},"outputs":{"output_1":{"connections":[{"node":"n2","output":"input_1"}]}},"positionX":0,"positionY":0},
	"n2":{"id":"n2","name":"sink","data":{},"inputs":{"input_1":{"connections":[{"node":"n1","input":"output_1"}]}},"outputs":{},"positionX":300,"positionY":0}
}}}`

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	store := NewStore(editor.DefaultConfig(), projection.DefaultMetrics(), time.Hour)
	t.Cleanup(store.Close)
	return New(store, pipeline.NewRunner(fc, nil, nil), nil, opts)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func createWorkspace(t *testing.T, s *Server, body string) string {
	t.Helper()
	w := do(t, s, http.MethodPost, "/workspaces", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp WorkspaceResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.ID)
	assert.Equal(t, "/workspaces/"+resp.ID, w.Header().Get("Location"))
	return resp.ID
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Options{})

	t.Run("returns 200 OK with JSON", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var resp HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, 0, resp.Workspaces)
		_, err := time.Parse(time.RFC3339, resp.Timestamp)
		assert.NoError(t, err, "Timestamp should be valid RFC3339 format")
	})

	t.Run("rejects POST", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/health", "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("version", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/version", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"version"`)
	})
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, Options{AllowOrigin: "http://localhost:3000"})

	t.Run("preflight returns 204", func(t *testing.T) {
		w := do(t, s, http.MethodOptions, "/workspaces", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("headers on regular requests", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/health", "")
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	})
}

func TestWorkspaceLifecycle(t *testing.T) {
	s := newTestServer(t, Options{})

	t.Run("empty workspace has Home", func(t *testing.T) {
		id := createWorkspace(t, s, "")
		w := do(t, s, http.MethodGet, "/workspaces/"+id, "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp WorkspaceResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "Home", resp.ActiveModule)
		assert.Equal(t, []string{"Home"}, resp.Modules)
		assert.Equal(t, 0, resp.Nodes)
		assert.Equal(t, "edit", resp.Mode)
	})

	t.Run("created from snapshot", func(t *testing.T) {
		id := createWorkspace(t, s, fixture)
		w := do(t, s, http.MethodGet, "/workspaces/"+id, "")
		var resp WorkspaceResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, 2, resp.Nodes)
	})

	t.Run("delete", func(t *testing.T) {
		id := createWorkspace(t, s, "")
		w := do(t, s, http.MethodDelete, "/workspaces/"+id, "")
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = do(t, s, http.MethodGet, "/workspaces/"+id, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)

		w = do(t, s, http.MethodDelete, "/workspaces/"+id, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("corrupt snapshot is 422", func(t *testing.T) {
		bad := `{"Home":{"data":{"a":{"id":"a","name":"a","data":{},"inputs":{},"outputs":{"output_1":{"connections":[{"node":"b","output":"input_1"}]}},"positionX":0,"positionY":0}}}}`
		w := do(t, s, http.MethodPost, "/workspaces", bad)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "CORRUPT_MODEL", decodeError(t, w).Code)
	})

	t.Run("malformed JSON is 400", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/workspaces", "{")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_INPUT", decodeError(t, w).Code)
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestServer(t, Options{})
	id := createWorkspace(t, s, fixture)

	w := do(t, s, http.MethodGet, "/workspaces/"+id+"/snapshot", "")
	require.Equal(t, http.StatusOK, w.Code)
	exported := w.Body.String()
	assert.Contains(t, exported, `"positionX":300`)
	assert.Contains(t, exported, `"output":"input_1"`)

	other := createWorkspace(t, s, "")
	w = do(t, s, http.MethodPut, "/workspaces/"+other+"/snapshot", exported)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp WorkspaceResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Nodes)
}

func TestNodes(t *testing.T) {
	s := newTestServer(t, Options{})
	id := createWorkspace(t, s, fixture)
	base := "/workspaces/" + id

	t.Run("list", func(t *testing.T) {
		w := do(t, s, http.MethodGet, base+"/nodes", "")
		require.Equal(t, http.StatusOK, w.Code)
		var nodes []NodeResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&nodes))
		require.Len(t, nodes, 2)
		assert.Equal(t, "source", nodes[0].Name)
		assert.Equal(t, []string{"output_1"}, nodes[0].Outputs)
		assert.Equal(t, []string{"input_1"}, nodes[1].Inputs)
	})

	t.Run("add", func(t *testing.T) {
		w := do(t, s, http.MethodPost, base+"/nodes", `{"name":"mix","inputs":2,"outputs":1,"x":40,"y":50,"data":{"k":"v"}}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var n NodeResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&n))
		assert.NotEmpty(t, n.ID)
		assert.Equal(t, "Home", n.Module)
		assert.Equal(t, []string{"input_1", "input_2"}, n.Inputs)
		assert.Equal(t, 40.0, n.X)
		assert.JSONEq(t, `{"k":"v"}`, string(n.Data))
	})

	t.Run("add without name", func(t *testing.T) {
		w := do(t, s, http.MethodPost, base+"/nodes", `{"inputs":1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get", func(t *testing.T) {
		w := do(t, s, http.MethodGet, base+"/nodes/n1", "")
		require.Equal(t, http.StatusOK, w.Code)
		var n NodeResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&n))
		assert.JSONEq(t, `{"v":1}`, string(n.Data))

		w = do(t, s, http.MethodGet, base+"/nodes/missing", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NODE_NOT_FOUND", decodeError(t, w).Code)
	})

	t.Run("move", func(t *testing.T) {
		w := do(t, s, http.MethodPut, base+"/nodes/n1/position", `{"x":12.5,"y":-4}`)
		require.Equal(t, http.StatusOK, w.Code)
		var n NodeResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&n))
		assert.Equal(t, 12.5, n.X)
		assert.Equal(t, -4.0, n.Y)
	})

	t.Run("update data", func(t *testing.T) {
		w := do(t, s, http.MethodPut, base+"/nodes/n2/data", `{"label":"out"}`)
		require.Equal(t, http.StatusOK, w.Code)
		var n NodeResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&n))
		assert.JSONEq(t, `{"label":"out"}`, string(n.Data))
	})

	t.Run("ports", func(t *testing.T) {
		w := do(t, s, http.MethodPost, base+"/nodes/n2/ports", `{"direction":"input"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		var n NodeResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&n))
		assert.Equal(t, []string{"input_1", "input_2"}, n.Inputs)

		w = do(t, s, http.MethodDelete, base+"/nodes/n2/ports/input/input_2", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.NewDecoder(w.Body).Decode(&n))
		assert.Equal(t, []string{"input_1"}, n.Inputs)

		w = do(t, s, http.MethodPost, base+"/nodes/n2/ports", `{"direction":"sideways"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("remove drops wires", func(t *testing.T) {
		w := do(t, s, http.MethodDelete, base+"/nodes/n2", "")
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = do(t, s, http.MethodGet, base+"/connections", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})
}

func TestConnections(t *testing.T) {
	s := newTestServer(t, Options{})
	id := createWorkspace(t, s, fixture)
	base := "/workspaces/" + id
	query := "?outputNode=n1&outputPort=output_1&inputNode=n2&inputPort=input_1"

	w := do(t, s, http.MethodGet, base+"/connections", "")
	require.Equal(t, http.StatusOK, w.Code)
	var conns []ConnectionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&conns))
	require.Len(t, conns, 1)
	assert.Equal(t, "n1", conns[0].OutputNode)
	assert.Empty(t, conns[0].Waypoints)

	t.Run("duplicate is not added", func(t *testing.T) {
		w := do(t, s, http.MethodPost, base+"/connections",
			`{"outputNode":"n1","outputPort":"output_1","inputNode":"n2","inputPort":"input_1"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"added":false}`, w.Body.String())
	})

	t.Run("waypoints", func(t *testing.T) {
		body := `{"connection":{"outputNode":"n1","outputPort":"output_1","inputNode":"n2","inputPort":"input_1"},"x":200,"y":90,"index":0}`
		w := do(t, s, http.MethodPost, base+"/waypoints", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `[{"x":200,"y":90}]`, w.Body.String())

		w = do(t, s, http.MethodDelete, base+"/waypoints"+query+"&index=0", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())

		w = do(t, s, http.MethodDelete, base+"/waypoints"+query+"&index=x", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("remove then re-add", func(t *testing.T) {
		w := do(t, s, http.MethodDelete, base+"/connections"+query, "")
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = do(t, s, http.MethodDelete, base+"/connections"+query, "")
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = do(t, s, http.MethodPost, base+"/connections",
			`{"outputNode":"n1","outputPort":"output_1","inputNode":"n2","inputPort":"input_1"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"added":true}`, w.Body.String())
	})
}

func TestModules(t *testing.T) {
	s := newTestServer(t, Options{})
	id := createWorkspace(t, s, fixture)
	base := "/workspaces/" + id

	w := do(t, s, http.MethodPost, base+"/modules", `{"name":"Sub"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `["Home","Sub"]`, w.Body.String())

	w = do(t, s, http.MethodPost, base+"/nodes", `{"name":"inner","module":"Sub","inputs":0,"outputs":0}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var n NodeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&n))
	assert.Equal(t, "Sub", n.Module)

	w = do(t, s, http.MethodGet, base+"/nodes?module=Sub", "")
	var nodes []NodeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&nodes))
	assert.Len(t, nodes, 1)

	w = do(t, s, http.MethodPut, base+"/modules/active", `{"name":"Nope"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "MODULE_NOT_FOUND", decodeError(t, w).Code)

	w = do(t, s, http.MethodPut, base+"/modules/active", `{"name":"Home"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"Home"}`, w.Body.String())

	w = do(t, s, http.MethodDelete, base+"/modules/Home", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodDelete, base+"/modules/Sub", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["Home"]`, w.Body.String())
}

func TestScene(t *testing.T) {
	s := newTestServer(t, Options{})
	id := createWorkspace(t, s, fixture)

	w := do(t, s, http.MethodGet, "/workspaces/"+id+"/scene", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var scene struct {
		Module      string `json:"module"`
		Nodes       []any  `json:"nodes"`
		Connections []struct {
			Path string `json:"path"`
		} `json:"connections"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&scene))
	assert.Equal(t, "Home", scene.Module)
	assert.Len(t, scene.Nodes, 2)
	require.Len(t, scene.Connections, 1)
	assert.Equal(t, " M 160 42 C 230 42 230 42 300  42", scene.Connections[0].Path)

	w = do(t, s, http.MethodGet, "/workspaces/"+id+"/scene?module=Missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSceneOfOtherModuleKeepsActiveModule(t *testing.T) {
	s := newTestServer(t, Options{})
	id := createWorkspace(t, s, fixture)
	base := "/workspaces/" + id

	w := do(t, s, http.MethodPost, base+"/modules", `{"name":"Sub"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(t, s, http.MethodPost, base+"/nodes", `{"name":"inner","module":"Sub","inputs":1,"outputs":0}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, s, http.MethodGet, base+"/scene?module=Sub", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var scene struct {
		Module string `json:"module"`
		Nodes  []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&scene))
	assert.Equal(t, "Sub", scene.Module)
	require.Len(t, scene.Nodes, 1)
	assert.Equal(t, "inner", scene.Nodes[0].Name)

	w = do(t, s, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, w.Code)
	var info struct {
		ActiveModule string `json:"active_module"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	assert.Equal(t, "Home", info.ActiveModule)

	w = do(t, s, http.MethodGet, base+"/scene", "")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&scene))
	assert.Equal(t, "Home", scene.Module)
	assert.Len(t, scene.Nodes, 2)
}

func TestRender(t *testing.T) {
	s := newTestServer(t, Options{})
	id := createWorkspace(t, s, fixture)
	base := "/workspaces/" + id + "/render"

	t.Run("svg misses then hits the cache", func(t *testing.T) {
		w := do(t, s, http.MethodGet, base+"?style=dark", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
		assert.Equal(t, "false", w.Header().Get("X-Cache"))
		assert.NotEmpty(t, w.Header().Get("X-Snapshot-Hash"))
		assert.True(t, strings.HasPrefix(w.Body.String(), "<svg"), w.Body.String())

		w = do(t, s, http.MethodGet, base+"?style=dark", "")
		assert.Equal(t, "true", w.Header().Get("X-Cache"))
	})

	t.Run("json", func(t *testing.T) {
		w := do(t, s, http.MethodGet, base+"?format=json", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), `"module": "Home"`)
	})

	t.Run("dot", func(t *testing.T) {
		w := do(t, s, http.MethodGet, base+"?format=dot&viz=nodelink", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"n1" -> "n2";`)
	})

	t.Run("invalid options", func(t *testing.T) {
		for _, q := range []string{"?format=gif", "?style=neon", "?scale=big", "?format=dot"} {
			w := do(t, s, http.MethodGet, base+q, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, q)
		}
	})

	t.Run("unknown module", func(t *testing.T) {
		w := do(t, s, http.MethodGet, base+"?module=Nope", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMaxBody(t *testing.T) {
	s := newTestServer(t, Options{MaxBodyBytes: 16})
	id := createWorkspace(t, s, "")

	w := do(t, s, http.MethodPost, "/workspaces/"+id+"/nodes", `{"name":"a much longer node name than sixteen bytes"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "exceeds 16 bytes")
}

type recordingHTTPHooks struct {
	observability.NoopHTTPHooks
	paths    []string
	statuses []int
}

func (h *recordingHTTPHooks) OnRequest(_ context.Context, _, path string, status int, _ time.Duration) {
	h.paths = append(h.paths, path)
	h.statuses = append(h.statuses, status)
}

func TestRequestHooks(t *testing.T) {
	defer observability.Reset()
	hooks := &recordingHTTPHooks{}
	observability.SetHTTPHooks(hooks)

	s := newTestServer(t, Options{})
	do(t, s, http.MethodGet, "/health", "")
	do(t, s, http.MethodGet, "/workspaces/abc/nodes/n1", "")

	require.Len(t, hooks.paths, 2)
	assert.Equal(t, "/health", hooks.paths[0])
	assert.True(t, strings.HasPrefix(hooks.paths[1], "/workspaces/{id}/nodes/{node}"), hooks.paths[1])
	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, hooks.statuses)
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeInvalidInput, http.StatusBadRequest},
		{errors.ErrCodeInvalidFormat, http.StatusBadRequest},
		{errors.ErrCodeNodeNotFound, http.StatusNotFound},
		{errors.ErrCodeWaypointNotFound, http.StatusNotFound},
		{errors.ErrCodeCorruptModel, http.StatusUnprocessableEntity},
		{errors.ErrCodeUnsupported, http.StatusNotImplemented},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.code), string(tt.code))
	}
}

func TestStoreExpiry(t *testing.T) {
	store := NewStore(editor.DefaultConfig(), projection.DefaultMetrics(), time.Millisecond)
	defer store.Close()

	ws, err := store.Create(nil)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	time.Sleep(5 * time.Millisecond)
	assert.True(t, ws.IsExpired())
	assert.Equal(t, 1, store.Cleanup())
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 1, store.Served())

	_, err = store.Get(ws.ID)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, Options{ShutdownTimeout: time.Second})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Post("http://"+ln.Addr().String()+"/workspaces", "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
