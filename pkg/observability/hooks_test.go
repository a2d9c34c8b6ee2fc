package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooks(t *testing.T) {
	ctx := context.Background()

	// Noop hooks should not panic
	var eh NoopEditorHooks
	eh.OnGestureStart("dragging-node")
	eh.OnGestureEnd("dragging-node", true, time.Second)

	var rh NoopRenderHooks
	rh.OnRenderStart(ctx, []string{"svg"})
	rh.OnRenderComplete(ctx, []string{"svg"}, time.Second, errors.New("boom"))

	var ch NoopCacheHooks
	ch.OnCacheHit(ctx, "render")
	ch.OnCacheMiss(ctx, "render")
	ch.OnCacheSet(ctx, "render", 100)

	var hh NoopHTTPHooks
	hh.OnRequest(ctx, "GET", "/health", 200, time.Millisecond)
}

func TestGlobalHooksRegistry(t *testing.T) {
	defer Reset()

	if _, ok := Editor().(NoopEditorHooks); !ok {
		t.Error("default Editor() should be NoopEditorHooks")
	}
	if _, ok := Render().(NoopRenderHooks); !ok {
		t.Error("default Render() should be NoopRenderHooks")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("default Cache() should be NoopCacheHooks")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("default HTTP() should be NoopHTTPHooks")
	}

	eh := &testEditorHooks{}
	rh := &testRenderHooks{}
	ch := &testCacheHooks{}
	hh := &testHTTPHooks{}
	SetEditorHooks(eh)
	SetRenderHooks(rh)
	SetCacheHooks(ch)
	SetHTTPHooks(hh)

	if Editor() != eh {
		t.Error("Editor() should return custom hooks")
	}
	if Render() != rh {
		t.Error("Render() should return custom hooks")
	}
	if Cache() != ch {
		t.Error("Cache() should return custom hooks")
	}
	if HTTP() != hh {
		t.Error("HTTP() should return custom hooks")
	}

	Editor().OnGestureStart("panning-canvas")
	Editor().OnGestureEnd("panning-canvas", false, time.Millisecond)
	if len(eh.started) != 1 || eh.started[0] != "panning-canvas" {
		t.Errorf("started = %v, want [panning-canvas]", eh.started)
	}
	if eh.ended != 1 {
		t.Errorf("ended = %d, want 1", eh.ended)
	}

	Reset()

	if _, ok := Editor().(NoopEditorHooks); !ok {
		t.Error("Editor() should be NoopEditorHooks after Reset()")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should be NoopHTTPHooks after Reset()")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	defer Reset()

	custom := &testEditorHooks{}
	SetEditorHooks(custom)

	// Setting nil should be ignored
	SetEditorHooks(nil)

	if Editor() != custom {
		t.Error("SetEditorHooks(nil) should be ignored")
	}
}

// Test implementations
type testEditorHooks struct {
	NoopEditorHooks
	started []string
	ended   int
}

func (h *testEditorHooks) OnGestureStart(kind string) { h.started = append(h.started, kind) }
func (h *testEditorHooks) OnGestureEnd(string, bool, time.Duration) {
	h.ended++
}

type testRenderHooks struct{ NoopRenderHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
