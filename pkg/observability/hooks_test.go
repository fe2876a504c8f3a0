package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	d := NoopDiagramHooks{}
	d.OnLayoutStart(ctx, "full", 12)
	d.OnLayoutComplete(ctx, "full", time.Millisecond, nil)
	d.OnInsert(ctx, "pinned", nil)
	d.OnExportStart(ctx, []string{"png"})
	d.OnExportComplete(ctx, []string{"png"}, time.Second, nil)

	s := NoopStoreHooks{}
	s.OnSave(ctx, "file", 3, time.Millisecond, nil)
	s.OnLoad(ctx, "redis", time.Millisecond, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "answer")
	c.OnCacheMiss(ctx, "answer")
	c.OnCacheSet(ctx, "answer", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "example.com", "/ask")
	h.OnResponse(ctx, "POST", "example.com", "/ask", 200, time.Second)
	h.OnError(ctx, "POST", "example.com", "/ask", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Diagram().(NoopDiagramHooks); !ok {
		t.Error("Diagram() should return NoopDiagramHooks by default")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Store() should return NoopStoreHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	custom := &testDiagramHooks{}
	SetDiagramHooks(custom)
	if Diagram() != custom {
		t.Error("SetDiagramHooks should set custom hooks")
	}

	customStore := &testStoreHooks{}
	SetStoreHooks(customStore)
	if Store() != customStore {
		t.Error("SetStoreHooks should set custom hooks")
	}

	Reset()
	if _, ok := Diagram().(NoopDiagramHooks); !ok {
		t.Error("Reset() should restore NoopDiagramHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testDiagramHooks{}
	SetDiagramHooks(custom)
	SetDiagramHooks(nil)
	if Diagram() != custom {
		t.Error("SetDiagramHooks(nil) should be ignored")
	}
	Reset()
}

type testDiagramHooks struct{ NoopDiagramHooks }

type testStoreHooks struct{ NoopStoreHooks }
