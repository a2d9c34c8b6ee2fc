package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/nodewire/pkg/observability"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache.Get should always return a nil miss")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "artifact:x"); hit || err != nil {
		t.Fatalf("Get on empty cache = %v, %v", hit, err)
	}
	if err := c.Set(ctx, "artifact:x", []byte("<svg/>"), time.Hour); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "artifact:x")
	if err != nil || !hit || string(data) != "<svg/>" {
		t.Errorf("Get = %q, %v, %v, want <svg/>", data, hit, err)
	}

	if err := c.Delete(ctx, "artifact:x"); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "artifact:x"); hit {
		t.Error("entry survived Delete")
	}
	if err := c.Delete(ctx, "artifact:x"); err != nil {
		t.Errorf("Delete of missing key = %v, want nil", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry returned as hit")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry not removed")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("Get on corrupt entry = %v, %v, want miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Clear()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Clear() = %d, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("entry survived Clear")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	ak1 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "svg", Module: "Home"})
	ak2 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "png", Module: "Home"})
	ak3 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "svg", Module: "Other"})
	if ak1 == ak2 || ak1 == ak3 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(ak1, "artifact:") {
		t.Errorf("ArtifactKey = %q, want artifact: prefix", ak1)
	}
	if ak1 != k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "svg", Module: "Home"}) {
		t.Error("ArtifactKey should be deterministic")
	}

	if got := k.SnapshotKey("abc"); got != "snapshot:abc" {
		t.Errorf("SnapshotKey = %q, want snapshot:abc", got)
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "ws:1:")
	if got := scoped.SnapshotKey("abc"); got != "ws:1:snapshot:abc" {
		t.Errorf("SnapshotKey = %q", got)
	}
	if got := scoped.ArtifactKey("abc", ArtifactKeyOpts{}); !strings.HasPrefix(got, "ws:1:artifact:") {
		t.Errorf("ArtifactKey = %q, want scoped prefix", got)
	}

	// nil inner falls back to the default keyer
	if got := NewScopedKeyer(nil, "p:").SnapshotKey("x"); got != "p:snapshot:x" {
		t.Errorf("SnapshotKey with nil inner = %q", got)
	}
}

type countingHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets []string
}

func (h *countingHooks) OnCacheHit(_ context.Context, kt string)  { h.hits = append(h.hits, kt) }
func (h *countingHooks) OnCacheMiss(_ context.Context, kt string) { h.misses = append(h.misses, kt) }
func (h *countingHooks) OnCacheSet(_ context.Context, kt string, _ int) {
	h.sets = append(h.sets, kt)
}

func TestInstrument(t *testing.T) {
	h := &countingHooks{}
	observability.SetCacheHooks(h)
	defer observability.Reset()

	ctx := context.Background()
	fc, _ := NewFileCache(t.TempDir())
	c := Instrument(fc, "ws:1:")

	_, _, _ = c.Get(ctx, "ws:1:artifact:abc")
	_ = c.Set(ctx, "ws:1:artifact:abc", []byte("x"), 0)
	_, _, _ = c.Get(ctx, "ws:1:artifact:abc")

	if len(h.misses) != 1 || h.misses[0] != "artifact" {
		t.Errorf("misses = %v, want [artifact]", h.misses)
	}
	if len(h.sets) != 1 || h.sets[0] != "artifact" {
		t.Errorf("sets = %v, want [artifact]", h.sets)
	}
	if len(h.hits) != 1 || h.hits[0] != "artifact" {
		t.Errorf("hits = %v, want [artifact]", h.hits)
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisCache(ctx, RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	if err == nil {
		t.Skip("something is listening on 127.0.0.1:1")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return
	}
	if !IsTransient(err) || !errors.Is(err, ErrUnavailable) {
		t.Errorf("NewRedisCache error = %v, want transient ErrUnavailable", err)
	}
	var be *BackendError
	if !errors.As(err, &be) || be.Op != "ping" || be.Key != "127.0.0.1:1" {
		t.Errorf("NewRedisCache error = %#v, want ping on 127.0.0.1:1", err)
	}
}

// replyError stands in for a Redis error reply.
type replyError string

func (e replyError) Error() string { return string(e) }
func (replyError) RedisError() {}

func TestRedisError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"dial failure", errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"), true},
		{"loading", replyError("LOADING Redis is loading the dataset in memory"), true},
		{"readonly replica", replyError("READONLY You can't write against a read only replica."), true},
		{"cluster down", replyError("CLUSTERDOWN The cluster is down"), true},
		{"wrong type", replyError("WRONGTYPE Operation against a key holding the wrong kind of value"), false},
		{"auth", replyError("NOAUTH Authentication required."), false},
		{"closed client", redis.ErrClosed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := redisError("get", "artifact", tt.err)
			if IsTransient(err) != tt.transient {
				t.Errorf("IsTransient(%v) = %v, want %v", err, !tt.transient, tt.transient)
			}
			if errors.Is(err, ErrUnavailable) != tt.transient {
				t.Errorf("errors.Is(%v, ErrUnavailable) = %v, want %v", err, !tt.transient, tt.transient)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("%v does not wrap %v", err, tt.err)
			}
			if !strings.Contains(err.Error(), "cache get artifact") {
				t.Errorf("Error() = %q, want op and key", err.Error())
			}
		})
	}

	if redisError("get", "k", nil) != nil {
		t.Error("redisError(nil) should be nil")
	}
	if err := redisError("get", "k", context.Canceled); err != context.Canceled {
		t.Errorf("redisError(context.Canceled) = %v, want it unchanged", err)
	}
}

func TestRetryPolicy(t *testing.T) {
	ctx := context.Background()
	p := RetryPolicy{Attempts: 3, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	transient := redisError("ping", "", errors.New("i/o timeout"))
	permanent := redisError("get", "k", replyError("ERR syntax error"))

	calls := 0
	err := p.Do(ctx, func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("success: err = %v, calls = %d", err, calls)
	}

	calls = 0
	err = p.Do(ctx, func() error {
		calls++
		return permanent
	})
	if err != permanent || calls != 1 {
		t.Errorf("permanent: err = %v, calls = %d", err, calls)
	}

	calls = 0
	err = p.Do(ctx, func() error {
		calls++
		if calls < 2 {
			return transient
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("recovering: err = %v, calls = %d", err, calls)
	}

	calls = 0
	err = p.Do(ctx, func() error {
		calls++
		return transient
	})
	if err != transient || calls != 3 {
		t.Errorf("exhausted: err = %v, calls = %d", err, calls)
	}

	calls = 0
	_ = RetryPolicy{}.Do(ctx, func() error {
		calls++
		return transient
	})
	if calls != 1 {
		t.Errorf("zero policy: calls = %d, want 1", calls)
	}
}

func TestRetryPolicyContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := DefaultRetryPolicy.Do(ctx, func() error {
		return redisError("ping", "", errors.New("connection reset by peer"))
	})
	if err != context.Canceled {
		t.Errorf("Do() = %v, want context.Canceled", err)
	}
}
