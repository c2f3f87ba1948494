package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/llmx/logger"
)

type entry struct {
	Text  string   `json:"text"`
	Count int      `json:"count"`
	Tags  []string `json:"tags,omitempty"`
}

func startRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	client, err := Connect(context.Background(), Config{URL: "redis://" + mini.Addr() + "/0"}, logger.Nop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

func TestJSONStore_RoundTrip(t *testing.T) {
	client, _ := startRedis(t)
	store := NewJSONStore[entry](client, "")
	ctx := context.Background()

	if err := store.Save(ctx, "k", &entry{Text: "hi", Count: 5, Tags: []string{"a", "b"}}, 0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx, "k")
	if err != nil || got == nil {
		t.Fatalf("Load = %v, %v", got, err)
	}
	if got.Text != "hi" || got.Count != 5 || len(got.Tags) != 2 {
		t.Errorf("Load = %+v", got)
	}

	if err := store.Save(ctx, "k", &entry{Count: 6}, 0); err != nil {
		t.Fatal(err)
	}
	if got, _ = store.Load(ctx, "k"); got == nil || got.Count != 6 {
		t.Errorf("overwrite not visible: %+v", got)
	}
}

func TestJSONStore_Miss(t *testing.T) {
	client, _ := startRedis(t)
	store := NewJSONStore[entry](client, "ns")
	got, err := store.Load(context.Background(), "absent")
	if err != nil || got != nil {
		t.Fatalf("Load = %v, %v; want nil, nil", got, err)
	}
}

func TestJSONStore_Delete(t *testing.T) {
	client, _ := startRedis(t)
	store := NewJSONStore[entry](client, "")
	ctx := context.Background()

	_ = store.Save(ctx, "k", &entry{Count: 1}, 0)
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if got, err := store.Load(ctx, "k"); err != nil || got != nil {
		t.Fatalf("after delete Load = %v, %v", got, err)
	}
}

func TestJSONStore_Expiry(t *testing.T) {
	client, mini := startRedis(t)
	store := NewJSONStore[entry](client, "")
	ctx := context.Background()

	if err := store.Save(ctx, "k", &entry{Count: 1}, 2*time.Second); err != nil {
		t.Fatal(err)
	}
	if ttl := mini.TTL("k"); ttl != 2*time.Second {
		t.Errorf("ttl = %v", ttl)
	}
	mini.FastForward(3 * time.Second)
	if got, _ := store.Load(ctx, "k"); got != nil {
		t.Fatalf("expired entry still loads: %+v", got)
	}
}

func TestJSONStore_Namespace(t *testing.T) {
	client, mini := startRedis(t)
	ctx := context.Background()

	_ = NewJSONStore[entry](client, "llmx").Save(ctx, "k1", &entry{Count: 1}, 0)
	_ = NewJSONStore[entry](client, "").Save(ctx, "bare", &entry{Count: 2}, 0)

	if v, err := mini.Get("llmx:k1"); err != nil || v == "" {
		t.Errorf("namespaced key missing: %q %v", v, err)
	}
	if v, err := mini.Get("bare"); err != nil || v == "" {
		t.Errorf("bare key missing: %q %v", v, err)
	}
}

func TestJSONStore_Corrupt(t *testing.T) {
	client, mini := startRedis(t)
	store := NewJSONStore[entry](client, "")
	_ = mini.Set("bad", "{not json")

	got, err := store.Load(context.Background(), "bad")
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
	if got != nil {
		t.Errorf("got %+v", got)
	}
}

func TestDeletePrefix(t *testing.T) {
	client, mini := startRedis(t)
	ctx := context.Background()

	for i := 0; i < 600; i++ {
		_ = client.Set(ctx, fmt.Sprintf("llmx:%d", i), "v", 0)
	}
	_ = client.Set(ctx, "other:1", "v", 0)

	n, err := client.DeletePrefix(ctx, "llmx:")
	if err != nil {
		t.Fatal(err)
	}
	if n != 600 {
		t.Errorf("deleted %d, want 600", n)
	}
	if keys := mini.Keys(); len(keys) != 1 || keys[0] != "other:1" {
		t.Errorf("remaining = %v", keys)
	}
}

func TestJSONStore_DeletePrefix(t *testing.T) {
	client, mini := startRedis(t)
	store := NewJSONStore[entry](client, "ns")
	ctx := context.Background()

	_ = store.Save(ctx, "a1", &entry{}, 0)
	_ = store.Save(ctx, "a2", &entry{}, 0)
	_ = client.Set(ctx, "a3", "outside", 0)

	n, err := store.DeletePrefix(ctx, "a")
	if err != nil || n != 2 {
		t.Fatalf("DeletePrefix = %d, %v", n, err)
	}
	if keys := mini.Keys(); len(keys) != 1 || keys[0] != "a3" {
		t.Errorf("remaining = %v", keys)
	}
}

func TestGet_Missing(t *testing.T) {
	client, _ := startRedis(t)
	if _, err := client.Get(context.Background(), "nope"); !IsNil(err) {
		t.Fatalf("err = %v, want nil-key error", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	client, _ := startRedis(t)
	if err := client.Close(); err != nil {
		t.Fatal(err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("ping on closed client should fail")
	}
	var none *Client
	if err := none.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	mini := miniredis.NewMiniRedis()
	if err := mini.Start(); err != nil {
		t.Fatal(err)
	}
	addr := mini.Addr()
	mini.Close()

	if _, err := Connect(context.Background(), Config{Addr: addr, DialTimeout: "200ms", MaxRetries: 1}, nil); err == nil {
		t.Fatal("expected ping failure")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	for name, cfg := range map[string]Config{
		"empty":        {},
		"scheme":       {URL: "http://nope"},
		"dial timeout": {Addr: "localhost:6379", DialTimeout: "soon"},
		"idle timeout": {Addr: "localhost:6379", IdleTimeout: "forever"},
	} {
		if _, err := New(cfg, nil); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
