package provider

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/kbukum/llmx/errors"
)

type testProvider struct {
	name   string
	closed bool
}

func (p *testProvider) Name() string { return p.name }

func (p *testProvider) Close(context.Context) error {
	p.closed = true
	return nil
}

func newTestRegistry() *Registry[*testProvider, string] {
	reg := NewRegistry[*testProvider, string]()
	reg.RegisterFactory("openai", func(cfg string) (*testProvider, error) {
		return &testProvider{name: "openai:" + cfg}, nil
	})
	reg.RegisterFactory("claude", func(cfg string) (*testProvider, error) {
		return &testProvider{name: "claude:" + cfg}, nil
	})
	_ = reg.RegisterAlias("azure", "openai")
	_ = reg.RegisterAlias("anthropic", "claude")
	return reg
}

func TestRegistry_CreateIsCaseInsensitive(t *testing.T) {
	reg := newTestRegistry()

	p, err := reg.Create("OpenAI", "cfg")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.Name() != "openai:cfg" {
		t.Errorf("expected 'openai:cfg', got %q", p.Name())
	}
}

func TestRegistry_AliasResolvesToSameFactory(t *testing.T) {
	reg := newTestRegistry()

	for alias, want := range map[string]string{"azure": "openai", "Anthropic": "claude"} {
		got, err := reg.Resolve(alias)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", alias, err)
		}
		if got != want {
			t.Errorf("Resolve(%q) = %q, want %q", alias, got, want)
		}
	}
}

func TestRegistry_UnknownNameListsAllNames(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.Create("nope", "")
	if !errors.IsKind(err, errors.ErrCodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "Provider 'nope' not supported") {
		t.Errorf("unexpected message: %q", msg)
	}
	for _, name := range []string{"openai", "azure", "claude", "anthropic"} {
		if !strings.Contains(msg, name) {
			t.Errorf("expected %q in %q", name, msg)
		}
	}
}

func TestRegistry_NamesKeepRegistrationOrder(t *testing.T) {
	got := newTestRegistry().Names()
	want := []string{"openai", "claude", "azure", "anthropic"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestRegistry_AliasErrors(t *testing.T) {
	reg := newTestRegistry()
	if err := reg.RegisterAlias("x", "missing"); err == nil {
		t.Error("expected error for alias of unregistered provider")
	}
	if err := reg.RegisterAlias("claude", "openai"); err == nil {
		t.Error("expected error for alias shadowing a provider")
	}
}

func TestInstances_GetOrCreateCachesOnce(t *testing.T) {
	inst := NewInstances[*testProvider]()
	calls := 0
	create := func() (*testProvider, error) {
		calls++
		return &testProvider{name: "a"}, nil
	}

	first, _ := inst.GetOrCreate("a", create)
	second, _ := inst.GetOrCreate("a", create)
	if first != second {
		t.Error("expected the same instance")
	}
	if calls != 1 {
		t.Errorf("expected 1 create call, got %d", calls)
	}
}

func TestInstances_FailedCreateIsNotCached(t *testing.T) {
	inst := NewInstances[*testProvider]()
	_, err := inst.GetOrCreate("a", func() (*testProvider, error) {
		return nil, stderrors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := inst.Get("a"); ok {
		t.Error("failed creation must not be cached")
	}
}

func TestInstances_CloseAll(t *testing.T) {
	inst := NewInstances[*testProvider]()
	p := &testProvider{name: "a"}
	if _, err := inst.GetOrCreate("a", func() (*testProvider, error) { return p, nil }); err != nil {
		t.Fatal(err)
	}

	if err := inst.CloseAll(context.Background()); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	if !p.closed {
		t.Error("expected provider to be closed")
	}
	if len(inst.Names()) != 0 {
		t.Error("expected cache to be empty after CloseAll")
	}
}

func TestFallback_OrderAndFirstSuccessWins(t *testing.T) {
	var tried []string
	out, err := Fallback(context.Background(), []string{"a", "b", "c"},
		func(_ context.Context, name string) (string, error) {
			tried = append(tried, name)
			if name == "c" {
				return "from-c", nil
			}
			return "", stderrors.New(name + " failed")
		}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "from-c" {
		t.Errorf("expected from-c, got %q", out)
	}
	if strings.Join(tried, ",") != "a,b,c" {
		t.Errorf("expected a,b,c, got %v", tried)
	}
}

func TestFallback_ReturnsLastError(t *testing.T) {
	var failed []string
	_, err := Fallback(context.Background(), []string{"a", "b"},
		func(_ context.Context, name string) (int, error) {
			return 0, stderrors.New(name + " failed")
		},
		func(name string, _ error) { failed = append(failed, name) })
	if err == nil || err.Error() != "b failed" {
		t.Fatalf("expected last error 'b failed', got %v", err)
	}
	if len(failed) != 2 {
		t.Errorf("expected onFailure twice, got %v", failed)
	}
}

func TestFallback_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Fallback(ctx, []string{"a", "b"}, func(_ context.Context, _ string) (int, error) {
		calls++
		cancel()
		return 0, context.Canceled
	}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected walk to stop after cancel, got %d calls", calls)
	}
}

func TestCollectAndSliceIterator(t *testing.T) {
	got, err := Collect[int](context.Background(), NewSliceIterator([]int{1, 2, 3}))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[2] != 3 {
		t.Errorf("unexpected items %v", got)
	}
}
