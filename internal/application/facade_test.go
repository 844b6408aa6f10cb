package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/browser-accounts-cli/internal/adapters/browser/memory"
	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// scriptedEngine returns a canned Eval result and tracks overlapping calls.
type scriptedEngine struct {
	*memory.Engine
	value    string
	isNull   bool
	evals    atomic.Int32
	inFlight atomic.Int32
	overlap  atomic.Bool
}

func (e *scriptedEngine) Eval(ctx context.Context, js string) (string, bool, error) {
	if e.inFlight.Add(1) > 1 {
		e.overlap.Store(true)
	}
	defer e.inFlight.Add(-1)
	e.evals.Add(1)
	time.Sleep(time.Millisecond)
	return e.value, e.isNull, nil
}

func TestExecuteScriptNormalizesResults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		value  string
		isNull bool
		want   string
		wantOK bool
	}{
		{name: "quoted string", value: `"u-100"`, want: "u-100", wantOK: true},
		{name: "escaped quotes", value: `"say \"hi\""`, want: `say "hi"`, wantOK: true},
		{name: "bare value", value: "true", want: "true", wantOK: true},
		{name: "engine null", isNull: true, want: "", wantOK: false},
		{name: "null literal", value: "null", want: "", wantOK: false},
		{name: "undefined literal", value: "undefined", want: "", wantOK: false},
		{name: "quoted null stays a string", value: `"null"`, want: "null", wantOK: true},
		{name: "empty string", value: `""`, want: "", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := &scriptedEngine{Engine: memory.NewEngine(nil, testStartURL), value: tt.value, isNull: tt.isNull}
			facade := NewFacade(engine, testFacadeOptions())
			defer func() { _ = facade.Dispose(context.Background()) }()

			got, ok, err := facade.ExecuteScript(context.Background(), "() => 1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestFacadeSerializesConcurrentCalls(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	engine := &scriptedEngine{Engine: memory.NewEngine(nil, testStartURL), value: "1"}
	facade := NewFacade(engine, testFacadeOptions())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := facade.ExecuteScript(context.Background(), "() => 1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(16), engine.evals.Load())
	assert.False(t, engine.overlap.Load())
	require.NoError(t, facade.Dispose(context.Background()))
}

func TestNavigateOffOriginIsNoOp(t *testing.T) {
	t.Parallel()

	facade := NewFacade(memory.NewEngine(nil, testStartURL), testFacadeOptions())
	defer func() { _ = facade.Dispose(context.Background()) }()

	ctx := context.Background()
	before := facade.Source()

	require.NoError(t, facade.Navigate(ctx, "https://evil.example.net/login"))
	require.NoError(t, facade.Navigate(ctx, "::not a url"))
	assert.Equal(t, before, facade.Source())

	require.NoError(t, facade.Navigate(ctx, "https://WWW.example.com/settings"))
	assert.Equal(t, "https://WWW.example.com/settings", facade.Source())
}

func TestSetCookiesReplacesWholeJar(t *testing.T) {
	t.Parallel()

	facade := NewFacade(memory.NewEngine(nil, testStartURL), testFacadeOptions())
	defer func() { _ = facade.Dispose(context.Background()) }()
	ctx := context.Background()

	require.NoError(t, facade.SetCookies(ctx, sessionJar("u-1")))
	got, err := facade.GetCookies(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(sessionJar("u-1"), got, cmpopts.SortSlices(func(a, b domain.Cookie) bool { return a.Name < b.Name })); diff != "" {
		t.Fatalf("jar mismatch (-want +got):\n%s", diff)
	}

	replacement := []domain.Cookie{{Name: "other", Value: "x", Domain: ".example.com", Path: "/"}}
	require.NoError(t, facade.SetCookies(ctx, replacement))
	got, err = facade.GetCookies(ctx)
	require.NoError(t, err)
	assert.Equal(t, replacement, got)

	require.NoError(t, facade.SetCookies(ctx, []domain.Cookie{}))
	got, err = facade.GetCookies(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWaitForElementExistsReturnsOnceSatisfiable(t *testing.T) {
	t.Parallel()

	ready := &atomic.Bool{}
	site := func(string, []domain.Cookie) memory.Page {
		if ready.Load() {
			return memory.Page{"#late": memory.Element{}}
		}
		return memory.Page{}
	}
	engine := memory.NewEngine(site, testStartURL)
	facade := NewFacade(engine, testFacadeOptions())
	defer func() { _ = facade.Dispose(context.Background()) }()

	go func() {
		time.Sleep(40 * time.Millisecond)
		ready.Store(true)
		_ = facade.Reload(context.Background())
	}()

	found, err := facade.WaitForElementExists(context.Background(), "#late", 2*time.Second)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestWaitForElementExistsIsBounded(t *testing.T) {
	t.Parallel()

	facade := NewFacade(memory.NewEngine(nil, testStartURL), testFacadeOptions())
	defer func() { _ = facade.Dispose(context.Background()) }()

	timeout := 100 * time.Millisecond
	start := time.Now()
	found, err := facade.WaitForElementExists(context.Background(), "#never", timeout)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, found)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+DefaultPollInterval+100*time.Millisecond)
}

func TestWaitForElementExistsHonorsContext(t *testing.T) {
	t.Parallel()

	facade := NewFacade(memory.NewEngine(nil, testStartURL), testFacadeOptions())
	defer func() { _ = facade.Dispose(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	found, err := facade.WaitForElementExists(ctx, "#never", time.Minute)
	assert.False(t, found)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFacadeRequiresInitializedEngine(t *testing.T) {
	t.Parallel()

	facade := NewFacade(nil, testFacadeOptions())
	assert.False(t, facade.Initialized())

	_, _, err := facade.ExecuteScript(context.Background(), "() => 1")
	require.ErrorIs(t, err, domain.ErrEngineNotInitialized)
	require.ErrorIs(t, facade.Reload(context.Background()), domain.ErrEngineNotInitialized)
	assert.Empty(t, facade.Source())

	var zero *Facade
	_, err = zero.GetCookies(context.Background())
	require.ErrorIs(t, err, domain.ErrEngineNotInitialized)
}

func TestFacadeDisposeStopsDispatcher(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	engine := memory.NewEngine(nil, testStartURL)
	facade := NewFacade(engine, testFacadeOptions())

	require.NoError(t, facade.Dispose(context.Background()))
	require.NoError(t, facade.Dispose(context.Background()))
	assert.True(t, engine.Closed())
	assert.False(t, facade.Initialized())

	err := facade.Reload(context.Background())
	assert.True(t, errors.Is(err, domain.ErrEngineDisposed))
}

// hangingEngine never answers Eval until the caller gives up or the engine is
// killed.
type hangingEngine struct {
	*memory.Engine
	started  chan struct{}
	killed   chan struct{}
	killOnce sync.Once
}

func newHangingEngine() *hangingEngine {
	return &hangingEngine{
		Engine:  memory.NewEngine(nil, testStartURL),
		started: make(chan struct{}, 16),
		killed:  make(chan struct{}),
	}
}

func (e *hangingEngine) Eval(ctx context.Context, _ string) (string, bool, error) {
	e.started <- struct{}{}
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case <-e.killed:
		return "", false, domain.ErrEngineDisposed
	}
}

func (e *hangingEngine) Kill() error {
	e.killOnce.Do(func() { close(e.killed) })
	return nil
}

func TestWaitForElementExistsBoundsHungEval(t *testing.T) {
	engine := newHangingEngine()
	facade := NewFacade(engine, testFacadeOptions())
	defer func() { _ = facade.Dispose(context.Background()) }()

	const timeout = 100 * time.Millisecond
	start := time.Now()
	found, err := facade.WaitForElementExists(context.Background(), "#never", timeout)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, found)
	assert.Less(t, elapsed, timeout+time.Second)

	// The dispatcher is free again once the wait gave up.
	_, err = facade.GetCookies(context.Background())
	require.NoError(t, err)
}

func TestWaitForElementExistsReportsParentCancellation(t *testing.T) {
	engine := newHangingEngine()
	facade := NewFacade(engine, testFacadeOptions())
	defer func() { _ = facade.Dispose(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-engine.started
		cancel()
	}()

	_, err := facade.WaitForElementExists(ctx, "#never", time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFacadeDisposeForcesCloseBehindHungCall(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	engine := newHangingEngine()
	facade := NewFacade(engine, testFacadeOptions())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = facade.ElementExists(context.Background(), "#never")
	}()
	<-engine.started

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- facade.Dispose(ctx) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("dispose did not honor its deadline")
	}

	select {
	case <-engine.killed:
	default:
		t.Fatal("engine was not killed")
	}
	assert.False(t, facade.Initialized())

	wg.Wait()
	require.ErrorIs(t, facade.Reload(context.Background()), domain.ErrEngineDisposed)
}
