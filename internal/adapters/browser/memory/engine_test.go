package memory

import (
	"context"
	"testing"

	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/bnema/browser-accounts-cli/internal/domquery"
	"github.com/bnema/browser-accounts-cli/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSite() SessionSite {
	return SessionSite{
		ReadySelector:     "#global-nav",
		IdentitySelector:  "[data-site-id]",
		IdentityAttribute: "data-site-id",
	}
}

func TestEngineRendersIdentityFromSessionCookieAfterReload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := NewEngine(testSite().Render, "https://www.example.com/")

	value, isNull, err := engine.Eval(ctx, domquery.Attribute("[data-site-id]", "data-site-id"))
	require.NoError(t, err)
	assert.True(t, isNull)
	assert.Empty(t, value)

	require.NoError(t, engine.AddCookies(ctx, []domain.Cookie{{Name: "session", Value: "u-1", Domain: ".example.com", Path: "/"}}))
	require.NoError(t, engine.Reload(ctx))

	value, isNull, err = engine.Eval(ctx, domquery.Attribute("[data-site-id]", "data-site-id"))
	require.NoError(t, err)
	assert.False(t, isNull)
	assert.Equal(t, `"u-1"`, value)

	value, _, err = engine.Eval(ctx, domquery.Exists("#global-nav"))
	require.NoError(t, err)
	assert.Equal(t, "true", value)
}

func TestEngineAddCookiesReplacesSameKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := NewEngine(nil, "")

	require.NoError(t, engine.AddCookies(ctx, []domain.Cookie{{Name: "a", Value: "1", Domain: "x", Path: "/"}}))
	require.NoError(t, engine.AddCookies(ctx, []domain.Cookie{{Name: "a", Value: "2", Domain: "x", Path: "/"}}))

	jar, err := engine.Cookies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Cookie{{Name: "a", Value: "2", Domain: "x", Path: "/"}}, jar)
}

func TestEngineRejectsCallsAfterClose(t *testing.T) {
	t.Parallel()

	engine := NewEngine(nil, "")
	require.NoError(t, engine.Close())

	require.ErrorIs(t, engine.Reload(context.Background()), domain.ErrEngineDisposed)
	require.ErrorIs(t, engine.Close(), domain.ErrEngineDisposed)
	assert.True(t, engine.Closed())
}

func TestEngineRecordsOperations(t *testing.T) {
	t.Parallel()

	var ops []string
	engine := NewEngine(nil, "")
	engine.SetRecorder(func(op string) { ops = append(ops, op) })

	ctx := context.Background()
	require.NoError(t, engine.ClearCookies(ctx))
	require.NoError(t, engine.AddCookies(ctx, []domain.Cookie{{Name: "sid"}}))
	require.NoError(t, engine.Reload(ctx))

	assert.Equal(t, []string{"clear_cookies", "add_cookie:sid", "reload"}, ops)
}

func TestLauncherTracksProfileDirPerEngine(t *testing.T) {
	t.Parallel()

	launcher := NewLauncher(testSite().Render, "https://www.example.com/")

	first, err := launcher.Launch(context.Background(), ports.EngineOptions{ProfileDir: "/tmp/a"})
	require.NoError(t, err)
	second, err := launcher.Launch(context.Background(), ports.EngineOptions{ProfileDir: "/tmp/b"})
	require.NoError(t, err)

	launched := launcher.Launched()
	require.Len(t, launched, 2)
	assert.Same(t, first, launched[0])
	assert.Same(t, second, launched[1])
	assert.Equal(t, "/tmp/b", launched[1].ProfileDir())
}
