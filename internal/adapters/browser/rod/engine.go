package rod

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/bnema/browser-accounts-cli/internal/ports"
	gorod "github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

var _ ports.Engine = (*Engine)(nil)

// Engine drives one Chromium process through the DevTools protocol. It is
// not safe for concurrent use.
type Engine struct {
	launcher *launcher.Launcher
	browser  *gorod.Browser
	page     *gorod.Page
	closed   bool
}

func (e *Engine) Eval(ctx context.Context, js string) (string, bool, error) {
	if err := e.guard(ctx); err != nil {
		return "", false, err
	}

	res, err := e.page.Context(ctx).Eval(asFunction(js))
	if err != nil {
		return "", false, fmt.Errorf("evaluate script: %w", err)
	}
	value, isNull := evalResult(res)
	return value, isNull, nil
}

// evalResult encodes every non-null result as JSON, strings included, so
// callers unquote exactly once whatever the engine.
func evalResult(res *proto.RuntimeRemoteObject) (string, bool) {
	if res == nil || res.Type == proto.RuntimeRemoteObjectTypeUndefined || res.Value.Nil() {
		return "", true
	}
	return res.Value.JSON("", ""), false
}

func (e *Engine) Navigate(ctx context.Context, url string) error {
	if err := e.guard(ctx); err != nil {
		return err
	}
	if err := e.page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

func (e *Engine) Reload(ctx context.Context) error {
	if err := e.guard(ctx); err != nil {
		return err
	}
	if err := e.page.Context(ctx).Reload(); err != nil {
		return fmt.Errorf("reload page: %w", err)
	}
	return nil
}

func (e *Engine) URL() string {
	if e.closed || e.page == nil {
		return ""
	}
	info, err := e.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (e *Engine) Cookies(ctx context.Context) ([]domain.Cookie, error) {
	if err := e.guard(ctx); err != nil {
		return nil, err
	}

	cookies, err := e.browser.Context(ctx).GetCookies()
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}

	jar := make([]domain.Cookie, 0, len(cookies))
	for _, c := range cookies {
		jar = append(jar, fromProto(c))
	}
	return jar, nil
}

func (e *Engine) ClearCookies(ctx context.Context) error {
	if err := e.guard(ctx); err != nil {
		return err
	}
	if err := e.browser.Context(ctx).SetCookies(nil); err != nil {
		return fmt.Errorf("clear cookies: %w", err)
	}
	return nil
}

func (e *Engine) AddCookies(ctx context.Context, jar []domain.Cookie) error {
	if err := e.guard(ctx); err != nil {
		return err
	}
	if len(jar) == 0 {
		return nil
	}

	params := make([]*proto.NetworkCookieParam, 0, len(jar))
	for _, c := range jar {
		params = append(params, toProto(c))
	}
	if err := e.browser.Context(ctx).SetCookies(params); err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}
	return nil
}

func (e *Engine) Close() error {
	if e.closed {
		return domain.ErrEngineDisposed
	}
	e.closed = true

	var errs []error
	if e.browser != nil {
		if err := e.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if e.launcher != nil {
		e.launcher.Kill()
	}
	return errors.Join(errs...)
}

// Kill ends the browser process without the DevTools connection. It may be
// called while another call is blocked on the engine.
func (e *Engine) Kill() error {
	if e.launcher == nil {
		return domain.ErrEngineNotInitialized
	}
	e.launcher.Kill()
	return nil
}

func (e *Engine) guard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.closed {
		return domain.ErrEngineDisposed
	}
	if e.page == nil {
		return domain.ErrEngineNotInitialized
	}
	return nil
}

// asFunction wraps bare expressions, since rod evaluates function bodies.
func asFunction(js string) string {
	trimmed := strings.TrimSpace(js)
	if strings.HasPrefix(trimmed, "()") || strings.HasPrefix(trimmed, "function") || strings.HasPrefix(trimmed, "async") {
		return trimmed
	}
	return "() => (" + trimmed + ")"
}

func fromProto(c *proto.NetworkCookie) domain.Cookie {
	expires := float64(c.Expires)
	if c.Session {
		expires = 0
	}
	return domain.Cookie{
		Name:       c.Name,
		Value:      c.Value,
		Domain:     c.Domain,
		Path:       c.Path,
		Expires:    expires,
		IsHTTPOnly: c.HTTPOnly,
		IsSecure:   c.Secure,
		SameSite:   domain.SameSite(c.SameSite),
	}
}

func toProto(c domain.Cookie) *proto.NetworkCookieParam {
	param := &proto.NetworkCookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		HTTPOnly: c.IsHTTPOnly,
		Secure:   c.IsSecure,
		SameSite: proto.NetworkCookieSameSite(c.SameSite),
	}
	if !c.IsSession() {
		param.Expires = proto.TimeSinceEpoch(c.Expires)
	}
	return param
}
