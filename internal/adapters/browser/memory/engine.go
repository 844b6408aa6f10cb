// Package memory is an in-process browser engine. Pages are produced by a
// Site from the current URL and cookie jar, which makes switch flows
// reproducible without a real browser.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/bnema/browser-accounts-cli/internal/domquery"
	"github.com/bnema/browser-accounts-cli/internal/ports"
)

// Element holds the attributes of one matched node.
type Element map[string]string

// Page maps a CSS selector to the element it matches.
type Page map[string]Element

type Site func(url string, jar []domain.Cookie) Page

// Recorder observes every engine operation, in order.
type Recorder func(op string)

var _ ports.Engine = (*Engine)(nil)

type Engine struct {
	mu         sync.Mutex
	site       Site
	record     Recorder
	profileDir string
	url        string
	jar        []domain.Cookie
	page       Page
	closed     bool
}

func NewEngine(site Site, startURL string) *Engine {
	e := &Engine{site: site, url: startURL, jar: []domain.Cookie{}}
	e.render()
	return e
}

func (e *Engine) SetRecorder(record Recorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record = record
}

func (e *Engine) ProfileDir() string {
	return e.profileDir
}

func (e *Engine) Eval(ctx context.Context, js string) (string, bool, error) {
	if err := e.guard(ctx); err != nil {
		return "", false, err
	}

	query, ok := domquery.Parse(js)
	if !ok {
		return "", false, fmt.Errorf("evaluate script: unsupported by memory engine")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch query.Kind {
	case domquery.KindExists:
		_, found := e.page[query.Selector]
		if found {
			return "true", false, nil
		}
		return "false", false, nil
	case domquery.KindAttribute:
		el, found := e.page[query.Selector]
		if !found {
			return "", true, nil
		}
		value, found := el[query.Attribute]
		if !found {
			return "", true, nil
		}
		// Mirror engines that hand back JSON-encoded strings.
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", false, fmt.Errorf("encode attribute: %w", err)
		}
		return string(encoded), false, nil
	case domquery.KindLocation:
		return e.url, false, nil
	default:
		return "", true, nil
	}
}

func (e *Engine) Navigate(ctx context.Context, url string) error {
	if err := e.guard(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.url = url
	e.emit("navigate:" + url)
	e.render()
	return nil
}

func (e *Engine) Reload(ctx context.Context) error {
	if err := e.guard(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.emit("reload")
	e.render()
	return nil
}

func (e *Engine) URL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.url
}

func (e *Engine) Cookies(ctx context.Context) ([]domain.Cookie, error) {
	if err := e.guard(ctx); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.CloneJar(e.jar), nil
}

func (e *Engine) ClearCookies(ctx context.Context) error {
	if err := e.guard(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.jar = []domain.Cookie{}
	e.emit("clear_cookies")
	return nil
}

// AddCookies replaces cookies sharing name, domain and path, like a real jar.
func (e *Engine) AddCookies(ctx context.Context, jar []domain.Cookie) error {
	if err := e.guard(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, cookie := range jar {
		replaced := false
		for i := range e.jar {
			if e.jar[i].Name == cookie.Name && e.jar[i].Domain == cookie.Domain && e.jar[i].Path == cookie.Path {
				e.jar[i] = cookie
				replaced = true
				break
			}
		}
		if !replaced {
			e.jar = append(e.jar, cookie)
		}
		e.emit("add_cookie:" + cookie.Name)
	}
	return nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return domain.ErrEngineDisposed
	}
	e.closed = true
	e.emit("close")
	return nil
}

func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) guard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return domain.ErrEngineDisposed
	}
	return nil
}

// render must be called with mu held.
func (e *Engine) render() {
	if e.site == nil {
		e.page = Page{}
		return
	}
	page := e.site(e.url, domain.CloneJar(e.jar))
	if page == nil {
		page = Page{}
	}
	e.page = page
}

// emit must be called with mu held.
func (e *Engine) emit(op string) {
	if e.record != nil {
		e.record(op)
	}
}
