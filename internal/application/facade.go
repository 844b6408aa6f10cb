package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/bnema/browser-accounts-cli/internal/domquery"
	"github.com/bnema/browser-accounts-cli/internal/logger"
	"github.com/bnema/browser-accounts-cli/internal/ports"
)

const DefaultPollInterval = 50 * time.Millisecond

var _ ports.Browser = (*Facade)(nil)

type FacadeOptions struct {
	// AllowedHost is the only host Navigate will visit. Empty allows any.
	AllowedHost  string
	PollInterval time.Duration
	Logger       logger.Logger
}

// Facade serializes every engine call onto one goroutine that owns the
// engine for its whole life.
type Facade struct {
	engine       ports.Engine
	allowedHost  string
	pollInterval time.Duration
	log          logger.Logger

	calls   chan func()
	done    chan struct{}
	stopped chan struct{}

	disposeOnce sync.Once
	disposeErr  error
}

func NewFacade(engine ports.Engine, opts FacadeOptions) *Facade {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	f := &Facade{
		engine:       engine,
		allowedHost:  strings.ToLower(opts.AllowedHost),
		pollInterval: opts.PollInterval,
		log:          opts.Logger,
		calls:        make(chan func()),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	if engine == nil {
		close(f.stopped)
		return f
	}
	go f.loop()
	return f
}

func (f *Facade) loop() {
	defer close(f.stopped)
	for {
		select {
		case call := <-f.calls:
			call()
		case <-f.done:
			return
		}
	}
}

func (f *Facade) Initialized() bool {
	if f == nil || f.engine == nil {
		return false
	}
	select {
	case <-f.done:
		return false
	default:
		return true
	}
}

func (f *Facade) do(ctx context.Context, fn func(context.Context) error) error {
	if f == nil || f.engine == nil || f.calls == nil {
		return domain.ErrEngineNotInitialized
	}

	result := make(chan error, 1)
	call := func() { result <- fn(ctx) }

	select {
	case f.calls <- call:
	case <-f.done:
		return domain.ErrEngineDisposed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Facade) ExecuteScript(ctx context.Context, js string) (string, bool, error) {
	var (
		raw    string
		isNull bool
	)
	err := f.do(ctx, func(ctx context.Context) error {
		var err error
		raw, isNull, err = f.engine.Eval(ctx, js)
		return err
	})
	if err != nil {
		return "", false, err
	}
	value, ok := normalizeScriptResult(raw, isNull)
	return value, ok, nil
}

// normalizeScriptResult strips one layer of quoting and folds null and
// undefined into ok == false.
func normalizeScriptResult(raw string, isNull bool) (string, bool) {
	if isNull {
		return "", false
	}
	value := strings.TrimSpace(raw)
	if value == "null" || value == "undefined" {
		return "", false
	}
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		if unquoted, err := strconv.Unquote(value); err == nil {
			return unquoted, true
		}
		return value[1 : len(value)-1], true
	}
	return value, true
}

func (f *Facade) Navigate(ctx context.Context, rawURL string) error {
	if !f.hostAllowed(rawURL) {
		f.log.Debug("navigation blocked", logger.String("url", rawURL), logger.String("allowed_host", f.allowedHost))
		return nil
	}
	return f.do(ctx, func(ctx context.Context) error {
		return f.engine.Navigate(ctx, rawURL)
	})
}

func (f *Facade) hostAllowed(rawURL string) bool {
	if f == nil {
		return false
	}
	if f.allowedHost == "" {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.ToLower(parsed.Hostname()) == f.allowedHost
}

func (f *Facade) Reload(ctx context.Context) error {
	return f.do(ctx, func(ctx context.Context) error {
		return f.engine.Reload(ctx)
	})
}

func (f *Facade) ElementExists(ctx context.Context, selector string) (bool, error) {
	value, ok, err := f.ExecuteScript(ctx, domquery.Exists(selector))
	if err != nil {
		return false, err
	}
	return ok && value == "true", nil
}

// WaitForElementExists polls ElementExists until it reports true or timeout
// elapses. It returns false without error on timeout, including when a single
// check is still running at the deadline.
func (f *Facade) WaitForElementExists(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		found, err := f.ElementExists(pollCtx, selector)
		if err != nil {
			if ctx.Err() == nil && pollCtx.Err() != nil {
				return false, nil
			}
			return false, err
		}
		if found {
			return true, nil
		}

		select {
		case <-ticker.C:
		case <-pollCtx.Done():
			if err := ctx.Err(); err != nil {
				return false, err
			}
			return false, nil
		}
	}
}

func (f *Facade) GetCookies(ctx context.Context) ([]domain.Cookie, error) {
	var jar []domain.Cookie
	err := f.do(ctx, func(ctx context.Context) error {
		var err error
		jar, err = f.engine.Cookies(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return domain.CloneJar(jar), nil
}

// SetCookies replaces the whole jar: existing cookies are cleared before the
// new ones are added, in one engine turn.
func (f *Facade) SetCookies(ctx context.Context, jar []domain.Cookie) error {
	return f.do(ctx, func(ctx context.Context) error {
		if err := f.engine.ClearCookies(ctx); err != nil {
			return err
		}
		if len(jar) == 0 {
			return nil
		}
		return f.engine.AddCookies(ctx, domain.CloneJar(jar))
	})
}

func (f *Facade) Source() string {
	var source string
	err := f.do(context.Background(), func(context.Context) error {
		source = f.engine.URL()
		return nil
	})
	if err != nil {
		return ""
	}
	return source
}

// Dispose closes the engine on its own goroutine and stops the dispatcher.
// When the dispatcher is still busy once ctx is done, the engine is killed
// from the calling goroutine instead. Later calls return the first result.
func (f *Facade) Dispose(ctx context.Context) error {
	if f == nil || f.engine == nil {
		return domain.ErrEngineNotInitialized
	}
	f.disposeOnce.Do(func() {
		f.disposeErr = f.dispose(ctx)
	})
	return f.disposeErr
}

func (f *Facade) dispose(ctx context.Context) error {
	result := make(chan error, 1)
	closeCall := func() { result <- f.engine.Close() }

	select {
	case f.calls <- closeCall:
	case <-ctx.Done():
		close(f.done)
		return f.forceClose(ctx.Err())
	}

	select {
	case err := <-result:
		close(f.done)
		<-f.stopped
		return err
	case <-ctx.Done():
		close(f.done)
		f.log.Warn("engine close still running", logger.Error(ctx.Err()))
		return fmt.Errorf("close engine: %w", ctx.Err())
	}
}

// killer is implemented by engines that can be torn down while another call
// is still running on the dispatcher.
type killer interface {
	Kill() error
}

func (f *Facade) forceClose(cause error) error {
	f.log.Warn("engine busy at dispose, forcing close", logger.Error(cause))

	var err error
	if k, ok := f.engine.(killer); ok {
		err = k.Kill()
	} else {
		err = f.engine.Close()
	}
	return errors.Join(fmt.Errorf("dispose engine: dispatcher busy: %w", cause), err)
}
