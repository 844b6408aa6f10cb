package toml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/bnema/browser-accounts-cli/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// Watch publishes field changes made to the accounts file by other processes
// until ctx is done. The parent directory is watched because saves replace
// the file through a rename.
func (r *Repository) Watch(ctx context.Context, log logger.Logger) error {
	if log == nil {
		log = logger.NewNop()
	}

	if err := r.prime(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create accounts watcher: %w", err)
	}

	dir := filepath.Dir(r.accountsPath)
	if err := os.MkdirAll(dir, accountsDirMode); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("create accounts directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch accounts directory %s: %w", dir, err)
	}

	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != r.accountsPath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				changes, err := r.reload(ctx)
				if err != nil {
					log.Warn("reload accounts after change", logger.String("path", r.accountsPath), logger.Error(err))
					continue
				}
				r.feed.publishAll(changes)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("accounts watcher error", logger.Error(err))
			}
		}
	}()

	return nil
}

func (r *Repository) prime(ctx context.Context) error {
	accounts, err := r.List(ctx)
	if err != nil {
		return fmt.Errorf("prime accounts snapshot: %w", err)
	}
	for _, account := range accounts {
		r.feed.remember(account)
	}
	return nil
}

// reload reads the file and diffs it against the snapshot under one read
// lock, so a concurrent Save cannot slip between the two.
func (r *Repository) reload(ctx context.Context) ([]accountPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(file.Accounts))
	for _, entry := range file.Accounts {
		accounts = append(accounts, fromSchema(entry))
	}
	return r.feed.reconcile(accounts), nil
}
