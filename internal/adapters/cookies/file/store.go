package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/bnema/browser-accounts-cli/internal/ports"
)

const (
	storeDirMode   = 0o700
	cookieFileMode = 0o600
	cookieFileExt  = ".json"
	tempPattern    = ".cookies-*.json.tmp"
)

// Store keeps one JSON file per account under root. Jars are written in
// cleartext.
type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.CookieStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

func (s *Store) Save(ctx context.Context, id domain.AccountID, jar []domain.Cookie) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.PathFor(id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(domain.CloneJar(jar), "", "  ")
	if err != nil {
		return fmt.Errorf("encode cookie jar %q: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.root, storeDirMode); err != nil {
		return fmt.Errorf("create cookie directory: %w", err)
	}

	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("write cookie jar %q: %w", id, err)
	}

	return nil
}

func (s *Store) Load(ctx context.Context, id domain.AccountID) ([]domain.Cookie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.PathFor(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.Cookie{}, nil
		}
		return nil, fmt.Errorf("read cookie jar %q: %w", id, err)
	}

	var jar []domain.Cookie
	if err := json.Unmarshal(data, &jar); err != nil {
		return nil, fmt.Errorf("decode cookie jar %q: %w", id, err)
	}

	return domain.CloneJar(jar), nil
}

func (s *Store) Delete(ctx context.Context, id domain.AccountID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.PathFor(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete cookie jar %q: %w", id, err)
	}

	return nil
}

// PathFor maps an account id to its cookie file. Ids that could escape root
// or that carry surrounding whitespace are rejected, so distinct ids never
// share a file.
func (s *Store) PathFor(id domain.AccountID) (string, error) {
	raw := string(id)
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: empty", domain.ErrInvalidAccountID)
	}
	if strings.TrimSpace(raw) != raw {
		return "", fmt.Errorf("%w: %q has surrounding whitespace", domain.ErrInvalidAccountID, id)
	}

	if strings.ContainsAny(raw, `/\`) || raw == "." || raw == ".." || strings.ContainsRune(raw, 0) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidAccountID, id)
	}

	return filepath.Join(s.root, raw+cookieFileExt), nil
}

func writeAtomic(path string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tempFile.Chmod(cookieFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}

	cleanup = false
	return nil
}
