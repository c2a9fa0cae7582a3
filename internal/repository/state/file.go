package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"noor-storefront/internal/domain"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

type fileRepo struct {
	mu     sync.Mutex
	dir    string
	logger *log.Logger
}

// NewFile stores each key as <dir>/<key>.json. The directory is created on first save.
func NewFile(dir string, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &fileRepo{dir: dir, logger: logger}
}

func (r *fileRepo) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("state: invalid key %q", key)
	}
	return filepath.Join(r.dir, key+".json"), nil
}

func (r *fileRepo) Load(_ context.Context, key string) ([]byte, error) {
	p, err := r.path(key)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("state file: load key=%s error=%v", key, err)
		return nil, err
	}
	return data, nil
}

// Save writes to a temp file and renames it over the target so readers never see a torn record.
func (r *fileRepo) Save(_ context.Context, key string, value []byte) error {
	p, err := r.path(key)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return fmt.Errorf("state: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(r.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("state: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("state: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("state: close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("state: rename %s: %w", key, err)
	}
	return nil
}

func (r *fileRepo) Delete(_ context.Context, key string) error {
	p, err := r.path(key)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (r *fileRepo) Ping(context.Context) error {
	info, err := os.Stat(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Created lazily on first save.
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("state: %s is not a directory", r.dir)
	}
	return nil
}
