package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jacentio/schedule/record"
)

// File is a disk-backed record store. Writes are appended to a log file;
// opening the store replays the log into an in-memory index, last write wins.
type File struct {
	mu       sync.RWMutex
	path     string
	codec    codec
	f        *os.File
	index    map[string]entry
	registry *record.Registry
	closed   bool
}

// OpenFile opens (or creates) the store at cfg.Path using the default registry.
func OpenFile(cfg FileConfig) (*File, error) {
	return OpenFileWithRegistry(cfg, nil)
}

// OpenFileWithRegistry opens (or creates) the store at cfg.Path and rebuilds variants with registry.
func OpenFileWithRegistry(cfg FileConfig, registry *record.Registry) (*File, error) {
	cfg.validate()
	c, err := codecFor(cfg.Codec)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", cfg.Path, err)
	}
	f, err := os.OpenFile(cfg.Path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open store file %s: %w", cfg.Path, err)
	}

	s := &File{
		path:     cfg.Path,
		codec:    c,
		f:        f,
		index:    make(map[string]entry),
		registry: registryOrDefault(registry),
	}
	if err := s.replay(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to load %s: %w", cfg.Path, err)
	}
	return s, nil
}

// replay loads the log into the index. A final entry cut short by an
// interrupted append is dropped and truncated away.
func (s *File) replay() error {
	err := s.codec.decodeAll(s.f, func(e entry) error {
		if e.Deleted {
			delete(s.index, e.Key)
			return nil
		}
		s.index[e.Key] = e
		return nil
	})
	var torn *tornTailError
	if errors.As(err, &torn) {
		if err := s.f.Truncate(torn.offset); err != nil {
			return fmt.Errorf("failed to drop incomplete entry: %w", err)
		}
		return nil
	}
	return err
}

// Path returns the log file location.
func (s *File) Path() string { return s.path }

// Get returns a fresh instance of the record stored under key.
func (s *File) Get(_ context.Context, key string) (record.Variant, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	e, ok := s.index[key]
	if !ok {
		return nil, notFound(key)
	}
	return e.variant(s.registry), nil
}

// Set appends v to the log under key.
func (s *File) Set(_ context.Context, key string, v record.Variant) error {
	e, err := newEntry(key, v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.append(e); err != nil {
		return err
	}
	s.index[key] = e
	return nil
}

// Has reports whether key is present.
func (s *File) Has(_ context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}
	_, ok := s.index[key]
	return ok, nil
}

// Delete appends a tombstone for key. Deleting an absent key is not an error.
func (s *File) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.index[key]; !ok {
		return nil
	}
	if err := s.append(entry{Key: key, Deleted: true}); err != nil {
		return err
	}
	delete(s.index, key)
	return nil
}

// Keys returns all live keys in sorted order.
func (s *File) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return sortedKeys(s.index), nil
}

// Compact rewrites the log with only the live records, dropping
// superseded writes and tombstones.
func (s *File) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tmp := s.path + ".compact"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create compaction file: %w", err)
	}
	var buf bytes.Buffer
	for _, key := range sortedKeys(s.index) {
		if err := s.codec.encode(&buf, s.index[key]); err != nil {
			_ = out.Close()
			_ = os.Remove(tmp)
			return err
		}
	}
	if _, err := out.Write(buf.Bytes()); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write compaction file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close compaction file: %w", err)
	}

	if err := s.f.Close(); err != nil {
		return fmt.Errorf("failed to close store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		s.closed = true
		return fmt.Errorf("failed to reopen store file: %w", err)
	}
	s.f = f
	return nil
}

// Close releases the log file. Later calls return ErrClosed; closing twice is a no-op.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.index = nil
	return s.f.Close()
}

func (s *File) append(e entry) error {
	var buf bytes.Buffer
	if err := s.codec.encode(&buf, e); err != nil {
		return err
	}
	if _, err := s.f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append to %s: %w", s.path, err)
	}
	return nil
}
