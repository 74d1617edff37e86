// Package feed reads the raw conference schedule document.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jacentio/schedule/record"
)

// Default locations of the schedule feed.
const (
	DefaultPath = "data/osconfeed.json"
	DefaultURL  = "http://www.oreilly.com/pub/sc/osconfeed"
)

// ErrNoDocument is returned when the feed file is missing and no URL is set.
var ErrNoDocument = errors.New("schedule: feed document not found")

// Document is the top-level shape of a schedule feed.
type Document struct {
	Schedule map[string][]record.Fields `json:"Schedule" yaml:"Schedule"`
}

// FileSource reads a schedule document from Path, downloading it from URL
// first when the file does not exist. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON.
type FileSource struct {
	Path string
	URL  string

	// Client performs the download. Default: http.DefaultClient.
	Client *http.Client

	// Logger reports downloads. Default: slog.Default().
	Logger *slog.Logger
}

// Collections implements loader.Source.
func (s *FileSource) Collections(ctx context.Context) (map[string][]record.Fields, error) {
	if err := s.fetch(ctx); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path())
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	doc, err := Decode(data, isYAML(s.path()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path(), err)
	}
	return doc.Schedule, nil
}

func (s *FileSource) path() string {
	if s.Path == "" {
		return DefaultPath
	}
	return s.Path
}

func (s *FileSource) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// fetch downloads the document unless it is already on disk.
func (s *FileSource) fetch(ctx context.Context) error {
	path := s.path()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat feed: %w", err)
	}
	if s.URL == "" {
		return fmt.Errorf("%w: %s", ErrNoDocument, path)
	}

	s.logger().Warn("downloading feed", "url", s.URL, "path", path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", s.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: %s", s.URL, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create feed directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create feed file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("download %s: %w", s.URL, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write feed file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write feed file: %w", err)
	}
	return nil
}

// Decode parses a schedule document. Field values are normalized with
// record.Normalize, so JSON integers come back as int64.
func Decode(data []byte, asYAML bool) (*Document, error) {
	var doc Document
	if asYAML {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	}
	for name, records := range doc.Schedule {
		for i, fields := range records {
			records[i] = record.NormalizeFields(fields)
		}
		doc.Schedule[name] = records
	}
	return &doc, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
