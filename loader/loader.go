// Package loader flattens a nested schedule document into keyed records.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/jacentio/schedule/internal/keys"
	"github.com/jacentio/schedule/record"
)

// DefaultSentinel is the key whose presence marks a loaded database.
const DefaultSentinel = "conference.115"

// ErrMissingSerial is returned for a raw record without a serial field.
var ErrMissingSerial = errors.New("schedule: record has no serial")

// Source supplies the raw schedule: collection name to list of records.
type Source interface {
	Collections(ctx context.Context) (map[string][]record.Fields, error)
}

// Collections is an in-memory Source.
type Collections map[string][]record.Fields

// Collections returns c itself.
func (c Collections) Collections(context.Context) (map[string][]record.Fields, error) {
	return c, nil
}

type options struct {
	logger   *slog.Logger
	registry *record.Registry
	name     string
}

// Option configures Load and EnsureLoaded.
type Option func(*options)

// WithLogger sets the logger for load progress. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegistry sets the variant registry. Default: record.DefaultRegistry().
func WithRegistry(registry *record.Registry) Option {
	return func(o *options) { o.registry = registry }
}

// WithName names the database in log output.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.registry == nil {
		o.registry = record.DefaultRegistry()
	}
	return o
}

// dbName describes db for log output: its path when it has one, else its type.
func dbName(db record.Store) string {
	if p, ok := db.(interface{ Path() string }); ok {
		return p.Path()
	}
	return fmt.Sprintf("%T", db)
}

// Load writes every record of src into db under "<type>.<serial>".
//
// The serial field of each stored record is rewritten to the full key.
// Collections are processed in name order and records in document order;
// the first failure stops the load.
func Load(ctx context.Context, src Source, db record.Store, opts ...Option) error {
	o := newOptions(opts)

	collections, err := src.Collections(ctx)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	if o.name == "" {
		o.name = dbName(db)
	}
	loadID := uuid.NewString()
	o.logger.Warn("loading database", "db", o.name, "load_id", loadID)

	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)

	total := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		recordType, build := o.registry.ForCollection(name)
		for i, raw := range collections[name] {
			serial, ok := raw["serial"]
			if !ok || serial == nil {
				return fmt.Errorf("%s[%d]: %w", name, i, ErrMissingSerial)
			}
			key := keys.Format(recordType, serial)
			fields := record.NormalizeFields(raw.Clone())
			fields["serial"] = key
			if err := db.Set(ctx, key, build(fields)); err != nil {
				return fmt.Errorf("store %s: %w", key, err)
			}
			total++
		}
		o.logger.Debug("collection loaded", "collection", name, "records", len(collections[name]))
	}

	o.logger.Info("database loaded", "load_id", loadID, "records", total)
	return nil
}

// EnsureLoaded loads src into db unless sentinel is already present.
// An empty sentinel means DefaultSentinel. It reports whether a load ran.
func EnsureLoaded(ctx context.Context, src Source, db record.Store, sentinel string, opts ...Option) (bool, error) {
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	ok, err := db.Has(ctx, sentinel)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", sentinel, err)
	}
	if ok {
		return false, nil
	}
	if err := Load(ctx, src, db, opts...); err != nil {
		return false, err
	}
	return true, nil
}
