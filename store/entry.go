package store

import (
	"fmt"

	"github.com/jacentio/schedule/record"
)

// entry is the stored form of a record: its key, variant name and fields.
type entry struct {
	Key     string        `json:"key" cbor:"key"`
	Kind    string        `json:"kind,omitempty" cbor:"kind,omitempty"`
	Fields  record.Fields `json:"fields,omitempty" cbor:"fields,omitempty"`
	Deleted bool          `json:"deleted,omitempty" cbor:"deleted,omitempty"`
}

// newEntry captures v for storage under key.
func newEntry(key string, v record.Variant) (entry, error) {
	if err := checkKey(key); err != nil {
		return entry{}, err
	}
	if v == nil {
		return entry{}, fmt.Errorf("%w: %s", ErrNilRecord, key)
	}
	return entry{Key: key, Kind: v.Kind(), Fields: v.Attrs()}, nil
}

// variant rebuilds the stored record as a fresh instance.
func (e entry) variant(registry *record.Registry) record.Variant {
	return registry.Build(e.Kind, e.Fields.Clone())
}

// checkKey rejects keys no store can hold.
func checkKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	return nil
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}

func registryOrDefault(registry *record.Registry) *record.Registry {
	if registry == nil {
		return record.DefaultRegistry()
	}
	return registry
}
