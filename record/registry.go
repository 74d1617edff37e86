package record

import (
	"sort"

	"github.com/jacentio/schedule/internal/keys"
)

// Constructor builds a variant from its fields.
type Constructor func(fields Fields) Variant

// Registry maps variant names to constructors. Collections whose variant
// name is not registered are built as generic DbRecords.
type Registry struct {
	byName map[string]Constructor
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Constructor),
	}
}

// DefaultRegistry returns a Registry with the built-in Event variant registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindEvent, func(f Fields) Variant { return NewEvent(f) })
	return r
}

// Register adds or replaces the constructor for a variant name.
func (r *Registry) Register(name string, c Constructor) {
	r.byName[name] = c
}

// Lookup returns the constructor registered for a variant name.
func (r *Registry) Lookup(name string) (Constructor, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Names returns all registered variant names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForCollection returns the record type for a collection ("events" -> "event")
// and the constructor for its variant ("Event"), defaulting to DbRecord.
func (r *Registry) ForCollection(collection string) (string, Constructor) {
	recordType := keys.RecordType(collection)
	if c, ok := r.byName[keys.VariantName(recordType)]; ok {
		return recordType, c
	}
	return recordType, func(f Fields) Variant { return NewDbRecord(f) }
}

// Build reconstructs a stored variant from its kind and fields.
// Unregistered kinds come back as DbRecords that keep their kind name.
func (r *Registry) Build(kind string, fields Fields) Variant {
	if c, ok := r.byName[kind]; ok {
		return c(fields)
	}
	switch kind {
	case KindRecord:
		return New(fields)
	case "", KindDbRecord:
		return NewDbRecord(fields)
	default:
		return NewDbRecordKind(kind, fields)
	}
}
