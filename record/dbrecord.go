package record

import (
	"context"
	"sync"
)

// DbRecord is a record that carries its own store key in the "serial" field
// and can fetch other records through a Binding.
type DbRecord struct {
	Record
	db *Binding
}

// NewDbRecord creates a DbRecord holding fields.
func NewDbRecord(fields Fields) *DbRecord {
	return NewDbRecordKind(KindDbRecord, fields)
}

// NewDbRecordKind creates a DbRecord reporting kind as its variant name.
// It is the building block for variants registered outside this package.
func NewDbRecordKind(kind string, fields Fields) *DbRecord {
	return &DbRecord{Record: Record{kind: kind, fields: NormalizeFields(fields.Clone())}}
}

// Serial returns the record's store key, or "" when it has none.
func (d *DbRecord) Serial() string {
	v, ok := d.fields["serial"]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Binding returns the binding the record fetches through.
// Records that were never fetched use the process-wide binding.
func (d *DbRecord) Binding() *Binding {
	if d.db == nil {
		return defaultBinding
	}
	return d.db
}

// Fetch looks key up in the record's binding. A MissingDatabaseError names
// this record's variant.
func (d *DbRecord) Fetch(ctx context.Context, key string) (Variant, error) {
	return d.Binding().fetch(ctx, d.kind, key)
}

// String renders "<Kind serial='...'>", or the Record form when the record has no serial.
func (d *DbRecord) String() string {
	if serial, ok := d.fields["serial"]; ok {
		return "<" + d.kind + " serial=" + repr(serial) + ">"
	}
	return d.Record.String()
}

func (d *DbRecord) bind(b *Binding) { d.db = b }

// binder is implemented by variants that remember the binding they came from.
type binder interface {
	bind(b *Binding)
}

// Binding holds the store records are fetched from.
// The zero value is an unbound Binding.
type Binding struct {
	mu sync.RWMutex
	db Store
}

// NewBinding creates a Binding bound to db.
func NewBinding(db Store) *Binding {
	return &Binding{db: db}
}

// SetDB replaces the bound store.
func (b *Binding) SetDB(db Store) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.db = db
}

// GetDB returns the bound store, or nil if none was set.
func (b *Binding) GetDB() Store {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.db
}

// Fetch returns the record stored under key.
func (b *Binding) Fetch(ctx context.Context, key string) (Variant, error) {
	return b.fetch(ctx, KindDbRecord, key)
}

func (b *Binding) fetch(ctx context.Context, caller, key string) (Variant, error) {
	db := b.GetDB()
	if db == nil {
		return nil, &MissingDatabaseError{Variant: caller}
	}
	v, err := db.Get(ctx, key)
	if err != nil {
		// Store errors (missing key, misuse, closed) are the caller's to interpret.
		return nil, err
	}
	if r, ok := v.(binder); ok {
		r.bind(b)
	}
	return v, nil
}

var defaultBinding = &Binding{}

// SetDB binds db process-wide.
func SetDB(db Store) { defaultBinding.SetDB(db) }

// GetDB returns the process-wide store, or nil if none was bound.
func GetDB() Store { return defaultBinding.GetDB() }

// Fetch returns the record stored under key in the process-wide store.
func Fetch(ctx context.Context, key string) (Variant, error) {
	return defaultBinding.Fetch(ctx, key)
}

// DefaultBinding returns the process-wide binding.
func DefaultBinding() *Binding { return defaultBinding }
