package record

import (
	"reflect"
	"strings"
)

// Variant names of the built-in record types.
const (
	KindRecord   = "Record"
	KindDbRecord = "DbRecord"
	KindEvent    = "Event"
)

// Variant is implemented by every record type.
type Variant interface {
	// Kind returns the concrete variant name (e.g., "Event").
	Kind() string

	// Attr returns a single field value.
	Attr(name string) (any, bool)

	// Attrs returns a copy of the full field mapping.
	Attrs() Fields

	// Equal reports structural equality: same variant and equal fields.
	Equal(other any) bool

	String() string
}

// Record is an open attribute bag.
type Record struct {
	kind   string
	fields Fields
}

// New creates a generic Record holding a normalized copy of fields.
func New(fields Fields) *Record {
	return &Record{kind: KindRecord, fields: NormalizeFields(fields.Clone())}
}

// Kind returns the variant name.
func (r *Record) Kind() string { return r.kind }

// Attr returns the value of a field.
func (r *Record) Attr(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Attrs returns a copy of the record's fields.
func (r *Record) Attrs() Fields { return r.fields.Clone() }

// Equal reports whether other is a Variant of the same kind with equal fields.
// Values of any other type are never equal to a Record.
func (r *Record) Equal(other any) bool {
	o, ok := other.(Variant)
	if !ok || isNil(o) {
		return false
	}
	return r.kind == o.Kind() && reflect.DeepEqual(r.fields, o.Attrs())
}

// String renders the record as "<Kind field=value ...>" with sorted field names.
func (r *Record) String() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(r.kind)
	for _, name := range r.fields.Names() {
		b.WriteString(" ")
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(repr(r.fields[name]))
	}
	b.WriteString(">")
	return b.String()
}

func isNil(v Variant) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
