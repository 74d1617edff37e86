// Package record provides lazily navigable schedule records stored in a key-value store.
//
// Records are flat attribute bags keyed "<type>.<serial>" (for example "event.33950").
// Relationships between records are plain string references that are resolved
// into fetched records on demand.
//
// # Variants
//
//   - [Record] - generic attribute bag with structural equality
//   - [DbRecord] - a record that knows its own store key (serial) and can fetch others
//   - [Event] - a DbRecord with venue and speakers relationships
//
// # Binding a Store
//
// Fetching requires a bound [Store]. The package keeps one process-wide binding:
//
//	record.SetDB(db)
//	event, err := record.Fetch(ctx, "event.33950")
//
// Callers that prefer explicit injection create their own [Binding]:
//
//	b := record.NewBinding(db)
//	event, err := b.Fetch(ctx, "event.33950")
//
// Records returned by a binding keep a reference to it, so relationship
// accessors such as [Event.Venue] fetch through the same store.
//
// # Errors
//
//   - [MissingDatabaseError] - fetch attempted before a store was bound
//   - [ErrMissingField] - a relationship accessor needs a field the record lacks
//
// Errors returned by the bound store are passed through unchanged.
package record
