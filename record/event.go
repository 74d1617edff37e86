package record

import (
	"context"
	"fmt"
	"sync"

	"github.com/jacentio/schedule/internal/keys"
)

// Event is a conference session. It references a venue through "venue_serial"
// and its speakers through the ordered "speakers" list of local serials.
type Event struct {
	DbRecord

	mu       sync.Mutex
	speakers []Variant
}

// NewEvent creates an Event holding fields.
func NewEvent(fields Fields) *Event {
	return &Event{DbRecord: *NewDbRecordKind(KindEvent, fields)}
}

// Venue fetches the event's venue. It is resolved on every call.
func (e *Event) Venue(ctx context.Context) (Variant, error) {
	serial, ok := e.fields["venue_serial"]
	if !ok {
		return nil, fmt.Errorf("%w: venue_serial", ErrMissingField)
	}
	return e.Fetch(ctx, keys.Format("venue", serial))
}

// Speakers fetches the event's speakers in listed order. The first successful
// resolution is cached; later calls return the same slice without store reads.
func (e *Event) Speakers(ctx context.Context) ([]Variant, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.speakers != nil {
		return e.speakers, nil
	}

	raw, ok := e.fields["speakers"]
	if !ok {
		return nil, fmt.Errorf("%w: speakers", ErrMissingField)
	}
	serials, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("schedule: field speakers is %T, want a list", raw)
	}

	speakers := make([]Variant, 0, len(serials))
	for _, serial := range serials {
		spkr, err := e.Fetch(ctx, keys.Format("speaker", serial))
		if err != nil {
			return nil, err
		}
		speakers = append(speakers, spkr)
	}
	e.speakers = speakers
	return speakers, nil
}

// String renders "<Event 'name'>", falling back to the DbRecord form without a name.
func (e *Event) String() string {
	if name, ok := e.fields["name"]; ok {
		return "<" + e.kind + " " + repr(name) + ">"
	}
	return e.DbRecord.String()
}
