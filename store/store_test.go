package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jacentio/schedule/record"
	"github.com/jacentio/schedule/store"
)

// backends returns a constructor per store implementation so the shared
// behavior is checked against each of them.
func backends() map[string]func(t *testing.T) record.Store {
	return map[string]func(t *testing.T) record.Store{
		"memory": func(t *testing.T) record.Store {
			return store.NewMemory()
		},
		"file-json": func(t *testing.T) record.Store {
			return openFile(t, filepath.Join(t.TempDir(), "db.jsonl"), store.CodecJSON)
		},
		"file-cbor": func(t *testing.T) record.Store {
			return openFile(t, filepath.Join(t.TempDir(), "db.cbor"), store.CodecCBOR)
		},
		"dynamo": func(t *testing.T) record.Store {
			return store.NewDynamo(newFakeDynamo("key"), store.DefaultDynamoConfig())
		},
	}
}

func openFile(t *testing.T, path, codec string) *store.File {
	t.Helper()
	s, err := store.OpenFile(store.FileConfig{Path: path, Codec: codec})
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func demoEvent() *record.Event {
	return record.NewEvent(record.Fields{
		"serial":       "event.33950",
		"name":         "There *Will* Be Bugs",
		"venue_serial": int64(1449),
		"speakers":     []any{int64(3471), int64(5199)},
		"time_start":   "2014-07-23 15:30:00",
		"rating":       4.5,
		"published":    true,
		"meta":         map[string]any{"track": "Python", "room": int64(251)},
	})
}

func TestStores_SetGet(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			ev := demoEvent()
			if err := s.Set(ctx, "event.33950", ev); err != nil {
				t.Fatalf("set: %v", err)
			}

			got, err := s.Get(ctx, "event.33950")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if _, ok := got.(*record.Event); !ok {
				t.Fatalf("expected *record.Event, got %T", got)
			}
			if !got.Equal(ev) {
				t.Errorf("expected stored record to equal the original\n got: %#v\nwant: %#v", got.Attrs(), ev.Attrs())
			}
		})
	}
}

func TestStores_GetReturnsFreshInstances(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			if err := s.Set(ctx, "event.33950", demoEvent()); err != nil {
				t.Fatalf("set: %v", err)
			}

			a, _ := s.Get(ctx, "event.33950")
			b, _ := s.Get(ctx, "event.33950")
			if a == b {
				t.Error("expected each Get to build a new instance")
			}
			if !a.Equal(b) {
				t.Error("expected instances to be equal")
			}
		})
	}
}

func TestStores_NotFound(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			_, err := open(t).Get(context.Background(), "venue.0")
			if !errors.Is(err, store.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStores_InvalidKey(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			if _, err := s.Get(ctx, ""); !errors.Is(err, store.ErrInvalidKey) {
				t.Errorf("Get: expected ErrInvalidKey, got %v", err)
			}
			if err := s.Set(ctx, "", demoEvent()); !errors.Is(err, store.ErrInvalidKey) {
				t.Errorf("Set: expected ErrInvalidKey, got %v", err)
			}
			if _, err := s.Has(ctx, ""); !errors.Is(err, store.ErrInvalidKey) {
				t.Errorf("Has: expected ErrInvalidKey, got %v", err)
			}
			if err := s.Set(ctx, "event.1", nil); !errors.Is(err, store.ErrNilRecord) {
				t.Errorf("Set(nil): expected ErrNilRecord, got %v", err)
			}
		})
	}
}

func TestStores_Has(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			ok, err := s.Has(ctx, "conference.115")
			if err != nil || ok {
				t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
			}
			if err := s.Set(ctx, "conference.115", record.NewDbRecord(record.Fields{"serial": "conference.115"})); err != nil {
				t.Fatalf("set: %v", err)
			}
			ok, err = s.Has(ctx, "conference.115")
			if err != nil || !ok {
				t.Errorf("expected (true, nil), got (%v, %v)", ok, err)
			}
		})
	}
}

func TestStores_Overwrite(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			_ = s.Set(ctx, "venue.1449", record.NewDbRecord(record.Fields{"name": "old"}))
			_ = s.Set(ctx, "venue.1449", record.NewDbRecord(record.Fields{"name": "Portland 251"}))

			got, err := s.Get(ctx, "venue.1449")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if name, _ := got.Attr("name"); name != "Portland 251" {
				t.Errorf("expected last write to win, got %v", name)
			}
		})
	}
}

func TestStores_DeleteAndKeys(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			for _, key := range []string{"speaker.5199", "event.33950", "venue.1449"} {
				if err := s.Set(ctx, key, record.NewDbRecord(record.Fields{"serial": key})); err != nil {
					t.Fatalf("set %s: %v", key, err)
				}
			}

			keys, err := s.(record.Lister).Keys(ctx)
			if err != nil {
				t.Fatalf("keys: %v", err)
			}
			expected := []string{"event.33950", "speaker.5199", "venue.1449"}
			if !reflect.DeepEqual(keys, expected) {
				t.Errorf("expected %v, got %v", expected, keys)
			}

			deleter := s.(record.Deleter)
			if err := deleter.Delete(ctx, "venue.1449"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := deleter.Delete(ctx, "venue.1449"); err != nil {
				t.Errorf("expected deleting an absent key to succeed, got %v", err)
			}
			if _, err := s.Get(ctx, "venue.1449"); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("expected ErrNotFound after delete, got %v", err)
			}
			keys, _ = s.(record.Lister).Keys(ctx)
			if len(keys) != 2 {
				t.Errorf("expected 2 keys after delete, got %v", keys)
			}
		})
	}
}

func TestStores_Closed(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			_ = s.Set(ctx, "venue.1449", record.NewDbRecord(nil))

			if err := s.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
			if _, err := s.Get(ctx, "venue.1449"); !errors.Is(err, store.ErrClosed) {
				t.Errorf("Get: expected ErrClosed, got %v", err)
			}
			if err := s.Set(ctx, "venue.1449", record.NewDbRecord(nil)); !errors.Is(err, store.ErrClosed) {
				t.Errorf("Set: expected ErrClosed, got %v", err)
			}
			if _, err := s.Has(ctx, "venue.1449"); !errors.Is(err, store.ErrClosed) {
				t.Errorf("Has: expected ErrClosed, got %v", err)
			}
			if _, err := s.(record.Lister).Keys(ctx); !errors.Is(err, store.ErrClosed) {
				t.Errorf("Keys: expected ErrClosed, got %v", err)
			}
		})
	}
}

func TestStores_FetchThroughBinding(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			_ = s.Set(ctx, "event.33950", demoEvent())
			_ = s.Set(ctx, "venue.1449", record.NewDbRecord(record.Fields{"serial": "venue.1449", "name": "Portland 251"}))

			v, err := record.NewBinding(s).Fetch(ctx, "event.33950")
			if err != nil {
				t.Fatalf("fetch: %v", err)
			}
			venue, err := v.(*record.Event).Venue(ctx)
			if err != nil {
				t.Fatalf("venue: %v", err)
			}
			if name, _ := venue.Attr("name"); name != "Portland 251" {
				t.Errorf("expected 'Portland 251', got %v", name)
			}

			_, err = v.(*record.Event).Speakers(ctx)
			if !errors.Is(err, store.ErrNotFound) {
				t.Errorf("expected missing speakers to surface ErrNotFound, got %v", err)
			}
		})
	}
}
