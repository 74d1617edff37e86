package record_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/jacentio/schedule/record"
)

var errStubNotFound = errors.New("stub: key not found")

// countingStore is an in-memory record.Store that counts Get calls per key.
type countingStore struct {
	records map[string]record.Variant
	gets    map[string]int
	getErr  error
}

func newCountingStore(vs ...record.Variant) *countingStore {
	s := &countingStore{
		records: make(map[string]record.Variant),
		gets:    make(map[string]int),
	}
	for _, v := range vs {
		serial, _ := v.Attr("serial")
		s.records[fmt.Sprint(serial)] = v
	}
	return s
}

func (s *countingStore) Get(_ context.Context, key string) (record.Variant, error) {
	s.gets[key]++
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errStubNotFound, key)
	}
	return v, nil
}

func (s *countingStore) Set(_ context.Context, key string, v record.Variant) error {
	s.records[key] = v
	return nil
}

func (s *countingStore) Has(_ context.Context, key string) (bool, error) {
	_, ok := s.records[key]
	return ok, nil
}

func (s *countingStore) Close() error { return nil }

func (s *countingStore) totalGets() int {
	n := 0
	for _, c := range s.gets {
		n += c
	}
	return n
}

// scheduleStore returns a store holding the demo event, venue and speakers.
func scheduleStore() *countingStore {
	return newCountingStore(
		record.NewEvent(record.Fields{
			"serial":       "event.33950",
			"name":         "There *Will* Be Bugs",
			"venue_serial": int64(1449),
			"speakers":     []any{int64(3471), int64(5199)},
		}),
		record.NewDbRecord(record.Fields{
			"serial": "venue.1449",
			"name":   "Portland 251",
		}),
		record.NewDbRecord(record.Fields{
			"serial": "speaker.3471",
			"name":   "Anna Martelli Ravenscroft",
		}),
		record.NewDbRecord(record.Fields{
			"serial": "speaker.5199",
			"name":   "Alex Martelli",
		}),
	)
}
