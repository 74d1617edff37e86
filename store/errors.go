package store

import "errors"

var (
	// ErrNotFound is returned when a key is absent (or its item has expired).
	ErrNotFound = errors.New("schedule: record not found")

	// ErrInvalidKey is returned when a key cannot be used, such as the empty key.
	ErrInvalidKey = errors.New("schedule: invalid record key")

	// ErrNilRecord is returned when Set is called without a record.
	ErrNilRecord = errors.New("schedule: nil record")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("schedule: store is closed")

	// ErrUnknownCodec is returned when a file store is configured with an unsupported codec.
	ErrUnknownCodec = errors.New("schedule: unknown codec")
)
