// Package store provides key-value stores for schedule records.
//
// Every store implements [record.Store], [record.Deleter] and [record.Lister]
// and rebuilds typed variants on read through a [record.Registry].
//
// # Implementations
//
//   - [Memory] - in-process map, for tests and short-lived tools
//   - [File] - append-only log on disk (JSON lines or a CBOR sequence),
//     replayed into an index when opened
//   - [Dynamo] - one DynamoDB item per record
//
// # Configuration
//
// Use [DefaultFileConfig] and [DefaultDynamoConfig] and override what you need:
//
//	cfg := store.DefaultFileConfig()
//	cfg.Path = "data/schedule.db"
//	cfg.Codec = store.CodecCBOR
//	db, err := store.OpenFile(cfg)
//
// # Errors
//
//   - [ErrNotFound] - key is absent
//   - [ErrInvalidKey] - key is empty
//   - [ErrNilRecord] - Set without a record
//   - [ErrClosed] - store was closed
//   - [ErrUnknownCodec] - file store codec is not supported
package store
