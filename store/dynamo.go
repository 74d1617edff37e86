package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/schedule/record"
)

// DynamoAPI is the part of the DynamoDB client Dynamo uses.
// *dynamodb.Client satisfies it.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Dynamo stores one DynamoDB item per record: the key, the variant name and
// the fields as a map attribute.
type Dynamo struct {
	client   DynamoAPI
	config   DynamoConfig
	registry *record.Registry

	mu     sync.RWMutex
	closed bool
}

// NewDynamo creates a new Dynamo store using the default registry.
func NewDynamo(client DynamoAPI, config DynamoConfig) *Dynamo {
	return NewDynamoWithRegistry(client, config, nil)
}

// NewDynamoWithRegistry creates a new Dynamo store that rebuilds variants with registry.
func NewDynamoWithRegistry(client DynamoAPI, config DynamoConfig, registry *record.Registry) *Dynamo {
	config.validate()
	return &Dynamo{
		client:   client,
		config:   config,
		registry: registryOrDefault(registry),
	}
}

// SetRegistry sets the registry used to rebuild variants.
func (s *Dynamo) SetRegistry(registry *record.Registry) {
	s.registry = registryOrDefault(registry)
}

// Registry returns the registry used to rebuild variants.
func (s *Dynamo) Registry() *record.Registry {
	return s.registry
}

// Config returns the validated configuration.
func (s *Dynamo) Config() DynamoConfig {
	return s.config
}

// Get retrieves a record by key, returning ErrNotFound if missing or expired.
func (s *Dynamo) Get(ctx context.Context, key string) (record.Variant, error) {
	if err := s.check(key); err != nil {
		return nil, err
	}
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.Table),
		Key:            s.itemKey(key),
		ConsistentRead: aws.Bool(s.config.ConsistentRead),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil || IsDeleted(result.Item) {
		return nil, notFound(key)
	}

	_, v, err := DecodeItem(s.config, s.registry, result.Item)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

// Set writes v under key, replacing any previous item.
func (s *Dynamo) Set(ctx context.Context, key string, v record.Variant) error {
	if err := s.check(key); err != nil {
		return err
	}
	item, err := EncodeItem(s.config, key, v)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.Table),
		Item:      item,
	})
	return err
}

// Has reports whether a live item exists for key.
func (s *Dynamo) Has(ctx context.Context, key string) (bool, error) {
	if err := s.check(key); err != nil {
		return false, err
	}
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(s.config.Table),
		Key:                  s.itemKey(key),
		ConsistentRead:       aws.Bool(s.config.ConsistentRead),
		ProjectionExpression: aws.String("#k, #ttl"),
		ExpressionAttributeNames: mergeExprNames(
			map[string]string{"#k": s.config.KeyAttr},
			TTLFilterNames(),
		),
	})
	if err != nil {
		return false, err
	}
	return result.Item != nil && !IsDeleted(result.Item), nil
}

// Delete removes the item for key. Deleting an absent key is not an error.
func (s *Dynamo) Delete(ctx context.Context, key string) error {
	if err := s.check(key); err != nil {
		return err
	}
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.config.Table),
		Key:       s.itemKey(key),
	})
	return err
}

// Keys scans the table for the keys of all live items, sorted.
func (s *Dynamo) Keys(ctx context.Context) ([]string, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:            aws.String(s.config.Table),
		ProjectionExpression: aws.String("#k"),
		FilterExpression:     aws.String(TTLFilterExpr()),
		ExpressionAttributeNames: mergeExprNames(
			map[string]string{"#k": s.config.KeyAttr},
			TTLFilterNames(),
		),
		ExpressionAttributeValues: TTLFilterValues(),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if v, ok := item[s.config.KeyAttr].(*types.AttributeValueMemberS); ok {
				keys = append(keys, v.Value)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close marks the store closed. The DynamoDB client is owned by the caller.
func (s *Dynamo) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Dynamo) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Dynamo) check(key string) error {
	if s.isClosed() {
		return ErrClosed
	}
	return checkKey(key)
}

func (s *Dynamo) itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		s.config.KeyAttr: &types.AttributeValueMemberS{Value: key},
	}
}

// EncodeItem converts a record into the DynamoDB item stored under key.
func EncodeItem(cfg DynamoConfig, key string, v record.Variant) (map[string]types.AttributeValue, error) {
	cfg.validate()
	e, err := newEntry(key, v)
	if err != nil {
		return nil, err
	}
	fields, err := attributevalue.MarshalMap(tagFloats(map[string]any(e.Fields)))
	if err != nil {
		return nil, fmt.Errorf("marshal fields of %s: %w", key, err)
	}
	return map[string]types.AttributeValue{
		cfg.KeyAttr:    &types.AttributeValueMemberS{Value: e.Key},
		cfg.KindAttr:   &types.AttributeValueMemberS{Value: e.Kind},
		cfg.FieldsAttr: &types.AttributeValueMemberM{Value: fields},
	}, nil
}

// DecodeItem converts a stored DynamoDB item back into its key and record.
// A nil registry uses the default one.
func DecodeItem(cfg DynamoConfig, registry *record.Registry, item map[string]types.AttributeValue) (string, record.Variant, error) {
	cfg.validate()
	keyAttr, ok := item[cfg.KeyAttr].(*types.AttributeValueMemberS)
	if !ok {
		return "", nil, fmt.Errorf("%w: item has no %q string attribute", ErrInvalidKey, cfg.KeyAttr)
	}
	e := entry{Key: keyAttr.Value, Fields: record.Fields{}}
	if kind, ok := item[cfg.KindAttr].(*types.AttributeValueMemberS); ok {
		e.Kind = kind.Value
	}
	if m, ok := item[cfg.FieldsAttr].(*types.AttributeValueMemberM); ok {
		err := attributevalue.UnmarshalMapWithOptions(m.Value, &e.Fields, func(o *attributevalue.DecoderOptions) {
			o.UseNumber = true
		})
		if err != nil {
			return "", nil, fmt.Errorf("unmarshal fields: %w", err)
		}
		for k, v := range e.Fields {
			e.Fields[k] = untagFloats(v)
		}
	}
	e.Fields = record.NormalizeFields(e.Fields)
	return e.Key, e.variant(registryOrDefault(registry)), nil
}

// floatTag marks a whole-number float in the fields map. DynamoDB keeps no
// distinction between 3 and 3.0, so such values are stored as {"$float": 3}.
const floatTag = "$float"

func tagFloats(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = tagFloat(v)
	}
	return out
}

func tagFloat(v any) any {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return map[string]any{floatTag: t}
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = tagFloat(e)
		}
		return out
	case map[string]any:
		return tagFloats(t)
	default:
		return v
	}
}

func untagFloats(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if n, ok := t[floatTag].(attributevalue.Number); ok && len(t) == 1 {
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
		for k, e := range t {
			t[k] = untagFloats(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = untagFloats(e)
		}
		return t
	default:
		return v
	}
}
