// Package stream provides DynamoDB Streams handlers that mirror the record table.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/schedule/record"
	"github.com/jacentio/schedule/store"
)

// Mirror copies changes of a Dynamo record table into another store.
type Mirror struct {
	target   record.Store
	config   store.DynamoConfig
	registry *record.Registry
	logger   *slog.Logger
}

// NewMirror creates a stream handler writing into target. cfg describes the
// attribute layout of the source table; empty names take the defaults.
func NewMirror(target record.Store, cfg store.DynamoConfig, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	def := store.DefaultDynamoConfig()
	if cfg.KeyAttr == "" {
		cfg.KeyAttr = def.KeyAttr
	}
	return &Mirror{
		target:   target,
		config:   cfg,
		registry: record.DefaultRegistry(),
		logger:   logger,
	}
}

// SetRegistry sets the registry used to rebuild variants from stream images.
func (m *Mirror) SetRegistry(registry *record.Registry) {
	m.registry = registry
}

// HandleStream applies DynamoDB stream events to the target store.
// This function is designed to be used as an AWS Lambda handler.
func (m *Mirror) HandleStream(ctx context.Context, event events.DynamoDBEvent) error {
	for _, rec := range event.Records {
		if err := m.processRecord(ctx, rec); err != nil {
			m.logger.Error("failed to process record",
				"eventID", rec.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord applies a single DynamoDB stream record.
func (m *Mirror) processRecord(ctx context.Context, rec events.DynamoDBEventRecord) error {
	switch rec.EventName {
	case "INSERT", "MODIFY":
	case "REMOVE":
		key := getStringAttr(rec.Change.Keys, m.config.KeyAttr)
		if key == "" {
			key = getStringAttr(rec.Change.OldImage, m.config.KeyAttr)
		}
		return m.remove(ctx, key)
	default:
		return nil
	}

	// A TTL appearing on an item is a soft delete.
	oldTTL := getNumberAttr(rec.Change.OldImage, store.TTLAttr)
	newTTL := getNumberAttr(rec.Change.NewImage, store.TTLAttr)
	if oldTTL == 0 && newTTL != 0 {
		return m.remove(ctx, getStringAttr(rec.Change.NewImage, m.config.KeyAttr))
	}

	item := ConvertStreamImage(rec.Change.NewImage)
	if store.IsDeleted(item) {
		return m.remove(ctx, getStringAttr(rec.Change.NewImage, m.config.KeyAttr))
	}
	key, v, err := store.DecodeItem(m.config, m.registry, item)
	if err != nil {
		return fmt.Errorf("decode %s image: %w", rec.EventName, err)
	}
	if err := m.target.Set(ctx, key, v); err != nil {
		return fmt.Errorf("mirror %s: %w", key, err)
	}
	m.logger.Debug("mirrored record", "key", key, "event", rec.EventName)
	return nil
}

func (m *Mirror) remove(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("%w: stream record has no %q", store.ErrInvalidKey, m.config.KeyAttr)
	}
	d, ok := m.target.(record.Deleter)
	if !ok {
		m.logger.Warn("target cannot delete, skipping", "key", key)
		return nil
	}
	if err := d.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	m.logger.Info("removed mirrored record", "key", key)
	return nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// getNumberAttr extracts an integer attribute from a DynamoDB stream image.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) int64 {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeNumber {
			n, _ := strconv.ParseInt(v.Number(), 10, 64)
			return n
		}
	}
	return 0
}

// ConvertStreamImage converts a DynamoDB stream image to an SDK item, so
// stream records can be decoded like items read from the table.
func ConvertStreamImage(image map[string]events.DynamoDBAttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue, len(image))
	for k, v := range image {
		if av := convertValue(v); av != nil {
			result[k] = av
		}
	}
	return result
}

func convertValue(v events.DynamoDBAttributeValue) types.AttributeValue {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}
	case events.DataTypeList:
		list := v.List()
		out := make([]types.AttributeValue, 0, len(list))
		for _, item := range list {
			if av := convertValue(item); av != nil {
				out = append(out, av)
			}
		}
		return &types.AttributeValueMemberL{Value: out}
	case events.DataTypeMap:
		return &types.AttributeValueMemberM{Value: ConvertStreamImage(v.Map())}
	}
	return nil
}
