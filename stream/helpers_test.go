package stream

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/schedule/store"
)

// --- getStringAttr Tests ---

func TestGetStringAttr(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"key":    events.NewStringAttribute("event.33950"),
		"empty":  events.NewStringAttribute(""),
		"name":   events.NewStringAttribute("日本語テスト"),
		"serial": events.NewNumberAttribute("33950"),
	}

	tests := []struct {
		attr     string
		expected string
	}{
		{"key", "event.33950"},
		{"empty", ""},
		{"name", "日本語テスト"},
		{"serial", ""},
		{"missing", ""},
	}

	for _, tt := range tests {
		if got := getStringAttr(image, tt.attr); got != tt.expected {
			t.Errorf("getStringAttr(%q): expected %q, got %q", tt.attr, tt.expected, got)
		}
	}
}

func TestGetStringAttr_NilImage(t *testing.T) {
	if got := getStringAttr(nil, "key"); got != "" {
		t.Errorf("expected empty string for nil image, got %q", got)
	}
}

// --- getNumberAttr Tests ---

func TestGetNumberAttr(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"ttl":      events.NewNumberAttribute("1700000000"),
		"zero":     events.NewNumberAttribute("0"),
		"negative": events.NewNumberAttribute("-42"),
		"min":      events.NewNumberAttribute("-9223372036854775808"),
		"decimal":  events.NewNumberAttribute("4.5"),
		"string":   events.NewStringAttribute("12345"),
	}

	tests := []struct {
		attr     string
		expected int64
	}{
		{"ttl", 1700000000},
		{"zero", 0},
		{"negative", -42},
		{"min", -9223372036854775808},
		{"decimal", 0},
		{"string", 0},
		{"missing", 0},
	}

	for _, tt := range tests {
		if got := getNumberAttr(image, tt.attr); got != tt.expected {
			t.Errorf("getNumberAttr(%q): expected %d, got %d", tt.attr, tt.expected, got)
		}
	}
}

func TestGetNumberAttr_NilImage(t *testing.T) {
	if got := getNumberAttr(nil, "ttl"); got != 0 {
		t.Errorf("expected 0 for nil image, got %d", got)
	}
}

// --- convertValue Tests ---

func TestConvertValue_Scalars(t *testing.T) {
	if v, ok := convertValue(events.NewBooleanAttribute(true)).(*types.AttributeValueMemberBOOL); !ok || !v.Value {
		t.Error("expected BOOL true")
	}
	if _, ok := convertValue(events.NewNullAttribute()).(*types.AttributeValueMemberNULL); !ok {
		t.Error("expected NULL")
	}
	if v, ok := convertValue(events.NewStringSetAttribute([]string{"a", "b"})).(*types.AttributeValueMemberSS); !ok || len(v.Value) != 2 {
		t.Error("expected SS with 2 members")
	}
	if v, ok := convertValue(events.NewNumberSetAttribute([]string{"1"})).(*types.AttributeValueMemberNS); !ok || v.Value[0] != "1" {
		t.Error("expected NS [1]")
	}
	if v, ok := convertValue(events.NewBinarySetAttribute([][]byte{{0x01}})).(*types.AttributeValueMemberBS); !ok || len(v.Value) != 1 {
		t.Error("expected BS with 1 member")
	}
}

func TestConvertValue_Nested(t *testing.T) {
	v := events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
		"speakers": events.NewListAttribute([]events.DynamoDBAttributeValue{
			events.NewNumberAttribute("3471"),
			events.NewNumberAttribute("5199"),
		}),
		"name": events.NewStringAttribute("There *Will* Be Bugs"),
	})

	m, ok := convertValue(v).(*types.AttributeValueMemberM)
	if !ok {
		t.Fatal("expected M")
	}
	list, ok := m.Value["speakers"].(*types.AttributeValueMemberL)
	if !ok || len(list.Value) != 2 {
		t.Fatalf("expected L with 2 members, got %#v", m.Value["speakers"])
	}
	if n, ok := list.Value[1].(*types.AttributeValueMemberN); !ok || n.Value != "5199" {
		t.Errorf("expected N 5199, got %#v", list.Value[1])
	}
	if s, ok := m.Value["name"].(*types.AttributeValueMemberS); !ok || s.Value != "There *Will* Be Bugs" {
		t.Errorf("expected name, got %#v", m.Value["name"])
	}
}

// --- processRecord Tests ---

func TestProcessRecord_SkipsUnknownEvents(t *testing.T) {
	target := store.NewMemory()
	m := NewMirror(target, store.DynamoConfig{}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	rec := events.DynamoDBEventRecord{
		EventName: "UNKNOWN",
		Change: events.DynamoDBStreamRecord{
			NewImage: map[string]events.DynamoDBAttributeValue{
				"key": events.NewStringAttribute("venue.1449"),
			},
		},
	}

	if err := m.processRecord(context.Background(), rec); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if target.Len() != 0 {
		t.Errorf("expected nothing mirrored, got %d records", target.Len())
	}
}

func TestProcessRecord_RemoveWithoutKey(t *testing.T) {
	m := NewMirror(store.NewMemory(), store.DynamoConfig{}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	err := m.processRecord(context.Background(), events.DynamoDBEventRecord{EventName: "REMOVE"})
	if err == nil {
		t.Error("expected error for REMOVE without a key")
	}
}

func BenchmarkConvertStreamImage(b *testing.B) {
	image := map[string]events.DynamoDBAttributeValue{
		"key":  events.NewStringAttribute("event.33950"),
		"kind": events.NewStringAttribute("Event"),
		"fields": events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
			"serial": events.NewStringAttribute("event.33950"),
			"speakers": events.NewListAttribute([]events.DynamoDBAttributeValue{
				events.NewNumberAttribute("3471"),
			}),
		}),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ConvertStreamImage(image)
	}
}
