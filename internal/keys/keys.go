// Package keys derives store keys and variant names from schedule collection names.
package keys

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sep separates the record type from the local serial in a store key.
const Sep = "."

// RecordType returns the singular record type for a collection name by
// dropping its trailing pluralizing character ("events" -> "event").
func RecordType(collection string) string {
	if collection == "" {
		return ""
	}
	_, size := utf8.DecodeLastRuneInString(collection)
	return collection[:len(collection)-size]
}

// VariantName capitalizes a record type the way variant names are spelled:
// first letter upper case, the rest lower case ("event" -> "Event").
func VariantName(recordType string) string {
	if recordType == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(recordType)
	return string(unicode.ToUpper(r)) + strings.ToLower(recordType[size:])
}

// Format builds the store key "<recordType>.<serial>".
func Format(recordType string, serial any) string {
	return recordType + Sep + Serial(serial)
}

// Split breaks a key at its first separator. ok is false when key has none.
func Split(key string) (recordType, serial string, ok bool) {
	return strings.Cut(key, Sep)
}

// Serial renders a raw serial value as it appears in a key.
// Integral floats render without a fractional part so that numbers decoded
// as float64 still produce "venue.1449".
func Serial(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
