package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/jacentio/schedule/record"
)

// codec reads and writes the entries of a File store log.
type codec interface {
	encode(w io.Writer, e entry) error
	decodeAll(r io.Reader, fn func(entry) error) error
}

func codecFor(name string) (codec, error) {
	switch name {
	case CodecJSON:
		return jsonCodec{}, nil
	case CodecCBOR:
		c, err := newCBORCodec()
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// jsonCodec stores one JSON object per line.
type jsonCodec struct{}

func (jsonCodec) encode(w io.Writer, e entry) error {
	if e.Fields != nil {
		e.Fields = jsonFields(e.Fields)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	return nil
}

func (jsonCodec) decodeAll(r io.Reader, fn func(entry) error) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var offset int64
	for line := 1; ; line++ {
		data, err := br.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			if len(data) > 0 {
				// Every complete entry ends with a newline.
				return &tornTailError{offset: offset}
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read entries: %w", err)
		}
		next := offset + int64(len(data))
		if len(bytes.TrimSpace(data)) == 0 {
			offset = next
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var e entry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("failed to unmarshal entry on line %d: %w", line, err)
		}
		e.Fields = record.NormalizeFields(e.Fields)
		if err := fn(e); err != nil {
			return err
		}
		offset = next
	}
}

// jsonFields writes floats so that whole numbers keep a decimal point
// ("3.0") and decode as floats again.
func jsonFields(f record.Fields) record.Fields {
	out := make(record.Fields, len(f))
	for k, v := range f {
		out[k] = jsonValue(v)
	}
	return out
}

func jsonValue(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return t
		}
		s := strconv.FormatFloat(t, 'g', -1, 64)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return json.Number(s)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsonValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = jsonValue(e)
		}
		return out
	default:
		return v
	}
}

// cborCodec stores entries as a CBOR sequence.
type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBORCodec() (cborCodec, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return cborCodec{}, fmt.Errorf("cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		return cborCodec{}, fmt.Errorf("cbor decoder: %w", err)
	}
	return cborCodec{enc: enc, dec: dec}, nil
}

func (c cborCodec) encode(w io.Writer, e entry) error {
	data, err := c.enc.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	return nil
}

func (c cborCodec) decodeAll(r io.Reader, fn func(entry) error) error {
	dec := c.dec.NewDecoder(r)
	for n := 1; ; n++ {
		offset := int64(dec.NumBytesRead())
		var e entry
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return &tornTailError{offset: offset}
			}
			return fmt.Errorf("failed to unmarshal entry %d: %w", n, err)
		}
		e.Fields = record.NormalizeFields(e.Fields)
		if err := fn(e); err != nil {
			return err
		}
	}
}

// tornTailError reports a final entry cut short, as left by an interrupted
// append. Everything before offset decoded cleanly.
type tornTailError struct {
	offset int64
}

func (e *tornTailError) Error() string {
	return fmt.Sprintf("incomplete entry at offset %d", e.offset)
}
