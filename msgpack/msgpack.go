// Package msgpack provides a MessagePack transport for quill values.
//
// Documents are carried as native MessagePack: null, booleans, integers,
// floats and strings map to their MessagePack counterparts, sequences to
// arrays and mappings to maps with entries in canonical key order.
package msgpack

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
	"github.com/zoobzio/quill"
)

// ContentType is the media type of MessagePack payloads.
const ContentType = "application/msgpack"

// wireValue adapts a Value to the msgpack custom encoder interfaces.
type wireValue struct {
	v quill.Value
}

var (
	_ msgpack.CustomEncoder = wireValue{}
	_ msgpack.CustomDecoder = (*wireValue)(nil)
)

func (w wireValue) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeValue(enc, w.v)
}

func (w *wireValue) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := decodeValue(dec, 0)
	if err != nil {
		return err
	}
	w.v = v
	return nil
}

func encodeValue(enc *msgpack.Encoder, v quill.Value) error {
	switch v.Kind() {
	case quill.KindNull:
		return enc.EncodeNil()
	case quill.KindBool:
		b, _ := v.AsBool()
		return enc.EncodeBool(b)
	case quill.KindInt:
		i, _ := v.AsInt()
		return enc.EncodeInt(i)
	case quill.KindFloat:
		f, _ := v.AsFloat()
		return enc.EncodeFloat64(f)
	case quill.KindString:
		s, _ := v.AsStr()
		return enc.EncodeString(s)
	case quill.KindSequence:
		items, _ := v.AsSeq()
		if err := enc.EncodeArrayLen(len(items)); err != nil {
			return err
		}
		for _, item := range items {
			if err := encodeValue(enc, item); err != nil {
				return err
			}
		}
		return nil
	case quill.KindMapping:
		m, _ := v.AsMapping()
		if err := enc.EncodeMapLen(m.Len()); err != nil {
			return err
		}
		for _, e := range m.Entries() {
			if err := encodeValue(enc, e.Key); err != nil {
				return err
			}
			if err := encodeValue(enc, e.Value); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("msgpack: %w: kind %s", quill.ErrUnsupportedType, v.Kind())
	}
}

func decodeValue(dec *msgpack.Decoder, depth int) (quill.Value, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return quill.Value{}, err
	}

	switch {
	case c == msgpcode.Nil:
		return quill.Null(), dec.DecodeNil()
	case c == msgpcode.False || c == msgpcode.True:
		b, err := dec.DecodeBool()
		return quill.Bool(b), err
	case c == msgpcode.Float || c == msgpcode.Double:
		f, err := dec.DecodeFloat64()
		return quill.Float(f), err
	case c == msgpcode.Uint64:
		u, err := dec.DecodeUint64()
		if err != nil {
			return quill.Value{}, err
		}
		if u > math.MaxInt64 {
			return quill.Float(float64(u)), nil
		}
		return quill.Int(int64(u)), nil
	case msgpcode.IsFixedNum(c) || isInt(c):
		i, err := dec.DecodeInt64()
		return quill.Int(i), err
	case msgpcode.IsString(c) || msgpcode.IsBin(c):
		s, err := dec.DecodeString()
		return quill.Str(s), err
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		if depth >= quill.DefaultMaxDepth {
			return quill.Value{}, depthError()
		}
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return quill.Value{}, err
		}
		items := make([]quill.Value, 0, min(n, 1024))
		for i := 0; i < n; i++ {
			item, err := decodeValue(dec, depth+1)
			if err != nil {
				return quill.Value{}, err
			}
			items = append(items, item)
		}
		return quill.Seq(items...), nil
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		if depth >= quill.DefaultMaxDepth {
			return quill.Value{}, depthError()
		}
		n, err := dec.DecodeMapLen()
		if err != nil {
			return quill.Value{}, err
		}
		m := quill.NewMapping()
		for i := 0; i < n; i++ {
			k, err := decodeValue(dec, depth+1)
			if err != nil {
				return quill.Value{}, err
			}
			if !k.IsScalar() {
				return quill.Value{}, &quill.DecodeError{
					Err:    quill.ErrUnsupportedType,
					Detail: fmt.Sprintf("%s map key", k.Kind()),
				}
			}
			v, err := decodeValue(dec, depth+1)
			if err != nil {
				return quill.Value{}, err
			}
			m.Set(k, v)
		}
		return quill.FromMapping(m), nil
	default:
		return quill.Value{}, &quill.DecodeError{
			Err:    quill.ErrUnsupportedType,
			Detail: fmt.Sprintf("msgpack code %#x", c),
		}
	}
}

func depthError() error {
	return &quill.DecodeError{
		Err:    quill.ErrMaxDepth,
		Detail: fmt.Sprintf("limit %d", quill.DefaultMaxDepth),
	}
}

func isInt(c byte) bool {
	switch c {
	case msgpcode.Int8, msgpcode.Int16, msgpcode.Int32, msgpcode.Int64,
		msgpcode.Uint8, msgpcode.Uint16, msgpcode.Uint32:
		return true
	}
	return false
}

// MarshalValue encodes v as MessagePack.
func MarshalValue(v quill.Value) ([]byte, error) {
	data, err := msgpack.Marshal(wireValue{v: v})
	if err != nil {
		return nil, fmt.Errorf("msgpack: encode: %w", err)
	}
	return data, nil
}

// UnmarshalValue decodes a single MessagePack value. Trailing bytes are an error.
func UnmarshalValue(data []byte) (quill.Value, error) {
	r := bytes.NewReader(data)
	dec := msgpack.NewDecoder(r)
	var w wireValue
	if err := dec.Decode(&w); err != nil {
		var de *quill.DecodeError
		if errors.As(err, &de) {
			return quill.Value{}, de
		}
		return quill.Value{}, &quill.DecodeError{Err: quill.ErrDocumentSyntax, Detail: err.Error()}
	}
	if r.Len() > 0 {
		return quill.Value{}, &quill.DecodeError{
			Err:    quill.ErrDocumentSyntax,
			Detail: fmt.Sprintf("%d trailing bytes", r.Len()),
		}
	}
	return w.v, nil
}

// msgpackCodec implements quill.Codec for MessagePack.
type msgpackCodec struct{}

// New returns a MessagePack codec. Go values pass through the quill
// value model, so type mapping, variants and overrides match the
// canonical codec.
func New() quill.Codec {
	return &msgpackCodec{}
}

// ContentType returns the MIME type for MessagePack.
func (c *msgpackCodec) ContentType() string {
	return ContentType
}

// Marshal encodes v as MessagePack.
func (c *msgpackCodec) Marshal(v any) ([]byte, error) {
	val, err := quill.ToValue(v)
	if err != nil {
		return nil, err
	}
	return MarshalValue(val)
}

// Unmarshal decodes MessagePack data into v.
func (c *msgpackCodec) Unmarshal(data []byte, v any) error {
	val, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	return quill.FromValue(val, v)
}
