// Package json converts between JSON and quill values.
//
// JSON numbers written without a fraction or exponent become Int values,
// all others Float. Object keys are always strings, so mappings with
// non-string keys are written with the key's text form.
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/zoobzio/quill"
)

// ContentType is the media type of JSON payloads.
const ContentType = "application/json"

// Parse decodes a single JSON value. Trailing data is an error.
func Parse(data []byte) (quill.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec, 0)
	if err != nil {
		return quill.Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return quill.Value{}, syntaxError("trailing data after value")
	}
	return v, nil
}

func parseValue(dec *json.Decoder, depth int) (quill.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return quill.Value{}, syntaxError("unexpected end of input")
		}
		return quill.Value{}, syntaxError(err.Error())
	}

	switch t := tok.(type) {
	case nil:
		return quill.Null(), nil
	case bool:
		return quill.Bool(t), nil
	case json.Number:
		return number(t)
	case string:
		return quill.Str(t), nil
	case json.Delim:
		if depth >= quill.DefaultMaxDepth {
			return quill.Value{}, &quill.DecodeError{
				Err:    quill.ErrMaxDepth,
				Detail: fmt.Sprintf("limit %d", quill.DefaultMaxDepth),
			}
		}
		if t == '[' {
			items := []quill.Value{}
			for dec.More() {
				item, err := parseValue(dec, depth+1)
				if err != nil {
					return quill.Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return quill.Value{}, syntaxError(err.Error())
			}
			return quill.Seq(items...), nil
		}
		m := quill.NewMapping()
		for dec.More() {
			key, err := dec.Token()
			if err != nil {
				return quill.Value{}, syntaxError(err.Error())
			}
			val, err := parseValue(dec, depth+1)
			if err != nil {
				return quill.Value{}, err
			}
			m.Set(quill.Str(key.(string)), val)
		}
		if _, err := dec.Token(); err != nil {
			return quill.Value{}, syntaxError(err.Error())
		}
		return quill.FromMapping(m), nil
	default:
		return quill.Value{}, syntaxError(fmt.Sprintf("unexpected token %v", tok))
	}
}

// number keeps integer literals as Int when they fit.
func number(n json.Number) (quill.Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return quill.Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return quill.Value{}, &quill.DecodeError{Err: quill.ErrScalarSyntax, Detail: fmt.Sprintf("invalid number %q", s)}
	}
	return quill.Float(f), nil
}

func syntaxError(detail string) error {
	return &quill.DecodeError{Err: quill.ErrDocumentSyntax, Detail: detail}
}

// Render writes v as compact JSON. Non-finite floats have no JSON form.
func Render(v quill.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := render(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderIndent writes v as JSON indented by indent per level.
func RenderIndent(v quill.Value, indent string) ([]byte, error) {
	data, err := Render(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func render(buf *bytes.Buffer, v quill.Value) error {
	switch v.Kind() {
	case quill.KindNull:
		buf.WriteString("null")
	case quill.KindBool:
		b, _ := v.AsBool()
		buf.WriteString(strconv.FormatBool(b))
	case quill.KindInt:
		i, _ := v.AsInt()
		buf.WriteString(strconv.FormatInt(i, 10))
	case quill.KindFloat:
		f, _ := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("json: %w: non-finite float %v", quill.ErrUnsupportedType, f)
		}
		buf.WriteString(formatFloat(f))
	case quill.KindString:
		s, _ := v.AsStr()
		writeString(buf, s)
	case quill.KindSequence:
		items, _ := v.AsSeq()
		buf.WriteByte('[')
		for i, item := range items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := render(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case quill.KindMapping:
		m, _ := v.AsMapping()
		buf.WriteByte('{')
		for i, e := range m.Entries() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, keyText(e.Key))
			buf.WriteByte(':')
			if err := render(buf, e.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// keyText is the object key for a scalar mapping key.
func keyText(k quill.Value) string {
	switch k.Kind() {
	case quill.KindString:
		s, _ := k.AsStr()
		return s
	case quill.KindFloat:
		f, _ := k.AsFloat()
		return formatFloat(f)
	default:
		s, _ := quill.FormatScalar(k)
		return s
	}
}

// formatFloat keeps a fraction on integral values so they read back as Float.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}

// jsonCodec implements quill.Codec for JSON.
type jsonCodec struct{}

// New returns a JSON codec. Go values pass through the quill value model,
// so records, variants and overrides are shaped as in canonical documents.
func New() quill.Codec {
	return &jsonCodec{}
}

// ContentType returns the MIME type for JSON.
func (c *jsonCodec) ContentType() string {
	return ContentType
}

// Marshal encodes v as JSON.
func (c *jsonCodec) Marshal(v any) ([]byte, error) {
	val, err := quill.ToValue(v)
	if err != nil {
		return nil, err
	}
	return Render(val)
}

// Unmarshal decodes JSON data into v.
func (c *jsonCodec) Unmarshal(data []byte, v any) error {
	val, err := Parse(data)
	if err != nil {
		return err
	}
	return quill.FromValue(val, v)
}
