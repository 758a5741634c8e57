// Package yaml bridges general YAML, as read and written by gopkg.in/yaml.v3,
// and the quill value model.
//
// Parse accepts any YAML 1.2 document, including flow collections, anchors
// and merge keys, and produces a quill.Value. Canonicalize rewrites such a
// document into canonical form. Render goes the other way, producing
// conventional YAML from a Value.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/zoobzio/quill"
	"gopkg.in/yaml.v3"
)

// maxNodes bounds the nodes visited while expanding aliases.
const maxNodes = 1 << 20

// converter walks a node tree into a Value.
type converter struct {
	maxDepth int
	visited  int
}

// FromNode converts a parsed node tree into a Value.
// Aliases are expanded in place and merge keys are applied.
func FromNode(n *yaml.Node) (quill.Value, error) {
	c := &converter{maxDepth: quill.DefaultMaxDepth}
	return c.convert(n, 0)
}

func (c *converter) convert(n *yaml.Node, depth int) (quill.Value, error) {
	if n == nil {
		return quill.Null(), nil
	}
	c.visited++
	if c.visited > maxNodes {
		return quill.Value{}, nodeError(quill.ErrInputTooLarge, n, "alias expansion exceeds %d nodes", maxNodes)
	}
	switch n.Kind {
	case 0:
		return quill.Null(), nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return quill.Null(), nil
		}
		return c.convert(n.Content[0], depth)
	case yaml.AliasNode:
		return c.convert(n.Alias, depth)
	case yaml.ScalarNode:
		return scalar(n)
	case yaml.SequenceNode:
		if depth >= c.maxDepth {
			return quill.Value{}, nodeError(quill.ErrMaxDepth, n, "limit %d", c.maxDepth)
		}
		items := make([]quill.Value, 0, len(n.Content))
		for _, child := range n.Content {
			item, err := c.convert(child, depth+1)
			if err != nil {
				return quill.Value{}, err
			}
			items = append(items, item)
		}
		return quill.Seq(items...), nil
	case yaml.MappingNode:
		if depth >= c.maxDepth {
			return quill.Value{}, nodeError(quill.ErrMaxDepth, n, "limit %d", c.maxDepth)
		}
		m := quill.NewMapping()
		if err := c.fill(m, n, depth); err != nil {
			return quill.Value{}, err
		}
		return quill.FromMapping(m), nil
	default:
		return quill.Value{}, nodeError(quill.ErrDocumentSyntax, n, "unexpected node kind %d", n.Kind)
	}
}

// fill copies the pairs of a mapping node into m. Explicit keys override
// merged ones regardless of order.
func (c *converter) fill(m *quill.Mapping, n *yaml.Node, depth int) error {
	var merged []*yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge" {
			merged = append(merged, v)
			continue
		}
		key, err := c.convert(k, depth+1)
		if err != nil {
			return err
		}
		if !key.IsScalar() {
			return nodeError(quill.ErrUnsupportedType, k, "%s mapping key", key.Kind())
		}
		val, err := c.convert(v, depth+1)
		if err != nil {
			return err
		}
		m.Set(key, val)
	}
	for _, src := range merged {
		if err := c.merge(m, src, depth); err != nil {
			return err
		}
	}
	return nil
}

// merge applies a merge key value: a mapping or a sequence of mappings,
// earlier sources taking precedence.
func (c *converter) merge(m *quill.Mapping, src *yaml.Node, depth int) error {
	for src.Kind == yaml.AliasNode {
		src = src.Alias
	}
	var sources []*yaml.Node
	switch src.Kind {
	case yaml.MappingNode:
		sources = []*yaml.Node{src}
	case yaml.SequenceNode:
		sources = src.Content
	default:
		return nodeError(quill.ErrStructureMismatch, src, "merge key requires a mapping")
	}
	for _, s := range sources {
		v, err := c.convert(s, depth)
		if err != nil {
			return err
		}
		sm, err := v.AsMapping()
		if err != nil {
			return nodeError(quill.ErrStructureMismatch, s, "merge key requires a mapping")
		}
		for _, e := range sm.Entries() {
			if _, ok := m.Get(e.Key); !ok {
				m.Set(e.Key, e.Value)
			}
		}
	}
	return nil
}

// scalar resolves a scalar node by its tag. Tags outside the core schema
// keep their text as a string.
func scalar(n *yaml.Node) (quill.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return quill.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return quill.Value{}, nodeError(quill.ErrScalarSyntax, n, "%v", err)
		}
		return quill.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return quill.Int(i), nil
		}
		var u uint64
		if err := n.Decode(&u); err == nil {
			return quill.Float(float64(u)), nil
		}
		return quill.Value{}, nodeError(quill.ErrScalarSyntax, n, "invalid integer %q", n.Value)
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return quill.Value{}, nodeError(quill.ErrScalarSyntax, n, "%v", err)
		}
		return quill.Float(f), nil
	default:
		return quill.Str(n.Value), nil
	}
}

// ToNode converts a Value into a block style node tree.
func ToNode(v quill.Value) *yaml.Node {
	switch v.Kind() {
	case quill.KindBool:
		b, _ := v.AsBool()
		return scalarNode("!!bool", strconv.FormatBool(b))
	case quill.KindInt:
		i, _ := v.AsInt()
		return scalarNode("!!int", strconv.FormatInt(i, 10))
	case quill.KindFloat:
		f, _ := v.AsFloat()
		return scalarNode("!!float", formatFloat(f))
	case quill.KindString:
		s, _ := v.AsStr()
		return scalarNode("!!str", s)
	case quill.KindSequence:
		items, _ := v.AsSeq()
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range items {
			n.Content = append(n.Content, ToNode(item))
		}
		return n
	case quill.KindMapping:
		m, _ := v.AsMapping()
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range m.Entries() {
			n.Content = append(n.Content, ToNode(e.Key), ToNode(e.Value))
		}
		return n
	default:
		return scalarNode("!!null", "null")
	}
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		s += ".0"
	}
	return s
}

// Parse reads the first document of data. Empty input yields Null.
func Parse(data []byte) (quill.Value, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return quill.Null(), nil
		}
		return quill.Value{}, &quill.DecodeError{Err: quill.ErrDocumentSyntax, Detail: err.Error()}
	}
	return FromNode(&doc)
}

// Canonicalize rewrites a YAML document into canonical form.
func Canonicalize(data []byte) ([]byte, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return quill.Marshal(v)
}

// Render writes a Value as conventional YAML.
func Render(v quill.Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(ToNode(v)); err != nil {
		return nil, fmt.Errorf("yaml: render: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("yaml: render: %w", err)
	}
	return buf.Bytes(), nil
}

func nodeError(sentinel error, n *yaml.Node, format string, args ...any) error {
	return &quill.DecodeError{
		Err:    sentinel,
		Line:   n.Line,
		Column: n.Column,
		Detail: fmt.Sprintf(format, args...),
	}
}

// yamlCodec reads any YAML and writes canonical documents.
type yamlCodec struct{}

// New returns a codec that accepts general YAML input.
// Output is always canonical.
func New() quill.Codec {
	return &yamlCodec{}
}

// ContentType returns the MIME type for YAML.
func (c *yamlCodec) ContentType() string {
	return quill.ContentType
}

// Marshal encodes v as a canonical document.
func (c *yamlCodec) Marshal(v any) ([]byte, error) {
	return quill.Marshal(v)
}

// Unmarshal decodes general YAML data into v.
func (c *yamlCodec) Unmarshal(data []byte, v any) error {
	val, err := Parse(data)
	if err != nil {
		return err
	}
	return quill.FromValue(val, v)
}
