package quill

import "bytes"

// ContentType is the media type of canonical documents.
const ContentType = "application/yaml"

// Codec provides content-type aware marshaling.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/yaml").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}

// documentCodec is the canonical Codec with fixed options.
type documentCodec struct {
	cfg config
}

// New returns the canonical codec configured by opts.
func New(opts ...Option) Codec {
	return &documentCodec{cfg: newConfig(opts)}
}

func (c *documentCodec) ContentType() string {
	return ContentType
}

func (c *documentCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := &Encoder{w: &buf, cfg: c.cfg}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *documentCodec) Unmarshal(data []byte, v any) error {
	return unmarshal(data, v, c.cfg)
}
