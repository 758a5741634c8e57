package quill

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/zoobzio/sentinel"
)

// Processor binds a Go type to the canonical codec and reports each
// operation through capitan signals.
//
// Processors are safe for concurrent use. Plans for T are computed when the
// processor is built, so layout errors surface at construction.
type Processor[T any] struct {
	cfg      config
	typeName string
}

// NewProcessor creates a Processor for type T.
func NewProcessor[T any](opts ...Option) (*Processor[T], error) {
	typ := reflect.TypeFor[T]()
	typeName := typ.String()

	if typ.Kind() == reflect.Struct {
		spec := sentinel.Scan[T]()
		if spec.TypeName != "" {
			typeName = spec.TypeName
		}
		if _, err := planFor(typ); err != nil {
			return nil, err
		}
	}

	p := &Processor[T]{
		cfg:      newConfig(opts),
		typeName: typeName,
	}

	emitProcessorCreated(context.Background(), typeName)
	return p, nil
}

// ContentType returns the media type of encoded documents.
func (p *Processor[T]) ContentType() string {
	return ContentType
}

// Encode returns the canonical document for obj. A nil obj encodes as null.
func (p *Processor[T]) Encode(ctx context.Context, obj *T) ([]byte, error) {
	start := time.Now()
	emitEncodeStart(ctx, p.typeName)

	var retErr error
	var retData []byte
	defer func() {
		emitEncodeComplete(ctx, p.typeName, len(retData), time.Since(start), retErr)
	}()

	var buf bytes.Buffer
	enc := &Encoder{w: &buf, cfg: p.cfg}
	if err := enc.Encode(obj); err != nil {
		retErr = fmt.Errorf("encode: %w", err)
		return nil, retErr
	}

	retData = buf.Bytes()
	return retData, nil
}

// Decode parses data into a new T.
func (p *Processor[T]) Decode(ctx context.Context, data []byte) (*T, error) {
	start := time.Now()
	emitDecodeStart(ctx, p.typeName, len(data))

	var retErr error
	defer func() {
		emitDecodeComplete(ctx, p.typeName, len(data), time.Since(start), retErr)
	}()

	if err := ctx.Err(); err != nil {
		retErr = err
		return nil, retErr
	}

	var obj T
	if err := unmarshal(data, &obj, p.cfg); err != nil {
		retErr = fmt.Errorf("decode: %w", err)
		return nil, retErr
	}
	return &obj, nil
}
