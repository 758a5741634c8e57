package benchmarks

import (
	"context"
	"testing"

	"github.com/zoobzio/quill"
	"github.com/zoobzio/quill/json"
	"github.com/zoobzio/quill/msgpack"
	quilltest "github.com/zoobzio/quill/testing"
	"github.com/zoobzio/quill/yaml"
)

func BenchmarkMarshal_Drawing(b *testing.B) {
	d := quilltest.SampleDrawing()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = quill.Marshal(d)
	}
}

func BenchmarkUnmarshal_Drawing(b *testing.B) {
	data, _ := quill.Marshal(quilltest.SampleDrawing())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var d quilltest.Drawing
		_ = quill.Unmarshal(data, &d)
	}
}

func BenchmarkProcessor_Encode(b *testing.B) {
	proc, _ := quill.NewProcessor[quilltest.Drawing]()
	d := quilltest.SampleDrawing()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = proc.Encode(context.Background(), &d)
	}
}

func BenchmarkProcessor_Decode(b *testing.B) {
	proc, _ := quill.NewProcessor[quilltest.Drawing]()
	d := quilltest.SampleDrawing()
	data, _ := proc.Encode(context.Background(), &d)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = proc.Decode(context.Background(), data)
	}
}

func BenchmarkCodecs_Marshal(b *testing.B) {
	codecs := []quill.Codec{quill.New(), yaml.New(), json.New(), msgpack.New()}
	d := quilltest.SampleDrawing()

	for _, c := range codecs {
		b.Run(c.ContentType(), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, _ = c.Marshal(d)
			}
		})
	}
}

func BenchmarkYAML_Canonicalize(b *testing.B) {
	input := []byte("a: {b: [1, 2, 3], c: {d: e}}\nf: [x, y, z]\n")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = yaml.Canonicalize(input)
	}
}
