package quill

// Default limits applied when no option overrides them.
const (
	DefaultMaxDepth     = 512
	DefaultMaxInputSize = 32 << 20
)

// config holds encoder and decoder settings.
type config struct {
	maxDepth     int
	maxInputSize int64
	strictFields bool
}

// Option configures an Encoder, Decoder, Codec, or Processor.
type Option func(*config)

// WithMaxDepth bounds collection nesting on both encode and decode.
// Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// WithMaxInputSize bounds the number of bytes a Decoder reads.
// Values below 1 are ignored.
func WithMaxInputSize(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxInputSize = n
		}
	}
}

// WithStrictFields rejects mapping keys that match no record field.
func WithStrictFields() Option {
	return func(c *config) {
		c.strictFields = true
	}
}

func newConfig(opts []Option) config {
	c := config{
		maxDepth:     DefaultMaxDepth,
		maxInputSize: DefaultMaxInputSize,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
