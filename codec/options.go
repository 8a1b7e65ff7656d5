package codec

// Options holds the configurable ceilings from §4.1 / §6.
type Options struct {
	MaxDepth     int
	MaxStringLen int
	MaxBlobBytes int
}

// Option mutates an Options value under construction.
type Option func(*Options)

// DefaultOptions mirrors core.DefaultConfig's codec-relevant fields.
func DefaultOptions() Options {
	return Options{
		MaxDepth:     20,
		MaxStringLen: 10 << 20,
		MaxBlobBytes: 50 << 20,
	}
}

func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

func WithMaxDepth(depth int) Option {
	return func(o *Options) { o.MaxDepth = depth }
}

func WithMaxStringLen(length int) Option {
	return func(o *Options) { o.MaxStringLen = length }
}

func WithMaxBlobBytes(bytes int) Option {
	return func(o *Options) { o.MaxBlobBytes = bytes }
}
