package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of remembered ids. Zero or negative
// means unbounded.
func WithMaxSize(n int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = n
	}
}
