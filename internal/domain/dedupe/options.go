package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize sets the maximum number of fingerprints to keep in memory.
// If maxSize > 0: bounded, the oldest fingerprint is evicted first.
// If maxSize <= 0: unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}
