package logger

import "io"

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type options struct {
	format     string
	out        io.Writer
	file       string
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool
}

// Option configures Init.
type Option func(*options)

// WithFormat selects the handler: "text" (default) or "json".
func WithFormat(format string) Option {
	return func(o *options) {
		if format != "" {
			o.format = format
		}
	}
}

// WithOutput replaces stdout as the primary destination.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.out = w
		}
	}
}

// WithFile also writes to a size-rotated file at path.
func WithFile(path string, maxSizeMB, maxBackups, maxAgeDays int) Option {
	return func(o *options) {
		o.file = path
		o.maxSizeMB = maxSizeMB
		o.maxBackups = maxBackups
		o.maxAgeDays = maxAgeDays
	}
}

// WithCompression gzips rotated log files.
func WithCompression(enabled bool) Option {
	return func(o *options) {
		o.compress = enabled
	}
}
