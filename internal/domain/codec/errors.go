package codec

import "errors"

// Sentinel kinds for codec errors.
var (
	ErrEncode             = errors.New("record encode failed")
	ErrMalformed          = errors.New("malformed record")
	ErrUnsupportedVersion = errors.New("unsupported record version")
)
