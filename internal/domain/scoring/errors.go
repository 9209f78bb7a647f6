package scoring

import "errors"

// ErrInvalidSubmission marks a submission with an out-of-range field.
var ErrInvalidSubmission = errors.New("invalid submission")
