package header

import "errors"

// Common sentinel errors
var (
	ErrTruncated = errors.New("header truncated")
	ErrBadLength = errors.New("header field length exceeds remaining buffer")
)
