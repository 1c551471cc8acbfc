package queue

import "errors"

// ErrClosed is returned by Put after Close.
var ErrClosed = errors.New("queue closed")
