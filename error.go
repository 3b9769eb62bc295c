package glocal

import "errors"

var (
	ErrClosed = errors.New("closed")
)
