package domain

import "errors"

// Error kinds surfaced by the export. Callers test with errors.Is.
var (
	ErrConfig     = errors.New("config error")
	ErrConnection = errors.New("connection error")
	ErrQuery      = errors.New("query error")
	ErrCursor     = errors.New("cursor error")
	ErrWrite      = errors.New("write error")
)
