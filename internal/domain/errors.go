package domain

import "errors"

// ErrNotFound is returned when a record does not exist in the store.
var ErrNotFound = errors.New("record not found")

// ErrBadCursor is returned when a pagination cursor token cannot be decoded.
var ErrBadCursor = errors.New("bad cursor")
