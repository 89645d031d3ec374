package engine

import "errors"

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("conflict")
var ErrExhausted = errors.New("call pool exhausted")
var ErrInvalidInput = errors.New("invalid input")
