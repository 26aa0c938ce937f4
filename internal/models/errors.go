package models

import "errors"

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned by stores when a unique field is already taken.
var ErrConflict = errors.New("record already exists")
