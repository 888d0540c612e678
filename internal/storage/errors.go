package storage

import "errors"

// ErrEmptyTitle is returned when a recent chat is saved without a title
var ErrEmptyTitle = errors.New("recent chat title is empty")
