package cache

import "errors"

var (
	// ErrTypeMismatch indicates data with the wrong shape for the addressed slot.
	ErrTypeMismatch = errors.New("cache: type mismatch")
	// ErrMissingIdentity indicates a record without a usable id.
	ErrMissingIdentity = errors.New("cache: missing identity")
	// ErrMissingCollectionEntry indicates a query referencing an id with no
	// backing fragment.
	ErrMissingCollectionEntry = errors.New("cache: missing collection entry")
)
