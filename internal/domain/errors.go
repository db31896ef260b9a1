package domain

import (
	"errors"
)

// Sentinel errors shared across packages. Wrap with %w and check with
// errors.Is.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidPolicy  = errors.New("invalid policy table")
	ErrCodeNotFound   = errors.New("hts code not found")
	ErrClassification = errors.New("classification failed")
	ErrUnclassifiable = errors.New("product could not be classified")
	ErrSearchFailed   = errors.New("product search failed")
	ErrEmptyCart      = errors.New("cart has no items")
)
