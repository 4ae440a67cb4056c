package domain

import "errors"

var (
	// ErrProfileNotFound means no AreaProfile exists for the requested key.
	ErrProfileNotFound = errors.New("area profile not found")

	// ErrInsufficientHistory means fewer than one historical flood event is on
	// record, so discharge-based metrics cannot be derived.
	ErrInsufficientHistory = errors.New("insufficient flood history")

	// ErrInvalidInput marks values rejected at the data-model boundary.
	ErrInvalidInput = errors.New("invalid input")
)
