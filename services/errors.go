package services

import "errors"

var (
	// ErrNotFound is returned by commands that name an id the registry does not hold.
	// Event handlers treat absent ids as a normal race and never return it.
	ErrNotFound = errors.New("download not found")

	// ErrTransientIO wraps persistence or engine lookups that failed
	ErrTransientIO = errors.New("transient io failure")

	// ErrOperationFailure wraps a failed regenerate, delete or resume call on the engine
	ErrOperationFailure = errors.New("engine operation failed")

	// ErrUnknownView is returned for a view name other than downloads or library
	ErrUnknownView = errors.New("unknown view")
)
