package controller

import "errors"

var (
	// ErrCapReached is returned by Create and Clone when the configured
	// maximum number of instances exists.
	ErrCapReached = errors.New("maximum number of instances reached")
	// ErrUnknownInstance is returned for ids the controller does not know.
	ErrUnknownInstance = errors.New("unknown instance")
	// ErrAmbiguousID is returned when an id prefix matches several instances.
	ErrAmbiguousID = errors.New("ambiguous instance id")
	// ErrInvalidName is returned by Rename for names that are empty after
	// trimming.
	ErrInvalidName = errors.New("please enter a valid name")
	// ErrInstanceRunning is returned by delete while the widget runs.
	ErrInstanceRunning = errors.New("instance is running; close it before deleting")
	// ErrMissingMetadata is returned by Launch for auto-start entries whose
	// metadata file is gone.
	ErrMissingMetadata = errors.New("instance metadata is missing")
	// ErrStartupEntry wraps platform hook failures that left the
	// auto-start registry updated.
	ErrStartupEntry = errors.New("startup entry could not be updated")
)
