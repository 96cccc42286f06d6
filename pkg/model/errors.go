package model

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is against these to classify a failure.
var (
	ErrRemoteStore    = errors.New("remote store error")
	ErrConfiguration  = errors.New("configuration error")
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrReferential    = errors.New("referential error")
)

// RemoteError is a failed call to Notion outside of relation resolution.
type RemoteError struct {
	Op  string // "search", "query", ...
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("notion %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool { return target == ErrRemoteStore }

// PropertyError reports a property that is missing or not of the expected variant.
type PropertyError struct {
	PageID   string
	Property string
	Want     string // expected variant, e.g. "title"
	Reason   string
}

func (e *PropertyError) Error() string {
	if e.PageID != "" {
		return fmt.Sprintf("page %s: property %q (%s): %s", e.PageID, e.Property, e.Want, e.Reason)
	}
	return fmt.Sprintf("property %q (%s): %s", e.Property, e.Want, e.Reason)
}

func (e *PropertyError) Is(target error) bool { return target == ErrSchemaMismatch }

// RelationError reports a relation target that could not be fetched.
type RelationError struct {
	PageID   string
	TargetID string
	Err      error
}

func (e *RelationError) Error() string {
	return fmt.Sprintf("page %s: relation target %s: %v", e.PageID, e.TargetID, e.Err)
}

func (e *RelationError) Unwrap() error { return e.Err }

func (e *RelationError) Is(target error) bool { return target == ErrReferential }
