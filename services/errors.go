package services

import (
	"fmt"

	"civicbridge-be/models"
)

// ValidationError reports missing or malformed input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports an unknown record.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// ForbiddenError reports an actor lacking the role or ownership an operation needs.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string { return e.Msg }

// InvalidTransitionError reports a status change not permitted from the current status.
type InvalidTransitionError struct {
	Current   models.IssueStatus
	Requested models.IssueStatus
	Msg       string
}

func (e *InvalidTransitionError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("Invalid status transition from %s to %s", e.Current, e.Requested)
}

// DuplicateVoteError reports a second upvote from the same actor.
type DuplicateVoteError struct{}

func (e *DuplicateVoteError) Error() string { return "You have already upvoted this issue" }

// ConflictError reports a concurrent modification detected by the store.
type ConflictError struct{}

func (e *ConflictError) Error() string {
	return "Issue was modified concurrently, please retry"
}

// StoreError wraps an unexpected persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }
