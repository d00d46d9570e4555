package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// AuthorizationError means the caller is not an administrator. It is raised
// before any store call, so no partial effects exist.
type AuthorizationError struct {
	Op string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s: administrator access required", e.Op)
}

// NotFoundError means a referenced permission, role, or template id does not
// exist in the catalog.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ValidationError means the input was malformed; it is raised before any
// store call.
type ValidationError struct {
	Reason string
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Reason
	}
	return e.Reason + ": " + strings.Join(e.Fields, ", ")
}

// StoreError wraps a failed persistence call with enough context to retry.
type StoreError struct {
	Op           string
	Role         string
	PermissionID string
	Err          error
}

func (e *StoreError) Error() string {
	if e.PermissionID != "" {
		return fmt.Sprintf("%s (role=%s permission=%s): %v", e.Op, e.Role, e.PermissionID, e.Err)
	}
	if e.Role != "" {
		return fmt.Sprintf("%s (role=%s): %v", e.Op, e.Role, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ItemFailure names one item of a multi-step operation that failed.
type ItemFailure struct {
	ID  string
	Err error
}

// PartialFailureError reports a multi-step operation that succeeded for some
// items and failed for others, so the caller can retry only the remainder.
type PartialFailureError struct {
	Op      string
	Applied []string
	Failed  []ItemFailure
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: %d applied, %d failed", e.Op, len(e.Applied), len(e.Failed))
}

// FailedIDs lists the ids that still need to be retried.
func (e *PartialFailureError) FailedIDs() []string {
	ids := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		ids = append(ids, f.ID)
	}
	return ids
}

func IsAuthorization(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
