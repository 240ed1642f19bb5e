package tenant

import (
	"errors"
	"fmt"
)

var (
	// ErrIdentificationRequired is returned when a tenant-scoped route is hit
	// without any workspace-identifying signal.
	ErrIdentificationRequired = errors.New("workspace identification required")

	// ErrOrganizationNotFound is returned when the identifying signal matches
	// no registry entry.
	ErrOrganizationNotFound = errors.New("workspace not found")

	// ErrNamespaceNotBound is returned when a tenant-scoped operation runs
	// without a schema bound to its context.
	ErrNamespaceNotBound = errors.New("no workspace schema bound to context")
)

// ValidationError reports malformed or conflicting onboarding input. It is
// safe to surface to the caller and implies no side effect occurred.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// AccessError reports that a workspace exists but is not accessible in its
// current lifecycle status, regardless of the caller's authentication.
type AccessError struct {
	Handle string
	Status string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("workspace %q is not accessible (status %s)", e.Handle, e.Status)
}

// ProvisioningError wraps a storage failure during onboarding. The cause is
// for internal diagnostics only and is never included in client responses.
type ProvisioningError struct {
	State string
	cause error
}

func (e *ProvisioningError) Error() string {
	return "workspace provisioning failed"
}

func (e *ProvisioningError) Unwrap() error {
	return e.cause
}
