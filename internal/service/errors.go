package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is matched by every missing-entity error below.
	ErrNotFound = errors.New("not found")
	// ErrUserNotFound indicates the acting or owning user does not exist.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrCourseNotFound indicates the course does not exist.
	ErrCourseNotFound = fmt.Errorf("course %w", ErrNotFound)
	// ErrResourceNotFound indicates the resource does not exist.
	ErrResourceNotFound = fmt.Errorf("resource %w", ErrNotFound)
	// ErrInteractionNotFound indicates the interaction does not exist.
	ErrInteractionNotFound = fmt.Errorf("interaction %w", ErrNotFound)
	// ErrForbidden indicates the actor may not perform the operation.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrStorageFault wraps failures of the database or the blob store.
	ErrStorageFault = errors.New("storage fault")
	// ErrRollbackFailed is matched by a SagaFault.
	ErrRollbackFailed = errors.New("rollback failed")
	// ErrFileRequired indicates an upload arrived without a file part.
	ErrFileRequired = errors.New("file is required")
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrEmptyInteraction indicates neither content nor rating was supplied.
	ErrEmptyInteraction = errors.New("interaction needs content or a rating")
)

// SagaPhase names a step of the resource lifecycle.
type SagaPhase string

const (
	PhasePending         SagaPhase = "pending"
	PhaseStored          SagaPhase = "stored"
	PhasePersisted       SagaPhase = "persisted"
	PhaseCompensated     SagaPhase = "compensated"
	PhaseLoggedAndScored SagaPhase = "logged_and_scored"
	PhaseRowDeleted      SagaPhase = "row_deleted"
	PhaseBlobDeleted     SagaPhase = "blob_deleted"
)

// SagaFault reports a resource lifecycle that stopped with the database and
// the blob store out of step. Path names the orphaned or dangling blob.
//
// A SagaFault matches ErrRollbackFailed and never ErrStorageFault, so callers
// can tell an unrecovered inconsistency from a clean failure.
type SagaFault struct {
	Saga  string
	Phase SagaPhase
	Path  string
	Cause error
	Err   error
}

func (f *SagaFault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s saga stuck at %s for %q: %v (after %v)", f.Saga, f.Phase, f.Path, f.Err, f.Cause)
	}
	return fmt.Sprintf("%s saga stuck at %s for %q: %v", f.Saga, f.Phase, f.Path, f.Err)
}

func (f *SagaFault) Is(target error) bool {
	return target == ErrRollbackFailed
}

func storageFault(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStorageFault, err)
}

// translate maps a repository error onto the service taxonomy.
func translate(err, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrStorageFault) || errors.Is(err, ErrRollbackFailed) {
		return err
	}
	return storageFault(err)
}
