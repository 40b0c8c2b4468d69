package service

import (
	"context"
	"fmt"
	"io"

	"github.com/noah-isme/opencourse-api/internal/observability"
	"github.com/noah-isme/opencourse-api/internal/repository"
)

// BlobStore is the external file store. It shares no transaction with the
// database, so every write against it is paired with a compensating step.
type BlobStore interface {
	Put(ctx context.Context, path, contentType string, body io.Reader) error
	Delete(ctx context.Context, path string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

const (
	sagaCreateResource = "resource.create"
	sagaDeleteResource = "resource.delete"
)

// createResourceSaga runs Pending -> Stored -> Persisted, falling back to
// Compensated when the row cannot be written.
type createResourceSaga struct {
	blobs BlobStore
	phase SagaPhase
	path  string
}

func newCreateResourceSaga(blobs BlobStore) *createResourceSaga {
	return &createResourceSaga{blobs: blobs, phase: PhasePending}
}

// storeBlob writes the file. A failure leaves nothing to undo.
func (s *createResourceSaga) storeBlob(ctx context.Context, path, contentType string, body io.Reader) error {
	if s.phase != PhasePending {
		return fmt.Errorf("%s: cannot store blob in phase %s", sagaCreateResource, s.phase)
	}
	if err := s.blobs.Put(ctx, path, contentType, body); err != nil {
		return storageFault(err)
	}
	s.path = path
	s.phase = PhaseStored
	return nil
}

// persist writes the row in one transaction and compensates if it fails.
func (s *createResourceSaga) persist(ctx context.Context, store repository.Store, fn func(repos repository.Repositories) error) error {
	if s.phase != PhaseStored {
		return fmt.Errorf("%s: cannot persist in phase %s", sagaCreateResource, s.phase)
	}
	if err := store.WithinTransaction(ctx, fn); err != nil {
		return s.compensate(ctx, translate(err, ErrNotFound))
	}
	s.phase = PhasePersisted
	return nil
}

// compensate removes the stored blob and returns cause, or a SagaFault when
// the blob cannot be removed.
func (s *createResourceSaga) compensate(ctx context.Context, cause error) error {
	if s.phase != PhaseStored {
		return cause
	}
	if err := s.blobs.Delete(context.WithoutCancel(ctx), s.path); err != nil {
		observability.ResourceSagaFaults().WithLabelValues(sagaCreateResource, string(s.phase)).Inc()
		return &SagaFault{Saga: sagaCreateResource, Phase: s.phase, Path: s.path, Cause: cause, Err: err}
	}
	s.phase = PhaseCompensated
	return cause
}

// deleteResourceSaga runs Pending -> LoggedAndScored -> RowDeleted -> BlobDeleted.
// The first two steps share a transaction; the blob goes last so a failure can
// only orphan a file, never leave a row pointing at nothing.
type deleteResourceSaga struct {
	blobs BlobStore
	phase SagaPhase
	path  string
}

func newDeleteResourceSaga(blobs BlobStore) *deleteResourceSaga {
	return &deleteResourceSaga{blobs: blobs, phase: PhasePending}
}

// removeRecord runs logAndScore then deleteRow atomically. logAndScore returns
// the blob path owned by the row.
func (s *deleteResourceSaga) removeRecord(ctx context.Context, store repository.Store, logAndScore func(repos repository.Repositories) (string, error), deleteRow func(repos repository.Repositories) error) error {
	if s.phase != PhasePending {
		return fmt.Errorf("%s: cannot remove record in phase %s", sagaDeleteResource, s.phase)
	}
	err := store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		path, err := logAndScore(repos)
		if err != nil {
			return err
		}
		s.path = path
		s.phase = PhaseLoggedAndScored

		if err := deleteRow(repos); err != nil {
			return err
		}
		s.phase = PhaseRowDeleted
		return nil
	})
	if err != nil {
		s.phase = PhasePending
		return translate(err, ErrResourceNotFound)
	}
	return nil
}

// deleteBlob removes the file after the row is gone. Failure is fatal: the
// blob is orphaned and needs manual cleanup.
func (s *deleteResourceSaga) deleteBlob(ctx context.Context) error {
	if s.phase != PhaseRowDeleted {
		return fmt.Errorf("%s: cannot delete blob in phase %s", sagaDeleteResource, s.phase)
	}
	if err := s.blobs.Delete(context.WithoutCancel(ctx), s.path); err != nil {
		observability.ResourceSagaFaults().WithLabelValues(sagaDeleteResource, string(s.phase)).Inc()
		return &SagaFault{Saga: sagaDeleteResource, Phase: s.phase, Path: s.path, Err: err}
	}
	s.phase = PhaseBlobDeleted
	return nil
}
