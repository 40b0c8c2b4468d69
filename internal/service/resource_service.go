package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/opencourse-api/internal/dto"
	"github.com/noah-isme/opencourse-api/internal/models"
	"github.com/noah-isme/opencourse-api/internal/observability"
	"github.com/noah-isme/opencourse-api/internal/repository"
)

const bytesPerMB = 1024 * 1024

// ResourceService manages uploaded course material and its blobs.
type ResourceService interface {
	Add(ctx context.Context, payload dto.ResourceUploadRequest, file *multipart.FileHeader, actorID uint) (dto.ResourceResponse, error)
	Delete(ctx context.Context, id, actorID uint) error
	Get(ctx context.Context, id uint) (dto.ResourceResponse, error)
	ListByCourse(ctx context.Context, courseID uint) ([]dto.ResourceResponse, error)
	ListByUser(ctx context.Context, userID uint) ([]dto.ResourceResponse, error)
	View(ctx context.Context, id, viewerID uint) (dto.ResourceFileStream, error)
}

type resourceService struct {
	store       repository.Store
	blobs       BlobStore
	accumulator *ActivityAccumulator
	ledger      *activityLedger
	publisher   ActivityPublisher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	maxSize     int64
	logger      zerolog.Logger
	tracer      trace.Tracer
	newID       func() string
}

// NewResourceService constructs the resource lifecycle manager.
func NewResourceService(store repository.Store, blobs BlobStore, accumulator *ActivityAccumulator, publisher ActivityPublisher, validate *validator.Validate, maxSizeMB int, logger zerolog.Logger) ResourceService {
	return newResourceService(store, blobs, accumulator, publisher, validate, maxSizeMB, logger, time.Now)
}

func newResourceService(store repository.Store, blobs BlobStore, accumulator *ActivityAccumulator, publisher ActivityPublisher, validate *validator.Validate, maxSizeMB int, logger zerolog.Logger, now func() time.Time) *resourceService {
	if maxSizeMB <= 0 {
		maxSizeMB = 50
	}
	if accumulator == nil {
		accumulator = NewActivityAccumulator(nil)
	}
	return &resourceService{
		store:       store,
		blobs:       blobs,
		accumulator: accumulator,
		ledger:      newActivityLedger(now),
		publisher:   publisherOrNoop(publisher),
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		maxSize:     int64(maxSizeMB) * bytesPerMB,
		logger:      logger.With().Str("component", "resource_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/opencourse-api/internal/service/resource"),
		newID:       uuid.NewString,
	}
}

func (s *resourceService) Add(ctx context.Context, payload dto.ResourceUploadRequest, file *multipart.FileHeader, actorID uint) (dto.ResourceResponse, error) {
	ctx, span := s.tracer.Start(ctx, "resource.add", trace.WithAttributes(
		attribute.Int("resource.course_id", int(payload.CourseID)),
		attribute.Int("resource.actor_id", int(actorID)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.ResourceUploadLatency().Observe(time.Since(start).Seconds())
	}()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.ResourceResponse{}, err
	}
	if file == nil {
		span.SetStatus(codes.Error, "file missing")
		return dto.ResourceResponse{}, ErrFileRequired
	}
	if file.Size > s.maxSize {
		span.SetStatus(codes.Error, "payload too large")
		return dto.ResourceResponse{}, ErrUploadTooLarge
	}

	repos := s.store.Repositories()
	if exists, err := repos.Courses.Exists(ctx, payload.CourseID); err != nil {
		return dto.ResourceResponse{}, storageFault(err)
	} else if !exists {
		return dto.ResourceResponse{}, ErrCourseNotFound
	}
	if _, err := repos.Users.GetByID(ctx, actorID); err != nil {
		return dto.ResourceResponse{}, translate(err, ErrUserNotFound)
	}

	content, err := readUpload(file, s.maxSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.ResourceResponse{}, err
	}

	detected := mimetype.Detect(content)
	fileType := models.ParseFileType(payload.FileType)
	if strings.TrimSpace(payload.FileType) == "" {
		fileType = fileTypeFromMime(detected.String())
	}
	path := s.blobPath(payload.CourseID, file.Filename, detected)
	span.SetAttributes(
		attribute.String("resource.path", path),
		attribute.String("resource.detected_mime", detected.String()),
		attribute.Int("resource.size_bytes", len(content)),
	)

	resource := models.Resource{
		Name:         strings.TrimSpace(payload.Name),
		Description:  strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		ResourceType: models.ResourceType(payload.ResourceType),
		File: models.ResourceFile{
			FileType:   fileType,
			FileSizeMB: sizeInMB(int64(len(content))),
			FilePath:   path,
		},
		CourseID: payload.CourseID,
		UserID:   actorID,
	}

	saga := newCreateResourceSaga(s.blobs)
	if err := saga.storeBlob(ctx, path, detected.String(), bytes.NewReader(content)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "blob store failed")
		return dto.ResourceResponse{}, err
	}

	var events []dto.ActivityEvent
	err = saga.persist(ctx, s.store, func(tx repository.Repositories) error {
		if err := tx.Resources.Create(ctx, &resource); err != nil {
			return storageFault(err)
		}
		entry, err := s.ledger.record(ctx, tx.History, actorID, models.ActionCreateResource, resource.ID, map[string]interface{}{
			"course_id": resource.CourseID,
			"path":      path,
		})
		if err != nil {
			return err
		}
		delta, err := s.accumulator.Apply(ctx, tx.Users, actorID, models.ActionCreateResource)
		if err != nil {
			return err
		}
		events = append(events, activityEvent(entry, actorID, delta))
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.logger.Error().Err(err).Str("path", path).Str("phase", string(saga.phase)).Msg("resource upload failed")
		return dto.ResourceResponse{}, err
	}

	publishAll(ctx, s.publisher, s.logger, events)
	observability.ResourceUploads().WithLabelValues(string(fileType)).Inc()
	span.SetStatus(codes.Ok, "stored")

	s.logger.Info().Uint("resource_id", resource.ID).Uint("course_id", resource.CourseID).Str("path", path).Msg("resource created")

	return dto.NewResourceResponse(resource), nil
}

func (s *resourceService) Delete(ctx context.Context, id, actorID uint) error {
	ctx, span := s.tracer.Start(ctx, "resource.delete", trace.WithAttributes(
		attribute.Int("resource.id", int(id)),
		attribute.Int("resource.actor_id", int(actorID)),
	))
	defer span.End()

	var events []dto.ActivityEvent
	saga := newDeleteResourceSaga(s.blobs)
	err := saga.removeRecord(ctx, s.store,
		func(tx repository.Repositories) (string, error) {
			resource, err := tx.Resources.LockByID(ctx, id)
			if err != nil {
				return "", translate(err, ErrResourceNotFound)
			}
			actor, err := tx.Users.GetByID(ctx, actorID)
			if err != nil {
				return "", translate(err, ErrUserNotFound)
			}
			if resource.UserID != actor.ID && !actor.IsAdmin() {
				return "", ErrForbidden
			}

			entry, err := s.ledger.record(ctx, tx.History, actorID, models.ActionDeleteResource, resource.ID, map[string]interface{}{
				"course_id": resource.CourseID,
				"path":      resource.File.FilePath,
			})
			if err != nil {
				return "", err
			}
			delta, err := s.accumulator.Apply(ctx, tx.Users, resource.UserID, models.ActionDeleteResource)
			if err != nil {
				return "", err
			}
			events = append(events, activityEvent(entry, resource.UserID, delta))
			return resource.File.FilePath, nil
		},
		func(tx repository.Repositories) error {
			return translate(tx.Resources.Delete(ctx, id), ErrResourceNotFound)
		},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}

	// The row is committed as gone from here on; subscribers see the ledger entry either way.
	publishAll(ctx, s.publisher, s.logger, events)

	if err := saga.deleteBlob(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "blob delete failed")
		s.logger.Error().Err(err).Uint("resource_id", id).Str("path", saga.path).Msg("resource blob orphaned")
		return err
	}

	span.SetStatus(codes.Ok, "deleted")
	s.logger.Info().Uint("resource_id", id).Uint("actor_id", actorID).Msg("resource deleted")
	return nil
}

func (s *resourceService) Get(ctx context.Context, id uint) (dto.ResourceResponse, error) {
	resource, err := s.store.Repositories().Resources.GetByID(ctx, id)
	if err != nil {
		return dto.ResourceResponse{}, translate(err, ErrResourceNotFound)
	}
	return dto.NewResourceResponse(resource), nil
}

func (s *resourceService) ListByCourse(ctx context.Context, courseID uint) ([]dto.ResourceResponse, error) {
	repos := s.store.Repositories()
	exists, err := repos.Courses.Exists(ctx, courseID)
	if err != nil {
		return nil, storageFault(err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}
	resources, err := repos.Resources.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, storageFault(err)
	}
	return dto.NewResourceResponseSlice(resources), nil
}

func (s *resourceService) ListByUser(ctx context.Context, userID uint) ([]dto.ResourceResponse, error) {
	resources, err := s.store.Repositories().Resources.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageFault(err)
	}
	return dto.NewResourceResponseSlice(resources), nil
}

// View opens the blob, then counts the view and credits the uploader. A
// download that cannot be opened is not counted.
func (s *resourceService) View(ctx context.Context, id, viewerID uint) (dto.ResourceFileStream, error) {
	ctx, span := s.tracer.Start(ctx, "resource.view", trace.WithAttributes(attribute.Int("resource.id", int(id))))
	defer span.End()

	resource, err := s.store.Repositories().Resources.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.ResourceFileStream{}, translate(err, ErrResourceNotFound)
	}

	body, err := s.blobs.Open(ctx, resource.File.FilePath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "blob open failed")
		return dto.ResourceFileStream{}, storageFault(err)
	}

	var events []dto.ActivityEvent
	err = s.store.WithinTransaction(ctx, func(tx repository.Repositories) error {
		var err error
		resource, err = tx.Resources.LockByID(ctx, id)
		if err != nil {
			return translate(err, ErrResourceNotFound)
		}
		if _, err := tx.Users.GetByID(ctx, viewerID); err != nil {
			return translate(err, ErrUserNotFound)
		}

		resource.Views++
		if err := tx.Resources.Save(ctx, &resource); err != nil {
			return storageFault(err)
		}
		entry, err := s.ledger.record(ctx, tx.History, viewerID, models.ActionViewResource, resource.ID, nil)
		if err != nil {
			return err
		}
		delta, err := s.accumulator.Apply(ctx, tx.Users, resource.UserID, models.ActionViewResource)
		if err != nil {
			return err
		}
		events = append(events, activityEvent(entry, resource.UserID, delta))
		return nil
	})
	if err != nil {
		_ = body.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "view failed")
		return dto.ResourceFileStream{}, err
	}
	publishAll(ctx, s.publisher, s.logger, events)

	return dto.ResourceFileStream{
		FileName: resource.Name + filepath.Ext(resource.File.FilePath),
		FileType: string(resource.File.FileType),
		Body:     body,
	}, nil
}

// blobPath lays files out as resources/<course>/<uuid><ext>.
func (s *resourceService) blobPath(courseID uint, filename string, detected *mimetype.MIME) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if ext == "" || !validExtension(ext) {
		ext = detected.Extension()
	}
	return fmt.Sprintf("resources/%d/%s%s", courseID, s.newID(), ext)
}

func validExtension(ext string) bool {
	if len(ext) < 2 || len(ext) > 10 {
		return false
	}
	for _, r := range ext[1:] {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

func readUpload(file *multipart.FileHeader, maxSize int64) ([]byte, error) {
	handle, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, maxSize+1)); err != nil {
		return nil, err
	}
	if int64(buf.Len()) > maxSize {
		return nil, ErrUploadTooLarge
	}
	return buf.Bytes(), nil
}

func fileTypeFromMime(mime string) models.FileType {
	lower := strings.ToLower(mime)
	switch {
	case strings.HasPrefix(lower, "application/pdf"):
		return models.FileTypePDF
	case strings.HasPrefix(lower, "text/"):
		return models.FileTypeText
	default:
		return models.FileTypeOther
	}
}

// sizeInMB rounds half up to two decimals.
func sizeInMB(size int64) float64 {
	return math.Round(float64(size)/bytesPerMB*100) / 100
}
