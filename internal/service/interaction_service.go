package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/opencourse-api/internal/dto"
	"github.com/noah-isme/opencourse-api/internal/models"
	"github.com/noah-isme/opencourse-api/internal/repository"
)

// InteractionService manages course comments and ratings. A user holds one
// interaction per course; adding again edits the existing one.
type InteractionService interface {
	Add(ctx context.Context, courseID, actorID uint, payload dto.InteractionCreateRequest) (dto.InteractionResponse, bool, error)
	Update(ctx context.Context, id, actorID uint, payload dto.InteractionUpdateRequest) (dto.InteractionResponse, error)
	Delete(ctx context.Context, id, actorID uint) error
	ListByCourse(ctx context.Context, courseID uint) ([]dto.InteractionResponse, error)
	ListByUser(ctx context.Context, userID uint) ([]dto.InteractionResponse, error)
}

type interactionService struct {
	store       repository.Store
	accumulator *ActivityAccumulator
	ledger      *activityLedger
	publisher   ActivityPublisher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewInteractionService constructs the comment service.
func NewInteractionService(store repository.Store, accumulator *ActivityAccumulator, publisher ActivityPublisher, validate *validator.Validate, logger zerolog.Logger) InteractionService {
	return newInteractionService(store, accumulator, publisher, validate, logger, time.Now)
}

func newInteractionService(store repository.Store, accumulator *ActivityAccumulator, publisher ActivityPublisher, validate *validator.Validate, logger zerolog.Logger, now func() time.Time) *interactionService {
	if accumulator == nil {
		accumulator = NewActivityAccumulator(nil)
	}
	return &interactionService{
		store:       store,
		accumulator: accumulator,
		ledger:      newActivityLedger(now),
		publisher:   publisherOrNoop(publisher),
		validator:   validate,
		sanitizer:   bluemonday.UGCPolicy(),
		logger:      logger.With().Str("component", "interaction_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/opencourse-api/internal/service/interaction"),
	}
}

// Add creates the actor's interaction on the course, or edits it when one
// exists. The boolean reports whether a new row was created.
func (s *interactionService) Add(ctx context.Context, courseID, actorID uint, payload dto.InteractionCreateRequest) (dto.InteractionResponse, bool, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.InteractionResponse{}, false, err
	}
	content, err := s.cleanContent(payload.Content)
	if err != nil {
		return dto.InteractionResponse{}, false, err
	}
	if content == nil && payload.Rating == nil {
		return dto.InteractionResponse{}, false, ErrEmptyInteraction
	}

	ctx, span := s.tracer.Start(ctx, "interaction.add", trace.WithAttributes(
		attribute.Int("interaction.course_id", int(courseID)),
		attribute.Int("interaction.actor_id", int(actorID)),
	))
	defer span.End()

	interaction, created, events, err := s.upsert(ctx, courseID, actorID, content, payload.Rating)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent first add won the unique index; edit its row instead.
		s.logger.Debug().Uint("course_id", courseID).Uint("actor_id", actorID).Msg("interaction created concurrently, retrying as edit")
		interaction, created, events, err = s.upsert(ctx, courseID, actorID, content, payload.Rating)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "add failed")
		return dto.InteractionResponse{}, false, err
	}

	publishAll(ctx, s.publisher, s.logger, events)
	span.SetStatus(codes.Ok, "saved")
	s.logger.Info().Uint("interaction_id", interaction.ID).Uint("course_id", courseID).Bool("created", created).Msg("interaction saved")
	return dto.NewInteractionResponse(interaction), created, nil
}

// upsert edits the actor's interaction on the course or creates it in one
// transaction.
func (s *interactionService) upsert(ctx context.Context, courseID, actorID uint, content *string, rating *uint8) (models.Interaction, bool, []dto.ActivityEvent, error) {
	var (
		interaction models.Interaction
		created     bool
		events      []dto.ActivityEvent
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Repositories) error {
		exists, err := tx.Courses.Exists(ctx, courseID)
		if err != nil {
			return storageFault(err)
		}
		if !exists {
			return ErrCourseNotFound
		}
		if _, err := tx.Users.GetByID(ctx, actorID); err != nil {
			return translate(err, ErrUserNotFound)
		}

		existing, err := tx.Interactions.FindByCourseAndUser(ctx, courseID, actorID)
		if err != nil {
			return storageFault(err)
		}

		if existing != nil {
			interaction = *existing
			events, err = s.edit(ctx, tx, &interaction, actorID, content, rating)
			return err
		}

		created = true
		interaction = models.Interaction{CourseID: courseID, UserID: actorID, Rating: rating}
		if content != nil {
			interaction.Content = *content
		}
		if err := tx.Interactions.Create(ctx, &interaction); err != nil {
			return storageFault(err)
		}
		event, err := s.log(ctx, tx, actorID, models.ActionCreateInteraction, interaction.ID, actorID)
		if err != nil {
			return err
		}
		events = append(events, event)
		if rating != nil {
			event, err := s.logRating(ctx, tx, actorID, courseID, *rating)
			if err != nil {
				return err
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return models.Interaction{}, false, nil, err
	}
	return interaction, created, events, nil
}

func (s *interactionService) Update(ctx context.Context, id, actorID uint, payload dto.InteractionUpdateRequest) (dto.InteractionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.InteractionResponse{}, err
	}
	content, err := s.cleanContent(payload.Content)
	if err != nil {
		return dto.InteractionResponse{}, err
	}
	if content == nil && payload.Rating == nil {
		return dto.InteractionResponse{}, ErrEmptyInteraction
	}

	var (
		interaction models.Interaction
		events      []dto.ActivityEvent
	)
	err = s.store.WithinTransaction(ctx, func(tx repository.Repositories) error {
		var err error
		interaction, err = tx.Interactions.LockByID(ctx, id)
		if err != nil {
			return translate(err, ErrInteractionNotFound)
		}
		if interaction.UserID != actorID {
			return ErrForbidden
		}
		events, err = s.edit(ctx, tx, &interaction, actorID, content, payload.Rating)
		return err
	})
	if err != nil {
		return dto.InteractionResponse{}, err
	}

	publishAll(ctx, s.publisher, s.logger, events)
	return dto.NewInteractionResponse(interaction), nil
}

// edit applies content and rating changes and logs them.
func (s *interactionService) edit(ctx context.Context, tx repository.Repositories, interaction *models.Interaction, actorID uint, content *string, rating *uint8) ([]dto.ActivityEvent, error) {
	var events []dto.ActivityEvent

	if content != nil {
		interaction.Content = *content
	}
	rated := rating != nil && (interaction.Rating == nil || *interaction.Rating != *rating)
	if rating != nil {
		value := *rating
		interaction.Rating = &value
	}
	if err := tx.Interactions.Save(ctx, interaction); err != nil {
		return nil, storageFault(err)
	}

	event, err := s.log(ctx, tx, actorID, models.ActionUpdateInteraction, interaction.ID, interaction.UserID)
	if err != nil {
		return nil, err
	}
	events = append(events, event)

	if rated {
		event, err := s.logRating(ctx, tx, actorID, interaction.CourseID, *rating)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// Delete removes an interaction. Its author or an administrator may delete it;
// the author bears the score delta.
func (s *interactionService) Delete(ctx context.Context, id, actorID uint) error {
	var events []dto.ActivityEvent
	err := s.store.WithinTransaction(ctx, func(tx repository.Repositories) error {
		interaction, err := tx.Interactions.LockByID(ctx, id)
		if err != nil {
			return translate(err, ErrInteractionNotFound)
		}
		actor, err := tx.Users.GetByID(ctx, actorID)
		if err != nil {
			return translate(err, ErrUserNotFound)
		}
		if interaction.UserID != actor.ID && !actor.IsAdmin() {
			return ErrForbidden
		}

		event, err := s.log(ctx, tx, actorID, models.ActionDeleteInteraction, interaction.ID, interaction.UserID)
		if err != nil {
			return err
		}
		events = append(events, event)
		return translate(tx.Interactions.Delete(ctx, interaction.ID), ErrInteractionNotFound)
	})
	if err != nil {
		return err
	}

	publishAll(ctx, s.publisher, s.logger, events)
	s.logger.Info().Uint("interaction_id", id).Uint("actor_id", actorID).Msg("interaction deleted")
	return nil
}

func (s *interactionService) ListByCourse(ctx context.Context, courseID uint) ([]dto.InteractionResponse, error) {
	repos := s.store.Repositories()
	exists, err := repos.Courses.Exists(ctx, courseID)
	if err != nil {
		return nil, storageFault(err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}
	interactions, err := repos.Interactions.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, storageFault(err)
	}
	return dto.NewInteractionResponseSlice(interactions), nil
}

func (s *interactionService) ListByUser(ctx context.Context, userID uint) ([]dto.InteractionResponse, error) {
	interactions, err := s.store.Repositories().Interactions.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageFault(err)
	}
	return dto.NewInteractionResponseSlice(interactions), nil
}

func (s *interactionService) log(ctx context.Context, tx repository.Repositories, actorID uint, action models.ActionType, objectID, scoredUser uint) (dto.ActivityEvent, error) {
	entry, err := s.ledger.record(ctx, tx.History, actorID, action, objectID, nil)
	if err != nil {
		return dto.ActivityEvent{}, err
	}
	delta, err := s.accumulator.Apply(ctx, tx.Users, scoredUser, action)
	if err != nil {
		return dto.ActivityEvent{}, err
	}
	return activityEvent(entry, scoredUser, delta), nil
}

func (s *interactionService) logRating(ctx context.Context, tx repository.Repositories, actorID, courseID uint, rating uint8) (dto.ActivityEvent, error) {
	entry, err := s.ledger.record(ctx, tx.History, actorID, models.ActionRateCourse, courseID, map[string]interface{}{"rating": rating})
	if err != nil {
		return dto.ActivityEvent{}, err
	}
	delta, err := s.accumulator.Apply(ctx, tx.Users, actorID, models.ActionRateCourse)
	if err != nil {
		return dto.ActivityEvent{}, err
	}
	return activityEvent(entry, actorID, delta), nil
}

// cleanContent sanitizes markup; content that sanitizes to nothing is rejected.
func (s *interactionService) cleanContent(content *string) (*string, error) {
	if content == nil {
		return nil, nil
	}
	cleaned := strings.TrimSpace(s.sanitizer.Sanitize(*content))
	if cleaned == "" {
		return nil, ErrEmptyInteraction
	}
	return &cleaned, nil
}
