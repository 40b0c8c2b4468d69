package service

import (
	"context"
	"fmt"
	"time"

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

// Rejection reasons reported for redundant toggles.
const (
	ReasonAlreadyLiked    = "already liked"
	ReasonNotLiked        = "not liked"
	ReasonAlreadyDisliked = "already disliked"
	ReasonNotDisliked     = "not disliked"
)

// EngagementService toggles likes and dislikes on comments and resources.
// A redundant toggle is not an error: it returns a response with Applied unset.
type EngagementService interface {
	Like(ctx context.Context, kind models.TargetKind, targetID, actorID uint) (dto.EngagementResponse, error)
	Unlike(ctx context.Context, kind models.TargetKind, targetID, actorID uint) (dto.EngagementResponse, error)
	Dislike(ctx context.Context, kind models.TargetKind, targetID, actorID uint) (dto.EngagementResponse, error)
	Undislike(ctx context.Context, kind models.TargetKind, targetID, actorID uint) (dto.EngagementResponse, error)
	Status(ctx context.Context, kind models.TargetKind, targetID, actorID uint) (dto.EngagementStatusResponse, error)
}

type engagementService struct {
	store       repository.Store
	resolver    EngagementResolver
	accumulator *ActivityAccumulator
	ledger      *activityLedger
	cache       EngagementCache
	publisher   ActivityPublisher
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewEngagementService wires the engagement state machine.
func NewEngagementService(store repository.Store, accumulator *ActivityAccumulator, cache EngagementCache, publisher ActivityPublisher, logger zerolog.Logger) EngagementService {
	return newEngagementService(store, accumulator, cache, publisher, logger, time.Now)
}

func newEngagementService(store repository.Store, accumulator *ActivityAccumulator, cache EngagementCache, publisher ActivityPublisher, logger zerolog.Logger, now func() time.Time) *engagementService {
	if cache == nil {
		cache = noopEngagementCache{}
	}
	if accumulator == nil {
		accumulator = NewActivityAccumulator(nil)
	}
	return &engagementService{
		store:       store,
		accumulator: accumulator,
		ledger:      newActivityLedger(now),
		cache:       cache,
		publisher:   publisherOrNoop(publisher),
		logger:      logger.With().Str("component", "engagement_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/opencourse-api/internal/service/engagement"),
	}
}

func (s *engagementService) Like(ctx context.Context, kind models.TargetKind, targetID, actorID uint) (dto.EngagementResponse, error) {
	return s.toggle(ctx, kind, targetID, actorID, models.ReactionLike, true)
}

func (s *engagementService) Unlike(ctx context.Context, kind models.TargetKind, targetID, actorID uint) (dto.EngagementResponse, error) {
	return s.toggle(ctx, kind, targetID, actorID, models.ReactionLike, false)
}

func (s *engagementService) Dislike(ctx context.Context, kind models.TargetKind, targetID, actorID uint) (dto.EngagementResponse, error) {
	return s.toggle(ctx, kind, targetID, actorID, models.ReactionDislike, true)
}

func (s *engagementService) Undislike(ctx context.Context, kind models.TargetKind, targetID, actorID uint) (dto.EngagementResponse, error) {
	return s.toggle(ctx, kind, targetID, actorID, models.ReactionDislike, false)
}

// engagementStep is one counter change together with the ledger action that records it.
type engagementStep struct {
	action   models.ActionType
	reaction models.Reaction
	on       bool
	implicit bool
}

// planToggle lists the steps for switching reaction to on given the current
// state, or returns a rejection reason when nothing would change.
func planToggle(kind models.TargetKind, state EngagementState, reaction models.Reaction, on bool) ([]engagementStep, string, error) {
	if state.Holds(reaction) == on {
		return nil, rejectionReason(reaction, on), nil
	}

	kinds, err := models.ReactionActions(kind, reaction)
	if err != nil {
		return nil, "", err
	}

	steps := make([]engagementStep, 0, 2)
	opposite := reaction.Opposite()
	if on && state.Holds(opposite) {
		oppositeKinds, err := models.ReactionActions(kind, opposite)
		if err != nil {
			return nil, "", err
		}
		steps = append(steps, engagementStep{action: oppositeKinds.Off, reaction: opposite, on: false, implicit: true})
	}

	action := kinds.Off
	if on {
		action = kinds.On
	}
	return append(steps, engagementStep{action: action, reaction: reaction, on: on}), "", nil
}

func rejectionReason(reaction models.Reaction, on bool) string {
	switch {
	case reaction == models.ReactionLike && on:
		return ReasonAlreadyLiked
	case reaction == models.ReactionLike:
		return ReasonNotLiked
	case on:
		return ReasonAlreadyDisliked
	default:
		return ReasonNotDisliked
	}
}

func (s *engagementService) toggle(ctx context.Context, kind models.TargetKind, targetID, actorID uint, reaction models.Reaction, on bool) (dto.EngagementResponse, error) {
	ctx, span := s.tracer.Start(ctx, "engagement.toggle", trace.WithAttributes(
		attribute.String("engagement.target", kind.String()),
		attribute.Int("engagement.target_id", int(targetID)),
		attribute.Int("engagement.actor_id", int(actorID)),
		attribute.String("engagement.reaction", reaction.String()),
		attribute.Bool("engagement.on", on),
	))
	defer span.End()

	response := dto.EngagementResponse{TargetType: kind.String(), TargetID: targetID}
	var events []dto.ActivityEvent

	err := s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Users.GetByID(ctx, actorID); err != nil {
			return translate(err, ErrUserNotFound)
		}

		target, err := lockTarget(ctx, repos, kind, targetID)
		if err != nil {
			return err
		}

		state, floor, err := s.resolver.resolve(ctx, repos.History, actorID, kind, targetID)
		if err != nil {
			return err
		}

		steps, reason, err := planToggle(kind, state, reaction, on)
		if err != nil {
			return err
		}
		likes, dislikes := target.Counters()
		if reason != "" {
			response.Reason = reason
			response.Liked, response.Disliked = state.Liked, state.Disliked
			response.Likes, response.Dislikes = *likes, *dislikes
			return nil
		}

		owner := target.OwnerID()
		events = make([]dto.ActivityEvent, 0, len(steps))
		for _, step := range steps {
			counter := likes
			if step.reaction == models.ReactionDislike {
				counter = dislikes
			}
			s.shiftCounter(counter, step.on, kind, targetID)
			state.set(step.reaction, step.on)

			var metadata map[string]interface{}
			if step.implicit {
				metadata = map[string]interface{}{"implicit": true}
			}
			entry, err := s.ledger.recordAfter(ctx, repos.History, floor, actorID, step.action, targetID, metadata)
			if err != nil {
				return err
			}
			delta, err := s.accumulator.Apply(ctx, repos.Users, owner, step.action)
			if err != nil {
				return err
			}
			events = append(events, activityEvent(entry, owner, delta))
		}

		if err := saveTarget(ctx, repos, target); err != nil {
			return err
		}

		response.Applied = true
		response.Liked, response.Disliked = state.Liked, state.Disliked
		response.Likes, response.Dislikes = *likes, *dislikes
		return nil
	})
	if err != nil {
		observability.EngagementActions().WithLabelValues(kind.String(), reaction.String(), "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "toggle failed")
		return dto.EngagementResponse{}, err
	}

	if !response.Applied {
		observability.EngagementActions().WithLabelValues(kind.String(), reaction.String(), "rejected").Inc()
		span.SetAttributes(attribute.String("engagement.rejected", response.Reason))
		s.logger.Debug().
			Str("target", kind.String()).
			Uint("target_id", targetID).
			Uint("actor_id", actorID).
			Str("reason", response.Reason).
			Msg("redundant engagement toggle rejected")
		return response, nil
	}

	s.cache.Invalidate(ctx, kind, targetID, actorID)
	publishAll(ctx, s.publisher, s.logger, events)
	observability.EngagementActions().WithLabelValues(kind.String(), reaction.String(), "applied").Inc()
	span.SetStatus(codes.Ok, "applied")

	s.logger.Info().
		Str("target", kind.String()).
		Uint("target_id", targetID).
		Uint("actor_id", actorID).
		Bool("liked", response.Liked).
		Bool("disliked", response.Disliked).
		Msg("engagement updated")

	return response, nil
}

// shiftCounter moves a counter by one, never below zero.
func (s *engagementService) shiftCounter(counter *int, up bool, kind models.TargetKind, targetID uint) {
	if up {
		*counter++
		return
	}
	if *counter == 0 {
		s.logger.Warn().Str("target", kind.String()).Uint("target_id", targetID).Msg("counter already zero, ledger and counters disagree")
		return
	}
	*counter--
}

func (s *engagementService) Status(ctx context.Context, kind models.TargetKind, targetID, actorID uint) (dto.EngagementStatusResponse, error) {
	response := dto.EngagementStatusResponse{TargetType: kind.String(), TargetID: targetID, UserID: actorID}

	repos := s.store.Repositories()
	if err := targetExists(ctx, repos, kind, targetID); err != nil {
		return dto.EngagementStatusResponse{}, err
	}

	state, generation, ok := s.cache.Get(ctx, kind, targetID, actorID)
	if ok {
		response.Liked, response.Disliked = state.Liked, state.Disliked
		return response, nil
	}

	state, err := s.resolver.Resolve(ctx, repos.History, actorID, kind, targetID)
	if err != nil {
		return dto.EngagementStatusResponse{}, err
	}
	s.cache.Set(ctx, kind, targetID, actorID, state, generation)

	response.Liked, response.Disliked = state.Liked, state.Disliked
	return response, nil
}

func lockTarget(ctx context.Context, repos repository.Repositories, kind models.TargetKind, id uint) (models.EngagementTarget, error) {
	switch kind {
	case models.TargetInteraction:
		interaction, err := repos.Interactions.LockByID(ctx, id)
		if err != nil {
			return nil, translate(err, ErrInteractionNotFound)
		}
		return &interaction, nil
	case models.TargetResource:
		resource, err := repos.Resources.LockByID(ctx, id)
		if err != nil {
			return nil, translate(err, ErrResourceNotFound)
		}
		return &resource, nil
	default:
		return nil, fmt.Errorf("unsupported target kind %d", kind)
	}
}

func targetExists(ctx context.Context, repos repository.Repositories, kind models.TargetKind, id uint) error {
	switch kind {
	case models.TargetInteraction:
		_, err := repos.Interactions.GetByID(ctx, id)
		return translate(err, ErrInteractionNotFound)
	case models.TargetResource:
		_, err := repos.Resources.GetByID(ctx, id)
		return translate(err, ErrResourceNotFound)
	default:
		return fmt.Errorf("unsupported target kind %d", kind)
	}
}

func saveTarget(ctx context.Context, repos repository.Repositories, target models.EngagementTarget) error {
	switch t := target.(type) {
	case *models.Interaction:
		return translate(repos.Interactions.Save(ctx, t), ErrInteractionNotFound)
	case *models.Resource:
		return translate(repos.Resources.Save(ctx, t), ErrResourceNotFound)
	default:
		return fmt.Errorf("unsupported target %T", target)
	}
}
