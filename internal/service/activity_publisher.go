package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/opencourse-api/internal/dto"
)

// ActivityPublisher broadcasts ledger entries once they are committed.
type ActivityPublisher interface {
	Publish(ctx context.Context, event dto.ActivityEvent) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, dto.ActivityEvent) error { return nil }

func publisherOrNoop(publisher ActivityPublisher) ActivityPublisher {
	if publisher == nil {
		return noopPublisher{}
	}
	return publisher
}

// publishAll is best effort; the ledger row is the record of truth.
func publishAll(ctx context.Context, publisher ActivityPublisher, logger zerolog.Logger, events []dto.ActivityEvent) {
	for _, event := range events {
		if err := publisher.Publish(ctx, event); err != nil {
			logger.Warn().Err(err).Str("action", event.Action).Msg("failed to publish activity event")
		}
	}
}
