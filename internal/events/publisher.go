package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/opencourse-api/internal/dto"
	"github.com/noah-isme/opencourse-api/internal/middleware"
	"github.com/noah-isme/opencourse-api/internal/observability"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "opencourse.activity"

// NATSPublisher broadcasts committed ledger entries on NATS subjects of the
// form <prefix>.<action>, for example opencourse.activity.like_resource.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger zerolog.Logger
}

// NewNATSPublisher wraps an open connection. A nil connection yields a
// publisher that drops every event.
func NewNATSPublisher(conn *nats.Conn, prefix string, logger zerolog.Logger) *NATSPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{
		conn:   conn,
		prefix: prefix,
		logger: logger.With().Str("component", "activity_publisher").Logger(),
	}
}

// Subject returns the subject an action is published on.
func (p *NATSPublisher) Subject(action string) string {
	return fmt.Sprintf("%s.%s", p.prefix, strings.ToLower(action))
}

func (p *NATSPublisher) Publish(ctx context.Context, event dto.ActivityEvent) error {
	if p.conn == nil {
		observability.ActivityEvents().WithLabelValues("skipped").Inc()
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		observability.ActivityEvents().WithLabelValues("failed").Inc()
		return fmt.Errorf("encode activity event: %w", err)
	}

	msg := p.message(ctx, event.Action, payload)
	subject := msg.Subject
	if err := p.conn.PublishMsg(msg); err != nil {
		observability.ActivityEvents().WithLabelValues("failed").Inc()
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	observability.ActivityEvents().WithLabelValues("published").Inc()
	p.logger.Debug().Str("subject", subject).Str("event_id", event.ID).Msg("activity event published")
	return nil
}

// message builds the NATS message for an event, carrying the request's
// correlation id as a header so consumers can join it with API logs.
func (p *NATSPublisher) message(ctx context.Context, action string, payload []byte) *nats.Msg {
	msg := nats.NewMsg(p.Subject(action))
	msg.Data = payload
	msg.Header.Set("Content-Type", "application/json")
	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		msg.Header.Set(middleware.CorrelationHeader, id)
	}
	return msg
}
