package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// MaterialValidatedEvent announces a terminal status written to a material.
type MaterialValidatedEvent struct {
	MaterialID    string     `json:"material_id"`
	Status        string     `json:"status"`
	Result        string     `json:"result"`
	ValidatedAt   *time.Time `json:"validated_at,omitempty"`
	PublishedAt   time.Time  `json:"published_at"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

// ValidationEventPublisher fans terminal outcomes out to interested consumers.
type ValidationEventPublisher interface {
	PublishMaterialValidated(ctx context.Context, event MaterialValidatedEvent) error
}

type brokerEventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
}

// NewValidationEventPublisher publishes to redis pub/sub and NATS; either client may be nil.
// channelBase "proof" yields channel "proof:materials:validated" and subject "proof.materials.validated".
func NewValidationEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) ValidationEventPublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":materials:validated"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".materials.validated"
	}

	return &brokerEventPublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "validation_events").Logger(),
	}
}

func (p *brokerEventPublisher) PublishMaterialValidated(ctx context.Context, event MaterialValidatedEvent) error {
	if event.PublishedAt.IsZero() {
		event.PublishedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		p.logger.Debug().Str("material_id", event.MaterialID).Str("status", event.Status).Msg("material validated event published")
	}
	return errors.Join(errs...)
}
