package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yourlocalmaccas/School-Website/internal/models"
)

// MessageSportsAvailability is the realtime message type carrying a term's sport list.
const MessageSportsAvailability = "sports.availability"

const publishTimeout = 2 * time.Second

type availabilityLister interface {
	ListAvailability(ctx context.Context, termID string) ([]models.SportAvailability, error)
}

type availabilityBroadcaster interface {
	Publish(ctx context.Context, topic, msgType string, data interface{}) error
	Count(topic string) int
}

// AvailabilityPublisher reacts to committed sport changes: it drops the cached
// listing for the term and pushes the fresh list to live subscribers.
type AvailabilityPublisher struct {
	sports availabilityLister
	cache  *CacheService
	hub    availabilityBroadcaster
	logger *zap.Logger
}

// NewAvailabilityPublisher constructs the publisher. cache and hub may be nil.
func NewAvailabilityPublisher(sports availabilityLister, cache *CacheService, hub availabilityBroadcaster, logger *zap.Logger) *AvailabilityPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityPublisher{sports: sports, cache: cache, hub: hub, logger: logger}
}

// SportsChanged is best effort; failures are logged and never returned.
func (p *AvailabilityPublisher) SportsChanged(ctx context.Context, termID string) {
	if p == nil || termID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	_ = p.cache.Bump(ctx, sportsGenerationKey(termID))
	_ = p.cache.Invalidate(ctx, sportsCacheKey(termID)+"*")

	if p.hub == nil || p.hub.Count(termID) == 0 {
		return
	}
	sports, err := p.list(ctx, termID)
	if err != nil {
		p.logger.Warn("load availability for publish failed", zap.String("term_id", termID), zap.Error(err))
		return
	}
	if err := p.hub.Publish(ctx, termID, MessageSportsAvailability, sports); err != nil {
		p.logger.Warn("publish availability failed", zap.String("term_id", termID), zap.Error(err))
	}
}

// Snapshot loads the availability message sent to a new subscriber of termID.
func (p *AvailabilityPublisher) Snapshot(ctx context.Context, termID string) (string, interface{}, error) {
	sports, err := p.list(ctx, termID)
	if err != nil {
		return "", nil, err
	}
	return MessageSportsAvailability, sports, nil
}

func (p *AvailabilityPublisher) list(ctx context.Context, termID string) ([]models.SportAvailability, error) {
	sports, err := p.sports.ListAvailability(ctx, termID)
	if err != nil {
		return nil, err
	}
	if sports == nil {
		sports = []models.SportAvailability{}
	}
	return sports, nil
}

func sportsCacheKey(termID string) string {
	return "sports:" + termID
}

// sportsGenerationKey sits outside the sports:<term>* pattern so
// invalidation never resets it.
func sportsGenerationKey(termID string) string {
	return "sports-gen:" + termID
}

func sportsVersionedKey(termID string, gen int64) string {
	return sportsCacheKey(termID) + ":v" + strconv.FormatInt(gen, 10)
}
