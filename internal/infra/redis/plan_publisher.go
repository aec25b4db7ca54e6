package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
)

// DefaultPlanChannel is the pub/sub channel daily plans are published on.
const DefaultPlanChannel = "mastery:daily-plans"

// PlanMessage is the JSON digest of a daily plan sent to subscribers.
type PlanMessage struct {
	UserID           int64     `json:"userId"`
	Date             string    `json:"date"`
	GeneratedAt      time.Time `json:"generatedAt"`
	Critical         int       `json:"critical"`
	Core             int       `json:"core"`
	Plus             int       `json:"plus"`
	Overflow         int       `json:"overflow"`
	EstimatedMinutes int       `json:"estimatedMinutes"`
	Recommendations  []string  `json:"recommendations"`
}

// NewPlanMessage summarizes a plan for publication.
func NewPlanMessage(plan *entities.TodaysTasks) PlanMessage {
	return PlanMessage{
		UserID:           plan.UserID,
		Date:             plan.Date,
		GeneratedAt:      plan.GeneratedAt,
		Critical:         plan.Critical.Count(),
		Core:             plan.Core.Count(),
		Plus:             plan.Plus.Count(),
		Overflow:         len(plan.Overflow),
		EstimatedMinutes: plan.EstimatedTime,
		Recommendations:  plan.Recommendations,
	}
}

// PlanPublisher publishes generated plans on a Redis channel.
type PlanPublisher struct {
	client  goredis.Cmdable
	channel string
}

// NewPlanPublisher creates a publisher. An empty channel uses DefaultPlanChannel.
func NewPlanPublisher(client goredis.Cmdable, channel string) *PlanPublisher {
	if channel == "" {
		channel = DefaultPlanChannel
	}
	return &PlanPublisher{client: client, channel: channel}
}

func (p *PlanPublisher) Publish(ctx context.Context, plan *entities.TodaysTasks) error {
	raw, err := json.Marshal(NewPlanMessage(plan))
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish plan: %w", err)
	}
	return nil
}
