package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/sweet_shop/internal/events"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
)

const publishTimeout = 5 * time.Second

func publish(ctx context.Context, p events.Publisher, topic, key string, event any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_failed", "topic", topic, "key", key, "error", err)
	}
}
