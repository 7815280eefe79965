// Package messaging はドメインイベントを watermill 経由で配信する。
package messaging

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

// TopicPrefix はイベントのトピック名の接頭辞。トピックは TopicPrefix + イベント名
const TopicPrefix = "cinephoria.events."

// NewRedisPublisher は Redis Streams に書き込む publisher を作成する
func NewRedisPublisher(rdb *redis.Client, logger watermill.LoggerAdapter) (message.Publisher, error) {
	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("Redis Streams publisher 作成エラー: %w", err)
	}
	return pub, nil
}

// NewEventBus はイベント名ごとのトピックに JSON で配信する EventBus を作成する
func NewEventBus(pub message.Publisher, logger watermill.LoggerAdapter) (*cqrs.EventBus, error) {
	return cqrs.NewEventBusWithConfig(pub, cqrs.EventBusConfig{
		GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
			return TopicPrefix + params.EventName, nil
		},
		Marshaler: cqrs.JSONMarshaler{
			GenerateName: cqrs.StructName,
		},
		Logger: logger,
	})
}

// EventPublisher は EventBus をアプリケーション層の Publisher として公開する
type EventPublisher struct {
	bus *cqrs.EventBus
}

// NewEventPublisher は EventPublisher を作成する
func NewEventPublisher(bus *cqrs.EventBus) *EventPublisher {
	return &EventPublisher{bus: bus}
}

// Publish はイベントを配信する
func (p *EventPublisher) Publish(ctx context.Context, event any) error {
	if err := p.bus.Publish(ctx, event); err != nil {
		return fmt.Errorf("イベント配信に失敗: %w", err)
	}
	return nil
}
