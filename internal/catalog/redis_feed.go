package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const snapshotSuffix = ":snapshot"

// RedisFeed mirrors catalog snapshots published on Redis channels. The latest
// snapshot of each channel is also kept under "<channel>:snapshot" so new
// subscribers start from current data.
type RedisFeed struct {
	client            *redis.Client
	itemsChannel      string
	categoriesChannel string
	log               *zap.Logger
}

func NewRedisFeed(client *redis.Client, itemsChannel, categoriesChannel string, log *zap.Logger) *RedisFeed {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisFeed{
		client:            client,
		itemsChannel:      itemsChannel,
		categoriesChannel: categoriesChannel,
		log:               log,
	}
}

func (f *RedisFeed) SubscribeItems(ctx context.Context, onUpdate func([]models.InventoryItem)) (func(), error) {
	return subscribeJSON(ctx, f.client, f.itemsChannel, onUpdate, f.log)
}

func (f *RedisFeed) SubscribeCategories(ctx context.Context, onUpdate func([]models.Category)) (func(), error) {
	return subscribeJSON(ctx, f.client, f.categoriesChannel, onUpdate, f.log)
}

// PublishItems stores and broadcasts a full item snapshot
func (f *RedisFeed) PublishItems(ctx context.Context, items []models.InventoryItem) error {
	return publishJSON(ctx, f.client, f.itemsChannel, items)
}

// PublishCategories stores and broadcasts a full category snapshot
func (f *RedisFeed) PublishCategories(ctx context.Context, categories []models.Category) error {
	return publishJSON(ctx, f.client, f.categoriesChannel, categories)
}

func publishJSON[T any](ctx context.Context, client *redis.Client, channel string, v T) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	pipe := client.TxPipeline()
	pipe.Set(ctx, channel+snapshotSuffix, payload, 0)
	pipe.Publish(ctx, channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

func subscribeJSON[T any](ctx context.Context, client *redis.Client, channel string, onUpdate func(T), log *zap.Logger) (func(), error) {
	pubsub := client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	sub := newSubscription(onUpdate)

	raw, err := client.Get(ctx, channel+snapshotSuffix).Bytes()
	switch {
	case err == nil:
		var v T
		if decodeErr := json.Unmarshal(raw, &v); decodeErr != nil {
			log.Warn("catalog_snapshot_decode_failed", zap.String("channel", channel), zap.Error(decodeErr))
		} else {
			sub.offer(v)
		}
	case errors.Is(err, redis.Nil):
	default:
		log.Warn("catalog_snapshot_load_failed", zap.String("channel", channel), zap.Error(err))
	}

	messages := pubsub.Channel()
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for msg := range messages {
			var v T
			if err := json.Unmarshal([]byte(msg.Payload), &v); err != nil {
				log.Warn("catalog_message_decode_failed", zap.String("channel", channel), zap.Error(err))
				continue
			}
			sub.offer(v)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = pubsub.Close()
			<-readerDone
			sub.stop()
		})
	}, nil
}
