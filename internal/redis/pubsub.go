package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// ChangesPubSub announces store writes to every process sharing the Redis
// instance. Only the key and the writer's origin travel on the channel.
type ChangesPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewChangesPubSub(rdb *redis.Client) *ChangesPubSub {
	return &ChangesPubSub{
		rdb:     rdb,
		channel: ChannelStoreChanged(),
	}
}

type ChangedMsg struct {
	Type   string `json:"type"`
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

func EncodeChanged(key, origin string) string {
	b, _ := json.Marshal(ChangedMsg{
		Type:   "store_changed",
		Key:    key,
		Origin: origin,
	})
	return string(b)
}

func (p *ChangesPubSub) PublishChanged(ctx context.Context, key, origin string) error {
	return p.rdb.Publish(ctx, p.channel, EncodeChanged(key, origin)).Err()
}

func (p *ChangesPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, msg ChangedMsg)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg ChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &msg); err == nil &&
				msg.Key != "" {
				handler(ctx, msg)
			}
		}
	}
}
