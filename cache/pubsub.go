package cache

import (
	"context"

	"github.com/nrebei2/lunarhaze/cache/local"
	cacheredis "github.com/nrebei2/lunarhaze/cache/redis"
	goredis "github.com/redis/go-redis/v9"
)

const defaultSubscriberBuf = 256

// Message is a payload received on a subscribed channel.
type Message struct {
	Channel string
	Payload string
}

// PubSub carries session snapshots and announcements between the tick
// loop and the streaming transports.
type PubSub interface {
	Publish(ctx context.Context, channel, message string) error
	// Subscribe is confirmed before it returns, so a publish issued after
	// it is never missed. The returned func unsubscribes and closes the
	// channel.
	Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error)
	Close() error
}

// NewPubSub connects to Redis when RedisAddr is set and falls back to an
// in-process fan-out otherwise.
func NewPubSub(cfg CacheConfig) (PubSub, error) {
	buf := cfg.LocalPubSubBuf
	if buf <= 0 {
		buf = defaultSubscriberBuf
	}
	if cfg.RedisAddr == "" {
		ps := local.NewPubSub(buf)
		return &bridge[*local.Message]{
			backend: ps,
			buf:     buf,
			convert: func(m *local.Message) *Message {
				return &Message{Channel: m.Channel, Payload: m.Payload}
			},
		}, nil
	}
	client, err := cacheredis.Dial(context.Background(), cfg.redis())
	if err != nil {
		return nil, err
	}
	return &bridge[*goredis.Message]{
		backend: cacheredis.NewPubSub(client),
		buf:     buf,
		convert: func(m *goredis.Message) *Message {
			return &Message{Channel: m.Channel, Payload: m.Payload}
		},
	}, nil
}

type backend[M any] interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channels ...string) (<-chan M, func(), error)
	Close() error
}

// bridge turns a backend's native message stream into *Message.
type bridge[M any] struct {
	backend backend[M]
	buf     int
	convert func(M) *Message
}

func (b *bridge[M]) Publish(ctx context.Context, channel, message string) error {
	return b.backend.Publish(ctx, channel, message)
}

func (b *bridge[M]) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	in, cancel, err := b.backend.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan *Message, b.buf)
	go func() {
		defer close(out)
		for m := range in {
			select {
			case out <- b.convert(m):
			default: // reader fell behind; drop like the backends do
			}
		}
	}()
	return out, cancel, nil
}

func (b *bridge[M]) Close() error {
	return b.backend.Close()
}
