package realtime

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisTransport speaks Redis Pub/Sub. The credential issued by the backend
// is used as the ACL password of Username.
type RedisTransport struct {
	Addr     string
	Username string
}

func (t RedisTransport) Dial(ctx context.Context, creds Credentials) (Conn, error) {
	username := creds.Username
	if username == "" {
		username = t.Username
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     t.Addr,
		Username: username,
		Password: creds.Password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to realtime service at %s: %w", t.Addr, err)
	}
	return &redisConn{rdb: rdb}, nil
}

type redisConn struct {
	rdb *redis.Client
}

func (c *redisConn) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	ps := c.rdb.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("could not subscribe to %s: %w", channel, err)
	}

	sub := &redisSubscription{ps: ps, out: make(chan []byte, 64)}
	go sub.pump()
	return sub, nil
}

func (c *redisConn) Close() error {
	return c.rdb.Close()
}

type redisSubscription struct {
	ps  *redis.PubSub
	out chan []byte
}

func (s *redisSubscription) pump() {
	defer close(s.out)
	for msg := range s.ps.Channel() {
		s.out <- []byte(msg.Payload)
	}
}

func (s *redisSubscription) Messages() <-chan []byte {
	return s.out
}

func (s *redisSubscription) Close() error {
	return s.ps.Close()
}
