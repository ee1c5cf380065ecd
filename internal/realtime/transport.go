package realtime

import (
	"context"
	"encoding/json"
)

type Credentials struct {
	Username string
	Password string
}

// Transport opens connections to the hosted pub/sub service.
type Transport interface {
	Dial(ctx context.Context, creds Credentials) (Conn, error)
}

type Conn interface {
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Close() error
}

// Subscription delivers raw payloads until closed; Messages is closed after Close.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// Authorizer obtains the credentials used to dial the transport.
type Authorizer interface {
	Authorize(ctx context.Context) (Credentials, error)
}

type AuthorizerFunc func(ctx context.Context) (Credentials, error)

func (f AuthorizerFunc) Authorize(ctx context.Context) (Credentials, error) {
	return f(ctx)
}

// Envelope is the wire format of every message on a channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
