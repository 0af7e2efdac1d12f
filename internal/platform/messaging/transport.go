// Package messaging delivers saga messages between services. Transports move
// opaque JSON payloads keyed by saga id; Kafka is the default, RabbitMQ and an
// in-process bus are interchangeable alternatives.
package messaging

import (
	"context"
	"errors"
)

// ErrTransportClosed is returned when sending on a closed transport.
var ErrTransportClosed = errors.New("messaging transport closed")

// Handler processes one inbound message. Returning an error asks the
// transport to redeliver it.
type Handler func(ctx context.Context, key string, payload []byte) error

// Sender writes a payload to a topic. Messages with the same key keep their order.
type Sender interface {
	Send(ctx context.Context, topic, key string, payload []byte) error
}

// Consumer feeds messages of a topic into h until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, topic string, h Handler) error
}

// Transport is a broker connection able to both send and consume.
type Transport interface {
	Sender
	Consumer
	Close() error
}
