package messaging

import (
	"context"
	"log/slog"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
)

// OutboxPublisher sends outbox rows of one kind to a fixed topic, keyed by
// saga id.
type OutboxPublisher struct {
	sender Sender
	topic  string
	logger *slog.Logger
}

func NewOutboxPublisher(sender Sender, topic string, logger *slog.Logger) *OutboxPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxPublisher{
		sender: sender,
		topic:  topic,
		logger: logger.With(slog.String("topic", topic)),
	}
}

// Publish implements outbox.Publisher.
func (p *OutboxPublisher) Publish(ctx context.Context, msg outbox.Message, done outbox.Callback) {
	if err := p.sender.Send(ctx, p.topic, msg.SagaID, msg.Payload); err != nil {
		p.logger.Error("failed to publish outbox message",
			slog.String("outbox_id", msg.ID),
			slog.String("saga_id", msg.SagaID),
			slog.Any("error", err))
		done(ctx, msg, saga.OutboxFailed)
		return
	}
	p.logger.Info("published outbox message",
		slog.String("outbox_id", msg.ID),
		slog.String("saga_id", msg.SagaID))
	done(ctx, msg, saga.OutboxCompleted)
}

var _ outbox.Publisher = (*OutboxPublisher)(nil)
