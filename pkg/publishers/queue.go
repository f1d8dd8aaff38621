package publishers

import (
	"context"
	"fmt"
)

type queueSender interface {
	Send(ctx context.Context, evt Event) error
}

type senderFactory func(ctx context.Context, cfg *QueuePublisherConfig, log Logger) (queueSender, error)

// queueSenders maps a queue provider onto the constructor of its sender.
var queueSenders = map[string]senderFactory{
	QueueProviderAWSSQS: func(ctx context.Context, cfg *QueuePublisherConfig, log Logger) (queueSender, error) {
		return newAWSSQSSender(ctx, cfg.AWS, log)
	},
	QueueProviderAWSSNS: func(ctx context.Context, cfg *QueuePublisherConfig, log Logger) (queueSender, error) {
		return newAWSSNSSender(ctx, cfg.SNS, log)
	},
	QueueProviderGCP: func(ctx context.Context, cfg *QueuePublisherConfig, log Logger) (queueSender, error) {
		return newGCPPubSubSender(ctx, cfg.GCP, log)
	},
}

// queuePublisher hands harvest events to a cloud messaging provider.
type queuePublisher struct {
	id       string
	typ      string
	provider string
	sender   queueSender
	log      Logger
}

func newQueuePublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("publisher %q missing queue configuration", cfg.ID)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	factory, ok := queueSenders[cfg.Queue.Provider]
	if !ok {
		return nil, fmt.Errorf("queue provider %q is not supported", cfg.Queue.Provider)
	}
	sender, err := factory(ctx, cfg.Queue, log)
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}

	return &queuePublisher{
		id:       cfg.ID,
		typ:      cfg.Type,
		provider: cfg.Queue.Provider,
		sender:   sender,
		log:      ensureLogger(log),
	}, nil
}

func (p *queuePublisher) ID() string   { return p.id }
func (p *queuePublisher) Type() string { return p.typ }

func (p *queuePublisher) Publish(ctx context.Context, evt Event) error {
	if err := p.sender.Send(ctx, evt); err != nil {
		return fmt.Errorf("queue provider %s send failed: %w", p.provider, err)
	}
	return nil
}
