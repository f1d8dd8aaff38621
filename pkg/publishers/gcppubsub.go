package publishers

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// pubsubTopic is the part of *pubsub.Topic the sender needs.
type pubsubTopic interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// gcpPubSubSender delivers harvest events to a Pub/Sub topic.
type gcpPubSubSender struct {
	topicID string
	topic   pubsubTopic
	log     Logger
}

func newGCPPubSubSender(ctx context.Context, cfg *GCPQueueConfig, log Logger) (queueSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gcp pubsub configuration is missing")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client for project %s: %w", cfg.ProjectID, err)
	}

	return &gcpPubSubSender{
		topicID: cfg.Topic,
		topic:   client.Topic(cfg.Topic),
		log:     ensureLogger(log),
	}, nil
}

// Send publishes the event and waits for the server-assigned id.
func (s *gcpPubSubSender) Send(ctx context.Context, evt Event) error {
	env, err := encodeEnvelope(evt)
	if err != nil {
		return err
	}

	res := s.topic.Publish(ctx, &pubsub.Message{
		Data:       env.body,
		Attributes: env.stringAttrs(),
	})
	msgID, err := res.Get(ctx)
	if err != nil {
		s.log.ErrorObj("pubsub publisher send failed", "publisher_pubsub_error", map[string]any{
			"topic":  s.topicID,
			"run_id": evt.RunID,
			"error":  err.Error(),
		})
		return fmt.Errorf("publish to pubsub topic %s: %w", s.topicID, err)
	}

	s.log.DebugObj("pubsub publisher delivered event", "publisher_pubsub_delivery", map[string]any{
		"topic":      s.topicID,
		"message_id": msgID,
		"run_id":     evt.RunID,
	})
	return nil
}
