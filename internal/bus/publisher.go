package bus

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// Publisher emits control messages on the shared topic. Stages depend on
// this interface, not on a concrete client, so tests can capture publishes.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// PubSubPublisher publishes messages on a Google Cloud Pub/Sub topic.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher creates a publisher bound to the given topic.
func NewPubSubPublisher(ctx context.Context, projectID, topicID string) (*PubSubPublisher, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("bus: projectID and topicID must be set")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}
	return &PubSubPublisher{
		client: client,
		topic:  client.Topic(topicID),
	}, nil
}

// Publish encodes the message and blocks until the server acknowledges it.
// Publishing only after all artifact writes finished is what gives consumers
// the publish-after-complete guarantee.
func (p *PubSubPublisher) Publish(ctx context.Context, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close flushes pending publishes and releases the underlying client.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
