package revalidate

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// PubSubConfig holds the topic coordinates for publish notifications.
type PubSubConfig struct {
	ProjectID string
	TopicID   string
}

// PubSub publishes invalidation events to a Cloud Pub/Sub topic; a
// site-side subscriber performs the actual cache purge.
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSub connects a Pub/Sub client to the configured topic.
func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	if cfg.ProjectID == "" || cfg.TopicID == "" {
		return nil, fmt.Errorf("pubsub project id and topic id are required")
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &PubSub{client: client, topic: client.Topic(cfg.TopicID)}, nil
}

type event struct {
	Paths []string `json:"paths"`
}

// Revalidate publishes one event carrying all invalidated paths and waits
// for the server acknowledgement.
func (p *PubSub) Revalidate(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	data, err := json.Marshal(event{Paths: paths})
	if err != nil {
		return fmt.Errorf("marshal revalidate event: %w", err)
	}
	if _, err := p.topic.Publish(ctx, &pubsub.Message{Data: data}).Get(ctx); err != nil {
		return fmt.Errorf("publish revalidate event: %w", err)
	}
	return nil
}

// Close releases the Pub/Sub client.
func (p *PubSub) Close() error {
	p.topic.Stop()
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
