package messaging

import (
	"context"
	"errors"
	"fmt"

	nsq "github.com/nsqio/go-nsq"
)

var (
	// ErrNSQTopicRequired is returned when the topic is empty.
	ErrNSQTopicRequired = errors.New("pkgmessage: nsq topic is required")
	// ErrNSQProducerAddrRequired is returned when the producer address is missing.
	ErrNSQProducerAddrRequired = errors.New("pkgmessage: nsq producer address is required")
)

// NSQConfig configures the NSQ implementation.
type NSQConfig struct {
	// ProducerAddr is the NSQD address for publishing.
	ProducerAddr string

	// ProducerConfig overrides the default producer config.
	ProducerConfig *nsq.Config
}

// NSQ is a messaging implementation backed by NSQ.
type NSQ struct {
	producer *nsq.Producer
}

// NewNSQ constructs an NSQ messaging client.
func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if cfg.ProducerAddr == "" {
		return nil, ErrNSQProducerAddrRequired
	}

	pcfg := cfg.ProducerConfig
	if pcfg == nil {
		pcfg = nsq.NewConfig()
	}

	p, err := nsq.NewProducer(cfg.ProducerAddr, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pkgmessage: nsq new producer: %w", err)
	}
	p.SetLoggerLevel(nsq.LogLevelError)

	return &NSQ{producer: p}, nil
}

// Close stops the NSQ producer.
func (n *NSQ) Close() error {
	n.producer.Stop()
	return nil
}

// Publish sends a message to an NSQ topic. NSQ supports native deferred
// publishing, so Delay maps to DeferredPublish.
func (n *NSQ) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrNSQTopicRequired
	}

	if msg.Delay > 0 {
		if err := n.producer.DeferredPublish(destination, msg.Delay, msg.Body); err != nil {
			return PublishResult{}, fmt.Errorf("pkgmessage: nsq deferred publish: %w", err)
		}
		return PublishResult{Topic: destination}, nil
	}

	if err := n.producer.Publish(destination, msg.Body); err != nil {
		return PublishResult{}, fmt.Errorf("pkgmessage: nsq publish: %w", err)
	}

	return PublishResult{Topic: destination}, nil
}
