package services

import (
	"context"
	"strconv"
	"time"

	"cheers-go/internal/apptypes"
	appKafka "cheers-go/internal/kafka"

	"github.com/sirupsen/logrus"
)

// ActivityPublisher emits activity events. Publishing is best effort and never fails the caller.
type ActivityPublisher interface {
	Publish(ctx context.Context, evt apptypes.ActivityEvent)
}

type kafkaActivityPublisher struct {
	producer appKafka.MessageProducer
	topic    string
	timeout  time.Duration
	log      logrus.FieldLogger
}

// NewKafkaActivityPublisher publishes events to topic in the background.
func NewKafkaActivityPublisher(producer appKafka.MessageProducer, topic string, log logrus.FieldLogger) ActivityPublisher {
	return &kafkaActivityPublisher{
		producer: producer,
		topic:    topic,
		timeout:  10 * time.Second,
		log:      log.WithField("component", "activity-publisher"),
	}
}

func (p *kafkaActivityPublisher) Publish(ctx context.Context, evt apptypes.ActivityEvent) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	payload, err := evt.Encode()
	if err != nil {
		p.log.WithError(err).Error("encode activity event failed")
		return
	}
	// 以接收者分区，保证同一用户的事件有序
	keyID := evt.RecipientID
	if keyID == 0 {
		keyID = evt.ActorID
	}
	key := []byte(strconv.FormatUint(uint64(keyID), 10))

	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		if err := p.producer.SendMessage(sendCtx, p.topic, key, payload); err != nil {
			p.log.WithError(err).WithField("type", evt.Type).Warn("publish activity event failed")
		}
	}()
}

type noopActivityPublisher struct{}

// NewNoopActivityPublisher is used when Kafka is disabled.
func NewNoopActivityPublisher() ActivityPublisher { return noopActivityPublisher{} }

func (noopActivityPublisher) Publish(context.Context, apptypes.ActivityEvent) {}
