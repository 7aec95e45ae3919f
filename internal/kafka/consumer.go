package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cheers-go/internal/config"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"
)

// MessageHandler processes one consumed message.
// A nil return commits the offset. On error the partition is rewound to the
// message and it is delivered again after a backoff.
type MessageHandler func(ctx context.Context, msg *kafka.Message) error

// MessageConsumer defines the interface for a Kafka message consumer.
type MessageConsumer interface {
	Consume(ctx context.Context, topics []string, groupID string, handler MessageHandler) error
	Close()
}

// consumerClient is the part of *kafka.Consumer the poll loop uses.
type consumerClient interface {
	Poll(timeoutMs int) kafka.Event
	CommitMessage(m *kafka.Message) ([]kafka.TopicPartition, error)
	Seek(partition kafka.TopicPartition, ignoredTimeoutMs int) error
	Assign(partitions []kafka.TopicPartition) error
	Unassign() error
}

const (
	defaultRetryBackoff    = 500 * time.Millisecond
	defaultMaxRetryBackoff = 30 * time.Second
)

// confluentKafkaConsumer is an implementation of MessageConsumer using confluent-kafka-go.
type confluentKafkaConsumer struct {
	consumer   *kafka.Consumer
	cfg        config.KafkaConfig
	groupID    string
	minBackoff time.Duration
	maxBackoff time.Duration
	log        logrus.FieldLogger
}

// NewConfluentKafkaConsumer prepares a consumer; the underlying client is created by Consume
// once the group id is known.
func NewConfluentKafkaConsumer(cfg config.KafkaConfig, log logrus.FieldLogger) MessageConsumer {
	return &confluentKafkaConsumer{
		cfg:        cfg,
		minBackoff: defaultRetryBackoff,
		maxBackoff: defaultMaxRetryBackoff,
		log:        log.WithField("component", "kafka-consumer"),
	}
}

// Consume blocks until ctx is canceled or a fatal Kafka error occurs.
func (c *confluentKafkaConsumer) Consume(ctx context.Context, topics []string, groupID string, handler MessageHandler) error {
	if len(topics) == 0 {
		return fmt.Errorf("kafka consumer: no topics specified")
	}
	c.groupID = groupID
	log := c.log.WithField("group", groupID)

	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(c.cfg.Brokers, ","),
		"group.id":           groupID,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": "false", // 处理成功后手动提交
		"security.protocol":  c.cfg.Protocol,
	}
	if c.cfg.ClientID != "" {
		_ = configMap.SetKey("client.id", c.cfg.ClientID)
	}

	consumer, err := kafka.NewConsumer(configMap)
	if err != nil {
		return fmt.Errorf("failed to create Kafka consumer for group %s: %w", groupID, err)
	}
	c.consumer = consumer

	if err := c.consumer.SubscribeTopics(topics, nil); err != nil {
		_ = c.consumer.Close()
		c.consumer = nil
		return fmt.Errorf("failed to subscribe to topics %v for group %s: %w", topics, groupID, err)
	}

	log.WithField("topics", topics).Info("Kafka consumer started")
	return c.run(ctx, c.consumer, handler, log)
}

func (c *confluentKafkaConsumer) run(ctx context.Context, client consumerClient, handler MessageHandler, log logrus.FieldLogger) error {
	backoff := c.minBackoff
	for {
		select {
		case <-ctx.Done():
			log.Info("Kafka consumer stopping")
			return nil
		default:
		}

		ev := client.Poll(1000)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			entry := log.WithFields(logrus.Fields{
				"topic":     topicName(e.TopicPartition),
				"partition": e.TopicPartition.Partition,
				"offset":    e.TopicPartition.Offset,
			})
			if err := handler(ctx, e); err != nil {
				entry.WithError(err).WithField("retry_in", backoff).Error("Kafka message handling failed")
				// 回到失败的消息，之后的提交不会越过它
				if err := client.Seek(e.TopicPartition, 0); err != nil {
					return fmt.Errorf("rewind %s[%d]@%v: %w", topicName(e.TopicPartition), e.TopicPartition.Partition, e.TopicPartition.Offset, err)
				}
				select {
				case <-ctx.Done():
					log.Info("Kafka consumer stopping")
					return nil
				case <-time.After(backoff):
				}
				backoff *= 2
				if backoff > c.maxBackoff {
					backoff = c.maxBackoff
				}
				continue
			}
			backoff = c.minBackoff
			if _, err := client.CommitMessage(e); err != nil {
				entry.WithError(err).Warn("Kafka offset commit failed")
			}
		case kafka.Error:
			log.WithFields(logrus.Fields{"code": e.Code(), "fatal": e.IsFatal()}).Error(e.Error())
			if e.IsFatal() {
				return e
			}
		case kafka.AssignedPartitions:
			log.Infof("partitions assigned: %v", e.Partitions)
			_ = client.Assign(e.Partitions)
		case kafka.RevokedPartitions:
			log.Infof("partitions revoked: %v", e.Partitions)
			_ = client.Unassign()
		}
	}
}

func topicName(tp kafka.TopicPartition) string {
	if tp.Topic == nil {
		return ""
	}
	return *tp.Topic
}

// Close closes the Kafka consumer.
func (c *confluentKafkaConsumer) Close() {
	if c.consumer == nil {
		return
	}
	if err := c.consumer.Close(); err != nil {
		c.log.WithError(err).WithField("group", c.groupID).Warn("Kafka consumer close failed")
	}
	c.consumer = nil
}
