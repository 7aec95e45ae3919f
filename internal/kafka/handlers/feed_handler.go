package kafkahandlers

import (
	"context"

	"cheers-go/internal/apptypes"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"
)

// FeedNotifier pushes a payload to a user's open feed connections.
type FeedNotifier interface {
	SendToUser(userID uint, payload []byte) bool
}

// FeedHandler forwards activity events to the live feed of the user they concern.
type FeedHandler struct {
	notifier FeedNotifier
	log      logrus.FieldLogger
}

// NewFeedHandler creates the handler used by the feed server's consumer.
func NewFeedHandler(notifier FeedNotifier, log logrus.FieldLogger) *FeedHandler {
	return &FeedHandler{notifier: notifier, log: log.WithField("component", "feed-consumer")}
}

// HandleMessage is the kafka.MessageHandler for the activity topic.
func (h *FeedHandler) HandleMessage(ctx context.Context, msg *kafka.Message) error {
	h.handle(msg.Value)
	return nil
}

// handle 只转发需要通知的事件；用户不在线时消息直接丢弃。
func (h *FeedHandler) handle(value []byte) {
	evt, err := apptypes.DecodeActivityEvent(value)
	if err != nil {
		h.log.WithError(err).Warn("skipping malformed activity event")
		return
	}
	if !evt.Notifies() {
		return
	}
	// 去掉内部字段后再推送给浏览器
	evt.ImageURLs = nil
	payload, err := evt.Encode()
	if err != nil {
		h.log.WithError(err).Error("encode feed event failed")
		return
	}
	h.notifier.SendToUser(evt.RecipientID, payload)
}
