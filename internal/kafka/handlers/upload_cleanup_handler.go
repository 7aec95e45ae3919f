package kafkahandlers

import (
	"context"

	"cheers-go/internal/apptypes"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"
)

// ImageReferences reports whether a stored review or profile still points at an upload.
type ImageReferences interface {
	IsImageReferenced(ctx context.Context, url string) (bool, error)
}

// UploadCleanupHandler deletes uploaded images that a deleted review or user no longer references.
type UploadCleanupHandler struct {
	storage apptypes.StorageService
	refs    ImageReferences
	log     logrus.FieldLogger
}

// NewUploadCleanupHandler creates the handler for the API server's cleanup consumer.
func NewUploadCleanupHandler(storage apptypes.StorageService, refs ImageReferences, log logrus.FieldLogger) *UploadCleanupHandler {
	return &UploadCleanupHandler{storage: storage, refs: refs, log: log.WithField("component", "upload-cleanup")}
}

// HandleMessage is the kafka.MessageHandler for the activity topic.
func (h *UploadCleanupHandler) HandleMessage(ctx context.Context, msg *kafka.Message) error {
	return h.handle(ctx, msg.Value)
}

func (h *UploadCleanupHandler) handle(ctx context.Context, value []byte) error {
	evt, err := apptypes.DecodeActivityEvent(value)
	if err != nil {
		// 无法解析的消息直接跳过，避免阻塞分区
		h.log.WithError(err).Warn("skipping malformed activity event")
		return nil
	}
	if evt.Type != apptypes.ActivityReviewDeleted && evt.Type != apptypes.ActivityUserDeleted {
		return nil
	}
	for _, u := range evt.ImageURLs {
		// 事件发出后可能又有新评测引用了同一张图片
		inUse, err := h.refs.IsImageReferenced(ctx, u)
		if err != nil {
			return err
		}
		if inUse {
			h.log.WithField("url", u).Debug("upload referenced again, keeping it")
			continue
		}
		if err := h.storage.DeleteFile(ctx, u); err != nil {
			return err
		}
		h.log.WithField("url", u).Debug("removed orphaned upload")
	}
	return nil
}
