package kafkahandlers

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cheers-go/internal/apptypes"
	"cheers-go/internal/logger"
)

type recordingStorage struct {
	deleted []string
	err     error
}

func (s *recordingStorage) UploadFile(context.Context, io.Reader, int64, string, string) (*apptypes.FileInfo, error) {
	return nil, errors.New("not implemented")
}

func (s *recordingStorage) DeleteFile(_ context.Context, fileURL string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, fileURL)
	return nil
}

type fixedRefs struct {
	inUse map[string]bool
	err   error
}

func (r fixedRefs) IsImageReferenced(_ context.Context, url string) (bool, error) {
	return r.inUse[url], r.err
}

type recordingNotifier struct {
	sent map[uint][][]byte
}

func (n *recordingNotifier) SendToUser(userID uint, payload []byte) bool {
	if n.sent == nil {
		n.sent = map[uint][][]byte{}
	}
	n.sent[userID] = append(n.sent[userID], payload)
	return true
}

func message(t *testing.T, evt apptypes.ActivityEvent) *kafka.Message {
	t.Helper()
	value, err := evt.Encode()
	require.NoError(t, err)
	topic := "cheers-activity"
	return &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic}, Value: value}
}

func TestUploadCleanup_DeletesImagesOfDeletedReview(t *testing.T) {
	st := &recordingStorage{}
	h := NewUploadCleanupHandler(st, fixedRefs{}, logger.Discard())

	err := h.HandleMessage(context.Background(), message(t, apptypes.ActivityEvent{
		Type:      apptypes.ActivityReviewDeleted,
		ImageURLs: []string{"/uploads/a.jpg", "/uploads/b.png"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/a.jpg", "/uploads/b.png"}, st.deleted)
}

func TestUploadCleanup_IgnoresOtherEvents(t *testing.T) {
	st := &recordingStorage{}
	h := NewUploadCleanupHandler(st, fixedRefs{}, logger.Discard())

	require.NoError(t, h.HandleMessage(context.Background(), message(t, apptypes.ActivityEvent{
		Type:      apptypes.ActivityReviewCheered,
		ImageURLs: []string{"/uploads/a.jpg"},
	})))
	assert.Empty(t, st.deleted)
}

func TestUploadCleanup_StorageErrorIsReturned(t *testing.T) {
	st := &recordingStorage{err: errors.New("disk gone")}
	h := NewUploadCleanupHandler(st, fixedRefs{}, logger.Discard())

	err := h.HandleMessage(context.Background(), message(t, apptypes.ActivityEvent{
		Type:      apptypes.ActivityUserDeleted,
		ImageURLs: []string{"/uploads/a.jpg"},
	}))
	assert.Error(t, err)
}

func TestUploadCleanup_KeepsImagesStillReferenced(t *testing.T) {
	st := &recordingStorage{}
	h := NewUploadCleanupHandler(st, fixedRefs{inUse: map[string]bool{"/uploads/shared.png": true}}, logger.Discard())

	require.NoError(t, h.HandleMessage(context.Background(), message(t, apptypes.ActivityEvent{
		Type:      apptypes.ActivityReviewDeleted,
		ImageURLs: []string{"/uploads/shared.png", "/uploads/mine.png"},
	})))
	assert.Equal(t, []string{"/uploads/mine.png"}, st.deleted)
}

func TestUploadCleanup_ReferenceLookupErrorIsReturned(t *testing.T) {
	st := &recordingStorage{}
	h := NewUploadCleanupHandler(st, fixedRefs{err: errors.New("db down")}, logger.Discard())

	err := h.HandleMessage(context.Background(), message(t, apptypes.ActivityEvent{
		Type:      apptypes.ActivityUserDeleted,
		ImageURLs: []string{"/uploads/a.jpg"},
	}))
	assert.Error(t, err)
	assert.Empty(t, st.deleted)
}

func TestUploadCleanup_SkipsMalformed(t *testing.T) {
	h := NewUploadCleanupHandler(&recordingStorage{}, fixedRefs{}, logger.Discard())
	assert.NoError(t, h.HandleMessage(context.Background(), &kafka.Message{Value: []byte("{nope")}))
}

func TestFeed_ForwardsToRecipient(t *testing.T) {
	n := &recordingNotifier{}
	h := NewFeedHandler(n, logger.Discard())

	require.NoError(t, h.HandleMessage(context.Background(), message(t, apptypes.ActivityEvent{
		Type:        apptypes.ActivityReviewCheered,
		ActorID:     2,
		RecipientID: 1,
		ReviewID:    10,
		OccurredAt:  time.Now(),
	})))

	require.Len(t, n.sent[1], 1)
	evt, err := apptypes.DecodeActivityEvent(n.sent[1][0])
	require.NoError(t, err)
	assert.Equal(t, apptypes.ActivityReviewCheered, evt.Type)
	assert.Equal(t, uint(10), evt.ReviewID)
}

func TestFeed_SkipsSelfAndUnaddressedEvents(t *testing.T) {
	n := &recordingNotifier{}
	h := NewFeedHandler(n, logger.Discard())

	for _, evt := range []apptypes.ActivityEvent{
		{Type: apptypes.ActivityReviewCheered, ActorID: 1, RecipientID: 1},
		{Type: apptypes.ActivityReviewDeleted, ActorID: 1},
	} {
		require.NoError(t, h.HandleMessage(context.Background(), message(t, evt)))
	}
	assert.Empty(t, n.sent)
}

func TestFeed_StripsImageURLs(t *testing.T) {
	n := &recordingNotifier{}
	h := NewFeedHandler(n, logger.Discard())

	require.NoError(t, h.HandleMessage(context.Background(), message(t, apptypes.ActivityEvent{
		Type: apptypes.ActivityFriendAdded, ActorID: 2, RecipientID: 3, ImageURLs: []string{"/uploads/x.jpg"},
	})))
	require.Len(t, n.sent[3], 1)
	assert.NotContains(t, string(n.sent[3][0]), "imageUrls")
}
