package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cheers-go/internal/apptypes"
	"cheers-go/internal/logger"
)

type sentMessage struct {
	topic   string
	key     []byte
	payload []byte
}

type fakeProducer struct {
	sent chan sentMessage
	err  error
}

func (p *fakeProducer) SendMessage(_ context.Context, topic string, key []byte, payload []byte) error {
	p.sent <- sentMessage{topic: topic, key: key, payload: payload}
	return p.err
}

func (p *fakeProducer) Close() {}

func receive(t *testing.T, ch <-chan sentMessage) sentMessage {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no message was produced")
		return sentMessage{}
	}
}

func TestKafkaActivityPublisher_KeysByRecipient(t *testing.T) {
	prod := &fakeProducer{sent: make(chan sentMessage, 1)}
	pub := NewKafkaActivityPublisher(prod, "activity", logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	pub.Publish(ctx, apptypes.ActivityEvent{Type: apptypes.ActivityReviewCheered, ActorID: 3, RecipientID: 7, ReviewID: 11})
	cancel() // 请求结束不影响发送

	m := receive(t, prod.sent)
	assert.Equal(t, "activity", m.topic)
	assert.Equal(t, "7", string(m.key))

	evt, err := apptypes.DecodeActivityEvent(m.payload)
	require.NoError(t, err)
	assert.Equal(t, apptypes.ActivityReviewCheered, evt.Type)
	assert.Equal(t, uint(11), evt.ReviewID)
	assert.False(t, evt.OccurredAt.IsZero())
}

func TestKafkaActivityPublisher_FallsBackToActorKey(t *testing.T) {
	prod := &fakeProducer{sent: make(chan sentMessage, 1), err: errors.New("broker down")}
	pub := NewKafkaActivityPublisher(prod, "activity", logger.Discard())

	// 发送失败只记录日志
	pub.Publish(context.Background(), apptypes.ActivityEvent{Type: apptypes.ActivityUserDeleted, ActorID: 4})
	m := receive(t, prod.sent)
	assert.Equal(t, "4", string(m.key))
}
