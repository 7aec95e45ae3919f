package apptypes

import (
	"encoding/json"
	"time"
)

// ActivityType names an activity event published on the activity topic.
type ActivityType string

const (
	ActivityReviewCheered  ActivityType = "review.cheered"
	ActivityCommentCreated ActivityType = "comment.created"
	ActivityFriendAdded    ActivityType = "friend.added"
	ActivityReviewDeleted  ActivityType = "review.deleted"
	ActivityUserDeleted    ActivityType = "user.deleted"
)

// ActivityEvent is the payload written to Kafka for every activity.
// RecipientID is the user the event concerns (review owner, new friend); zero when nobody is notified.
// ImageURLs lists uploaded files that became unreferenced.
type ActivityEvent struct {
	Type        ActivityType `json:"type"`
	ActorID     uint         `json:"actorId"`
	RecipientID uint         `json:"recipientId,omitempty"`
	ReviewID    uint         `json:"reviewId,omitempty"`
	CommentID   uint         `json:"commentId,omitempty"`
	Summary     string       `json:"summary,omitempty"`
	ImageURLs   []string     `json:"imageUrls,omitempty"`
	OccurredAt  time.Time    `json:"occurredAt"`
}

// Notifies reports whether the event should be pushed to a user's live feed.
func (e ActivityEvent) Notifies() bool {
	return e.RecipientID != 0 && e.RecipientID != e.ActorID
}

// Encode marshals the event into the Kafka message value.
func (e ActivityEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeActivityEvent parses a Kafka message value.
func DecodeActivityEvent(data []byte) (ActivityEvent, error) {
	var e ActivityEvent
	err := json.Unmarshal(data, &e)
	return e, err
}
