package apiserver

import (
	"fmt"
	"net/http"

	"cheers-go/internal/services"

	"github.com/sirupsen/logrus"
)

// FriendHandler handles the caller's friend list. The caller is always one side of the link.
type FriendHandler struct {
	friendService services.FriendshipService
	log           logrus.FieldLogger
}

func NewFriendHandler(fs services.FriendshipService, log logrus.FieldLogger) *FriendHandler {
	return &FriendHandler{friendService: fs, log: log.WithField("handler", "friend")}
}

// FriendPayload defines the expected JSON body for adding or removing a friend.
// The /users/friends form names both sides as friend1 and friend2; the caller must be one of them.
type FriendPayload struct {
	FriendID uint `json:"friendId"`
	Friend1  uint `json:"friend1,omitempty"`
	Friend2  uint `json:"friend2,omitempty"`
}

// target resolves the other side of the link for caller me.
func (p FriendPayload) target(me uint) (uint, error) {
	if p.FriendID != 0 {
		return p.FriendID, nil
	}
	switch {
	case p.Friend1 == 0 && p.Friend2 == 0:
		return 0, fmt.Errorf("%w: friendId is required", services.ErrValidation)
	case p.Friend1 == me:
		return p.Friend2, nil
	case p.Friend2 == me:
		return p.Friend1, nil
	default:
		// 不允许替别人建立或解除好友关系
		return 0, services.ErrForbidden
	}
}

// ListFriends handles GET /friends and GET /friends/{userID}; the path id is ignored
// and the caller's own list is returned.
func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	friends, err := h.friendService.ListFriends(r.Context(), me)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, friends)
}

// AddFriend handles POST /friends/add and POST /users/friends
func (h *FriendHandler) AddFriend(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	var payload FriendPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	friendID, err := payload.target(me)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if err := h.friendService.AddFriend(r.Context(), me, friendID); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, MessageResponse{Message: "friend added"})
}

// RemoveFriend handles DELETE /friends/remove and DELETE /users/friends
func (h *FriendHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	var payload FriendPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	friendID, err := payload.target(me)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if err := h.friendService.RemoveFriend(r.Context(), me, friendID); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, MessageResponse{Message: "friend removed"})
}
