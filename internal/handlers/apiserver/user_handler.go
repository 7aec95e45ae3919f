package apiserver

import (
	"net/http"

	"cheers-go/internal/services"

	"github.com/sirupsen/logrus"
)

// UserHandler 封装了用户相关的 HTTP 处理器方法。
type UserHandler struct {
	userService   services.UserService
	friendService services.FriendshipService
	log           logrus.FieldLogger
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService services.UserService, friendService services.FriendshipService, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{
		userService:   userService,
		friendService: friendService,
		log:           log.WithField("handler", "user"),
	}
}

// UpdateUserRequest 是更新用户信息的请求结构体。缺省字段保持不变。
type UpdateUserRequest struct {
	Username      *string `json:"username,omitempty"`
	Email         *string `json:"email,omitempty"`
	Password      *string `json:"password,omitempty"`
	DateOfBirth   *string `json:"dateOfBirth,omitempty"`
	ProfilePicURL *string `json:"profilePicUrl,omitempty"`
}

// CurrentUser 返回当前登录用户的完整信息。
func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	user, err := h.userService.GetUser(r.Context(), me)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, users)
}

// GetUser 返回指定用户的完整信息（需登录）。
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// GetPublicProfile 返回 {id, username, profilePicUrl}，无需登录。
func (h *UserHandler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	info, err := h.userService.GetPublicProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, info)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := services.UpdateUserInput{
		Username:      req.Username,
		Email:         req.Email,
		Password:      req.Password,
		ProfilePicURL: req.ProfilePicURL,
	}
	if req.DateOfBirth != nil {
		dob, err := parseDate(*req.DateOfBirth)
		if err != nil {
			writeJSONError(w, "dateOfBirth must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		in.DateOfBirth = dob
	}

	user, err := h.userService.UpdateUser(r.Context(), me, userID, in)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// DeleteUser 删除用户及其评测、点赞、好友关系。
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if err := h.userService.DeleteUser(r.Context(), me, userID); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, MessageResponse{Message: "user deleted"})
}

// ListUserFriends lists the friends of the user in the path.
func (h *UserHandler) ListUserFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	friends, err := h.friendService.ListFriends(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, friends)
}
