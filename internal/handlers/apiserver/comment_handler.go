package apiserver

import (
	"net/http"

	"cheers-go/internal/models"
	"cheers-go/internal/services"

	"github.com/sirupsen/logrus"
)

// CommentHandler 处理评测下的评论。
type CommentHandler struct {
	commentService services.CommentService
	log            logrus.FieldLogger
}

func NewCommentHandler(cs services.CommentService, log logrus.FieldLogger) *CommentHandler {
	return &CommentHandler{commentService: cs, log: log.WithField("handler", "comment")}
}

type CommentRequest struct {
	Text string `json:"text"`
}

type CommentResponse struct {
	Comment *models.Comment `json:"comment"`
}

type CommentsResponse struct {
	Comments []models.Comment `json:"comments"`
}

// ListComments handles GET /reviews/{reviewID}/comments, newest first.
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := pathID(w, r, "reviewID")
	if !ok {
		return
	}
	comments, err := h.commentService.List(r.Context(), reviewID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, CommentsResponse{Comments: comments})
}

// CreateComment handles POST /reviews/{reviewID}/comments
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	reviewID, ok := pathID(w, r, "reviewID")
	if !ok {
		return
	}
	var req CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	comment, err := h.commentService.Create(r.Context(), reviewID, me, req.Text)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, CommentResponse{Comment: comment})
}

// DeleteComment handles DELETE /reviews/{reviewID}/comments/{commentID}
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	reviewID, ok := pathID(w, r, "reviewID")
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "commentID")
	if !ok {
		return
	}
	if err := h.commentService.Delete(r.Context(), reviewID, commentID, me); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, MessageResponse{Message: "comment deleted"})
}
