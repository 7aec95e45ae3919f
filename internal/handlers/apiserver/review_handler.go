package apiserver

import (
	"net/http"

	"cheers-go/internal/models"
	"cheers-go/internal/services"

	"github.com/sirupsen/logrus"
)

// ReviewHandler 处理评测和点赞（cheer）相关请求。
type ReviewHandler struct {
	reviewService services.ReviewService
	cheerService  services.CheerService
	log           logrus.FieldLogger
}

func NewReviewHandler(reviewService services.ReviewService, cheerService services.CheerService, log logrus.FieldLogger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		cheerService:  cheerService,
		log:           log.WithField("handler", "review"),
	}
}

// ReviewRequest is the body of create and update. On update omitted fields are unchanged.
type ReviewRequest struct {
	Name     *string  `json:"name,omitempty"`
	Style    *string  `json:"style,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
	ImageURL *string  `json:"imageUrl,omitempty"`
	Location *string  `json:"location,omitempty"`
}

func (req ReviewRequest) input() services.ReviewInput {
	return services.ReviewInput{
		Name:     req.Name,
		Style:    req.Style,
		Rating:   req.Rating,
		ImageURL: req.ImageURL,
		Location: req.Location,
	}
}

// CheerResponse carries the review after a toggle together with the caller's state.
type CheerResponse struct {
	Review     *models.Review `json:"review"`
	HasCheered bool           `json:"hasCheered"`
}

// CheerStatusResponse answers GET /reviews/{reviewID}/cheer.
type CheerStatusResponse struct {
	HasCheered bool `json:"hasCheered"`
}

// CheerersResponse wraps the users who cheered a review.
type CheerersResponse struct {
	Cheerers []models.UserBasicInfo `json:"cheerers"`
}

func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviewService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, reviews)
}

func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := pathID(w, r, "reviewID")
	if !ok {
		return
	}
	review, err := h.reviewService.Get(r.Context(), reviewID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, review)
}

// CreateReview 创建评测，作者为当前用户。
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	var req ReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	review, err := h.reviewService.Create(r.Context(), me, req.input())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, review)
}

func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	reviewID, ok := pathID(w, r, "reviewID")
	if !ok {
		return
	}
	var req ReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	review, err := h.reviewService.Update(r.Context(), me, reviewID, req.input())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, review)
}

func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	reviewID, ok := pathID(w, r, "reviewID")
	if !ok {
		return
	}
	if err := h.reviewService.Delete(r.Context(), me, reviewID); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, MessageResponse{Message: "review deleted"})
}

// ToggleCheer handles POST /reviews/{reviewID}/cheer
func (h *ReviewHandler) ToggleCheer(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	reviewID, ok := pathID(w, r, "reviewID")
	if !ok {
		return
	}
	review, cheered, err := h.cheerService.ToggleCheer(r.Context(), reviewID, me)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, CheerResponse{Review: review, HasCheered: cheered})
}

// CheerStatus handles GET /reviews/{reviewID}/cheer
func (h *ReviewHandler) CheerStatus(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	reviewID, ok := pathID(w, r, "reviewID")
	if !ok {
		return
	}
	cheered, err := h.cheerService.HasCheered(r.Context(), reviewID, me)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, CheerStatusResponse{HasCheered: cheered})
}

func (h *ReviewHandler) ListCheerers(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := pathID(w, r, "reviewID")
	if !ok {
		return
	}
	cheerers, err := h.cheerService.ListCheerers(r.Context(), reviewID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, CheerersResponse{Cheerers: cheerers})
}
