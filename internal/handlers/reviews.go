package handlers

import (
	"context"
	"net/http"

	"github.com/gamestore-dxp/apiserver/internal/services"
	"github.com/gamestore-dxp/apiserver/internal/validation"
	"github.com/gamestore-dxp/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// ReviewService is the review behaviour the review endpoints need.
type ReviewService interface {
	Create(ctx context.Context, entryUID string, author types.Account, in services.ReviewInput) (types.Review, error)
	ListByGame(ctx context.Context, entryUID string) (types.ReviewList, error)
	GetOwn(ctx context.Context, entryUID, accountID string) (*types.Review, error)
	Update(ctx context.Context, reviewID, accountID string, in services.ReviewInput) (types.Review, error)
	Delete(ctx context.Context, reviewID, accountID string) error
}

// ReviewHandler provides HTTP handlers for game reviews.
type ReviewHandler struct {
	reviews ReviewService
	logger  logrus.FieldLogger
}

func NewReviewHandler(reviews ReviewService, logger logrus.FieldLogger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, logger: logger}
}

// ReviewRouter registers review routes on the given router.
//
// The single path parameter is a game's entry uid for GET and POST and a
// review id for PUT and DELETE.
func ReviewRouter(r chi.Router, handler *ReviewHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/{id}", handler.ListByGame)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/{id}", handler.Create)
		r.Get("/{id}/my-review", handler.GetOwn)
		r.Put("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
	})
}

// ListByGame returns a game's reviews with total and average rating.
func (h *ReviewHandler) ListByGame(w http.ResponseWriter, r *http.Request) {
	list, err := h.reviews.ListByGame(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Create stores the signed-in account's review of a game.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entryUID := pathParam(r, "id")
	in, ok := h.decodeReview(w, r)
	if !ok {
		return
	}

	review, err := h.reviews.Create(r.Context(), entryUID, account, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// GetOwn returns the signed-in account's review of a game, or null.
func (h *ReviewHandler) GetOwn(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	review, err := h.reviews.GetOwn(r.Context(), pathParam(r, "id"), account.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// Update edits a review owned by the signed-in account.
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	in, ok := h.decodeReview(w, r)
	if !ok {
		return
	}

	review, err := h.reviews.Update(r.Context(), pathParam(r, "id"), account.ID, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// Delete removes a review owned by the signed-in account.
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.reviews.Delete(r.Context(), pathParam(r, "id"), account.ID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeReview parses and validates a review body before any store access.
func (h *ReviewHandler) decodeReview(w http.ResponseWriter, r *http.Request) (services.ReviewInput, bool) {
	var req ReviewRequest
	if !decodeJSON(w, r, &req) {
		return services.ReviewInput{}, false
	}
	if err := validation.ValidateReview(req.Rating, req.Title, req.Content); err != nil {
		writeServiceError(w, r, h.logger, err)
		return services.ReviewInput{}, false
	}
	return services.ReviewInput{Rating: req.Rating, Title: req.Title, Content: req.Content}, true
}

type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
