package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-srs/internal/api/shared"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/phrazzld/scry-srs/internal/service/card_review"
)

// ReviewHandler serves the two review session endpoints.
type ReviewHandler struct {
	reviews card_review.Service
	logger  *slog.Logger
}

// NewReviewHandler creates a ReviewHandler.
func NewReviewHandler(reviews card_review.Service, logger *slog.Logger) *ReviewHandler {
	if reviews == nil {
		panic("reviews cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewHandler{
		reviews: reviews,
		logger:  logger.With(slog.String("component", "review_handler")),
	}
}

// GetDueCards handles GET /api/decks/{id}/cards/due. A deck with nothing due
// yields an empty array.
func (h *ReviewHandler) GetDueCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, deckID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	cards, err := h.reviews.GetDueCards(r.Context(), deckID, userID)
	if err != nil {
		log.Debug("get due cards failed",
			slog.String("deck_id", deckID.String()),
			slog.String("user_id", userID.String()))
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardsToResponse(cards))
}

// SubmitReview handles POST /api/cards/{id}/review.
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, cardID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req ReviewRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, fmt.Errorf("%w: %w", domain.ErrValidation, err), "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, domain.NewValidationError("grade", "is required", domain.ErrValidation),
			SanitizeValidationError(err))
		return
	}

	result, err := h.reviews.SubmitReview(r.Context(), cardID, userID, domain.Grade(*req.Grade))
	if err != nil {
		log.Debug("submit review failed",
			slog.String("card_id", cardID.String()),
			slog.Int("grade", *req.Grade))
		HandleAPIError(w, r, err, "")
		return
	}

	if !result.LogRecorded {
		log.Warn("review applied without log entry", slog.String("card_id", cardID.String()))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, reviewResultToResponse(result))
}
