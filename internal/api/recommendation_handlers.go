package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/onnwee/singme/internal/recommendation"
)

// maxSubmissionBytes caps the size of a submission body.
const maxSubmissionBytes = 64 << 10

// RecommendationService is the recommendation use-case surface the handlers
// depend on. *recommendation.Service implements it.
type RecommendationService interface {
	Submit(ctx context.Context, in recommendation.SubmitInput) (*recommendation.Recommendation, error)
	Upvote(ctx context.Context, id int64) error
	Downvote(ctx context.Context, id int64) error
	Recent(ctx context.Context) ([]*recommendation.Recommendation, error)
	Get(ctx context.Context, id int64) (*recommendation.Recommendation, error)
	Top(ctx context.Context, amount int) ([]*recommendation.Recommendation, error)
	Random(ctx context.Context) (*recommendation.Recommendation, error)
}

// SubmitRecommendationRequest represents the request body for submitting a recommendation.
type SubmitRecommendationRequest struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

// RecommendationHandlers holds dependencies for recommendation HTTP handlers.
type RecommendationHandlers struct {
	svc RecommendationService
}

// NewRecommendationHandlers creates a new RecommendationHandlers instance.
func NewRecommendationHandlers(svc RecommendationService) *RecommendationHandlers {
	return &RecommendationHandlers{svc: svc}
}

// Submit handles POST /recommendations.
// Returns 201 with the stored entity, 422 for malformed input and 409 when
// the name is already taken.
func (h *RecommendationHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmissionBytes)

	var req SubmitRecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusUnprocessableEntity, ErrCodeValidation, "Invalid JSON in request body")
		return
	}

	rec, err := h.svc.Submit(r.Context(), recommendation.SubmitInput{Name: req.Name, Link: req.Link})
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, rec)
}

// Upvote handles POST /recommendations/{id}/upvote.
func (h *RecommendationHandlers) Upvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, h.svc.Upvote)
}

// Downvote handles POST /recommendations/{id}/downvote.
// A downvote past the score floor deletes the recommendation and still
// answers 200.
func (h *RecommendationHandlers) Downvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, h.svc.Downvote)
}

func (h *RecommendationHandlers) vote(w http.ResponseWriter, r *http.Request, apply func(context.Context, int64) error) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := apply(r.Context(), id); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// List handles GET /recommendations, returning the most recent submissions.
func (h *RecommendationHandlers) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.Recent(r.Context())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, recs)
}

// Get handles GET /recommendations/{id}.
func (h *RecommendationHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

// Top handles GET /recommendations/top/{amount}.
func (h *RecommendationHandlers) Top(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.Atoi(r.PathValue("amount"))
	if err != nil || amount <= 0 {
		WriteError(w, r.Context(), http.StatusUnprocessableEntity, ErrCodeValidation, "amount must be a positive integer")
		return
	}
	recs, err := h.svc.Top(r.Context(), amount)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, recs)
}

// Random handles GET /recommendations/random.
// Returns 404 when there is nothing to draw from.
func (h *RecommendationHandlers) Random(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Random(r.Context())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

// pathID parses the {id} path segment. A value that is not an integer can
// never name a recommendation, so it is answered with 404.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		WriteServiceError(w, r, errors.Join(recommendation.ErrNotFound, err))
		return 0, false
	}
	return id, true
}
