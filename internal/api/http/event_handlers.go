package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"

	"github.com/coupradise/catalog/internal/counters"
	"github.com/coupradise/catalog/internal/database"
	"github.com/coupradise/catalog/internal/models"
	"github.com/coupradise/catalog/pkg/response"
)

// counterResponse represents the counter record returned after an event.
type counterResponse struct {
	OfferID      string     `json:"offer_id"`
	Views        int64      `json:"views"`
	Saves        int64      `json:"saves"`
	CodeCopies   int64      `json:"code_copies"`
	Uses         int64      `json:"uses"`
	LastViewedAt *time.Time `json:"last_viewed_at,omitempty"`
}

func toCounterResponse(rec *models.CounterRecord) counterResponse {
	return counterResponse{
		OfferID:      rec.OfferID.String(),
		Views:        rec.Views,
		Saves:        rec.Saves,
		CodeCopies:   rec.CodeCopies,
		Uses:         rec.Uses,
		LastViewedAt: rec.LastViewedAt,
	}
}

func handleRecordView(svc EventService) http.HandlerFunc {
	return handleEvent("api.http.handleRecordView", svc.RecordView)
}

func handleRecordSave(svc EventService) http.HandlerFunc {
	return handleEvent("api.http.handleRecordSave", svc.RecordSave)
}

func handleRecordCodeCopy(svc EventService) http.HandlerFunc {
	return handleEvent("api.http.handleRecordCodeCopy", svc.RecordCodeCopy)
}

func handleEvent(op string, record func(ctx context.Context, slug string) (*models.CounterRecord, error)) http.HandlerFunc {
	const successMsg = "The event was successfully recorded."

	return func(w http.ResponseWriter, r *http.Request) {
		offerSlug := chi.URLParam(r, "offerSlug")

		rec, err := record(r.Context(), offerSlug)
		if err != nil {
			if errors.Is(err, database.ErrOfferNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toCounterResponse(rec)))
	}
}

// handleRecordUse handles POST requests to record a redemption. Expired
// offers and offers past their usage limit are rejected with a conflict.
func handleRecordUse(svc EventService) http.HandlerFunc {
	const op = "api.http.handleRecordUse"
	const successMsg = "The event was successfully recorded."

	return func(w http.ResponseWriter, r *http.Request) {
		offerSlug := chi.URLParam(r, "offerSlug")

		rec, err := svc.RecordUse(r.Context(), offerSlug)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrOfferNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
			case errors.Is(err, counters.ErrOfferExpired):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.ErrorResponse("Offer Expired", "This offer can no longer be redeemed."))
			case errors.Is(err, counters.ErrUsageLimitReached):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.ErrorResponse("Usage Limit Reached", "This offer has reached its redemption limit."))
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toCounterResponse(rec)))
	}
}
