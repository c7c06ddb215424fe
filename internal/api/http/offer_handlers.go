package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/coupradise/catalog/internal/database"
	"github.com/coupradise/catalog/internal/models"
	"github.com/coupradise/catalog/internal/section"
	"github.com/coupradise/catalog/internal/service"
	"github.com/coupradise/catalog/pkg/response"
)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// offerRequest represents the request payload for creating or updating an offer.
type offerRequest struct {
	Title         string     `json:"title" validate:"required,max=255"`
	Description   string     `json:"description"`
	Code          string     `json:"code" validate:"max=64"`
	StoreID       int64      `json:"store_id" validate:"required"`
	CategoryID    int64      `json:"category_id" validate:"required"`
	Source        string     `json:"source" validate:"required,oneof=DIRECT AMAZON AFFILIATE OTHER"`
	Kind          string     `json:"kind" validate:"required,oneof=CODE DEAL PRINTABLE FREE_SHIPPING"`
	DiscountType  string     `json:"discount_type" validate:"required,oneof=PERCENTAGE FIXED BOGO FREE"`
	DiscountValue *float64   `json:"discount_value" validate:"omitempty,min=0"`
	IsSpecial     bool       `json:"is_special"`
	IsPopular     bool       `json:"is_popular"`
	IsFeatured    bool       `json:"is_featured"`
	IsActive      bool       `json:"is_active"`
	UsageLimit    *int64     `json:"usage_limit" validate:"omitempty,min=1"`
	StartsAt      time.Time  `json:"starts_at"`
	ExpiresAt     *time.Time `json:"expires_at"`
}

func (req offerRequest) toInput() service.OfferInput {
	return service.OfferInput{
		Title:         req.Title,
		Description:   req.Description,
		Code:          req.Code,
		StoreID:       req.StoreID,
		CategoryID:    req.CategoryID,
		Source:        models.Source(req.Source),
		Kind:          models.Kind(req.Kind),
		DiscountType:  models.DiscountType(req.DiscountType),
		DiscountValue: req.DiscountValue,
		IsSpecial:     req.IsSpecial,
		IsPopular:     req.IsPopular,
		IsFeatured:    req.IsFeatured,
		IsActive:      req.IsActive,
		UsageLimit:    req.UsageLimit,
		StartsAt:      req.StartsAt,
		ExpiresAt:     req.ExpiresAt,
	}
}

// offerResponse represents the response payload for an offer operation.
// Section is computed from the offer's attributes on every render.
type offerResponse struct {
	ID            string     `json:"id"`
	Slug          string     `json:"slug"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Code          string     `json:"code,omitempty"`
	StoreID       int64      `json:"store_id"`
	CategoryID    int64      `json:"category_id"`
	Source        string     `json:"source"`
	Kind          string     `json:"kind"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue *float64   `json:"discount_value,omitempty"`
	IsSpecial     bool       `json:"is_special"`
	IsPopular     bool       `json:"is_popular"`
	IsFeatured    bool       `json:"is_featured"`
	IsActive      bool       `json:"is_active"`
	UsageLimit    *int64     `json:"usage_limit,omitempty"`
	UsageCount    int64      `json:"usage_count"`
	Section       string     `json:"section"`
	StartsAt      time.Time  `json:"starts_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toOfferResponse(offer *models.Offer) offerResponse {
	return offerResponse{
		ID:            offer.ID.String(),
		Slug:          offer.Slug,
		Title:         offer.Title,
		Description:   offer.Description,
		Code:          offer.Code,
		StoreID:       offer.StoreID,
		CategoryID:    offer.CategoryID,
		Source:        string(offer.Source),
		Kind:          string(offer.Kind),
		DiscountType:  string(offer.DiscountType),
		DiscountValue: offer.DiscountValue,
		IsSpecial:     offer.IsSpecial,
		IsPopular:     offer.IsPopular,
		IsFeatured:    offer.IsFeatured,
		IsActive:      offer.IsActive,
		UsageLimit:    offer.UsageLimit,
		UsageCount:    offer.UsageCount,
		Section:       string(section.Classify(offer.View())),
		StartsAt:      offer.StartsAt,
		ExpiresAt:     offer.ExpiresAt,
		CreatedAt:     offer.CreatedAt,
		UpdatedAt:     offer.UpdatedAt,
	}
}

func toOfferListResponse(offers []*models.Offer) []offerResponse {
	resp := make([]offerResponse, 0, len(offers))
	for _, offer := range offers {
		resp = append(resp, toOfferResponse(offer))
	}
	return resp
}

// decodeAndValidate decodes the JSON request body into req and validates it.
// It writes the error response itself and reports whether the caller may proceed.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, req any) bool {
	if err := render.DecodeJSON(r.Body, req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.EmptyRequestBodyResponse)
			return false
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.BadRequestResponse)
		return false
	}

	if err := validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationErrorResponse(err))
		return false
	}

	return true
}

// handleCreateOffer handles POST requests to create an offer.
//
// The slug and, for CODE offers without one, the redemption code are minted
// by the service; clients never supply either.
func handleCreateOffer(svc OfferService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleCreateOffer"
	const successMsg = "The offer has been created successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req offerRequest
		if !decodeAndValidate(w, r, validate, &req) {
			return
		}

		offer, err := svc.CreateOffer(r.Context(), req.toInput())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toOfferResponse(offer)))
	}
}

// handleGetOffer handles GET requests for the offer detail page.
func handleGetOffer(svc OfferService) http.HandlerFunc {
	const op = "api.http.handleGetOffer"
	const successMsg = "The offer retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		offerSlug := chi.URLParam(r, "offerSlug")

		offer, err := svc.GetOffer(r.Context(), offerSlug)
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
		render.JSON(w, r, response.SuccessResponse(successMsg, toOfferResponse(offer)))
	}
}

// handleUpdateOffer handles PUT requests to update an offer.
func handleUpdateOffer(svc OfferService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleUpdateOffer"
	const successMsg = "The offer was successfully updated."

	return func(w http.ResponseWriter, r *http.Request) {
		var req offerRequest
		if !decodeAndValidate(w, r, validate, &req) {
			return
		}

		offerSlug := chi.URLParam(r, "offerSlug")

		offer, err := svc.UpdateOffer(r.Context(), offerSlug, req.toInput())
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
		render.JSON(w, r, response.SuccessResponse(successMsg, toOfferResponse(offer)))
	}
}

// handleDeleteOffer handles DELETE requests to remove an offer.
// The offer's slug stays retired and is never minted again.
func handleDeleteOffer(svc OfferService) http.HandlerFunc {
	const op = "api.http.handleDeleteOffer"
	const successMsg = "The offer was successfully deleted."

	return func(w http.ResponseWriter, r *http.Request) {
		offerSlug := chi.URLParam(r, "offerSlug")

		err := svc.DeleteOffer(r.Context(), offerSlug)
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
		render.JSON(w, r, response.SuccessResponse(successMsg))
	}
}

func handleListFeatured(svc OfferService) http.HandlerFunc {
	return handleOfferListing("api.http.handleListFeatured", svc.ListFeatured)
}

func handleListLatest(svc OfferService) http.HandlerFunc {
	return handleOfferListing("api.http.handleListLatest", svc.ListLatest)
}

func handleListExpiring(svc OfferService) http.HandlerFunc {
	return handleOfferListing("api.http.handleListExpiring", svc.ListExpiring)
}

func handleOfferListing(op string, list func(ctx context.Context) ([]*models.Offer, error)) http.HandlerFunc {
	const successMsg = "The offers retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		offers, err := list(r.Context())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toOfferListResponse(offers)))
	}
}

// offerStatsResponse represents the response payload for the offer stats endpoint.
type offerStatsResponse struct {
	Offer          offerResponse `json:"offer"`
	Views          int64         `json:"views"`
	Saves          int64         `json:"saves"`
	CodeCopies     int64         `json:"code_copies"`
	Uses           int64         `json:"uses"`
	ConversionRate float64       `json:"conversion_rate"`
	Section        string        `json:"section"`
	LastViewedAt   *time.Time    `json:"last_viewed_at,omitempty"`
}

// handleGetOfferStats handles GET requests for an offer's engagement statistics.
func handleGetOfferStats(svc OfferService) http.HandlerFunc {
	const op = "api.http.handleGetOfferStats"
	const successMsg = "The offer statistics retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		offerSlug := chi.URLParam(r, "offerSlug")

		stats, err := svc.GetOfferStats(r.Context(), offerSlug)
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

		data := offerStatsResponse{
			Offer:          toOfferResponse(stats.Offer),
			Views:          stats.Counters.Views,
			Saves:          stats.Counters.Saves,
			CodeCopies:     stats.Counters.CodeCopies,
			Uses:           stats.Counters.Uses,
			ConversionRate: stats.ConversionRate,
			Section:        string(stats.Section),
			LastViewedAt:   stats.Counters.LastViewedAt,
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

// topOfferResponse is one entry of the top-viewed offers payload.
type topOfferResponse struct {
	OfferID string `json:"offer_id"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Views   int64  `json:"views"`
}

// handleTopOffers handles GET requests for the most-viewed offers.
func handleTopOffers(svc OfferService) http.HandlerFunc {
	const op = "api.http.handleTopOffers"
	const successMsg = "The top offers retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		top, err := svc.TopOffers(r.Context())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := make([]topOfferResponse, 0, len(top))
		for _, entry := range top {
			data = append(data, topOfferResponse{
				OfferID: entry.OfferID.String(),
				Slug:    entry.Slug,
				Title:   entry.Title,
				Views:   entry.Views,
			})
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}
