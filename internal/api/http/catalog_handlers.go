package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/coupradise/catalog/internal/database"
	"github.com/coupradise/catalog/internal/models"
	"github.com/coupradise/catalog/internal/service"
	"github.com/coupradise/catalog/pkg/response"
)

type storeRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Website     string `json:"website" validate:"omitempty,url"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

type storeResponse struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Website     string    `json:"website,omitempty"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toStoreResponse(store *models.Store) storeResponse {
	return storeResponse{
		ID:          store.ID,
		Slug:        store.Slug,
		Name:        store.Name,
		Website:     store.Website,
		Description: store.Description,
		IsActive:    store.IsActive,
		CreatedAt:   store.CreatedAt,
		UpdatedAt:   store.UpdatedAt,
	}
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

type categoryResponse struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toCategoryResponse(category *models.Category) categoryResponse {
	return categoryResponse{
		ID:          category.ID,
		Slug:        category.Slug,
		Name:        category.Name,
		Description: category.Description,
		IsActive:    category.IsActive,
		CreatedAt:   category.CreatedAt,
		UpdatedAt:   category.UpdatedAt,
	}
}

func handleCreateStore(svc CatalogService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleCreateStore"
	const successMsg = "The store has been created successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req storeRequest
		if !decodeAndValidate(w, r, validate, &req) {
			return
		}

		store, err := svc.CreateStore(r.Context(), service.StoreInput{
			Name:        req.Name,
			Website:     req.Website,
			Description: req.Description,
			IsActive:    req.IsActive,
		})
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toStoreResponse(store)))
	}
}

func handleGetStore(svc CatalogService) http.HandlerFunc {
	const op = "api.http.handleGetStore"
	const successMsg = "The store retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		storeSlug := chi.URLParam(r, "storeSlug")

		store, err := svc.GetStore(r.Context(), storeSlug)
		if err != nil {
			if errors.Is(err, database.ErrStoreNotFound) {
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
		render.JSON(w, r, response.SuccessResponse(successMsg, toStoreResponse(store)))
	}
}

func handleUpdateStore(svc CatalogService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleUpdateStore"
	const successMsg = "The store was successfully updated."

	return func(w http.ResponseWriter, r *http.Request) {
		var req storeRequest
		if !decodeAndValidate(w, r, validate, &req) {
			return
		}

		storeSlug := chi.URLParam(r, "storeSlug")

		store, err := svc.UpdateStore(r.Context(), storeSlug, service.StoreInput{
			Name:        req.Name,
			Website:     req.Website,
			Description: req.Description,
			IsActive:    req.IsActive,
		})
		if err != nil {
			if errors.Is(err, database.ErrStoreNotFound) {
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
		render.JSON(w, r, response.SuccessResponse(successMsg, toStoreResponse(store)))
	}
}

func handleDeleteStore(svc CatalogService) http.HandlerFunc {
	const op = "api.http.handleDeleteStore"
	const successMsg = "The store was successfully deleted."

	return func(w http.ResponseWriter, r *http.Request) {
		storeSlug := chi.URLParam(r, "storeSlug")

		err := svc.DeleteStore(r.Context(), storeSlug)
		if err != nil {
			if errors.Is(err, database.ErrStoreNotFound) {
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

func handleListStores(svc CatalogService) http.HandlerFunc {
	const op = "api.http.handleListStores"
	const successMsg = "The stores retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		stores, err := svc.ListStores(r.Context())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := make([]storeResponse, 0, len(stores))
		for _, store := range stores {
			data = append(data, toStoreResponse(store))
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

// pageParam reads the page query parameter, defaulting to the first page.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// handleListStoreOffers handles GET requests for a store's offer listing.
func handleListStoreOffers(catalogSvc CatalogService, offerSvc OfferService) http.HandlerFunc {
	const op = "api.http.handleListStoreOffers"
	const successMsg = "The offers retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		storeSlug := chi.URLParam(r, "storeSlug")

		store, err := catalogSvc.GetStore(r.Context(), storeSlug)
		if err != nil {
			if errors.Is(err, database.ErrStoreNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		offers, err := offerSvc.ListByStore(r.Context(), store.ID, pageParam(r))
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

func handleCreateCategory(svc CatalogService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleCreateCategory"
	const successMsg = "The category has been created successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req categoryRequest
		if !decodeAndValidate(w, r, validate, &req) {
			return
		}

		category, err := svc.CreateCategory(r.Context(), service.CategoryInput{
			Name:        req.Name,
			Description: req.Description,
			IsActive:    req.IsActive,
		})
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toCategoryResponse(category)))
	}
}

func handleGetCategory(svc CatalogService) http.HandlerFunc {
	const op = "api.http.handleGetCategory"
	const successMsg = "The category retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		categorySlug := chi.URLParam(r, "categorySlug")

		category, err := svc.GetCategory(r.Context(), categorySlug)
		if err != nil {
			if errors.Is(err, database.ErrCategoryNotFound) {
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
		render.JSON(w, r, response.SuccessResponse(successMsg, toCategoryResponse(category)))
	}
}

func handleUpdateCategory(svc CatalogService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleUpdateCategory"
	const successMsg = "The category was successfully updated."

	return func(w http.ResponseWriter, r *http.Request) {
		var req categoryRequest
		if !decodeAndValidate(w, r, validate, &req) {
			return
		}

		categorySlug := chi.URLParam(r, "categorySlug")

		category, err := svc.UpdateCategory(r.Context(), categorySlug, service.CategoryInput{
			Name:        req.Name,
			Description: req.Description,
			IsActive:    req.IsActive,
		})
		if err != nil {
			if errors.Is(err, database.ErrCategoryNotFound) {
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
		render.JSON(w, r, response.SuccessResponse(successMsg, toCategoryResponse(category)))
	}
}

func handleDeleteCategory(svc CatalogService) http.HandlerFunc {
	const op = "api.http.handleDeleteCategory"
	const successMsg = "The category was successfully deleted."

	return func(w http.ResponseWriter, r *http.Request) {
		categorySlug := chi.URLParam(r, "categorySlug")

		err := svc.DeleteCategory(r.Context(), categorySlug)
		if err != nil {
			if errors.Is(err, database.ErrCategoryNotFound) {
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

func handleListCategories(svc CatalogService) http.HandlerFunc {
	const op = "api.http.handleListCategories"
	const successMsg = "The categories retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := make([]categoryResponse, 0, len(categories))
		for _, category := range categories {
			data = append(data, toCategoryResponse(category))
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

// handleListCategoryOffers handles GET requests for a category's offer listing.
func handleListCategoryOffers(catalogSvc CatalogService, offerSvc OfferService) http.HandlerFunc {
	const op = "api.http.handleListCategoryOffers"
	const successMsg = "The offers retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		categorySlug := chi.URLParam(r, "categorySlug")

		category, err := catalogSvc.GetCategory(r.Context(), categorySlug)
		if err != nil {
			if errors.Is(err, database.ErrCategoryNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		offers, err := offerSvc.ListByCategory(r.Context(), category.ID, pageParam(r))
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

type subscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type subscriberResponse struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

// handleSubscribe handles POST requests to join the newsletter.
func handleSubscribe(svc CatalogService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleSubscribe"
	const successMsg = "The subscription was successfully created."

	return func(w http.ResponseWriter, r *http.Request) {
		var req subscribeRequest
		if !decodeAndValidate(w, r, validate, &req) {
			return
		}

		sub, err := svc.Subscribe(r.Context(), req.Email)
		if err != nil {
			if errors.Is(err, database.ErrSubscriberExists) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.ErrorResponse("Already Subscribed", "This email address is already subscribed."))
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := subscriberResponse{
			ID:           sub.ID,
			Email:        sub.Email,
			IsActive:     sub.IsActive,
			SubscribedAt: sub.SubscribedAt,
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

// handleUnsubscribe handles POST requests to leave the newsletter.
func handleUnsubscribe(svc CatalogService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleUnsubscribe"
	const successMsg = "The subscription was successfully cancelled."

	return func(w http.ResponseWriter, r *http.Request) {
		var req subscribeRequest
		if !decodeAndValidate(w, r, validate, &req) {
			return
		}

		err := svc.Unsubscribe(r.Context(), req.Email)
		if err != nil {
			if errors.Is(err, database.ErrSubscriberNotFound) {
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
