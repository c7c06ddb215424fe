package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"

	"github.com/coupradise/catalog/internal/models"
	"github.com/coupradise/catalog/internal/service"
)

// OfferService covers offer CRUD, the cached listings, and reporting.
type OfferService interface {
	CreateOffer(ctx context.Context, in service.OfferInput) (*models.Offer, error)
	GetOffer(ctx context.Context, slug string) (*models.Offer, error)
	UpdateOffer(ctx context.Context, slug string, in service.OfferInput) (*models.Offer, error)
	DeleteOffer(ctx context.Context, slug string) error
	ListByStore(ctx context.Context, storeID int64, page int) ([]*models.Offer, error)
	ListByCategory(ctx context.Context, categoryID int64, page int) ([]*models.Offer, error)
	ListFeatured(ctx context.Context) ([]*models.Offer, error)
	ListLatest(ctx context.Context) ([]*models.Offer, error)
	ListExpiring(ctx context.Context) ([]*models.Offer, error)
	GetOfferStats(ctx context.Context, slug string) (*models.OfferStats, error)
	TopOffers(ctx context.Context) ([]*models.TopOffer, error)
}

// CatalogService covers stores, categories, and the newsletter audience.
type CatalogService interface {
	CreateStore(ctx context.Context, in service.StoreInput) (*models.Store, error)
	GetStore(ctx context.Context, slug string) (*models.Store, error)
	UpdateStore(ctx context.Context, slug string, in service.StoreInput) (*models.Store, error)
	DeleteStore(ctx context.Context, slug string) error
	ListStores(ctx context.Context) ([]*models.Store, error)
	CreateCategory(ctx context.Context, in service.CategoryInput) (*models.Category, error)
	GetCategory(ctx context.Context, slug string) (*models.Category, error)
	UpdateCategory(ctx context.Context, slug string, in service.CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, slug string) error
	ListCategories(ctx context.Context) ([]*models.Category, error)
	Subscribe(ctx context.Context, email string) (*models.Subscriber, error)
	Unsubscribe(ctx context.Context, email string) error
}

// EventService records engagement events against the offer named by its slug.
type EventService interface {
	RecordView(ctx context.Context, slug string) (*models.CounterRecord, error)
	RecordSave(ctx context.Context, slug string) (*models.CounterRecord, error)
	RecordCodeCopy(ctx context.Context, slug string) (*models.CounterRecord, error)
	RecordUse(ctx context.Context, slug string) (*models.CounterRecord, error)
}

func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

func NewRouter(logger *httplog.Logger, offerSvc OfferService, catalogSvc CatalogService, eventSvc EventService) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.AllowContentType("application/json"))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		validate := getValidate()

		r.Get("/ping", handlePing)

		r.Route("/offers", func(r chi.Router) {
			r.Post("/", handleCreateOffer(offerSvc, validate))
			r.Get("/featured", handleListFeatured(offerSvc))
			r.Get("/latest", handleListLatest(offerSvc))
			r.Get("/expiring", handleListExpiring(offerSvc))
			r.Get("/top", handleTopOffers(offerSvc))

			r.Route("/{offerSlug}", func(r chi.Router) {
				r.Get("/", handleGetOffer(offerSvc))
				r.Put("/", handleUpdateOffer(offerSvc, validate))
				r.Delete("/", handleDeleteOffer(offerSvc))
				r.Get("/stats", handleGetOfferStats(offerSvc))
				r.Post("/view", handleRecordView(eventSvc))
				r.Post("/save", handleRecordSave(eventSvc))
				r.Post("/copy", handleRecordCodeCopy(eventSvc))
				r.Post("/use", handleRecordUse(eventSvc))
			})
		})

		r.Route("/stores", func(r chi.Router) {
			r.Post("/", handleCreateStore(catalogSvc, validate))
			r.Get("/", handleListStores(catalogSvc))

			r.Route("/{storeSlug}", func(r chi.Router) {
				r.Get("/", handleGetStore(catalogSvc))
				r.Put("/", handleUpdateStore(catalogSvc, validate))
				r.Delete("/", handleDeleteStore(catalogSvc))
				r.Get("/offers", handleListStoreOffers(catalogSvc, offerSvc))
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", handleCreateCategory(catalogSvc, validate))
			r.Get("/", handleListCategories(catalogSvc))

			r.Route("/{categorySlug}", func(r chi.Router) {
				r.Get("/", handleGetCategory(catalogSvc))
				r.Put("/", handleUpdateCategory(catalogSvc, validate))
				r.Delete("/", handleDeleteCategory(catalogSvc))
				r.Get("/offers", handleListCategoryOffers(catalogSvc, offerSvc))
			})
		})

		r.Route("/newsletter", func(r chi.Router) {
			r.Post("/subscribe", handleSubscribe(catalogSvc, validate))
			r.Post("/unsubscribe", handleUnsubscribe(catalogSvc, validate))
		})
	})

	return r
}
