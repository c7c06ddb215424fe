package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/coupradise/catalog/internal/counters"
	"github.com/coupradise/catalog/internal/database"
	"github.com/coupradise/catalog/internal/models"
	"github.com/coupradise/catalog/internal/service"
	"github.com/coupradise/catalog/pkg/response"
)

type MockOfferService struct {
	mock.Mock
}

func (s *MockOfferService) CreateOffer(ctx context.Context, in service.OfferInput) (*models.Offer, error) {
	args := s.Called(ctx, in)
	offer, _ := args.Get(0).(*models.Offer)
	return offer, args.Error(1)
}

func (s *MockOfferService) GetOffer(ctx context.Context, slug string) (*models.Offer, error) {
	args := s.Called(ctx, slug)
	offer, _ := args.Get(0).(*models.Offer)
	return offer, args.Error(1)
}

func (s *MockOfferService) UpdateOffer(ctx context.Context, slug string, in service.OfferInput) (*models.Offer, error) {
	args := s.Called(ctx, slug, in)
	offer, _ := args.Get(0).(*models.Offer)
	return offer, args.Error(1)
}

func (s *MockOfferService) DeleteOffer(ctx context.Context, slug string) error {
	args := s.Called(ctx, slug)
	return args.Error(0)
}

func (s *MockOfferService) ListByStore(ctx context.Context, storeID int64, page int) ([]*models.Offer, error) {
	args := s.Called(ctx, storeID, page)
	offers, _ := args.Get(0).([]*models.Offer)
	return offers, args.Error(1)
}

func (s *MockOfferService) ListByCategory(ctx context.Context, categoryID int64, page int) ([]*models.Offer, error) {
	args := s.Called(ctx, categoryID, page)
	offers, _ := args.Get(0).([]*models.Offer)
	return offers, args.Error(1)
}

func (s *MockOfferService) ListFeatured(ctx context.Context) ([]*models.Offer, error) {
	args := s.Called(ctx)
	offers, _ := args.Get(0).([]*models.Offer)
	return offers, args.Error(1)
}

func (s *MockOfferService) ListLatest(ctx context.Context) ([]*models.Offer, error) {
	args := s.Called(ctx)
	offers, _ := args.Get(0).([]*models.Offer)
	return offers, args.Error(1)
}

func (s *MockOfferService) ListExpiring(ctx context.Context) ([]*models.Offer, error) {
	args := s.Called(ctx)
	offers, _ := args.Get(0).([]*models.Offer)
	return offers, args.Error(1)
}

func (s *MockOfferService) GetOfferStats(ctx context.Context, slug string) (*models.OfferStats, error) {
	args := s.Called(ctx, slug)
	stats, _ := args.Get(0).(*models.OfferStats)
	return stats, args.Error(1)
}

func (s *MockOfferService) TopOffers(ctx context.Context) ([]*models.TopOffer, error) {
	args := s.Called(ctx)
	top, _ := args.Get(0).([]*models.TopOffer)
	return top, args.Error(1)
}

type MockCatalogService struct {
	mock.Mock
}

func (s *MockCatalogService) CreateStore(ctx context.Context, in service.StoreInput) (*models.Store, error) {
	args := s.Called(ctx, in)
	store, _ := args.Get(0).(*models.Store)
	return store, args.Error(1)
}

func (s *MockCatalogService) GetStore(ctx context.Context, slug string) (*models.Store, error) {
	args := s.Called(ctx, slug)
	store, _ := args.Get(0).(*models.Store)
	return store, args.Error(1)
}

func (s *MockCatalogService) UpdateStore(ctx context.Context, slug string, in service.StoreInput) (*models.Store, error) {
	args := s.Called(ctx, slug, in)
	store, _ := args.Get(0).(*models.Store)
	return store, args.Error(1)
}

func (s *MockCatalogService) DeleteStore(ctx context.Context, slug string) error {
	args := s.Called(ctx, slug)
	return args.Error(0)
}

func (s *MockCatalogService) ListStores(ctx context.Context) ([]*models.Store, error) {
	args := s.Called(ctx)
	stores, _ := args.Get(0).([]*models.Store)
	return stores, args.Error(1)
}

func (s *MockCatalogService) CreateCategory(ctx context.Context, in service.CategoryInput) (*models.Category, error) {
	args := s.Called(ctx, in)
	category, _ := args.Get(0).(*models.Category)
	return category, args.Error(1)
}

func (s *MockCatalogService) GetCategory(ctx context.Context, slug string) (*models.Category, error) {
	args := s.Called(ctx, slug)
	category, _ := args.Get(0).(*models.Category)
	return category, args.Error(1)
}

func (s *MockCatalogService) UpdateCategory(ctx context.Context, slug string, in service.CategoryInput) (*models.Category, error) {
	args := s.Called(ctx, slug, in)
	category, _ := args.Get(0).(*models.Category)
	return category, args.Error(1)
}

func (s *MockCatalogService) DeleteCategory(ctx context.Context, slug string) error {
	args := s.Called(ctx, slug)
	return args.Error(0)
}

func (s *MockCatalogService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	args := s.Called(ctx)
	categories, _ := args.Get(0).([]*models.Category)
	return categories, args.Error(1)
}

func (s *MockCatalogService) Subscribe(ctx context.Context, email string) (*models.Subscriber, error) {
	args := s.Called(ctx, email)
	sub, _ := args.Get(0).(*models.Subscriber)
	return sub, args.Error(1)
}

func (s *MockCatalogService) Unsubscribe(ctx context.Context, email string) error {
	args := s.Called(ctx, email)
	return args.Error(0)
}

type MockEventService struct {
	mock.Mock
}

func (s *MockEventService) RecordView(ctx context.Context, slug string) (*models.CounterRecord, error) {
	args := s.Called(ctx, slug)
	rec, _ := args.Get(0).(*models.CounterRecord)
	return rec, args.Error(1)
}

func (s *MockEventService) RecordSave(ctx context.Context, slug string) (*models.CounterRecord, error) {
	args := s.Called(ctx, slug)
	rec, _ := args.Get(0).(*models.CounterRecord)
	return rec, args.Error(1)
}

func (s *MockEventService) RecordCodeCopy(ctx context.Context, slug string) (*models.CounterRecord, error) {
	args := s.Called(ctx, slug)
	rec, _ := args.Get(0).(*models.CounterRecord)
	return rec, args.Error(1)
}

func (s *MockEventService) RecordUse(ctx context.Context, slug string) (*models.CounterRecord, error) {
	args := s.Called(ctx, slug)
	rec, _ := args.Get(0).(*models.CounterRecord)
	return rec, args.Error(1)
}

type HandlersTestSuite struct {
	suite.Suite
	logger         *httplog.Logger
	offerSvcMock   *MockOfferService
	catalogSvcMock *MockCatalogService
	eventSvcMock   *MockEventService
	server         *httptest.Server
	e              *httpexpect.Expect
}

func (suite *HandlersTestSuite) SetupSuite() {
	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})
}

func (suite *HandlersTestSuite) SetupSubTest() {
	suite.offerSvcMock = new(MockOfferService)
	suite.catalogSvcMock = new(MockCatalogService)
	suite.eventSvcMock = new(MockEventService)
	router := NewRouter(suite.logger, suite.offerSvcMock, suite.catalogSvcMock, suite.eventSvcMock)
	suite.server = httptest.NewServer(router)
	suite.e = httpexpect.Default(suite.T(), suite.server.URL)
}

func (suite *HandlersTestSuite) TearDownSubTest() {
	suite.offerSvcMock.AssertExpectations(suite.T())
	suite.catalogSvcMock.AssertExpectations(suite.T())
	suite.eventSvcMock.AssertExpectations(suite.T())
	suite.server.Close()
}

func testOffer() *models.Offer {
	now := time.Now().UTC().Truncate(time.Second)

	return &models.Offer{
		ID:           uuid.New(),
		Slug:         "50-off-summer-fashion-e3f1a9c2d401",
		Title:        "50% Off Summer Fashion",
		Code:         "SUMMER50",
		StoreID:      1,
		CategoryID:   2,
		Source:       models.SourceDirect,
		Kind:         models.KindCode,
		DiscountType: models.DiscountPercentage,
		IsActive:     true,
		StartsAt:     now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func validOfferBody() map[string]any {
	return map[string]any{
		"title":         "50% Off Summer Fashion",
		"code":          "SUMMER50",
		"store_id":      1,
		"category_id":   2,
		"source":        "DIRECT",
		"kind":          "CODE",
		"discount_type": "PERCENTAGE",
		"is_active":     true,
	}
}

func (suite *HandlersTestSuite) TestPing() {
	const path = "/api/v1/ping"

	suite.Run("success", func() {
		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("pong\n")
	})
}

func (suite *HandlersTestSuite) TestCreateOffer() {
	const path = "/api/v1/offers"

	suite.Run("empty request body", func() {
		suite.e.POST(path).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.EmptyRequestBodyResponse.Message)
	})

	suite.Run("invalid request body", func() {
		suite.e.POST(path).
			WithJSON("invalid body").
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.BadRequestResponse.Message)
	})

	suite.Run("validation error", func() {
		suite.e.POST(path).
			WithJSON(map[string]any{
				"title": "Missing everything else",
				"kind":  "TELEPATHY",
			}).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			ContainsKey("message").
			ContainsKey("details")
	})

	suite.Run("server error", func() {
		suite.offerSvcMock.
			On("CreateOffer", mock.Anything, mock.AnythingOfType("service.OfferInput")).
			Times(1).
			Return(nil, errors.New("boom"))

		suite.e.POST(path).
			WithJSON(validOfferBody()).
			Expect().
			Status(http.StatusInternalServerError).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.ServerErrorResponse.Message)
	})

	suite.Run("success", func() {
		offer := testOffer()

		suite.offerSvcMock.
			On("CreateOffer", mock.Anything, mock.AnythingOfType("service.OfferInput")).
			Times(1).
			Return(offer, nil)

		suite.e.POST(path).
			WithJSON(validOfferBody()).
			Expect().
			Status(http.StatusCreated).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusSuccess).
			Value("data").Object().
			HasValue("slug", offer.Slug).
			HasValue("section", "coupons")
	})
}

func (suite *HandlersTestSuite) TestGetOffer() {
	suite.Run("offer not found", func() {
		suite.offerSvcMock.
			On("GetOffer", mock.Anything, "missing").
			Times(1).
			Return(nil, database.ErrOfferNotFound)

		suite.e.GET("/api/v1/offers/missing").
			Expect().
			Status(http.StatusNotFound).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.ResourceNotFoundResponse.Message)
	})

	suite.Run("success", func() {
		offer := testOffer()
		offer.IsSpecial = true

		suite.offerSvcMock.
			On("GetOffer", mock.Anything, offer.Slug).
			Times(1).
			Return(offer, nil)

		suite.e.GET("/api/v1/offers/" + offer.Slug).
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusSuccess).
			Value("data").Object().
			HasValue("id", offer.ID.String()).
			HasValue("section", "special")
	})
}

func (suite *HandlersTestSuite) TestDeleteOffer() {
	suite.Run("offer not found", func() {
		suite.offerSvcMock.
			On("DeleteOffer", mock.Anything, "missing").
			Times(1).
			Return(database.ErrOfferNotFound)

		suite.e.DELETE("/api/v1/offers/missing").
			Expect().
			Status(http.StatusNotFound)
	})

	suite.Run("success", func() {
		offer := testOffer()

		suite.offerSvcMock.
			On("DeleteOffer", mock.Anything, offer.Slug).
			Times(1).
			Return(nil)

		suite.e.DELETE("/api/v1/offers/" + offer.Slug).
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusSuccess)
	})
}

func (suite *HandlersTestSuite) TestListFeatured() {
	const path = "/api/v1/offers/featured"

	suite.Run("success", func() {
		suite.offerSvcMock.
			On("ListFeatured", mock.Anything).
			Times(1).
			Return([]*models.Offer{testOffer()}, nil)

		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusSuccess).
			Value("data").Array().Length().IsEqual(1)
	})
}

func (suite *HandlersTestSuite) TestGetOfferStats() {
	suite.Run("success", func() {
		offer := testOffer()

		suite.offerSvcMock.
			On("GetOfferStats", mock.Anything, offer.Slug).
			Times(1).
			Return(&models.OfferStats{
				Offer:          offer,
				Counters:       &models.CounterRecord{OfferID: offer.ID, Views: 200, Saves: 30},
				Section:        models.SectionCoupons,
				ConversionRate: 15,
			}, nil)

		suite.e.GET("/api/v1/offers/" + offer.Slug + "/stats").
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusSuccess).
			Value("data").Object().
			HasValue("views", 200).
			HasValue("conversion_rate", 15).
			HasValue("section", "coupons")
	})
}

func (suite *HandlersTestSuite) TestRecordView() {
	suite.Run("success", func() {
		offer := testOffer()

		suite.eventSvcMock.
			On("RecordView", mock.Anything, offer.Slug).
			Times(1).
			Return(&models.CounterRecord{OfferID: offer.ID, Views: 1}, nil)

		suite.e.POST("/api/v1/offers/" + offer.Slug + "/view").
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusSuccess).
			Value("data").Object().
			HasValue("views", 1)
	})

	suite.Run("offer not found", func() {
		suite.eventSvcMock.
			On("RecordView", mock.Anything, "missing").
			Times(1).
			Return(nil, database.ErrOfferNotFound)

		suite.e.POST("/api/v1/offers/missing/view").
			Expect().
			Status(http.StatusNotFound)
	})
}

func (suite *HandlersTestSuite) TestRecordUse() {
	suite.Run("expired offer is rejected", func() {
		offer := testOffer()

		suite.eventSvcMock.
			On("RecordUse", mock.Anything, offer.Slug).
			Times(1).
			Return(nil, counters.ErrOfferExpired)

		suite.e.POST("/api/v1/offers/" + offer.Slug + "/use").
			Expect().
			Status(http.StatusConflict).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("error", "Offer Expired")
	})

	suite.Run("usage limit reached", func() {
		offer := testOffer()

		suite.eventSvcMock.
			On("RecordUse", mock.Anything, offer.Slug).
			Times(1).
			Return(nil, counters.ErrUsageLimitReached)

		suite.e.POST("/api/v1/offers/" + offer.Slug + "/use").
			Expect().
			Status(http.StatusConflict).
			HasContentType("application/json").
			JSON().Object().
			HasValue("error", "Usage Limit Reached")
	})

	suite.Run("success", func() {
		offer := testOffer()

		suite.eventSvcMock.
			On("RecordUse", mock.Anything, offer.Slug).
			Times(1).
			Return(&models.CounterRecord{OfferID: offer.ID, Uses: 3}, nil)

		suite.e.POST("/api/v1/offers/" + offer.Slug + "/use").
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			Value("data").Object().
			HasValue("uses", 3)
	})
}

func (suite *HandlersTestSuite) TestStores() {
	suite.Run("create store", func() {
		suite.catalogSvcMock.
			On("CreateStore", mock.Anything, mock.AnythingOfType("service.StoreInput")).
			Times(1).
			Return(&models.Store{ID: 1, Slug: "nike", Name: "Nike", IsActive: true}, nil)

		suite.e.POST("/api/v1/stores").
			WithJSON(map[string]any{"name": "Nike", "is_active": true}).
			Expect().
			Status(http.StatusCreated).
			HasContentType("application/json").
			JSON().Object().
			Value("data").Object().
			HasValue("slug", "nike")
	})

	suite.Run("store offers listing", func() {
		store := &models.Store{ID: 5, Slug: "nike", Name: "Nike"}

		suite.catalogSvcMock.
			On("GetStore", mock.Anything, "nike").
			Times(1).
			Return(store, nil)
		suite.offerSvcMock.
			On("ListByStore", mock.Anything, store.ID, 1).
			Times(1).
			Return([]*models.Offer{testOffer()}, nil)

		suite.e.GET("/api/v1/stores/nike/offers").
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			Value("data").Array().Length().IsEqual(1)
	})

	suite.Run("store offers listing second page", func() {
		store := &models.Store{ID: 5, Slug: "nike", Name: "Nike"}

		suite.catalogSvcMock.
			On("GetStore", mock.Anything, "nike").
			Times(1).
			Return(store, nil)
		suite.offerSvcMock.
			On("ListByStore", mock.Anything, store.ID, 2).
			Times(1).
			Return([]*models.Offer{}, nil)

		suite.e.GET("/api/v1/stores/nike/offers").
			WithQuery("page", 2).
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			Value("data").Array().IsEmpty()
	})

	suite.Run("store offers listing for unknown store", func() {
		suite.catalogSvcMock.
			On("GetStore", mock.Anything, "missing").
			Times(1).
			Return(nil, database.ErrStoreNotFound)

		suite.e.GET("/api/v1/stores/missing/offers").
			Expect().
			Status(http.StatusNotFound)
	})
}

func (suite *HandlersTestSuite) TestNewsletter() {
	suite.Run("subscribe", func() {
		suite.catalogSvcMock.
			On("Subscribe", mock.Anything, "user@example.com").
			Times(1).
			Return(&models.Subscriber{ID: 1, Email: "user@example.com", IsActive: true}, nil)

		suite.e.POST("/api/v1/newsletter/subscribe").
			WithJSON(map[string]string{"email": "user@example.com"}).
			Expect().
			Status(http.StatusCreated).
			HasContentType("application/json").
			JSON().Object().
			Value("data").Object().
			HasValue("email", "user@example.com")
	})

	suite.Run("duplicate subscribe", func() {
		suite.catalogSvcMock.
			On("Subscribe", mock.Anything, "user@example.com").
			Times(1).
			Return(nil, database.ErrSubscriberExists)

		suite.e.POST("/api/v1/newsletter/subscribe").
			WithJSON(map[string]string{"email": "user@example.com"}).
			Expect().
			Status(http.StatusConflict).
			HasContentType("application/json").
			JSON().Object().
			HasValue("error", "Already Subscribed")
	})

	suite.Run("invalid email", func() {
		suite.e.POST("/api/v1/newsletter/subscribe").
			WithJSON(map[string]string{"email": "not an email"}).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			ContainsKey("details")
	})
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
