package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mememonize/backend/internal/repos"
	"github.com/mememonize/backend/internal/types"
)

type fakeAssetService struct {
	asset      *types.Asset
	assets     []*types.Asset
	categories []string
	err        error

	lastSearch repos.AssetSearch
}

func (f *fakeAssetService) ListAvailable(ctx context.Context, offset, limit int) ([]*types.Asset, error) {
	return f.assets, f.err
}

func (f *fakeAssetService) Get(ctx context.Context, assetID uuid.UUID) (*types.Asset, error) {
	return f.asset, f.err
}

func (f *fakeAssetService) Create(ctx context.Context, asset *types.Asset) (*types.Asset, error) {
	if f.err != nil {
		return nil, f.err
	}
	return asset, nil
}

func (f *fakeAssetService) Update(ctx context.Context, assetID uuid.UUID, fields map[string]interface{}) (*types.Asset, error) {
	return f.asset, f.err
}

func (f *fakeAssetService) SetAvailability(ctx context.Context, assetID uuid.UUID, available bool) (*types.Asset, error) {
	return f.asset, f.err
}

func (f *fakeAssetService) Delete(ctx context.Context, assetID uuid.UUID) error {
	return f.err
}

func (f *fakeAssetService) Search(ctx context.Context, search repos.AssetSearch) ([]*types.Asset, error) {
	f.lastSearch = search
	return f.assets, f.err
}

func (f *fakeAssetService) Categories(ctx context.Context) ([]string, error) {
	return f.categories, f.err
}

func newAssetRouter(svc *fakeAssetService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	ah := NewAssetHandler(svc)
	sh := NewSearchHandler(svc)
	router.GET("/api/assets/:id", ah.Get)
	router.POST("/api/assets", ah.Create)
	router.GET("/api/search", sh.Search)
	router.GET("/api/search/categories", sh.Categories)
	return router
}

func TestGetAssetNotFound(t *testing.T) {
	router := newAssetRouter(&fakeAssetService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/assets/"+uuid.NewString(), nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status: want=404 got=%d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["detail"] != "Asset not found" {
		t.Fatalf("detail: want=Asset not found got=%q", body["detail"])
	}
}

func TestGetAssetBadID(t *testing.T) {
	router := newAssetRouter(&fakeAssetService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/assets/not-a-uuid", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", w.Code)
	}
}

func TestCreateAsset(t *testing.T) {
	router := newAssetRouter(&fakeAssetService{})

	body := `{"name":"Doge","price":"1.5","category":"meme","owner_address":"0xSeller"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/assets", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status: want=201 got=%d body=%s", w.Code, w.Body.String())
	}
	var created types.Asset
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if created.Name != "Doge" || !created.IsAvailable {
		t.Fatalf("created asset: got %+v", created)
	}
}

func TestSearchParsesPriceBounds(t *testing.T) {
	svc := &fakeAssetService{}
	router := newAssetRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search?query=doge&category=meme&min_price=0.5&max_price=2", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", w.Code)
	}
	if svc.lastSearch.Query != "doge" || svc.lastSearch.Category != "meme" {
		t.Fatalf("search terms: got %+v", svc.lastSearch)
	}
	if svc.lastSearch.MinPrice == nil || !svc.lastSearch.MinPrice.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("min price: got %v", svc.lastSearch.MinPrice)
	}
	if svc.lastSearch.MaxPrice == nil || !svc.lastSearch.MaxPrice.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("max price: got %v", svc.lastSearch.MaxPrice)
	}
}

func TestSearchRejectsMalformedPrice(t *testing.T) {
	router := newAssetRouter(&fakeAssetService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search?min_price=cheap", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", w.Code)
	}
}

func TestCategories(t *testing.T) {
	router := newAssetRouter(&fakeAssetService{categories: []string{"meme", "art"}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search/categories", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", w.Code)
	}
	var categories []string
	if err := json.Unmarshal(w.Body.Bytes(), &categories); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(categories) != 2 || categories[0] != "meme" {
		t.Fatalf("categories: got %v", categories)
	}
}
