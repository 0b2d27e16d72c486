package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mememonize/backend/internal/repos"
	"github.com/mememonize/backend/internal/services"
)

type SearchHandler struct {
	assetService services.AssetService
}

func NewSearchHandler(assetService services.AssetService) *SearchHandler {
	return &SearchHandler{assetService: assetService}
}

func (sh *SearchHandler) Search(c *gin.Context) {
	minPrice, err := parsePrice(c.Query("min_price"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	maxPrice, err := parsePrice(c.Query("max_price"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	assets, err := sh.assetService.Search(c.Request.Context(), repos.AssetSearch{
		Query:    c.Query("query"),
		Category: c.Query("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, assets)
}

func (sh *SearchHandler) Categories(c *gin.Context) {
	categories, err := sh.assetService.Categories(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}
