package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mememonize/backend/internal/services"
	"github.com/mememonize/backend/internal/types"
)

type AssetHandler struct {
	assetService services.AssetService
}

func NewAssetHandler(assetService services.AssetService) *AssetHandler {
	return &AssetHandler{assetService: assetService}
}

type assetRequest struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     string          `json:"image_url"`
	Category     string          `json:"category"`
	TokenID      string          `json:"token_id"`
	OwnerAddress string          `json:"owner_address"`
	IsAvailable  *bool           `json:"is_available"`
}

func (ah *AssetHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	assets, err := ah.assetService.ListAvailable(c.Request.Context(), offset, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, assets)
}

func (ah *AssetHandler) Get(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondDetail(c, http.StatusBadRequest, "invalid asset id")
		return
	}
	asset, err := ah.assetService.Get(c.Request.Context(), assetID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if asset == nil {
		RespondDetail(c, http.StatusNotFound, "Asset not found")
		return
	}
	c.JSON(http.StatusOK, asset)
}

func (ah *AssetHandler) Create(c *gin.Context) {
	var req assetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	asset, err := ah.assetService.Create(c.Request.Context(), &types.Asset{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		ImageURL:     req.ImageURL,
		Category:     req.Category,
		TokenID:      req.TokenID,
		OwnerAddress: req.OwnerAddress,
		IsAvailable:  available,
	})
	if err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusCreated, asset)
}

func (ah *AssetHandler) Update(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondDetail(c, http.StatusBadRequest, "invalid asset id")
		return
	}
	var req assetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	fields := map[string]interface{}{
		"name":        req.Name,
		"description": req.Description,
		"image_url":   req.ImageURL,
		"category":    req.Category,
	}
	if req.Price.IsPositive() {
		fields["price"] = req.Price
	}
	if req.TokenID != "" {
		fields["token_id"] = req.TokenID
	}
	if req.OwnerAddress != "" {
		fields["owner_address"] = req.OwnerAddress
	}
	if req.IsAvailable != nil {
		fields["is_available"] = *req.IsAvailable
	}
	asset, err := ah.assetService.Update(c.Request.Context(), assetID, fields)
	if err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	if asset == nil {
		RespondDetail(c, http.StatusNotFound, "Asset not found")
		return
	}
	c.JSON(http.StatusOK, asset)
}

func (ah *AssetHandler) SetAvailability(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondDetail(c, http.StatusBadRequest, "invalid asset id")
		return
	}
	var req struct {
		IsAvailable *bool `json:"is_available"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.IsAvailable == nil {
		RespondDetail(c, http.StatusBadRequest, "is_available required")
		return
	}
	asset, err := ah.assetService.SetAvailability(c.Request.Context(), assetID, *req.IsAvailable)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if asset == nil {
		RespondDetail(c, http.StatusNotFound, "Asset not found")
		return
	}
	c.JSON(http.StatusOK, asset)
}

func (ah *AssetHandler) Delete(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondDetail(c, http.StatusBadRequest, "invalid asset id")
		return
	}
	existing, err := ah.assetService.Get(c.Request.Context(), assetID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if existing == nil {
		RespondDetail(c, http.StatusNotFound, "Asset not found")
		return
	}
	if err := ah.assetService.Delete(c.Request.Context(), assetID); err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parsePrice(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q", raw)
	}
	return &d, nil
}
