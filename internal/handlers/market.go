package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mememonize/backend/internal/reconcile"
)

// MarketHandler fronts the reconciliation coordinator. A hard failure
// (aborted before or at the ledger write) is an error response; a confirmed
// ledger write always returns 200 with the outcome, drift included.
type MarketHandler struct {
	coordinator *reconcile.Coordinator
}

func NewMarketHandler(coordinator *reconcile.Coordinator) *MarketHandler {
	return &MarketHandler{coordinator: coordinator}
}

func (mh *MarketHandler) respond(c *gin.Context, outcome *reconcile.Outcome, err error) {
	if err != nil {
		c.JSON(http.StatusBadGateway, outcome)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (mh *MarketHandler) List(c *gin.Context) {
	var intent reconcile.ListIntent
	if err := c.ShouldBindJSON(&intent); err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	outcome, err := mh.coordinator.List(c.Request.Context(), intent)
	mh.respond(c, outcome, err)
}

func (mh *MarketHandler) Mint(c *gin.Context) {
	var intent reconcile.MintIntent
	if err := c.ShouldBindJSON(&intent); err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	outcome, err := mh.coordinator.Mint(c.Request.Context(), intent)
	mh.respond(c, outcome, err)
}

func (mh *MarketHandler) Purchase(c *gin.Context) {
	var intent reconcile.PurchaseIntent
	if err := c.ShouldBindJSON(&intent); err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	outcome, err := mh.coordinator.Purchase(c.Request.Context(), intent)
	mh.respond(c, outcome, err)
}

func (mh *MarketHandler) Complete(c *gin.Context) {
	outcome, err := mh.coordinator.Complete(c.Request.Context(), c.Param("ref"))
	mh.respond(c, outcome, err)
}

func (mh *MarketHandler) Cancel(c *gin.Context) {
	outcome, err := mh.coordinator.Cancel(c.Request.Context(), c.Param("ref"))
	mh.respond(c, outcome, err)
}

func (mh *MarketHandler) Resync(c *gin.Context) {
	var in reconcile.ResyncInput
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	outcome, err := mh.coordinator.Resync(c.Request.Context(), in)
	mh.respond(c, outcome, err)
}
