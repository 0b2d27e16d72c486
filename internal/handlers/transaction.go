package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mememonize/backend/internal/services"
)

type TransactionHandler struct {
	transactionService services.TransactionService
}

func NewTransactionHandler(transactionService services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

type transactionRequest struct {
	AssetID         uuid.UUID       `json:"asset_id"`
	BuyerAddress    string          `json:"buyer_address"`
	SellerAddress   string          `json:"seller_address"`
	Price           decimal.Decimal `json:"price"`
	TransactionHash string          `json:"transaction_hash"`
	LedgerID        string          `json:"ledger_id"`
	Status          string          `json:"status"`
}

func (th *TransactionHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	rows, err := th.transactionService.List(c.Request.Context(), offset, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (th *TransactionHandler) Get(c *gin.Context) {
	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondDetail(c, http.StatusBadRequest, "invalid transaction id")
		return
	}
	row, err := th.transactionService.Get(c.Request.Context(), transactionID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if row == nil {
		RespondDetail(c, http.StatusNotFound, "Transaction not found")
		return
	}
	c.JSON(http.StatusOK, row)
}

func (th *TransactionHandler) GetByHash(c *gin.Context) {
	row, err := th.transactionService.GetByHash(c.Request.Context(), c.Param("hash"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if row == nil {
		RespondDetail(c, http.StatusNotFound, "Transaction not found")
		return
	}
	c.JSON(http.StatusOK, row)
}

func (th *TransactionHandler) GetByLedgerID(c *gin.Context) {
	row, err := th.transactionService.GetByLedgerID(c.Request.Context(), c.Param("ledgerID"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if row == nil {
		RespondDetail(c, http.StatusNotFound, "Transaction not found")
		return
	}
	c.JSON(http.StatusOK, row)
}

func (th *TransactionHandler) ListByUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		RespondDetail(c, http.StatusBadRequest, "invalid user id")
		return
	}
	rows, err := th.transactionService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (th *TransactionHandler) Create(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	row, err := th.transactionService.Create(c.Request.Context(), services.CreateTransactionInput{
		AssetID:         req.AssetID,
		BuyerAddress:    req.BuyerAddress,
		SellerAddress:   req.SellerAddress,
		Price:           req.Price,
		TransactionHash: req.TransactionHash,
		LedgerID:        req.LedgerID,
		Status:          req.Status,
	})
	if err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (th *TransactionHandler) UpdateStatus(c *gin.Context) {
	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondDetail(c, http.StatusBadRequest, "invalid transaction id")
		return
	}
	status := c.Query("status")
	if status == "" {
		RespondDetail(c, http.StatusBadRequest, "Invalid status")
		return
	}
	row, err := th.transactionService.UpdateStatus(c.Request.Context(), transactionID, status)
	if err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	if row == nil {
		RespondDetail(c, http.StatusNotFound, "Transaction not found")
		return
	}
	c.JSON(http.StatusOK, row)
}
