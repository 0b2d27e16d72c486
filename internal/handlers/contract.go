package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContractHandler exposes the deployed escrow contract details so frontends
// can talk to the same contract the backend reconciles against.
type ContractHandler struct {
	address string
	version string
}

func NewContractHandler(address, version string) *ContractHandler {
	return &ContractHandler{address: address, version: version}
}

func (ch *ContractHandler) Address(c *gin.Context) {
	if ch.address == "" {
		RespondDetail(c, http.StatusNotFound, "Contract address not configured")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"contract_address": ch.address,
		"contract_version": ch.version,
	})
}
