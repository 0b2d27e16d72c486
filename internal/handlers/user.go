package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mememonize/backend/internal/services"
	"github.com/mememonize/backend/internal/types"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type userRequest struct {
	WalletAddress string `json:"wallet_address"`
	Username      string `json:"username"`
	Email         string `json:"email"`
}

func (uh *UserHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	users, err := uh.userService.List(c.Request.Context(), offset, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (uh *UserHandler) Get(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondDetail(c, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := uh.userService.Get(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if user == nil {
		RespondDetail(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (uh *UserHandler) GetByWallet(c *gin.Context) {
	user, err := uh.userService.GetByWallet(c.Request.Context(), c.Param("address"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if user == nil {
		RespondDetail(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (uh *UserHandler) Create(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	user, err := uh.userService.Create(c.Request.Context(), &types.User{
		WalletAddress: req.WalletAddress,
		Username:      req.Username,
		Email:         req.Email,
	})
	if err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (uh *UserHandler) Update(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondDetail(c, http.StatusBadRequest, "invalid user id")
		return
	}
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	fields := map[string]interface{}{
		"username": req.Username,
		"email":    req.Email,
	}
	if req.WalletAddress != "" {
		fields["wallet_address"] = req.WalletAddress
	}
	user, err := uh.userService.Update(c.Request.Context(), userID, fields)
	if err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	if user == nil {
		RespondDetail(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (uh *UserHandler) Delete(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondDetail(c, http.StatusBadRequest, "invalid user id")
		return
	}
	existing, err := uh.userService.Get(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if existing == nil {
		RespondDetail(c, http.StatusNotFound, "User not found")
		return
	}
	if err := uh.userService.Delete(c.Request.Context(), userID); err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}
