package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/chaintalk/chat"
	"github.com/layer-3/chaintalk/core"
	"github.com/layer-3/chaintalk/service"
)

// Handlers contains HTTP handlers for the auth, room discovery and
// health endpoints
type Handlers struct {
	authService    *service.AuthService
	registry       *chat.Registry
	chainConnected func() bool
}

// NewHandlers creates new HTTP handlers. chainConnected reports the
// swap listener's subscription health; nil means no listener runs.
func NewHandlers(authService *service.AuthService, registry *chat.Registry, chainConnected func() bool) *Handlers {
	return &Handlers{
		authService:    authService,
		registry:       registry,
		chainConnected: chainConnected,
	}
}

// Challenge handles the challenge request
func (h *Handlers) Challenge(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	challenge, err := h.authService.CreateChallenge(c.Request.Context(), req.Address)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nonce":      challenge.Nonce,
		"expires_at": challenge.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Login handles the login request
func (h *Handlers) Login(c *gin.Context) {
	var req struct {
		Message   string `json:"message" binding:"required"`
		Signature string `json:"signature" binding:"required"`
		Address   string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, identity, err := h.authService.Login(c.Request.Context(), req.Message, req.Signature, req.Address)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Authentication failed"

		switch {
		case errors.Is(err, core.ErrInvalidAddress):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid wallet address"
		case errors.Is(err, core.ErrChallengeInvalid):
			statusCode = http.StatusBadRequest
			errorMsg = "Challenge invalid or expired"
		case errors.Is(err, core.ErrInvalidSignature):
			statusCode = http.StatusUnauthorized
			errorMsg = "Invalid signature"
		case errors.Is(err, core.ErrIdentityMismatch):
			statusCode = http.StatusUnauthorized
			errorMsg = "Signature does not match address"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"address": identity.String(),
	})
}

// Me returns the identity behind a valid session token
func (h *Handlers) Me(c *gin.Context) {
	session := c.MustGet(sessionKey).(*core.AuthSession)

	c.JSON(http.StatusOK, gin.H{
		"address":    session.Address.String(),
		"expires_at": session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Rooms lists every known room with its member count and gate rule
func (h *Handlers) Rooms(c *gin.Context) {
	views := h.registry.ListRooms()

	rooms := make([]gin.H, 0, len(views))
	for _, view := range views {
		rooms = append(rooms, roomResponse(view))
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// RoomInfo returns one room's members and gate rule
func (h *Handlers) RoomInfo(c *gin.Context) {
	view, ok := h.registry.RoomInfo(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	c.JSON(http.StatusOK, roomResponse(view))
}

func roomResponse(view chat.RoomView) gin.H {
	resp := gin.H{
		"name":       view.Name,
		"users":      view.Members,
		"user_count": len(view.Members),
		"gated":      view.Gate != nil,
	}
	if view.Gate != nil {
		gate := gin.H{
			"kind":             view.Gate.Kind,
			"contract_address": view.Gate.ContractAddress,
			"minimum_balance":  view.Gate.MinimumBalance.String(),
		}
		if view.Gate.TokenID != nil {
			gate["token_id"] = view.Gate.TokenID.String()
		}
		resp["gate"] = gate
	}
	return resp
}

// Health reports process liveness and chain listener status
func (h *Handlers) Health(c *gin.Context) {
	chain := "disabled"
	if h.chainConnected != nil {
		chain = "disconnected"
		if h.chainConnected() {
			chain = "connected"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"chain_listener": chain,
	})
}
