package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MichelMeloG/JurChat/config"
	"github.com/MichelMeloG/JurChat/middleware"
	"github.com/MichelMeloG/JurChat/model"
	"github.com/MichelMeloG/JurChat/pkg/logger"
	"github.com/MichelMeloG/JurChat/service"
)

type AuthHandler struct {
	config  *config.Config
	backend service.Backend
	revoker *middleware.SessionRevoker
}

func NewAuthHandler(cfg *config.Config, backend service.Backend, revoker *middleware.SessionRevoker) *AuthHandler {
	return &AuthHandler{config: cfg, backend: backend, revoker: revoker}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Username  string `json:"username"`
}

// Login checks the hashed credentials with the backend and issues a session
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username is required"})
		return
	}
	creds := service.HashCredentials(username, "", req.Password)

	ok, err := h.backend.Authenticate(c.Request.Context(), creds.UserHash, creds.PasswordHash)
	if err != nil {
		logger.Error(c.Request.Context(), "login request failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Login failed. Please try again."})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	h.issueSession(c, http.StatusOK, model.Session{Username: username, UserHash: creds.UserHash})
}

// Register creates an account and logs the new user in
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and email are required"})
		return
	}
	creds := service.HashCredentials(username, email, req.Password)

	ok, err := h.backend.Register(c.Request.Context(), creds.UserHash, creds.EmailHash, creds.PasswordHash)
	if err != nil {
		logger.Error(c.Request.Context(), "register request failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Registration failed. Please try again."})
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "Registration was not accepted"})
		return
	}

	h.issueSession(c, http.StatusCreated, model.Session{Username: username, UserHash: creds.UserHash})
}

func (h *AuthHandler) issueSession(c *gin.Context, status int, session model.Session) {
	token, expiresAt, err := middleware.GenerateToken(session, &h.config.Auth)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to sign session token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	logger.Info(c.Request.Context(), "session started", "username", session.Username)
	c.JSON(status, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		Username:  session.Username,
	})
}

// Logout revokes the current session token
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
		return
	}

	expiresAt := time.Now().Add(time.Duration(h.config.Auth.TokenExpireHours) * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	h.revoker.Revoke(claims.ID, expiresAt)

	logger.Info(c.Request.Context(), "session ended")
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// GetCurrentUser returns the current session
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	session, _ := middleware.GetSession(c)
	c.JSON(http.StatusOK, session)
}
