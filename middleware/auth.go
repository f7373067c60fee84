package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MichelMeloG/JurChat/config"
	"github.com/MichelMeloG/JurChat/model"
	"github.com/MichelMeloG/JurChat/pkg/logger"
)

const (
	sessionKey = "session"
	claimsKey  = "claims"
)

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	UserHash string `json:"user_hash"`
	jwt.RegisteredClaims
}

// GenerateToken issues a signed session token with a unique id
func GenerateToken(session model.Session, cfg *config.AuthConfig) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(cfg.TokenExpireHours) * time.Hour)

	claims := Claims{
		Username: session.Username,
		UserHash: session.UserHash,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   session.UserHash,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// SessionRevoker remembers logged-out token ids until they would have expired.
type SessionRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewSessionRevoker() *SessionRevoker {
	return &SessionRevoker{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke marks the token id as unusable until expiresAt
func (r *SessionRevoker) Revoke(id string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune()
	r.revoked[id] = expiresAt
}

func (r *SessionRevoker) IsRevoked(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiresAt, ok := r.revoked[id]
	return ok && r.now().Before(expiresAt)
}

// Len returns the number of revocations still tracked
func (r *SessionRevoker) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune()
	return len(r.revoked)
}

// prune drops revocations of tokens that have expired anyway.
// Must be called with lock held.
func (r *SessionRevoker) prune() {
	now := r.now()
	for id, expiresAt := range r.revoked {
		if !now.Before(expiresAt) {
			delete(r.revoked, id)
		}
	}
}

// AuthMiddleware validates the session token and stores the session in the
// gin context and the request context
func AuthMiddleware(cfg *config.AuthConfig, revoker *SessionRevoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		session := model.Session{Username: claims.Username, UserHash: claims.UserHash}
		if !session.Valid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		if revoker != nil && revoker.IsRevoked(claims.ID) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session has ended, please log in again"})
			return
		}

		c.Set(sessionKey, session)
		c.Set(claimsKey, claims)

		ctx := context.WithValue(c.Request.Context(), logger.UsernameKey, session.Username)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetSession gets the session from context
func GetSession(c *gin.Context) (model.Session, bool) {
	if v, exists := c.Get(sessionKey); exists {
		session, ok := v.(model.Session)
		return session, ok
	}
	return model.Session{}, false
}

// GetClaims gets the parsed token claims from context
func GetClaims(c *gin.Context) *Claims {
	if v, exists := c.Get(claimsKey); exists {
		if claims, ok := v.(*Claims); ok {
			return claims
		}
	}
	return nil
}

// GetUsername gets the username from context
func GetUsername(c *gin.Context) string {
	session, _ := GetSession(c)
	return session.Username
}
