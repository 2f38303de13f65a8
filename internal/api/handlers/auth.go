package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jmoiron/sqlx"
	"github.com/powerpit/backend/internal/config"
	"github.com/powerpit/backend/internal/models"
	"github.com/powerpit/backend/internal/operators"
)

// Context keys set by AuthMiddleware.
const (
	ctxOperatorID   = "operator_id"
	ctxOperatorName = "operator_name"
)

// SignOperatorToken issues an HS256 JWT for op.
func SignOperatorToken(cfg *config.Config, op *models.Operator) (string, time.Time, error) {
	exp := time.Now().Add(time.Duration(cfg.TokenTTLHours) * time.Hour)
	claims := jwt.MapClaims{
		"operator_id": op.ID,
		"name":        op.Name,
		"roles":       []string(op.Roles),
		"exp":         exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// IssueToken exchanges operator credentials for a JWT
func IssueToken(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name  string `json:"name"`
			Token string `json:"token"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and token required"})
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" || req.Token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and token required"})
			return
		}
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "operator store unavailable"})
			return
		}

		op, err := operators.Authenticate(db, name, req.Token)
		if err != nil {
			if errors.Is(err, operators.ErrNotFound) || errors.Is(err, operators.ErrInvalidToken) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		signed, exp, err := SignOperatorToken(cfg, op)
		if err != nil {
			log.Printf("[API] Failed to sign token for %s: %v", op.Name, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		log.Printf("[API] Token issued for operator %s", op.Name)
		c.JSON(http.StatusOK, gin.H{
			"token":      signed,
			"expires_at": exp.Format(time.RFC3339),
			"operator":   op,
		})
	}
}

var errInvalidToken = errors.New("invalid token")

// parseOperatorToken checks an HS256 operator JWT and returns its claims.
func parseOperatorToken(cfg *config.Config, raw string) (int, string, error) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return 0, "", errInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", errInvalidToken
	}
	operatorID, ok := claims["operator_id"].(float64)
	if !ok {
		return 0, "", errInvalidToken
	}
	name, _ := claims["name"].(string)
	return int(operatorID), name, nil
}

// AuthMiddleware validates bearer JWT and sets operator_id in context
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		authenticate(c, cfg, strings.TrimPrefix(auth, "Bearer "))
	}
}

// StreamAuthMiddleware is AuthMiddleware for WebSocket upgrades. Browsers
// cannot set headers on an upgrade, so the token may also come from the
// token query parameter.
func StreamAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if auth := c.GetHeader("Authorization"); token == "" && strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		authenticate(c, cfg, token)
	}
}

func authenticate(c *gin.Context, cfg *config.Config, token string) {
	operatorID, name, err := parseOperatorToken(cfg, token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.Set(ctxOperatorID, operatorID)
	c.Set(ctxOperatorName, name)
	c.Next()
}
