package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/localboxhq/localbox-server/internal/auth"
	apperrors "github.com/localboxhq/localbox-server/internal/pkg/errors"
	"github.com/localboxhq/localbox-server/internal/pkg/logger"
	"github.com/localboxhq/localbox-server/internal/pkg/response"
	"go.uber.org/zap"
)

// JWTAuth rejects requests without a valid access token
func JWTAuth(jwtSecret, issuer string, log *logger.Logger) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(jwtSecret, issuer)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization")
			c.Abort()
			return
		}

		token, err := auth.ExtractTokenFromHeader(authHeader)
		if err != nil {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.VerifyAccessToken(token)
		if err != nil {
			log.Warn("invalid access token",
				zap.Error(err),
				zap.String("ip", c.ClientIP()))
			response.ErrorWithCode(c, apperrors.ErrAuthInvalidToken)
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)

		c.Next()
	}
}

// OptionalJWTAuth attaches the caller's identity when a valid token is
// present and lets everything else through. Anonymous uploads stay legal;
// authenticated ones feed the uploader tagging.
func OptionalJWTAuth(jwtSecret, issuer string, log *logger.Logger) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(jwtSecret, issuer)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		token, err := auth.ExtractTokenFromHeader(authHeader)
		if err != nil {
			c.Next()
			return
		}

		claims, err := jwtManager.VerifyAccessToken(token)
		if err != nil {
			log.Debug("ignoring invalid token on optional auth", zap.Error(err))
			c.Next()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Next()
	}
}

// GetUserID reads the authenticated user id from the context
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	return userID, userID != ""
}

// GetEmail reads the authenticated user email from the context
func GetEmail(c *gin.Context) (string, bool) {
	email := c.GetString("email")
	return email, email != ""
}

// CORS allows cross-origin requests from the local web UI
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		origin := c.Request.Header.Get("Origin")

		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")
			c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Type")
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
