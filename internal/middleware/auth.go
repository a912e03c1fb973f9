package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"obsp_backend/internal/config"
	"obsp_backend/internal/logger"
	"obsp_backend/pkg/apperrors"
	"obsp_backend/pkg/contextkeys"
)

// Claims - полезная нагрузка токена
type Claims struct {
	FreelancerID string `json:"freelancer_id"`
	Role         string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware проверяет Bearer-токен и кладет id фрилансера
// в контекст запроса и в контекст логгера
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization header is required"))
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization header must be 'Bearer {token}'"))
			c.Abort()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(config.GetConfig().JWT.Secret), nil
		})
		if err != nil || !token.Valid || claims.FreelancerID == "" {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(string(contextkeys.FreelancerIDContextKey), claims.FreelancerID)
		ctx := logger.WithFreelancerID(c.Request.Context(), claims.FreelancerID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRole пускает дальше только указанную роль
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization header is required"))
			c.Abort()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(config.GetConfig().JWT.Secret), nil
		})
		if err != nil || !token.Valid {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Invalid or expired token"))
			c.Abort()
			return
		}
		if claims.Role != role {
			apperrors.HandleError(c, apperrors.NewForbiddenError("Insufficient permissions"))
			c.Abort()
			return
		}

		c.Next()
	}
}
