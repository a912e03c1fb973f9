package middleware

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"obsp_backend/pkg/contextkeys"
)

// DBMiddleware кладет *gorm.DB в контекст запроса, чтобы handlers
// не тянули глобальное соединение
func DBMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(string(contextkeys.DBContextKey), db)
		c.Next()
	}
}
