package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"obsp_backend/pkg/contextkeys"
)

// getDB достает соединение, положенное DBMiddleware
func getDB(c *gin.Context) *gorm.DB {
	return c.MustGet(string(contextkeys.DBContextKey)).(*gorm.DB)
}

// currentFreelancerID - id фрилансера из JWT; пустая строка,
// если запрос не аутентифицирован
func currentFreelancerID(c *gin.Context) string {
	if id, ok := c.Get(string(contextkeys.FreelancerIDContextKey)); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
