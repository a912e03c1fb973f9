package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"obsp_backend/internal/handlers"
	"obsp_backend/internal/middleware"
)

// SetupRouter собирает gin-router со всеми маршрутами и middleware
func SetupRouter(db *gorm.DB, h *handlers.AppHandlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.DBMiddleware(db))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")

	// Публичный каталог
	api.GET("/templates", h.Templates.List)
	api.GET("/templates/:templateID", h.Templates.Get)
	api.GET("/templates/:templateID/criteria", h.Criteria.List)
	api.GET("/templates/:templateID/criteria/:level", h.Criteria.Get)

	// Аутентифицированные операции
	auth := api.Group("")
	auth.Use(middleware.AuthMiddleware())
	{
		auth.GET("/freelancers/:freelancerID/eligibility/:templateID", h.Eligibility.GetRecord)
		auth.POST("/freelancers/:freelancerID/eligibility/recalculate", h.Eligibility.Recalculate)
		auth.GET("/freelancers/:freelancerID/eligibility-summary", h.Eligibility.GetSummary)

		auth.GET("/responses/:responseID", h.Templates.GetResponse)
		auth.POST("/responses/:responseID/assign", h.Assignments.Assign)
		auth.GET("/responses/:responseID/milestones", h.Milestones.ListProgress)
		auth.POST("/responses/:responseID/milestones/deadlines", h.Milestones.RecalculateDeadlines)
		auth.POST("/responses/:responseID/milestones/:milestoneID/complete", h.Milestones.Complete)
		auth.POST("/responses/:responseID/milestones/:milestoneID/extend", h.Milestones.ExtendDeadline)

		auth.GET("/assignments/:assignmentID", h.Assignments.GetByID)
		auth.POST("/assignments/:assignmentID/start", h.Assignments.StartWork)
		auth.POST("/assignments/:assignmentID/review", h.Assignments.SubmitForReview)
		auth.POST("/assignments/:assignmentID/complete", h.Assignments.Complete)
		auth.POST("/assignments/:assignmentID/cancel", h.Assignments.Cancel)
		auth.POST("/assignments/:assignmentID/dispute", h.Assignments.Dispute)

		auth.GET("/notifications", h.Notifications.List)
		auth.POST("/notifications/:notificationID/read", h.Notifications.MarkAsRead)
	}

	// Административные операции
	admin := api.Group("/admin")
	admin.Use(middleware.RequireRole("admin"))
	{
		admin.POST("/templates/:templateID/criteria", h.Criteria.Create)
		admin.PUT("/templates/:templateID/criteria", h.Criteria.Update)
		admin.POST("/templates/:templateID/publish", h.Templates.Publish)
		admin.POST("/eligibility/recalculate", h.Eligibility.RecalculateAll)
	}

	return router
}
