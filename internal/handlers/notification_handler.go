package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"obsp_backend/internal/services"
	"obsp_backend/pkg/apperrors"
)

type NotificationHandler struct {
	notifications services.NotificationService
}

func NewNotificationHandler(notifications services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List - GET /notifications (для аутентифицированного фрилансера)
func (h *NotificationHandler) List(c *gin.Context) {
	freelancerID := currentFreelancerID(c)
	if freelancerID == "" {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authentication required"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	notifications, err := h.notifications.ListForFreelancer(getDB(c), freelancerID, limit)
	if err != nil {
		apperrors.HandleError(c, apperrors.InternalError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkAsRead - POST /notifications/:notificationID/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	if err := h.notifications.MarkAsRead(getDB(c), c.Param("notificationID")); err != nil {
		apperrors.HandleError(c, apperrors.InternalError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}
