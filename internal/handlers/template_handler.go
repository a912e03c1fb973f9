package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"obsp_backend/internal/services"
	"obsp_backend/pkg/apperrors"
)

type TemplateHandler struct {
	templates services.TemplateService
}

func NewTemplateHandler(templates services.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// List - GET /templates (только опубликованные)
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.templates.ListPublished(getDB(c))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

// Get - GET /templates/:templateID
func (h *TemplateHandler) Get(c *gin.Context) {
	template, err := h.templates.GetTemplate(getDB(c), c.Param("templateID"))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

// Publish - POST /admin/templates/:templateID/publish
// Отказывает, если выплаты по вехам какого-либо уровня не сходятся к 100
func (h *TemplateHandler) Publish(c *gin.Context) {
	if err := h.templates.Publish(getDB(c), c.Param("templateID")); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "published"})
}

// GetResponse - GET /responses/:responseID
func (h *TemplateHandler) GetResponse(c *gin.Context) {
	response, err := h.templates.GetResponse(getDB(c), c.Param("responseID"))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}
