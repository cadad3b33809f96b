package web

import (
	"net/http"

	"github.com/MosinFAM/blogicum/internal/blog"

	"github.com/gin-gonic/gin"
)

// Справочники ведёт персонал; ответы в JSON без перенаправлений

func (h *Handler) createCategory(c *gin.Context) {
	var in blog.CategoryInput
	if err := bind(c, &in); err != nil {
		renderError(c, err)
		return
	}
	category, err := h.Service.CreateCategory(c.Request.Context(), actor(c), in)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) deleteCategory(c *gin.Context) {
	if err := h.Service.DeleteCategory(c.Request.Context(), actor(c), c.Param("slug")); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) createLocation(c *gin.Context) {
	var in blog.LocationInput
	if err := bind(c, &in); err != nil {
		renderError(c, err)
		return
	}
	location, err := h.Service.CreateLocation(c.Request.Context(), actor(c), in)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, location)
}

func (h *Handler) deleteLocation(c *gin.Context) {
	if err := h.Service.DeleteLocation(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
