package web

import (
	"net/http"

	"github.com/MosinFAM/blogicum/internal/blog"

	"github.com/gin-gonic/gin"
)

func (h *Handler) profile(c *gin.Context) {
	page, err := h.Service.Profile(c.Request.Context(), c.Param("username"), actor(c), pageParam(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) editProfile(c *gin.Context) {
	var in blog.ProfileInput
	if err := bind(c, &in); err != nil {
		renderError(c, err)
		return
	}
	user, err := h.Service.EditProfile(c.Request.Context(), actor(c), c.Param("username"), in)
	if err != nil {
		renderError(c, err)
		return
	}
	redirect(c, profileURL(user.Username))
}
