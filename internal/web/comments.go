package web

import (
	"github.com/MosinFAM/blogicum/internal/blog"

	"github.com/gin-gonic/gin"
)

func (h *Handler) addComment(c *gin.Context) {
	postID := c.Param("id")
	var in blog.CommentInput
	if err := bind(c, &in); err != nil {
		renderError(c, err)
		return
	}
	if _, err := h.Service.AddComment(c.Request.Context(), actor(c), postID, in); err != nil {
		renderError(c, err)
		return
	}
	redirect(c, postURL(postID))
}

func (h *Handler) editComment(c *gin.Context) {
	postID := c.Param("id")
	var in blog.CommentInput
	if err := bind(c, &in); err != nil {
		renderError(c, err)
		return
	}
	if _, err := h.Service.EditComment(c.Request.Context(), actor(c), postID, c.Param("commentID"), in); err != nil {
		renderError(c, err)
		return
	}
	redirect(c, postURL(postID))
}

func (h *Handler) deleteComment(c *gin.Context) {
	postID := c.Param("id")
	if err := h.Service.DeleteComment(c.Request.Context(), actor(c), postID, c.Param("commentID")); err != nil {
		renderError(c, err)
		return
	}
	redirect(c, postURL(postID))
}
