package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MosinFAM/blogicum/internal/apperr"
	"github.com/MosinFAM/blogicum/internal/blog"
	"github.com/MosinFAM/blogicum/internal/media"

	"github.com/gin-gonic/gin"
)

func (h *Handler) index(c *gin.Context) {
	posts, err := h.Service.Index(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *Handler) listPosts(c *gin.Context) {
	page, err := h.Service.ListPosts(c.Request.Context(), pageParam(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) postDetail(c *gin.Context) {
	detail, err := h.Service.PostDetail(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) categoryPosts(c *gin.Context) {
	page, err := h.Service.CategoryPosts(c.Request.Context(), c.Param("slug"), pageParam(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// saveImage сохраняет файл из поля image; без файла возвращает nil
func (h *Handler) saveImage(c *gin.Context) (*string, error) {
	header, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, apperr.Invalid("invalid form", map[string]string{"image": err.Error()})
	}
	name, err := h.Media.Save(header)
	if err != nil {
		if errors.Is(err, media.ErrNotImage) {
			return nil, apperr.Invalid("invalid form", map[string]string{
				"image": "Upload a valid image. The file you uploaded was either not an image or a corrupted image.",
			})
		}
		return nil, fmt.Errorf("save image: %w", err)
	}
	return &name, nil
}

// bindPost разбирает форму поста вместе с изображением
func (h *Handler) bindPost(c *gin.Context) (blog.PostInput, error) {
	var in blog.PostInput
	if err := bind(c, &in); err != nil {
		return in, err
	}
	image, err := h.saveImage(c)
	if err != nil {
		return in, err
	}
	in.Image = image
	return in, nil
}

// discardImage удаляет файл, сохранённый для неудавшегося запроса
func (h *Handler) discardImage(in blog.PostInput) {
	if in.Image != nil {
		_ = h.Media.Remove(*in.Image)
	}
}

func (h *Handler) createPost(c *gin.Context) {
	in, err := h.bindPost(c)
	if err != nil {
		renderError(c, err)
		return
	}
	user := actor(c)
	if _, err := h.Service.CreatePost(c.Request.Context(), user, in); err != nil {
		h.discardImage(in)
		renderError(c, err)
		return
	}
	redirect(c, profileURL(user.Username))
}

func (h *Handler) updatePost(c *gin.Context) {
	id := c.Param("id")
	// Права проверяются до разбора формы и сохранения файла
	if _, err := h.Service.EditablePost(c.Request.Context(), actor(c), id); err != nil {
		renderError(c, err)
		return
	}
	in, err := h.bindPost(c)
	if err != nil {
		renderError(c, err)
		return
	}
	if _, err := h.Service.UpdatePost(c.Request.Context(), actor(c), id, in); err != nil {
		h.discardImage(in)
		renderError(c, err)
		return
	}
	redirect(c, postURL(id))
}

func (h *Handler) deletePost(c *gin.Context) {
	if err := h.Service.DeletePost(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		renderError(c, err)
		return
	}
	redirect(c, homeURL)
}
