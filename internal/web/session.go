package web

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/MosinFAM/blogicum/internal/apperr"
	"github.com/MosinFAM/blogicum/internal/blog"
	"github.com/MosinFAM/blogicum/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	sessionUserKey = "userID"
	actorKey       = "actor"
)

// actor возвращает пользователя запроса или nil для анонима
func actor(c *gin.Context) *models.User {
	if v, ok := c.Get(actorKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// loadSession загружает сессию по cookie для маршрутов вне LoadAndSave
func (h *Handler) loadSession(c *gin.Context) {
	var token string
	if cookie, err := c.Request.Cookie(h.Sessions.Cookie.Name); err == nil {
		token = cookie.Value
	}
	ctx, err := h.Sessions.Load(c.Request.Context(), token)
	if err != nil {
		renderError(c, err)
		c.Abort()
		return
	}
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

// loadActor находит пользователя сессии
func (h *Handler) loadActor(c *gin.Context) {
	ctx := c.Request.Context()
	id := h.Sessions.GetString(ctx, sessionUserKey)
	if id != "" {
		user, err := h.Service.UserByID(ctx, id)
		switch {
		case err == nil:
			c.Set(actorKey, user)
		case errors.Is(err, apperr.ErrNotFound):
			h.Sessions.Remove(ctx, sessionUserKey)
		default:
			renderError(c, err)
			c.Abort()
			return
		}
	}
	c.Next()
}

// loginRequired отправляет анонима на страницу входа
func (h *Handler) loginRequired(c *gin.Context) {
	if actor(c) == nil {
		renderError(c, apperr.Unauthenticated("login required"))
		c.Abort()
		return
	}
	c.Next()
}

// safeNext допускает только локальные адреса
func safeNext(next string) bool {
	return strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, "/\\")
}

func (h *Handler) loginPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "login required",
		"next":    c.Query("next"),
		"fields":  []string{"username", "password"},
	})
}

func (h *Handler) login(c *gin.Context) {
	var in blog.LoginInput
	if err := bind(c, &in); err != nil {
		renderError(c, err)
		return
	}
	user, err := h.Service.Authenticate(c.Request.Context(), in)
	if err != nil {
		renderError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.Sessions.RenewToken(ctx); err != nil {
		renderError(c, err)
		return
	}
	h.Sessions.Put(ctx, sessionUserKey, user.ID)
	log.Printf("User %s logged in", user.Username)

	next := c.Query("next")
	if !safeNext(next) {
		next = profileURL(user.Username)
	}
	redirect(c, next)
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.Sessions.Destroy(c.Request.Context()); err != nil {
		renderError(c, err)
		return
	}
	redirect(c, homeURL)
}

func (h *Handler) register(c *gin.Context) {
	var in blog.RegisterInput
	if err := bind(c, &in); err != nil {
		renderError(c, err)
		return
	}
	if _, err := h.Service.Register(c.Request.Context(), in); err != nil {
		renderError(c, err)
		return
	}
	redirect(c, loginURL)
}
