// Package web - HTTP-интерфейс блога на gin.
package web

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/MosinFAM/blogicum/internal/blog"
	"github.com/MosinFAM/blogicum/internal/media"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
)

const streamSuffix = "/comments/stream"

type Handler struct {
	Service        *blog.Service
	Sessions       *scs.SessionManager
	Media          *media.Store
	AllowedOrigins []string

	upgrader websocket.Upgrader
}

func NewHandler(service *blog.Service, sessions *scs.SessionManager, store *media.Store, allowedOrigins []string) *Handler {
	h := &Handler{
		Service:        service,
		Sessions:       sessions,
		Media:          store,
		AllowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *Handler) originAllowed(origin string) bool {
	for _, allowed := range h.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

// checkOrigin пускает websocket со своего хоста и из AllowedOrigins
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.originAllowed(origin) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// engine регистрирует маршруты
func (h *Handler) engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Printf("Panic recovered: %v", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
	})

	r.Static(strings.TrimSuffix(media.Prefix, "/"), h.Media.Dir)

	// Поток комментариев идёт мимо LoadAndSave: websocket нужен исходный
	// ResponseWriter с http.Hijacker, поэтому сессия читается из cookie.
	r.GET("/posts/:id"+streamSuffix, h.loadSession, h.loadActor, h.commentStream)

	site := r.Group("/", h.loadActor)
	site.GET("/", h.index)
	site.GET("/posts", h.listPosts)
	site.GET("/posts/:id", h.postDetail)
	site.GET("/category/:slug", h.categoryPosts)
	site.GET("/profile/:username", h.profile)

	site.GET("/auth/login", h.loginPage)
	site.POST("/auth/login", h.login)
	site.POST("/auth/logout", h.logout)
	site.POST("/auth/registration", h.register)

	member := site.Group("/", h.loginRequired)
	member.POST("/profile/:username/edit", h.editProfile)
	member.POST("/posts", h.createPost)
	member.POST("/posts/:id/edit", h.updatePost)
	member.POST("/posts/:id/delete", h.deletePost)
	member.POST("/posts/:id/comments", h.addComment)
	member.POST("/posts/:id/comments/:commentID/edit", h.editComment)
	member.POST("/posts/:id/comments/:commentID/delete", h.deleteComment)

	member.POST("/admin/categories", h.createCategory)
	member.POST("/admin/categories/:slug/delete", h.deleteCategory)
	member.POST("/admin/locations", h.createLocation)
	member.POST("/admin/locations/:id/delete", h.deleteLocation)

	return r
}

// Routes возвращает готовый http.Handler: CORS, сессии, маршруты.
// Без AllowedOrigins CORS не включается и сторонние сайты ответов не читают.
func (h *Handler) Routes() http.Handler {
	engine := h.engine()
	withSessions := h.Sessions.LoadAndSave(engine)

	dispatch := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, streamSuffix) {
			engine.ServeHTTP(w, r)
			return
		}
		withSessions.ServeHTTP(w, r)
	})
	if len(h.AllowedOrigins) == 0 {
		return dispatch
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   h.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
	})
	return c.Handler(dispatch)
}
