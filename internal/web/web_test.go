package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MosinFAM/blogicum/internal/blog"
	"github.com/MosinFAM/blogicum/internal/media"
	"github.com/MosinFAM/blogicum/internal/models"
	"github.com/MosinFAM/blogicum/internal/storage"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	handler  *Handler
	routes   http.Handler
	store    *storage.MemoryStorage
	travel   models.Category
	archived models.Category
}

func newTestApp(t *testing.T, allowedOrigins ...string) *testApp {
	t.Helper()
	store := storage.NewMemoryStorage()
	images := media.NewStore(t.TempDir())
	service := blog.NewService(store, blog.Options{
		Now:     func() time.Time { return now },
		Media:   images,
		IsStaff: func(username string) bool { return username == "admin" },
	})
	h := NewHandler(service, scs.New(), images, allowedOrigins)

	app := &testApp{handler: h, routes: h.Routes(), store: store}
	var err error
	app.travel, err = store.AddCategory(context.Background(), models.Category{Title: "Travel", Slug: "travel", IsPublished: true})
	require.NoError(t, err)
	app.archived, err = store.AddCategory(context.Background(), models.Category{Title: "Archive", Slug: "archive", IsPublished: false})
	require.NoError(t, err)
	return app
}

// client хранит cookie сессии между запросами
type client struct {
	t       *testing.T
	app     *testApp
	cookies map[string]*http.Cookie
}

func (a *testApp) client(t *testing.T) *client {
	return &client{t: t, app: a, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return c.send(req)
}

// upload отправляет multipart-форму с файлом в поле image
func (c *client) upload(target string, form url.Values, filename string, content []byte) *httptest.ResponseRecorder {
	c.t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, values := range form {
		for _, v := range values {
			require.NoError(c.t, writer.WriteField(key, v))
		}
	}
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(c.t, err)
	_, err = part.Write(content)
	require.NoError(c.t, err)
	require.NoError(c.t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.send(req)
}

func (c *client) send(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	c.app.routes.ServeHTTP(rec, req)
	for _, cookie := range rec.Result().Cookies() {
		c.cookies[cookie.Name] = cookie
	}
	return rec
}

func (c *client) get(target string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, target, nil)
}

func (c *client) post(target string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return c.do(http.MethodPost, target, form)
}

// signUp регистрирует пользователя и входит под ним
func (a *testApp) signUp(t *testing.T, username string) *client {
	t.Helper()
	c := a.client(t)
	rec := c.post("/auth/registration", url.Values{"username": {username}, "password": {"s3cret-pass"}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, loginURL, rec.Header().Get("Location"))

	rec = c.post("/auth/login", url.Values{"username": {username}, "password": {"s3cret-pass"}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return c
}

func (c *client) createPost(title, pubDate string) string {
	c.t.Helper()
	rec := c.post("/posts", url.Values{
		"title":        {title},
		"text":         {"Some text"},
		"category":     {c.app.travel.ID},
		"pub_date":     {pubDate},
		"is_published": {"true"},
	})
	require.Equal(c.t, http.StatusSeeOther, rec.Code, rec.Body.String())

	posts, err := c.app.store.ListPosts(context.Background(), storage.PostFilter{})
	require.NoError(c.t, err)
	for _, p := range posts {
		if p.Title == title {
			return p.ID
		}
	}
	c.t.Fatalf("post %q was not stored", title)
	return ""
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestAnonymousMutationRedirectsToLogin(t *testing.T) {
	app := newTestApp(t)
	anon := app.client(t)

	rec := anon.post("/posts/p1/comments", url.Values{"text": {"hi"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login?next=%2Fposts%2Fp1%2Fcomments", rec.Header().Get("Location"))
}

func TestLogin_BadCredentials(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice")

	rec := app.client(t).post("/auth/login", url.Values{"username": {"alice"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_NextRedirect(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice")
	form := url.Values{"username": {"alice"}, "password": {"s3cret-pass"}}

	rec := app.client(t).post("/auth/login?next=%2Fposts", form)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/posts", rec.Header().Get("Location"))

	rec = app.client(t).post("/auth/login?next=%2F%2Fevil.example", form)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile/alice", rec.Header().Get("Location"))
}

func TestCreatePost_RedirectsToProfile(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")

	rec := alice.post("/posts", url.Values{
		"title":    {"Hello"},
		"text":     {"World"},
		"category": {app.travel.ID},
		"pub_date": {"2024-04-01T10:00"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile/alice", rec.Header().Get("Location"))

	var page blog.Page
	decode(t, app.client(t).get("/posts"), &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Hello", page.Items[0].Title)
	assert.Equal(t, "alice", page.Items[0].Author.Username)
}

func TestCreatePost_InvalidForm(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")

	rec := alice.post("/posts", url.Values{"text": {"no title"}, "category": {"missing"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, rec, &body)
	assert.Contains(t, body.Fields, "title")
	assert.Contains(t, body.Fields, "category")
}

func TestFuturePost_HiddenFromAnonymousShownToOwner(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")
	id := alice.createPost("Later", "2030-01-01T10:00")

	var page blog.Page
	decode(t, app.client(t).get("/posts"), &page)
	assert.Empty(t, page.Items)

	var profile blog.ProfilePage
	decode(t, app.client(t).get("/profile/alice"), &profile)
	assert.Zero(t, profile.Page.Count)

	decode(t, alice.get("/profile/alice"), &profile)
	assert.Equal(t, 1, profile.Page.Count)

	assert.Equal(t, http.StatusNotFound, app.client(t).get("/posts/"+id).Code)
	assert.Equal(t, http.StatusOK, alice.get("/posts/"+id).Code)
}

func TestListPosts_PageParam(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")
	alice.createPost("Only", "2024-04-01T10:00")

	for _, target := range []string{"/posts?page=abc", "/posts?page=-3", "/posts?page=99"} {
		var page blog.Page
		decode(t, app.client(t).get(target), &page)
		assert.Equal(t, 1, page.Number, target)
		assert.Len(t, page.Items, 1, target)
	}
}

func TestDeletePost_OtherUserForbidden(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")
	bob := app.signUp(t, "bob")
	id := alice.createPost("Mine", "2024-04-01T10:00")

	rec := bob.post("/posts/"+id+"/delete", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = alice.post("/posts/"+id+"/delete", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, http.StatusNotFound, alice.get("/posts/"+id).Code)
}

func TestComments_AddEditDelete(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")
	bob := app.signUp(t, "bob")
	id := alice.createPost("Post", "2024-04-01T10:00")

	rec := bob.post("/posts/"+id+"/comments", url.Values{"text": {"Nice"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/posts/"+id, rec.Header().Get("Location"))

	var detail blog.PostDetail
	decode(t, app.client(t).get("/posts/"+id), &detail)
	require.Len(t, detail.Comments, 1)
	commentID := detail.Comments[0].ID
	assert.Equal(t, "bob", detail.Comments[0].Author.Username)

	rec = alice.post("/posts/"+id+"/comments/"+commentID+"/edit", url.Values{"text": {"Hijacked"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = alice.post("/posts/"+id+"/comments/"+commentID+"/delete", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = bob.post("/posts/"+id+"/comments/"+commentID+"/edit", url.Values{"text": {"Very nice"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	decode(t, app.client(t).get("/posts/"+id), &detail)
	assert.Equal(t, "Very nice", detail.Comments[0].Text)

	rec = bob.post("/posts/"+id+"/comments/"+commentID+"/delete", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	decode(t, app.client(t).get("/posts/"+id), &detail)
	assert.Empty(t, detail.Comments)
}

func TestCategoryPosts_Unpublished(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusOK, app.client(t).get("/category/travel").Code)
	assert.Equal(t, http.StatusNotFound, app.client(t).get("/category/archive").Code)
	assert.Equal(t, http.StatusNotFound, app.client(t).get("/category/missing").Code)
}

func TestEditProfile(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")
	app.signUp(t, "bob")

	rec := alice.post("/profile/bob/edit", url.Values{"first_name": {"Robert"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = alice.post("/profile/alice/edit", url.Values{"first_name": {"Alice"}, "email": {"alice@example.com"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile/alice", rec.Header().Get("Location"))

	var profile blog.ProfilePage
	decode(t, app.client(t).get("/profile/alice"), &profile)
	assert.Equal(t, "Alice", profile.Profile.FirstName)
}

func TestCatalog_StaffOnly(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")
	admin := app.signUp(t, "admin")
	form := url.Values{"title": {"Food"}, "description": {"Recipes"}, "slug": {"food"}, "is_published": {"true"}}

	assert.Equal(t, http.StatusForbidden, alice.post("/admin/categories", form).Code)

	rec := admin.post("/admin/categories", form)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, http.StatusOK, app.client(t).get("/category/food").Code)

	rec = admin.post("/admin/locations", url.Values{"name": {"Moscow"}, "is_published": {"true"}})
	assert.Equal(t, http.StatusCreated, rec.Code)
	var location models.Location
	decode(t, rec, &location)
	assert.Equal(t, http.StatusNoContent, admin.post("/admin/locations/"+location.ID+"/delete", nil).Code)
}

func TestDeleteCategory_WithPostsConflict(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")
	admin := app.signUp(t, "admin")
	alice.createPost("Trip", "2024-04-01T10:00")

	rec := admin.post("/admin/categories/travel/delete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, http.StatusNoContent, admin.post("/admin/categories/archive/delete", nil).Code)
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")

	rec := alice.post("/auth/logout", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = alice.post("/posts", url.Values{"title": {"x"}})
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusNotFound, app.client(t).get("/nope").Code)
}

func TestCommentStream(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")
	id := alice.createPost("Live", "2024-04-01T10:00")

	srv := httptest.NewServer(app.routes)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/posts/" + id + "/comments/stream"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	rec := alice.post("/posts/"+id+"/comments", url.Values{"text": {"First!"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var comment models.Comment
	require.NoError(t, conn.ReadJSON(&comment))
	assert.Equal(t, "First!", comment.Text)
	assert.Equal(t, id, comment.PostID)
}

func TestCommentStream_HiddenPost(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")
	id := alice.createPost("Draft", "2030-01-01T10:00")

	srv := httptest.NewServer(app.routes)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/posts/" + id + "/comments/stream"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// mediaFiles перечисляет сохранённые изображения постов
func (a *testApp) mediaFiles(t *testing.T) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(a.handler.Media.Dir, "posts", "*"))
	require.NoError(t, err)
	return files
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}

func TestUpdatePost_AuthorizedBeforeFormParsing(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")
	bob := app.signUp(t, "bob")
	id := alice.createPost("Mine", "2024-04-01T10:00")
	form := url.Values{"title": {"x"}, "text": {"y"}, "category": {app.travel.ID}, "pub_date": {"garbage"}}

	assert.Equal(t, http.StatusForbidden, bob.post("/posts/"+id+"/edit", form).Code)
	assert.Equal(t, http.StatusNotFound, bob.post("/posts/does-not-exist/edit", form).Code)

	rec := bob.upload("/posts/"+id+"/edit", url.Values{"title": {"x"}}, "cat.png", pngBytes(t))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, app.mediaFiles(t))

	rec = alice.post("/posts/"+id+"/edit", form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, rec, &body)
	assert.Equal(t, map[string]string{"pub_date": "Enter a valid date/time."}, body.Fields)
}

func TestUpdatePost_AbsentCheckboxKeepsPostHidden(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")
	id := alice.createPost("Mine", "2024-04-01T10:00")
	anon := app.client(t)

	rec := alice.post("/posts/"+id+"/edit", url.Values{
		"title": {"Mine"}, "text": {"y"}, "category": {app.travel.ID}, "is_published": {"false"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, anon.get("/posts/"+id).Code)

	rec = alice.post("/posts/"+id+"/edit", url.Values{"title": {"Renamed"}, "text": {"y"}, "category": {app.travel.ID}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, anon.get("/posts/"+id).Code)
}

func TestCreatePost_WithImage(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")
	form := url.Values{"title": {"Photo"}, "text": {"y"}, "category": {app.travel.ID}, "pub_date": {"2024-04-01T10:00"}}

	rec := alice.upload("/posts", form, "photo.txt.png", []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upload a valid image")
	assert.Empty(t, app.mediaFiles(t))

	rec = alice.upload("/posts", form, "photo.png", pngBytes(t))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	files := app.mediaFiles(t)
	require.Len(t, files, 1)

	var page blog.Page
	decode(t, app.client(t).get("/posts"), &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, media.Prefix+"posts/"+filepath.Base(files[0]), page.Items[0].ImageURL)

	// изображение удаляется вместе с постом
	require.Equal(t, http.StatusSeeOther, alice.post("/posts/"+page.Items[0].ID+"/delete", nil).Code)
	_, err := os.Stat(files[0])
	assert.True(t, os.IsNotExist(err))
}

func TestCORS_OnlyConfiguredOrigins(t *testing.T) {
	request := func(app *testApp, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/posts", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		app.routes.ServeHTTP(rec, req)
		return rec
	}

	closed := newTestApp(t)
	assert.Empty(t, request(closed, "https://evil.example").Header().Get("Access-Control-Allow-Origin"))

	open := newTestApp(t, "https://front.example")
	rec := request(open, "https://front.example")
	assert.Equal(t, "https://front.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Empty(t, request(open, "https://evil.example").Header().Get("Access-Control-Allow-Origin"))
}

func TestCommentStream_ForeignOriginRejected(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")
	id := alice.createPost("Live", "2024-04-01T10:00")

	srv := httptest.NewServer(app.routes)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/posts/" + id + "/comments/stream"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {srv.URL}})
	require.NoError(t, err)
	conn.Close()
}
