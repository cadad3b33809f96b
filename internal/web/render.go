package web

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/MosinFAM/blogicum/internal/apperr"
	"github.com/MosinFAM/blogicum/internal/blog"

	"github.com/gin-gonic/gin"
)

const (
	homeURL  = "/"
	loginURL = "/auth/login"
)

func postURL(id string) string {
	return "/posts/" + url.PathEscape(id)
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username)
}

func loginRedirect(next string) string {
	return loginURL + "?next=" + url.QueryEscape(next)
}

// redirect завершает успешное изменение переходом на страницу сущности
func redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusSeeOther, location)
}

// renderError отвечает кодом, соответствующим ошибке
func renderError(c *gin.Context, err error) {
	switch apperr.CodeOf(err) {
	case apperr.CodeNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.CodeForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case apperr.CodeInvalid:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form", "fields": apperr.FieldsOf(err)})
	case apperr.CodeUnauthenticated:
		c.Redirect(http.StatusFound, loginRedirect(c.Request.URL.RequestURI()))
	case apperr.CodeConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bindFields переводит ошибки разбора значений в сообщения по полям формы
func bindFields(err error) map[string]string {
	if fields := blog.FieldErrors(err); fields != nil {
		return fields
	}
	var timeErr *time.ParseError
	if errors.As(err, &timeErr) {
		return map[string]string{"pub_date": "Enter a valid date/time."}
	}
	var numErr *strconv.NumError
	if errors.As(err, &numErr) && numErr.Func == "ParseBool" {
		return map[string]string{"is_published": fmt.Sprintf("%q value must be either true or false.", numErr.Num)}
	}
	return map[string]string{"form": err.Error()}
}

// bind разбирает форму запроса в obj
func bind(c *gin.Context, obj any) error {
	if err := c.ShouldBind(obj); err != nil {
		return apperr.Invalid("invalid form", bindFields(err))
	}
	return nil
}

// pageParam возвращает номер страницы из ?page=, нечисловой - 1
func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil {
		return 1
	}
	return page
}
