package blog

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/MosinFAM/blogicum/internal/apperr"

	"github.com/go-playground/validator/v10"
)

// Формы. Теги form читает gin при разборе запроса, теги validate проверяет сервис.

type PostInput struct {
	Title       string     `form:"title" validate:"required,max=256"`
	Text        string     `form:"text" validate:"required"`
	PubDate     *time.Time `form:"pub_date" time_format:"2006-01-02T15:04" time_utc:"1"` // nil - сейчас
	LocationID  string     `form:"location"`
	CategoryID  string     `form:"category" validate:"required"`
	IsPublished *bool      `form:"is_published"` // nil - true
	Image       *string    `form:"-"`            // путь сохранённого файла, nil - без изменений
}

type CommentInput struct {
	Text string `form:"text" validate:"required,max=2000"`
}

type ProfileInput struct {
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Email     string `form:"email" validate:"omitempty,email,max=254"`
}

type RegisterInput struct {
	Username  string `form:"username" validate:"required,max=150,username"`
	Password  string `form:"password" validate:"required,min=8,max=128"`
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Email     string `form:"email" validate:"omitempty,email,max=254"`
}

type LoginInput struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type CategoryInput struct {
	Title       string `form:"title" validate:"required,max=256"`
	Description string `form:"description" validate:"required"`
	Slug        string `form:"slug" validate:"required,max=64,slug"`
	IsPublished *bool  `form:"is_published"`
}

type LocationInput struct {
	Name        string `form:"name" validate:"required,max=256"`
	IsPublished *bool  `form:"is_published"`
}

var (
	slugRe     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	return v
}

// fieldMessage превращает ошибку одного правила в текст для формы
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "username":
		return "Enter a valid username. It may contain only letters, numbers, and @/./+/-/_ characters."
	}
	return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
}

// FieldErrors собирает сообщения по полям из ошибки validator
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = fieldMessage(fe)
		}
	}
	return fields
}

// validate проверяет форму, extra добавляет ошибки смысловых проверок
func (s *Service) validate(form any, extra map[string]string) error {
	fields := map[string]string{}
	if err := s.validator.Struct(form); err != nil {
		verrs := FieldErrors(err)
		if verrs == nil {
			return fmt.Errorf("validate form: %w", err)
		}
		for name, msg := range verrs {
			fields[name] = msg
		}
	}
	for name, msg := range extra {
		if _, seen := fields[name]; !seen {
			fields[name] = msg
		}
	}
	if len(fields) > 0 {
		return apperr.Invalid("invalid form", fields)
	}
	return nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
