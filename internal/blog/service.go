// Package blog реализует сценарии блога: выборки постов с учётом видимости
// и изменения постов, комментариев и профилей с проверкой прав.
//
// Действующий пользователь всегда передаётся явно, nil означает анонима.
package blog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MosinFAM/blogicum/internal/apperr"
	"github.com/MosinFAM/blogicum/internal/models"
	"github.com/MosinFAM/blogicum/internal/storage"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultPageSize  = 10
	DefaultIndexSize = 5
)

// Media удаляет ранее сохранённые файлы изображений
type Media interface {
	Remove(name string) error
}

type Options struct {
	PageSize  int
	IndexSize int
	Now       func() time.Time
	Media     Media                      // nil - файлы не удаляются
	IsStaff   func(username string) bool // права персонала при регистрации
}

type Service struct {
	storage   storage.Storage
	pageSize  int
	indexSize int
	now       func() time.Time
	media     Media
	isStaff   func(string) bool
	validator *validator.Validate
}

func NewService(store storage.Storage, opts Options) *Service {
	s := &Service{
		storage:   store,
		pageSize:  opts.PageSize,
		indexSize: opts.IndexSize,
		now:       opts.Now,
		media:     opts.Media,
		isStaff:   opts.IsStaff,
		validator: newValidator(),
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	if s.indexSize <= 0 {
		s.indexSize = DefaultIndexSize
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.isStaff == nil {
		s.isStaff = func(string) bool { return false }
	}
	return s
}

// lookupErr превращает storage.ErrNotFound в apperr.NotFound
func lookupErr(err error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(what+" not found", err)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

func requireActor(actor *models.User) error {
	if actor == nil {
		return apperr.Unauthenticated("login required")
	}
	return nil
}

// Page - страница списка постов
type Page struct {
	Items      []PostView `json:"items"`
	Number     int        `json:"number"`
	TotalPages int        `json:"totalPages"`
	Count      int        `json:"count"`
	HasNext    bool       `json:"hasNext"`
	HasPrev    bool       `json:"hasPrev"`
	NextPage   int        `json:"nextPage,omitempty"`
	PrevPage   int        `json:"prevPage,omitempty"`
}

// pageNumber приводит номер к допустимому: меньше 1 - первая страница,
// больше последней - последняя
func pageNumber(requested, count, size int) (number, total int) {
	total = (count + size - 1) / size
	if total < 1 {
		total = 1
	}
	number = requested
	if number < 1 {
		number = 1
	}
	if number > total {
		number = total
	}
	return number, total
}

// paginate выбирает страницу постов под фильтром
func (s *Service) paginate(ctx context.Context, filter storage.PostFilter, requested int) (Page, error) {
	count, err := s.storage.CountPosts(ctx, filter)
	if err != nil {
		return Page{}, fmt.Errorf("count posts: %w", err)
	}
	number, total := pageNumber(requested, count, s.pageSize)

	filter.Limit = s.pageSize
	filter.Offset = (number - 1) * s.pageSize
	posts, err := s.storage.ListPosts(ctx, filter)
	if err != nil {
		return Page{}, fmt.Errorf("list posts: %w", err)
	}
	items, err := s.postViews(ctx, posts)
	if err != nil {
		return Page{}, err
	}

	page := Page{
		Items:      items,
		Number:     number,
		TotalPages: total,
		Count:      count,
		HasNext:    number < total,
		HasPrev:    number > 1,
	}
	if page.HasNext {
		page.NextPage = number + 1
	}
	if page.HasPrev {
		page.PrevPage = number - 1
	}
	return page, nil
}
