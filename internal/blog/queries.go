package blog

import (
	"context"
	"errors"
	"fmt"

	"github.com/MosinFAM/blogicum/internal/media"
	"github.com/MosinFAM/blogicum/internal/models"
	"github.com/MosinFAM/blogicum/internal/policy"
	"github.com/MosinFAM/blogicum/internal/storage"
)

// Author - публичные данные автора
type Author struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func authorOf(user *models.User) *Author {
	if user == nil {
		return nil
	}
	return &Author{ID: user.ID, Username: user.Username, FirstName: user.FirstName, LastName: user.LastName}
}

// PostView - пост со связанными сущностями для отображения.
// Location пуст, если место не задано или не опубликовано.
type PostView struct {
	models.Post
	Category *models.Category `json:"category"`
	Location *models.Location `json:"location"`
	Author   *Author          `json:"author"`
	ImageURL string           `json:"imageUrl,omitempty"`
}

type CommentView struct {
	models.Comment
	Author *Author `json:"author"`
}

type PostDetail struct {
	Post     PostView      `json:"post"`
	Comments []CommentView `json:"comments"`
}

type CategoryPage struct {
	Category *models.Category `json:"category"`
	Page     Page             `json:"page"`
}

type ProfilePage struct {
	Profile *models.User `json:"profile"`
	Page    Page         `json:"page"`
}

// refs кеширует связанные сущности в пределах одного запроса
type refs struct {
	storage    storage.Storage
	categories map[string]*models.Category
	locations  map[string]*models.Location
	users      map[string]*models.User
}

func (s *Service) newRefs() *refs {
	return &refs{
		storage:    s.storage,
		categories: map[string]*models.Category{},
		locations:  map[string]*models.Location{},
		users:      map[string]*models.User{},
	}
}

// missing возвращает nil для ErrNotFound, остальные ошибки пробрасывает
func missing(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func (r *refs) category(ctx context.Context, id string) (*models.Category, error) {
	if c, ok := r.categories[id]; ok {
		return c, nil
	}
	c, err := r.storage.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, missing(err)
	}
	r.categories[id] = c
	return c, nil
}

func (r *refs) location(ctx context.Context, id *string) (*models.Location, error) {
	if id == nil {
		return nil, nil
	}
	if l, ok := r.locations[*id]; ok {
		return l, nil
	}
	l, err := r.storage.GetLocationByID(ctx, *id)
	if err != nil {
		return nil, missing(err)
	}
	r.locations[*id] = l
	return l, nil
}

func (r *refs) user(ctx context.Context, id *string) (*models.User, error) {
	if id == nil {
		return nil, nil
	}
	if u, ok := r.users[*id]; ok {
		return u, nil
	}
	u, err := r.storage.GetUserByID(ctx, *id)
	if err != nil {
		return nil, missing(err)
	}
	r.users[*id] = u
	return u, nil
}

func (r *refs) postView(ctx context.Context, post models.Post) (PostView, error) {
	view := PostView{Post: post}
	var err error
	if view.Category, err = r.category(ctx, post.CategoryID); err != nil {
		return PostView{}, fmt.Errorf("post %s category: %w", post.ID, err)
	}
	location, err := r.location(ctx, post.LocationID)
	if err != nil {
		return PostView{}, fmt.Errorf("post %s location: %w", post.ID, err)
	}
	if policy.LocationVisible(location) {
		view.Location = location
	}
	author, err := r.user(ctx, post.AuthorID)
	if err != nil {
		return PostView{}, fmt.Errorf("post %s author: %w", post.ID, err)
	}
	view.Author = authorOf(author)
	if post.Image != nil {
		view.ImageURL = media.URL(*post.Image)
	}
	return view, nil
}

func (s *Service) postViews(ctx context.Context, posts []models.Post) ([]PostView, error) {
	r := s.newRefs()
	views := make([]PostView, 0, len(posts))
	for _, post := range posts {
		view, err := r.postView(ctx, post)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Index возвращает несколько последних публичных постов без пагинации
func (s *Service) Index(ctx context.Context) ([]PostView, error) {
	now := s.now()
	posts, err := s.storage.ListPosts(ctx, storage.PostFilter{PublicAt: &now, Limit: s.indexSize})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return s.postViews(ctx, posts)
}

// ListPosts возвращает страницу публичных постов
func (s *Service) ListPosts(ctx context.Context, page int) (Page, error) {
	now := s.now()
	return s.paginate(ctx, storage.PostFilter{PublicAt: &now}, page)
}

// CategoryPosts возвращает публичные посты опубликованной категории.
// Неопубликованная категория - not found, а не пустой список.
func (s *Service) CategoryPosts(ctx context.Context, slug string, page int) (CategoryPage, error) {
	category, err := s.storage.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return CategoryPage{}, lookupErr(err, "category")
	}
	if !policy.CategoryVisible(category) {
		return CategoryPage{}, lookupErr(storage.ErrNotFound, "category")
	}

	now := s.now()
	result, err := s.paginate(ctx, storage.PostFilter{CategoryID: category.ID, PublicAt: &now}, page)
	if err != nil {
		return CategoryPage{}, err
	}
	return CategoryPage{Category: category, Page: result}, nil
}

// Profile возвращает профиль и его посты: владельцу все, остальным публичные
func (s *Service) Profile(ctx context.Context, username string, viewer *models.User, page int) (ProfilePage, error) {
	owner, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return ProfilePage{}, lookupErr(err, "user")
	}

	filter := storage.PostFilter{AuthorID: owner.ID}
	if !policy.ProfileShowsAll(viewer, owner) {
		now := s.now()
		filter.PublicAt = &now
	}
	result, err := s.paginate(ctx, filter, page)
	if err != nil {
		return ProfilePage{}, err
	}
	return ProfilePage{Profile: owner, Page: result}, nil
}

// visiblePost возвращает пост, если viewer может его видеть, иначе not found
func (s *Service) visiblePost(ctx context.Context, id string, viewer *models.User) (*models.Post, *refs, error) {
	post, err := s.storage.GetPostByID(ctx, id)
	if err != nil {
		return nil, nil, lookupErr(err, "post")
	}
	r := s.newRefs()
	category, err := r.category(ctx, post.CategoryID)
	if err != nil {
		return nil, nil, fmt.Errorf("post %s category: %w", id, err)
	}
	if !policy.PostVisible(post, category, viewer, s.now()) {
		return nil, nil, lookupErr(storage.ErrNotFound, "post")
	}
	return post, r, nil
}

// PostDetail возвращает пост с комментариями, новые комментарии первыми
func (s *Service) PostDetail(ctx context.Context, id string, viewer *models.User) (PostDetail, error) {
	post, r, err := s.visiblePost(ctx, id, viewer)
	if err != nil {
		return PostDetail{}, err
	}
	view, err := r.postView(ctx, *post)
	if err != nil {
		return PostDetail{}, err
	}

	comments, err := s.storage.GetCommentsByPostID(ctx, id, 0, 0)
	if err != nil {
		return PostDetail{}, lookupErr(err, "post")
	}
	detail := PostDetail{Post: view, Comments: make([]CommentView, 0, len(comments))}
	for _, comment := range comments {
		author, err := r.user(ctx, &comment.AuthorID)
		if err != nil {
			return PostDetail{}, fmt.Errorf("comment %s author: %w", comment.ID, err)
		}
		detail.Comments = append(detail.Comments, CommentView{Comment: *comment, Author: authorOf(author)})
	}
	return detail, nil
}

// SubscribeComments подписывает на новые комментарии видимого поста до отмены ctx
func (s *Service) SubscribeComments(ctx context.Context, postID string, viewer *models.User) (<-chan *models.Comment, error) {
	if _, _, err := s.visiblePost(ctx, postID, viewer); err != nil {
		return nil, err
	}
	ch, err := s.storage.SubscribeToComments(ctx, postID)
	if err != nil {
		return nil, lookupErr(err, "post")
	}
	return ch, nil
}

// UserByID возвращает пользователя сессии
func (s *Service) UserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.storage.GetUserByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "user")
	}
	return user, nil
}
