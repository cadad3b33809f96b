package storage

import (
	"context"
	"errors"
	"time"

	"github.com/MosinFAM/blogicum/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicate     = errors.New("already exists")
	ErrCategoryInUse = errors.New("category has posts")
)

// PostFilter - условия выборки постов. Пустые поля не фильтруют.
type PostFilter struct {
	CategoryID string
	AuthorID   string
	// PublicAt задан - только посты, видимые всем в этот момент:
	// опубликован, категория опубликована, pub_date <= PublicAt
	PublicAt *time.Time
	Limit    int // 0 - без ограничения
	Offset   int
}

// Storage - интерфейс для всех типов хранилищ (in-memory и PostgreSQL)
type Storage interface {
	AddUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUser(ctx context.Context, user models.User) error

	AddCategory(ctx context.Context, category models.Category) (models.Category, error)
	GetCategoryByID(ctx context.Context, id string) (*models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	AddLocation(ctx context.Context, location models.Location) (models.Location, error)
	GetLocationByID(ctx context.Context, id string) (*models.Location, error)
	DeleteLocation(ctx context.Context, id string) error

	AddPost(ctx context.Context, post models.Post) (models.Post, error)
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	UpdatePost(ctx context.Context, post models.Post) error
	DeletePost(ctx context.Context, id string) error
	ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error)
	CountPosts(ctx context.Context, filter PostFilter) (int, error)

	AddComment(ctx context.Context, comment models.Comment) (*models.Comment, error)
	GetCommentByID(ctx context.Context, id string) (*models.Comment, error)
	UpdateComment(ctx context.Context, comment models.Comment) error
	DeleteComment(ctx context.Context, id string) error
	GetCommentsByPostID(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error)
	SubscribeToComments(ctx context.Context, postID string) (<-chan *models.Comment, error)
}
