package storage

import (
	"context"

	"github.com/MosinFAM/blogicum/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) AddUser(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStorage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockStorage) UpdateUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockStorage) AddCategory(ctx context.Context, category models.Category) (models.Category, error) {
	args := m.Called(ctx, category)
	return args.Get(0).(models.Category), args.Error(1)
}

func (m *MockStorage) GetCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	args := m.Called(ctx, id)
	category, _ := args.Get(0).(*models.Category)
	return category, args.Error(1)
}

func (m *MockStorage) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	args := m.Called(ctx, slug)
	category, _ := args.Get(0).(*models.Category)
	return category, args.Error(1)
}

func (m *MockStorage) DeleteCategory(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) AddLocation(ctx context.Context, location models.Location) (models.Location, error) {
	args := m.Called(ctx, location)
	return args.Get(0).(models.Location), args.Error(1)
}

func (m *MockStorage) GetLocationByID(ctx context.Context, id string) (*models.Location, error) {
	args := m.Called(ctx, id)
	location, _ := args.Get(0).(*models.Location)
	return location, args.Error(1)
}

func (m *MockStorage) DeleteLocation(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) AddPost(ctx context.Context, post models.Post) (models.Post, error) {
	args := m.Called(ctx, post)
	return args.Get(0).(models.Post), args.Error(1)
}

func (m *MockStorage) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	args := m.Called(ctx, id)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *MockStorage) UpdatePost(ctx context.Context, post models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockStorage) DeletePost(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	args := m.Called(ctx, filter)
	posts, _ := args.Get(0).([]models.Post)
	return posts, args.Error(1)
}

func (m *MockStorage) CountPosts(ctx context.Context, filter PostFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockStorage) AddComment(ctx context.Context, comment models.Comment) (*models.Comment, error) {
	args := m.Called(ctx, comment)
	added, _ := args.Get(0).(*models.Comment)
	return added, args.Error(1)
}

func (m *MockStorage) GetCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	args := m.Called(ctx, id)
	comment, _ := args.Get(0).(*models.Comment)
	return comment, args.Error(1)
}

func (m *MockStorage) UpdateComment(ctx context.Context, comment models.Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *MockStorage) DeleteComment(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) GetCommentsByPostID(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error) {
	args := m.Called(ctx, postID, limit, offset)
	comments, _ := args.Get(0).([]*models.Comment)
	return comments, args.Error(1)
}

func (m *MockStorage) SubscribeToComments(ctx context.Context, postID string) (<-chan *models.Comment, error) {
	args := m.Called(ctx, postID)
	ch, _ := args.Get(0).(chan *models.Comment)
	return ch, args.Error(1)
}
