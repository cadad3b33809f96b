package storage

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/MosinFAM/blogicum/internal/models"
	"github.com/MosinFAM/blogicum/internal/policy"

	"github.com/google/uuid"
)

// MemoryStorage - хранилище в памяти
type MemoryStorage struct {
	users       map[string]models.User
	usernames   map[string]string // username -> id
	categories  map[string]models.Category
	slugs       map[string]string // slug -> id
	locations   map[string]models.Location
	posts       map[string]models.Post
	postOrder   []string                    // id постов в порядке добавления
	comments    map[string][]models.Comment // postID -> комментарии в порядке добавления
	commentPost map[string]string           // commentID -> postID

	subscriptions map[string][]chan *models.Comment
	mu            sync.RWMutex
}

// NewMemoryStorage создает новое in-memory хранилище
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:         make(map[string]models.User),
		usernames:     make(map[string]string),
		categories:    make(map[string]models.Category),
		slugs:         make(map[string]string),
		locations:     make(map[string]models.Location),
		posts:         make(map[string]models.Post),
		comments:      make(map[string][]models.Comment),
		commentPost:   make(map[string]string),
		subscriptions: make(map[string][]chan *models.Comment),
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// AddUser добавляет пользователя, username уникален
func (s *MemoryStorage) AddUser(ctx context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usernames[user.Username]; exists {
		return models.User{}, fmt.Errorf("user %q: %w", user.Username, ErrDuplicate)
	}
	user.ID = uuid.New().String()
	if user.DateJoined.IsZero() {
		user.DateJoined = nowUTC()
	}
	log.Printf("Adding new user: %s", user.Username)
	s.users[user.ID] = user
	s.usernames[user.Username] = user.ID
	return user, nil
}

func (s *MemoryStorage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &user, nil
}

func (s *MemoryStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.usernames[username]
	if !exists {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	user := s.users[id]
	return &user, nil
}

// UpdateUser меняет профиль; username и пароль не меняются
func (s *MemoryStorage) UpdateUser(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.users[user.ID]
	if !exists {
		return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
	}
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.Email = user.Email
	s.users[user.ID] = stored
	return nil
}

// AddCategory добавляет категорию, slug уникален
func (s *MemoryStorage) AddCategory(ctx context.Context, category models.Category) (models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.slugs[category.Slug]; exists {
		return models.Category{}, fmt.Errorf("category %q: %w", category.Slug, ErrDuplicate)
	}
	category.ID = uuid.New().String()
	category.CreatedAt = nowUTC()
	log.Printf("Adding new category: %s", category.Slug)
	s.categories[category.ID] = category
	s.slugs[category.Slug] = category.ID
	return category, nil
}

func (s *MemoryStorage) GetCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, exists := s.categories[id]
	if !exists {
		return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	return &category, nil
}

func (s *MemoryStorage) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.slugs[slug]
	if !exists {
		return nil, fmt.Errorf("category %q: %w", slug, ErrNotFound)
	}
	category := s.categories[id]
	return &category, nil
}

// DeleteCategory удаляет категорию без постов
func (s *MemoryStorage) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, exists := s.categories[id]
	if !exists {
		return fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	for _, post := range s.posts {
		if post.CategoryID == id {
			return fmt.Errorf("category %q: %w", category.Slug, ErrCategoryInUse)
		}
	}
	delete(s.categories, id)
	delete(s.slugs, category.Slug)
	return nil
}

func (s *MemoryStorage) AddLocation(ctx context.Context, location models.Location) (models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	location.ID = uuid.New().String()
	location.CreatedAt = nowUTC()
	s.locations[location.ID] = location
	return location, nil
}

func (s *MemoryStorage) GetLocationByID(ctx context.Context, id string) (*models.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	location, exists := s.locations[id]
	if !exists {
		return nil, fmt.Errorf("location %s: %w", id, ErrNotFound)
	}
	return &location, nil
}

// DeleteLocation удаляет место и обнуляет ссылки на него в постах
func (s *MemoryStorage) DeleteLocation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.locations[id]; !exists {
		return fmt.Errorf("location %s: %w", id, ErrNotFound)
	}
	delete(s.locations, id)
	for postID, post := range s.posts {
		if post.LocationID != nil && *post.LocationID == id {
			post.LocationID = nil
			s.posts[postID] = post
		}
	}
	return nil
}

// checkRefs проверяет внешние ключи поста, вызывается под блокировкой
func (s *MemoryStorage) checkRefs(post models.Post) error {
	if _, exists := s.categories[post.CategoryID]; !exists {
		return fmt.Errorf("category %s: %w", post.CategoryID, ErrNotFound)
	}
	if post.LocationID != nil {
		if _, exists := s.locations[*post.LocationID]; !exists {
			return fmt.Errorf("location %s: %w", *post.LocationID, ErrNotFound)
		}
	}
	if post.AuthorID != nil {
		if _, exists := s.users[*post.AuthorID]; !exists {
			return fmt.Errorf("user %s: %w", *post.AuthorID, ErrNotFound)
		}
	}
	return nil
}

// AddPost добавляет новый пост
func (s *MemoryStorage) AddPost(ctx context.Context, post models.Post) (models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRefs(post); err != nil {
		return models.Post{}, err
	}
	post.ID = uuid.New().String()
	post.CreatedAt = nowUTC()
	if post.PubDate.IsZero() {
		post.PubDate = post.CreatedAt
	}
	post.CommentCount = 0
	log.Printf("Adding new post: %s", post.ID)
	s.posts[post.ID] = post
	s.postOrder = append(s.postOrder, post.ID)
	return post, nil
}

// GetPostByID возвращает пост по ID
func (s *MemoryStorage) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, exists := s.posts[id]
	if !exists {
		log.Printf("Post %s not found", id)
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	post.CommentCount = len(s.comments[id])
	return &post, nil
}

// UpdatePost перезаписывает редактируемые поля поста
func (s *MemoryStorage) UpdatePost(ctx context.Context, post models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.posts[post.ID]
	if !exists {
		return fmt.Errorf("post %s: %w", post.ID, ErrNotFound)
	}
	if err := s.checkRefs(post); err != nil {
		return err
	}
	post.CreatedAt = stored.CreatedAt
	post.AuthorID = stored.AuthorID
	s.posts[post.ID] = post
	return nil
}

// DeletePost удаляет пост вместе с комментариями
func (s *MemoryStorage) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[id]; !exists {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	for _, comment := range s.comments[id] {
		delete(s.commentPost, comment.ID)
	}
	delete(s.comments, id)
	delete(s.posts, id)
	for i, postID := range s.postOrder {
		if postID == id {
			s.postOrder = append(s.postOrder[:i], s.postOrder[i+1:]...)
			break
		}
	}
	log.Printf("Post %s deleted", id)
	return nil
}

// filterPosts возвращает посты под фильтром по убыванию pub_date,
// вызывается под блокировкой
func (s *MemoryStorage) filterPosts(filter PostFilter) []models.Post {
	var result []models.Post
	// обратный порядок добавления: при равной pub_date новее созданный идёт первым
	for i := len(s.postOrder) - 1; i >= 0; i-- {
		post := s.posts[s.postOrder[i]]
		if filter.CategoryID != "" && post.CategoryID != filter.CategoryID {
			continue
		}
		if filter.AuthorID != "" && !post.HasAuthor(filter.AuthorID) {
			continue
		}
		if filter.PublicAt != nil {
			category, exists := s.categories[post.CategoryID]
			if !exists || !policy.PostPublic(&post, &category, *filter.PublicAt) {
				continue
			}
		}
		post.CommentCount = len(s.comments[post.ID])
		result = append(result, post)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PubDate.After(result[j].PubDate)
	})
	return result
}

// ListPosts возвращает страницу постов под фильтром
func (s *MemoryStorage) ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := s.filterPosts(filter)
	start := filter.Offset
	if start > len(posts) {
		return []models.Post{}, nil
	}
	end := len(posts)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return posts[start:end], nil
}

func (s *MemoryStorage) CountPosts(ctx context.Context, filter PostFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter.Limit, filter.Offset = 0, 0
	return len(s.filterPosts(filter)), nil
}

// AddComment добавляет комментарий в память и уведомляет подписчиков
func (s *MemoryStorage) AddComment(ctx context.Context, comment models.Comment) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("Adding comment to post %s", comment.PostID)
	if _, exists := s.posts[comment.PostID]; !exists {
		log.Println("Post not found")
		return nil, fmt.Errorf("post %s: %w", comment.PostID, ErrNotFound)
	}
	if _, exists := s.users[comment.AuthorID]; !exists {
		return nil, fmt.Errorf("user %s: %w", comment.AuthorID, ErrNotFound)
	}

	comment.ID = uuid.New().String()
	comment.CreatedAt = nowUTC()
	s.comments[comment.PostID] = append(s.comments[comment.PostID], comment)
	s.commentPost[comment.ID] = comment.PostID

	// Уведомляем подписчиков, медленный получатель пропускает сообщение
	for _, ch := range s.subscriptions[comment.PostID] {
		notified := comment
		select {
		case ch <- &notified:
		default:
			log.Printf("Subscriber of post %s is not ready, comment dropped", comment.PostID)
		}
	}

	log.Printf("Comment added: %s", comment.ID)
	return &comment, nil
}

// findComment возвращает индекс комментария в списке поста, вызывается под блокировкой
func (s *MemoryStorage) findComment(id string) (string, int, bool) {
	postID, exists := s.commentPost[id]
	if !exists {
		return "", 0, false
	}
	for i, comment := range s.comments[postID] {
		if comment.ID == id {
			return postID, i, true
		}
	}
	return "", 0, false
}

func (s *MemoryStorage) GetCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	postID, i, exists := s.findComment(id)
	if !exists {
		return nil, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	comment := s.comments[postID][i]
	return &comment, nil
}

// UpdateComment меняет только текст
func (s *MemoryStorage) UpdateComment(ctx context.Context, comment models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	postID, i, exists := s.findComment(comment.ID)
	if !exists {
		return fmt.Errorf("comment %s: %w", comment.ID, ErrNotFound)
	}
	s.comments[postID][i].Text = comment.Text
	return nil
}

func (s *MemoryStorage) DeleteComment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	postID, i, exists := s.findComment(id)
	if !exists {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	comments := s.comments[postID]
	s.comments[postID] = append(comments[:i], comments[i+1:]...)
	delete(s.commentPost, id)
	return nil
}

// GetCommentsByPostID возвращает комментарии к посту, новые первыми
func (s *MemoryStorage) GetCommentsByPostID(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log.Printf("Getting comment by post id %s", postID)
	if _, exists := s.posts[postID]; !exists {
		log.Println("Post not found")
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}

	comments := s.comments[postID]
	result := make([]*models.Comment, 0, len(comments))
	for i := len(comments) - 1; i >= 0; i-- {
		comment := comments[i]
		result = append(result, &comment)
	}

	// Пагинация
	if offset > len(result) {
		return []*models.Comment{}, nil
	}
	end := len(result)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return result[offset:end], nil
}

// SubscribeToComments подписка на комментарии для поста до отмены ctx
func (s *MemoryStorage) SubscribeToComments(ctx context.Context, postID string) (<-chan *models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("Subscribing to comments for post %s", postID)
	if _, exists := s.posts[postID]; !exists {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	ch := make(chan *models.Comment, 16)
	s.subscriptions[postID] = append(s.subscriptions[postID], ch)

	// Отписка при завершении контекста
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()

		subscribers := s.subscriptions[postID]
		for i, sub := range subscribers {
			if sub == ch {
				s.subscriptions[postID] = append(subscribers[:i], subscribers[i+1:]...)
				break
			}
		}
		if len(s.subscriptions[postID]) == 0 {
			delete(s.subscriptions, postID)
		}
		close(ch)
	}()

	return ch, nil
}
