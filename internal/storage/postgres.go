package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MosinFAM/blogicum/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const commentsChannel = "comments_channel"

// Коды ошибок PostgreSQL
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// PostgresStorage - хранилище в PostgreSQL
type PostgresStorage struct {
	DB         *sql.DB
	DataSource string // нужен отдельному соединению LISTEN
}

// NewPostgresStorage создаёт экземпляр PostgreSQL-хранилища
func NewPostgresStorage(db *sql.DB, dataSource string) *PostgresStorage {
	return &PostgresStorage{DB: db, DataSource: dataSource}
}

func pgCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// notFound переводит sql.ErrNoRows в ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// requireAffected возвращает ErrNotFound, если запрос не затронул строк
func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

const userColumns = "id, username, first_name, last_name, email, password_hash, is_staff, date_joined"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName,
		&user.Email, &user.PasswordHash, &user.IsStaff, &user.DateJoined)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *PostgresStorage) AddUser(ctx context.Context, user models.User) (models.User, error) {
	user.ID = uuid.New().String()
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC()
	}
	log.Printf("Adding new user: %s", user.Username)
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		user.ID, user.Username, user.FirstName, user.LastName, user.Email,
		user.PasswordHash, user.IsStaff, user.DateJoined)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return models.User{}, fmt.Errorf("user %q: %w", user.Username, ErrDuplicate)
		}
		log.Println("DB Insert Error:", err)
		return models.User{}, err
	}
	return user, nil
}

func (s *PostgresStorage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=$1", id)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user "+id)
	}
	return user, nil
}

func (s *PostgresStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username=$1", username)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user "+username)
	}
	return user, nil
}

func (s *PostgresStorage) UpdateUser(ctx context.Context, user models.User) error {
	res, err := s.DB.ExecContext(ctx,
		"UPDATE users SET first_name=$2, last_name=$3, email=$4 WHERE id=$1",
		user.ID, user.FirstName, user.LastName, user.Email)
	if err != nil {
		return err
	}
	return requireAffected(res, "user "+user.ID)
}

const categoryColumns = "id, title, description, slug, is_published, created_at"

func scanCategory(row interface{ Scan(...any) error }) (*models.Category, error) {
	var category models.Category
	err := row.Scan(&category.ID, &category.Title, &category.Description,
		&category.Slug, &category.IsPublished, &category.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *PostgresStorage) AddCategory(ctx context.Context, category models.Category) (models.Category, error) {
	category.ID = uuid.New().String()
	category.CreatedAt = time.Now().UTC()
	log.Printf("Adding new category: %s", category.Slug)
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO categories ("+categoryColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		category.ID, category.Title, category.Description, category.Slug,
		category.IsPublished, category.CreatedAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return models.Category{}, fmt.Errorf("category %q: %w", category.Slug, ErrDuplicate)
		}
		return models.Category{}, err
	}
	return category, nil
}

func (s *PostgresStorage) GetCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id=$1", id)
	category, err := scanCategory(row)
	if err != nil {
		return nil, notFound(err, "category "+id)
	}
	return category, nil
}

func (s *PostgresStorage) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE slug=$1", slug)
	category, err := scanCategory(row)
	if err != nil {
		return nil, notFound(err, "category "+slug)
	}
	return category, nil
}

// DeleteCategory опирается на ON DELETE RESTRICT в posts.category_id
func (s *PostgresStorage) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM categories WHERE id=$1", id)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("category %s: %w", id, ErrCategoryInUse)
		}
		return err
	}
	return requireAffected(res, "category "+id)
}

func (s *PostgresStorage) AddLocation(ctx context.Context, location models.Location) (models.Location, error) {
	location.ID = uuid.New().String()
	location.CreatedAt = time.Now().UTC()
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO locations (id, name, is_published, created_at) VALUES ($1, $2, $3, $4)",
		location.ID, location.Name, location.IsPublished, location.CreatedAt)
	if err != nil {
		return models.Location{}, err
	}
	return location, nil
}

func (s *PostgresStorage) GetLocationByID(ctx context.Context, id string) (*models.Location, error) {
	var location models.Location
	err := s.DB.QueryRowContext(ctx,
		"SELECT id, name, is_published, created_at FROM locations WHERE id=$1", id).
		Scan(&location.ID, &location.Name, &location.IsPublished, &location.CreatedAt)
	if err != nil {
		return nil, notFound(err, "location "+id)
	}
	return &location, nil
}

// DeleteLocation опирается на ON DELETE SET NULL в posts.location_id
func (s *PostgresStorage) DeleteLocation(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM locations WHERE id=$1", id)
	if err != nil {
		return err
	}
	return requireAffected(res, "location "+id)
}

const postColumns = `p.id, p.title, p.text, p.pub_date, p.author_id, p.location_id, p.category_id,
	p.is_published, p.created_at, p.image,
	(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id)`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var post models.Post
	var authorID, locationID, image sql.NullString
	err := row.Scan(&post.ID, &post.Title, &post.Text, &post.PubDate, &authorID, &locationID,
		&post.CategoryID, &post.IsPublished, &post.CreatedAt, &image, &post.CommentCount)
	if err != nil {
		return nil, err
	}
	post.AuthorID = nullableString(authorID)
	post.LocationID = nullableString(locationID)
	post.Image = nullableString(image)
	return &post, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

// AddPost добавляет новый пост в БД
func (s *PostgresStorage) AddPost(ctx context.Context, post models.Post) (models.Post, error) {
	post.ID = uuid.New().String()
	post.CreatedAt = time.Now().UTC()
	if post.PubDate.IsZero() {
		post.PubDate = post.CreatedAt
	}
	post.CommentCount = 0
	log.Printf("Adding new post: %s", post.ID)
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO posts (id, title, text, pub_date, author_id, location_id, category_id, is_published, created_at, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		post.ID, post.Title, post.Text, post.PubDate, post.AuthorID, post.LocationID,
		post.CategoryID, post.IsPublished, post.CreatedAt, post.Image)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return models.Post{}, fmt.Errorf("post references: %w", ErrNotFound)
		}
		log.Println("DB Insert Error:", err)
		return models.Post{}, err
	}
	return post, nil
}

// GetPostByID возвращает пост по ID
func (s *PostgresStorage) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	log.Printf("Fetching post with ID: %s", id)
	row := s.DB.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts p WHERE p.id=$1", id)
	post, err := scanPost(row)
	if err != nil {
		log.Println("Error fetching post:", err)
		return nil, notFound(err, "post "+id)
	}
	return post, nil
}

func (s *PostgresStorage) UpdatePost(ctx context.Context, post models.Post) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE posts SET title=$2, text=$3, pub_date=$4, location_id=$5, category_id=$6, is_published=$7, image=$8
		WHERE id=$1`,
		post.ID, post.Title, post.Text, post.PubDate, post.LocationID, post.CategoryID,
		post.IsPublished, post.Image)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("post references: %w", ErrNotFound)
		}
		return err
	}
	return requireAffected(res, "post "+post.ID)
}

// DeletePost удаляет пост, комментарии удаляет ON DELETE CASCADE
func (s *PostgresStorage) DeletePost(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM posts WHERE id=$1", id)
	if err != nil {
		return err
	}
	return requireAffected(res, "post "+id)
}

// postWhere собирает WHERE для фильтра, аргументы нумеруются с $1
func postWhere(filter PostFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		conds = append(conds, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		conds = append(conds, fmt.Sprintf("p.author_id = $%d", len(args)))
	}
	if filter.PublicAt != nil {
		args = append(args, *filter.PublicAt)
		conds = append(conds, fmt.Sprintf(
			"p.is_published AND p.pub_date <= $%d AND EXISTS (SELECT 1 FROM categories cat WHERE cat.id = p.category_id AND cat.is_published)",
			len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListPosts возвращает посты под фильтром, новые по pub_date первыми
func (s *PostgresStorage) ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	where, args := postWhere(filter)
	query := "SELECT " + postColumns + " FROM posts p" + where + " ORDER BY p.pub_date DESC, p.created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Println("Error fetching posts:", err)
		return nil, err
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			log.Println("Error scanning post row:", err)
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func (s *PostgresStorage) CountPosts(ctx context.Context, filter PostFilter) (int, error) {
	where, args := postWhere(filter)
	var count int
	err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts p"+where, args...).Scan(&count)
	return count, err
}

// AddComment сохраняет комментарий и отправляет его в NOTIFY
func (s *PostgresStorage) AddComment(ctx context.Context, comment models.Comment) (*models.Comment, error) {
	log.Printf("Adding comment to post %s", comment.PostID)
	comment.ID = uuid.New().String()
	comment.CreatedAt = time.Now().UTC()

	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO comments (id, post_id, author_id, text, created_at) VALUES ($1, $2, $3, $4, $5)",
		comment.ID, comment.PostID, comment.AuthorID, comment.Text, comment.CreatedAt)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return nil, fmt.Errorf("post %s: %w", comment.PostID, ErrNotFound)
		}
		log.Println("DB Insert Error:", err)
		return nil, err
	}

	payload, err := json.Marshal(comment)
	if err != nil {
		return nil, err
	}
	// Комментарий уже сохранён, ошибка уведомления не отменяет его
	if _, err := s.DB.ExecContext(ctx, "SELECT pg_notify($1, $2)", commentsChannel, string(payload)); err != nil {
		log.Println("Notification error:", err)
	}

	log.Printf("Comment added: %s", comment.ID)
	return &comment, nil
}

func (s *PostgresStorage) GetCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	err := s.DB.QueryRowContext(ctx,
		"SELECT id, post_id, author_id, text, created_at FROM comments WHERE id=$1", id).
		Scan(&comment.ID, &comment.PostID, &comment.AuthorID, &comment.Text, &comment.CreatedAt)
	if err != nil {
		return nil, notFound(err, "comment "+id)
	}
	return &comment, nil
}

func (s *PostgresStorage) UpdateComment(ctx context.Context, comment models.Comment) error {
	res, err := s.DB.ExecContext(ctx, "UPDATE comments SET text=$2 WHERE id=$1", comment.ID, comment.Text)
	if err != nil {
		return err
	}
	return requireAffected(res, "comment "+comment.ID)
}

func (s *PostgresStorage) DeleteComment(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM comments WHERE id=$1", id)
	if err != nil {
		return err
	}
	return requireAffected(res, "comment "+id)
}

// GetCommentsByPostID возвращает комментарии к посту, новые первыми
func (s *PostgresStorage) GetCommentsByPostID(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error) {
	log.Printf("Getting comment by post id %s", postID)
	var exists bool
	if err := s.DB.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM posts WHERE id=$1)", postID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}

	query := "SELECT id, post_id, author_id, text, created_at FROM comments WHERE post_id=$1 ORDER BY created_at DESC"
	args := []any{postID}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []*models.Comment{}
	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(&comment.ID, &comment.PostID, &comment.AuthorID, &comment.Text, &comment.CreatedAt); err != nil {
			log.Println(err)
			return nil, err
		}
		comments = append(comments, &comment)
	}
	return comments, rows.Err()
}

// SubscribeToComments слушает comments_channel через pq.Listener до отмены ctx
func (s *PostgresStorage) SubscribeToComments(ctx context.Context, postID string) (<-chan *models.Comment, error) {
	log.Printf("Subscribing to comments for post %s", postID)

	listener := pq.NewListener(s.DataSource, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Println("Postgres Listener error:", err)
		}
	})
	if err := listener.Listen(commentsChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", commentsChannel, err)
	}

	ch := make(chan *models.Comment)
	go func() {
		defer close(ch)
		defer listener.Close()

		ticker := time.NewTicker(90 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Проверяем соединение
				if err := listener.Ping(); err != nil {
					log.Println("Postgres Listener ping error:", err)
					return
				}
			case notification := <-listener.Notify:
				// nil приходит после переподключения
				if notification == nil {
					continue
				}
				var comment models.Comment
				if err := json.Unmarshal([]byte(notification.Extra), &comment); err != nil {
					log.Printf("Error parsing notification payload: %v", err)
					continue
				}
				if comment.PostID != postID {
					continue
				}
				select {
				case ch <- &comment:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	log.Printf("Listening for comments on %s", commentsChannel)
	return ch, nil
}
