package models

import "time"

// Post - публикация в блоге
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	PubDate     time.Time `json:"pubDate"` // дата в будущем = отложенная публикация
	AuthorID    *string   `json:"authorId,omitempty"`
	LocationID  *string   `json:"locationId,omitempty"`
	CategoryID  string    `json:"categoryId"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	Image       *string   `json:"image,omitempty"` // путь к загруженному файлу

	// Заполняется хранилищем при выборке списков
	CommentCount int `json:"commentCount"`
}

// HasAuthor сообщает, принадлежит ли пост пользователю userID
func (p *Post) HasAuthor(userID string) bool {
	return p.AuthorID != nil && *p.AuthorID == userID
}
