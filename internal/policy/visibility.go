// Package policy решает, что видит и что может менять пользователь.
// Все функции чистые: actor/viewer передаётся явно, nil означает анонима.
package policy

import (
	"time"

	"github.com/MosinFAM/blogicum/internal/models"
)

// PostPublic - пост виден всем: опубликован, его категория опубликована,
// дата публикации наступила
func PostPublic(post *models.Post, category *models.Category, now time.Time) bool {
	if post == nil || category == nil {
		return false
	}
	return post.IsPublished && category.IsPublished && !post.PubDate.After(now)
}

// PostVisible - автор видит свой пост всегда, остальные только публичный
func PostVisible(post *models.Post, category *models.Category, viewer *models.User, now time.Time) bool {
	if post == nil {
		return false
	}
	if IsAuthor(viewer, post) {
		return true
	}
	return PostPublic(post, category, now)
}

func CategoryVisible(category *models.Category) bool {
	return category != nil && category.IsPublished
}

func LocationVisible(location *models.Location) bool {
	return location != nil && location.IsPublished
}

// ProfileShowsAll - на своём профиле пользователь видит все свои посты
// без фильтров, на чужом только публичные
func ProfileShowsAll(viewer, owner *models.User) bool {
	return viewer != nil && owner != nil && viewer.ID == owner.ID
}
