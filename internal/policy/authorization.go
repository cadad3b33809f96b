package policy

import "github.com/MosinFAM/blogicum/internal/models"

// IsAuthor проверяет, что actor - автор поста
func IsAuthor(actor *models.User, post *models.Post) bool {
	return actor != nil && post != nil && post.HasAuthor(actor.ID)
}

func CanEditPost(actor *models.User, post *models.Post) bool {
	return IsAuthor(actor, post)
}

// CanEditComment не проверяет принадлежность комментария посту,
// это делает вызывающий код (несовпадение = not found)
func CanEditComment(actor *models.User, comment *models.Comment) bool {
	return actor != nil && comment != nil && comment.AuthorID == actor.ID
}

func CanEditProfile(actor, target *models.User) bool {
	return actor != nil && target != nil && actor.ID == target.ID
}

// CanManageCatalog - категории и местоположения меняет только персонал
func CanManageCatalog(actor *models.User) bool {
	return actor != nil && actor.IsStaff
}
