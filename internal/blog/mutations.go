package blog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/MosinFAM/blogicum/internal/apperr"
	"github.com/MosinFAM/blogicum/internal/models"
	"github.com/MosinFAM/blogicum/internal/policy"
	"github.com/MosinFAM/blogicum/internal/storage"
)

// checkPostRefs проверяет, что категория и место из формы существуют
func (s *Service) checkPostRefs(ctx context.Context, in PostInput) (map[string]string, error) {
	fields := map[string]string{}
	if in.CategoryID != "" {
		if _, err := s.storage.GetCategoryByID(ctx, in.CategoryID); err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("get category: %w", err)
			}
			fields["category"] = "Select a valid choice. That choice is not one of the available choices."
		}
	}
	if in.LocationID != "" {
		if _, err := s.storage.GetLocationByID(ctx, in.LocationID); err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("get location: %w", err)
			}
			fields["location"] = "Select a valid choice. That choice is not one of the available choices."
		}
	}
	return fields, nil
}

func (s *Service) validatePost(ctx context.Context, in PostInput) error {
	extra, err := s.checkPostRefs(ctx, in)
	if err != nil {
		return err
	}
	return s.validate(in, extra)
}

func optional(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func (s *Service) removeImage(name *string) {
	if s.media == nil || name == nil {
		return
	}
	if err := s.media.Remove(*name); err != nil {
		log.Printf("Failed to remove image %s: %v", *name, err)
	}
}

// CreatePost создаёт пост от имени actor; автор из формы не принимается
func (s *Service) CreatePost(ctx context.Context, actor *models.User, in PostInput) (*models.Post, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validatePost(ctx, in); err != nil {
		return nil, err
	}

	post := models.Post{
		Title:       in.Title,
		Text:        in.Text,
		AuthorID:    &actor.ID,
		LocationID:  optional(in.LocationID),
		CategoryID:  in.CategoryID,
		IsPublished: boolOr(in.IsPublished, true),
		Image:       in.Image,
	}
	if in.PubDate != nil && !in.PubDate.IsZero() {
		post.PubDate = in.PubDate.UTC()
	} else {
		post.PubDate = s.now().UTC()
	}

	created, err := s.storage.AddPost(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("add post: %w", err)
	}
	log.Printf("Post %s created by %s", created.ID, actor.Username)
	return &created, nil
}

// EditablePost находит пост и проверяет, что actor - его автор.
// Вызывается до разбора формы, чтобы чужой пост не доходил до валидации.
func (s *Service) EditablePost(ctx context.Context, actor *models.User, id string) (*models.Post, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	post, err := s.storage.GetPostByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "post")
	}
	if !policy.CanEditPost(actor, post) {
		return nil, apperr.Forbidden("only the author can change this post")
	}
	return post, nil
}

// UpdatePost перезаписывает поля поста; пустая дата оставляет прежнюю,
// отсутствующий is_published снимает пост с публикации
func (s *Service) UpdatePost(ctx context.Context, actor *models.User, id string, in PostInput) (*models.Post, error) {
	post, err := s.EditablePost(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validatePost(ctx, in); err != nil {
		return nil, err
	}

	updated := *post
	updated.Title = in.Title
	updated.Text = in.Text
	updated.LocationID = optional(in.LocationID)
	updated.CategoryID = in.CategoryID
	// Снятый флажок форма не присылает: отсутствие поля - скрыть пост
	updated.IsPublished = boolOr(in.IsPublished, false)
	if in.PubDate != nil && !in.PubDate.IsZero() {
		updated.PubDate = in.PubDate.UTC()
	}
	if in.Image != nil {
		updated.Image = in.Image
	}

	if err := s.storage.UpdatePost(ctx, updated); err != nil {
		return nil, lookupErr(err, "post")
	}
	if in.Image != nil && post.Image != nil && *post.Image != *in.Image {
		s.removeImage(post.Image)
	}
	log.Printf("Post %s updated by %s", id, actor.Username)
	return &updated, nil
}

// DeletePost удаляет пост автора вместе с комментариями и изображением
func (s *Service) DeletePost(ctx context.Context, actor *models.User, id string) error {
	post, err := s.EditablePost(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.storage.DeletePost(ctx, id); err != nil {
		return lookupErr(err, "post")
	}
	s.removeImage(post.Image)
	log.Printf("Post %s deleted by %s", id, actor.Username)
	return nil
}

// AddComment добавляет комментарий к посту, который actor может видеть
func (s *Service) AddComment(ctx context.Context, actor *models.User, postID string, in CommentInput) (*models.Comment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if _, _, err := s.visiblePost(ctx, postID, actor); err != nil {
		return nil, err
	}
	if err := s.validate(in, nil); err != nil {
		return nil, err
	}

	comment, err := s.storage.AddComment(ctx, models.Comment{PostID: postID, AuthorID: actor.ID, Text: in.Text})
	if err != nil {
		return nil, lookupErr(err, "post")
	}
	return comment, nil
}

// editableComment находит комментарий поста postID и проверяет авторство.
// Комментарий другого поста - not found.
func (s *Service) editableComment(ctx context.Context, actor *models.User, postID, commentID string) (*models.Comment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	comment, err := s.storage.GetCommentByID(ctx, commentID)
	if err != nil {
		return nil, lookupErr(err, "comment")
	}
	if comment.PostID != postID {
		return nil, lookupErr(storage.ErrNotFound, "comment")
	}
	if !policy.CanEditComment(actor, comment) {
		return nil, apperr.Forbidden("only the author can change this comment")
	}
	return comment, nil
}

func (s *Service) EditComment(ctx context.Context, actor *models.User, postID, commentID string, in CommentInput) (*models.Comment, error) {
	comment, err := s.editableComment(ctx, actor, postID, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(in, nil); err != nil {
		return nil, err
	}

	comment.Text = in.Text
	if err := s.storage.UpdateComment(ctx, *comment); err != nil {
		return nil, lookupErr(err, "comment")
	}
	return comment, nil
}

func (s *Service) DeleteComment(ctx context.Context, actor *models.User, postID, commentID string) error {
	if _, err := s.editableComment(ctx, actor, postID, commentID); err != nil {
		return err
	}
	if err := s.storage.DeleteComment(ctx, commentID); err != nil {
		return lookupErr(err, "comment")
	}
	log.Printf("Comment %s deleted by %s", commentID, actor.Username)
	return nil
}
