package blog

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/MosinFAM/blogicum/internal/apperr"
	"github.com/MosinFAM/blogicum/internal/models"
	"github.com/MosinFAM/blogicum/internal/policy"
	"github.com/MosinFAM/blogicum/internal/storage"
)

// Справочники категорий и местоположений ведёт персонал.

func requireStaff(actor *models.User) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !policy.CanManageCatalog(actor) {
		return apperr.Forbidden("staff only")
	}
	return nil
}

func (s *Service) CreateCategory(ctx context.Context, actor *models.User, in CategoryInput) (*models.Category, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if err := s.validate(in, nil); err != nil {
		return nil, err
	}

	category, err := s.storage.AddCategory(ctx, models.Category{
		Title:       in.Title,
		Description: in.Description,
		Slug:        in.Slug,
		IsPublished: boolOr(in.IsPublished, true),
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.Invalid("invalid form", map[string]string{
				"slug": "Category with this slug already exists.",
			})
		}
		return nil, fmt.Errorf("add category: %w", err)
	}
	return &category, nil
}

// DeleteCategory удаляет категорию; категорию с постами удалить нельзя
func (s *Service) DeleteCategory(ctx context.Context, actor *models.User, slug string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	category, err := s.storage.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return lookupErr(err, "category")
	}
	if err := s.storage.DeleteCategory(ctx, category.ID); err != nil {
		if errors.Is(err, storage.ErrCategoryInUse) {
			return apperr.Conflict("category still has posts", err)
		}
		return lookupErr(err, "category")
	}
	log.Printf("Category %s deleted by %s", slug, actor.Username)
	return nil
}

func (s *Service) CreateLocation(ctx context.Context, actor *models.User, in LocationInput) (*models.Location, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if err := s.validate(in, nil); err != nil {
		return nil, err
	}

	location, err := s.storage.AddLocation(ctx, models.Location{
		Name:        in.Name,
		IsPublished: boolOr(in.IsPublished, true),
	})
	if err != nil {
		return nil, fmt.Errorf("add location: %w", err)
	}
	return &location, nil
}

// DeleteLocation удаляет место, посты остаются без места
func (s *Service) DeleteLocation(ctx context.Context, actor *models.User, id string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := s.storage.DeleteLocation(ctx, id); err != nil {
		return lookupErr(err, "location")
	}
	log.Printf("Location %s deleted by %s", id, actor.Username)
	return nil
}
