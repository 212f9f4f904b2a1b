package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

// ErrCategoryInUse rejects deleting a category still referenced by
// transactions. The precondition is an explicit count check, not a
// constraint violation.
var ErrCategoryInUse = errors.New("category is in use")

// ErrEmptyName rejects blank category names before any write.
var ErrEmptyName = errors.New("category name is empty")

// CategoryService manages the category registry: creation order defines
// display order, renames cascade, deletes are guarded.
type CategoryService struct {
	storage *storage.SQLiteRepository
}

func NewCategoryService(storage *storage.SQLiteRepository) *CategoryService {
	return &CategoryService{storage: storage}
}

func (s *CategoryService) Create(ctx context.Context, ownerID, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, ErrEmptyName
	}
	c, err := s.storage.InsertCategory(ctx, ownerID, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// Seed bulk-creates categories, skipping names that already exist.
func (s *CategoryService) Seed(ctx context.Context, ownerID string, names []string) error {
	var cleaned []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			cleaned = append(cleaned, n)
		}
	}
	if len(cleaned) == 0 {
		return ErrEmptyName
	}
	if err := s.storage.InsertCategories(ctx, ownerID, cleaned); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	return nil
}

func (s *CategoryService) List(ctx context.Context, ownerID string) ([]core.Category, error) {
	cats, err := s.storage.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// Registry returns the owner's category names as a validated set in
// display order.
func (s *CategoryService) Registry(ctx context.Context, ownerID string) (core.Registry, error) {
	cats, err := s.storage.ListCategories(ctx, ownerID)
	if err != nil {
		return core.Registry{}, fmt.Errorf("list categories: %w", err)
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return core.NewRegistry(names), nil
}

// Rename renames a category and cascades to every transaction and budget
// referencing the old name.
func (s *CategoryService) Rename(ctx context.Context, ownerID, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrEmptyName
	}
	if newName == oldName {
		return nil
	}
	if err := s.storage.RenameCategory(ctx, ownerID, oldName, newName); err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	return nil
}

// Delete removes a category after checking no transaction references it.
// Budgets for the category are deleted as a cascade.
func (s *CategoryService) Delete(ctx context.Context, ownerID, name string) error {
	n, err := s.storage.CountTransactionsByCategory(ctx, ownerID, name)
	if err != nil {
		return fmt.Errorf("count category usage: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %d transactions reference %q", ErrCategoryInUse, n, name)
	}

	if err := s.storage.DeleteCategory(ctx, ownerID, name); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	slog.InfoContext(ctx, "Category deleted", "name", name)
	return nil
}
