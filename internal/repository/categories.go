package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/domain"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
	"github.com/MrSnakeDoc/bookmarker/internal/storage"
)

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

const selectCategories = `
	SELECT c.id, c.name, c.color, c.created_at,
		(SELECT COUNT(*) FROM bookmark_categories bc WHERE bc.category_id = c.id) AS count
	FROM categories c`

// CategoryRepository stores categories. Deleting one unlinks its bookmarks.
type CategoryRepository struct {
	db    DB
	log   logger.Logger
	clock Clock
	pick  func(n int) int
}

func NewCategoryRepository(db DB, log logger.Logger) *CategoryRepository {
	return &CategoryRepository{db: db, log: log, pick: rand.IntN}
}

// WithClock replaces the time source.
func (r *CategoryRepository) WithClock(c Clock) *CategoryRepository {
	r.clock = c
	return r
}

func categoryFromRow(row storage.Row) domain.Category {
	return domain.Category{
		ID:        asInt64(row["id"]),
		Name:      asString(row["name"]),
		Color:     asString(row["color"]),
		CreatedAt: asInt64(row["created_at"]),
		Count:     asInt64(row["count"]),
	}
}

func (r *CategoryRepository) one(ctx context.Context, where string, params ...any) (*domain.Category, error) {
	row, err := r.db.Row(ctx, selectCategories+" WHERE "+where, params...)
	if err != nil || row == nil {
		return nil, err
	}
	c := categoryFromRow(row)
	return &c, nil
}

// GetAllCategories returns every category with its bookmark count, by name.
func (r *CategoryRepository) GetAllCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.Rows(ctx, selectCategories+" ORDER BY c.name ASC")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, categoryFromRow(row))
	}
	return out, nil
}

// GetCategory returns the category or nil when it does not exist.
func (r *CategoryRepository) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return r.one(ctx, "c.id = ?", id)
}

// GetCategoryByName returns the category with that exact name, or nil.
func (r *CategoryRepository) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	return r.one(ctx, "c.name = ?", strings.TrimSpace(name))
}

// RandomColor picks a color from the category palette.
func (r *CategoryRepository) RandomColor() string {
	return domain.CategoryPalette[r.pick(len(domain.CategoryPalette))]
}

// ValidColor reports whether s is a #rgb or #rrggbb color.
func ValidColor(s string) bool { return hexColor.MatchString(s) }

func validateColor(color string) error {
	if !hexColor.MatchString(color) {
		return apperr.Newf(apperr.KindValidation, "category color %q is not a hex color", color)
	}
	return nil
}

// AddCategory requires a unique name. Without a color, one is drawn from the palette.
func (r *CategoryRepository) AddCategory(ctx context.Context, in domain.CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.New(apperr.KindValidation, "category name is required")
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = r.RandomColor()
	} else if err := validateColor(color); err != nil {
		return nil, err
	}

	existing, err := r.GetCategoryByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Newf(apperr.KindValidation, "category %q already exists", name)
	}

	row, err := r.db.Row(ctx,
		"INSERT INTO categories (name, color, created_at) VALUES (?, ?, ?) RETURNING id",
		name, color, r.clock.millis())
	if err != nil {
		return nil, fmt.Errorf("add category: %w", err)
	}
	id := asInt64(row["id"])

	r.log.Debug("category added", logger.Int64("id", id), logger.String("name", name))
	return r.GetCategory(ctx, id)
}

// UpdateCategory applies the non-nil fields. Returns nil when it does not exist.
func (r *CategoryRepository) UpdateCategory(ctx context.Context, id int64, patch domain.CategoryPatch) (*domain.Category, error) {
	var sets []string
	var params []any

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.New(apperr.KindValidation, "category name is required")
		}
		other, err := r.GetCategoryByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != id {
			return nil, apperr.Newf(apperr.KindValidation, "category %q already exists", name)
		}
		sets = append(sets, "name = ?")
		params = append(params, name)
	}
	if patch.Color != nil {
		color := strings.TrimSpace(*patch.Color)
		if err := validateColor(color); err != nil {
			return nil, err
		}
		sets = append(sets, "color = ?")
		params = append(params, color)
	}

	if len(sets) == 0 {
		return r.GetCategory(ctx, id)
	}

	params = append(params, id)
	row, err := r.db.Row(ctx,
		"UPDATE categories SET "+strings.Join(sets, ", ")+" WHERE id = ? RETURNING id", params...)
	if err != nil {
		return nil, fmt.Errorf("update category %d: %w", id, err)
	}
	if row == nil {
		return nil, nil
	}
	return r.GetCategory(ctx, id)
}

// DeleteCategory reports whether a category was removed. Its bookmarks stay,
// minus the link.
func (r *CategoryRepository) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	rows, err := r.db.Rows(ctx, "DELETE FROM categories WHERE id = ? RETURNING id", id)
	if err != nil {
		return false, fmt.Errorf("delete category %d: %w", id, err)
	}
	return len(rows) > 0, nil
}

// DeleteAllCategories removes every category and its links.
func (r *CategoryRepository) DeleteAllCategories(ctx context.Context) error {
	if err := r.db.Run(ctx, "DELETE FROM categories"); err != nil {
		return fmt.Errorf("delete all categories: %w", err)
	}
	return nil
}
