package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calzavia/tienda/internal/domain"
)

type CategoryRepo struct{ db *gorm.DB }

func NewCategoryRepo(db *gorm.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// Save guarda o actualiza una categoría; si ya existe el slug, actualiza
// nombre y posición en lugar de duplicar.
func (r *CategoryRepo) Save(ctx context.Context, c *domain.Category) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Category
		err := tx.Where("slug = ?", c.Slug).First(&existing).Error
		if err == nil {
			return tx.Model(&existing).Updates(map[string]any{"name": c.Name, "position": c.Position}).Error
		}
		if err == gorm.ErrRecordNotFound {
			return tx.Create(c).Error
		}
		return err
	})
}

func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	var list []domain.Category
	if err := r.db.WithContext(ctx).Order("position asc, name asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *CategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Category{}, "id = ?", id).Error
}
