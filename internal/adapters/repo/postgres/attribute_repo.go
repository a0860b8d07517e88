package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calzavia/tienda/internal/domain"
)

type AttributeRepo struct{ db *gorm.DB }

func NewAttributeRepo(db *gorm.DB) *AttributeRepo { return &AttributeRepo{db: db} }

// SaveKind es upsert por nombre: los ejes son inmutables una vez que hay
// variaciones que los referencian, así que repetir el nombre no duplica.
func (r *AttributeRepo) SaveKind(ctx context.Context, k *domain.AttributeKind) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.AttributeKind
		err := tx.Where("name = ?", k.Name).First(&existing).Error
		if err == nil {
			k.ID = existing.ID
			return nil
		}
		if err == gorm.ErrRecordNotFound {
			return tx.Create(k).Error
		}
		return err
	})
}

func (r *AttributeRepo) ListKinds(ctx context.Context) ([]domain.AttributeKind, error) {
	var list []domain.AttributeKind
	if err := r.db.WithContext(ctx).
		Preload("Values", func(db *gorm.DB) *gorm.DB { return db.Order("value asc") }).
		Order("name asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *AttributeRepo) DeleteKind(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("kind_id = ?", id).Delete(&domain.AttributeValue{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.AttributeKind{}, "id = ?", id).Error
	})
}

func (r *AttributeRepo) SaveValue(ctx context.Context, v *domain.AttributeValue) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.AttributeValue
		err := tx.Where("kind_id = ? AND value = ?", v.KindID, v.Value).First(&existing).Error
		if err == nil {
			v.ID = existing.ID
			return nil
		}
		if err == gorm.ErrRecordNotFound {
			return tx.Create(v).Error
		}
		return err
	})
}

func (r *AttributeRepo) DeleteValue(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.AttributeValue{}, "id = ?", id).Error
}
