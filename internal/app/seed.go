package app

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/calzavia/tienda/internal/domain"
)

// backfillSlugs repara productos viejos cargados sin slug.
func backfillSlugs(db *gorm.DB) error {
	var products []domain.Product
	if err := db.Where("slug IS NULL OR slug = ''").Find(&products).Error; err != nil {
		return err
	}
	for _, p := range products {
		base := slug.Make(p.Name)
		if base == "" {
			base = p.ID.String()[:8]
		}
		s := base

		var count int64
		i := 1
		for {
			if err := db.Model(&domain.Product{}).Where("slug = ?", s).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				break
			}
			i++
			s = fmt.Sprintf("%s-%d", base, i)
		}
		if err := db.Model(&domain.Product{}).Where("id = ?", p.ID).Update("slug", s).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedAttributeKinds deja los dos ejes con los que arranca toda tienda de
// calzado. Sólo corre sobre una tabla vacía.
func seedAttributeKinds(db *gorm.DB) error {
	var count int64
	if err := db.Model(&domain.AttributeKind{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seeds := map[string][]string{
		"talla": {"35", "36", "37", "38", "39", "40", "41", "42", "43"},
		"color": {"negro", "blanco", "azul", "rojo", "beige", "café"},
	}
	for name, values := range seeds {
		kind := domain.AttributeKind{ID: uuid.New(), Name: name}
		if err := db.Create(&kind).Error; err != nil {
			return err
		}
		for _, v := range values {
			val := domain.AttributeValue{ID: uuid.New(), KindID: kind.ID, Value: v}
			if err := db.Create(&val).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
