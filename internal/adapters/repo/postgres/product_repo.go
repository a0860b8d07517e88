package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calzavia/tienda/internal/domain"
)

type ProductRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) Save(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *ProductRepo) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).Preload("Images").Preload("Variations").First(&p, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).Preload("Images").Preload("Variations").First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	var list []domain.Product
	q := r.db.WithContext(ctx).Model(&domain.Product{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	if f.Query != "" {
		like := "%" + strings.TrimSpace(f.Query) + "%"
		q = q.Where("LOWER(name) LIKE LOWER(?) OR LOWER(category) LIKE LOWER(?) OR LOWER(brand) LIKE LOWER(?)", like, like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	switch f.Sort {
	case "price_desc":
		q = q.Order("price desc")
	case "price_asc":
		q = q.Order("price asc")
	case "newest":
		q = q.Order("created_at desc")
	default:
		q = q.Order("name asc")
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	offset := (f.Page - 1) * f.PageSize
	if err := q.Offset(offset).Limit(f.PageSize).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Preload("Variations").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *ProductRepo) DeleteFullBySlug(ctx context.Context, slug string) ([]string, error) {
	if slug == "" {
		return nil, errors.New("slug vacío")
	}
	var p domain.Product
	if err := r.db.WithContext(ctx).Preload("Images").First(&p, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	imgPaths := []string{}
	for _, im := range p.Images {
		imgPaths = append(imgPaths, im.URL)
	}
	return imgPaths, r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", p.ID).Delete(&domain.Image{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", p.ID).Delete(&domain.Variation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Product{}, "id = ?", p.ID).Error
	})
}

func (r *ProductRepo) DistinctCategories(ctx context.Context) ([]string, error) {
	cats := []string{}
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Distinct("category").Where("category <> ''").Order("category asc").Pluck("category", &cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

func (r *ProductRepo) AddImages(ctx context.Context, productID uuid.UUID, imgs []domain.Image) error {
	if len(imgs) == 0 {
		return nil
	}
	for i := range imgs {
		if imgs[i].ID == uuid.Nil {
			imgs[i].ID = uuid.New()
		}
		imgs[i].ProductID = productID
		if imgs[i].CreatedAt.IsZero() {
			imgs[i].CreatedAt = time.Now()
		}
	}
	return r.db.WithContext(ctx).Create(&imgs).Error
}

func (r *ProductRepo) ClearImages(ctx context.Context, productID uuid.UUID) ([]string, error) {
	var list []domain.Image
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Find(&list).Error; err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(list))
	for _, im := range list {
		paths = append(paths, im.URL)
	}
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&domain.Image{}).Error; err != nil {
		return nil, err
	}
	return paths, nil
}

// --- Variaciones ---

func (r *ProductRepo) SaveVariation(ctx context.Context, v *domain.Variation) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(v).Error
}

func (r *ProductRepo) ListVariations(ctx context.Context, productID uuid.UUID) ([]domain.Variation, error) {
	var list []domain.Variation
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("created_at asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ProductRepo) FindVariation(ctx context.Context, id uuid.UUID) (*domain.Variation, error) {
	var v domain.Variation
	if err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *ProductRepo) DeleteVariation(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errors.New("variation id vacío")
	}
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Variation{}).Error
}

// ReserveStock descuenta con un UPDATE condicional en una sola sentencia:
// el WHERE stock >= qty evita sobrevender bajo checkouts concurrentes.
func (r *ProductRepo) ReserveStock(ctx context.Context, variationID uuid.UUID, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	res := r.db.WithContext(ctx).Model(&domain.Variation{}).
		Where("id = ? AND stock >= ?", variationID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrOutOfStock
	}
	return nil
}

func (r *ProductRepo) RestoreStock(ctx context.Context, variationID uuid.UUID, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return r.db.WithContext(ctx).Model(&domain.Variation{}).
		Where("id = ?", variationID).
		UpdateColumn("stock", gorm.Expr("COALESCE(stock,0) + ?", qty)).Error
}
