package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/calzavia/tienda/internal/domain"
)

type ProductUC struct {
	Products   domain.ProductRepo
	Categories domain.CategoryRepo
	Attributes domain.AttributeRepo
}

func (uc *ProductUC) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	if f.PageSize == 0 {
		f.PageSize = 20
	}
	return uc.Products.List(ctx, f)
}

func (uc *ProductUC) GetBySlug(ctx context.Context, s string) (*domain.Product, error) {
	if s == "" {
		return nil, errors.New("slug vacío")
	}
	return uc.Products.FindBySlug(ctx, s)
}

func (uc *ProductUC) Create(ctx context.Context, p *domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("nombre vacío")
	}
	if p.Price < 0 || p.PromoPrice < 0 || p.BundlePrice < 0 {
		return errors.New("precio negativo")
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Slug == "" {
		p.Slug = slug.Make(p.Name)
	}
	return uc.Products.Save(ctx, p)
}

func (uc *ProductUC) Update(ctx context.Context, p *domain.Product) error {
	if p == nil || p.ID == uuid.Nil {
		return errors.New("product id")
	}
	if p.Price < 0 || p.PromoPrice < 0 || p.BundlePrice < 0 {
		return errors.New("precio negativo")
	}
	return uc.Products.Save(ctx, p)
}

func (uc *ProductUC) AddImages(ctx context.Context, productID uuid.UUID, imgs []domain.Image) error {
	return uc.Products.AddImages(ctx, productID, imgs)
}

func (uc *ProductUC) DeleteFullBySlug(ctx context.Context, s string) ([]string, error) {
	if s == "" {
		return nil, errors.New("slug vacío")
	}
	return uc.Products.DeleteFullBySlug(ctx, s)
}

func (uc *ProductUC) CategoryNames(ctx context.Context) ([]string, error) {
	return uc.Products.DistinctCategories(ctx)
}

// --- Variaciones ---

// CreateVariation rechaza combinaciones repetidas: dos variaciones del mismo
// producto nunca pueden compartir la combinación completa de atributos. La
// comparación es por combinación exacta, compartir un valor suelto no alcanza.
func (uc *ProductUC) CreateVariation(ctx context.Context, v *domain.Variation) error {
	if v == nil {
		return errors.New("variation nil")
	}
	if v.ProductID == uuid.Nil {
		return errors.New("product id")
	}
	if len(v.Attributes) == 0 {
		return errors.New("variación sin atributos")
	}
	if v.Stock < 0 {
		return errors.New("stock negativo")
	}
	existing, err := uc.Products.ListVariations(ctx, v.ProductID)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.ID != v.ID && e.SameCombination(*v) {
			return domain.ErrDuplicateVariation
		}
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return uc.Products.SaveVariation(ctx, v)
}

func (uc *ProductUC) UpdateVariation(ctx context.Context, v *domain.Variation) error {
	if v == nil || v.ID == uuid.Nil {
		return errors.New("variation id")
	}
	return uc.CreateVariation(ctx, v)
}

func (uc *ProductUC) DeleteVariation(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errors.New("variation id")
	}
	return uc.Products.DeleteVariation(ctx, id)
}

func (uc *ProductUC) ListVariations(ctx context.Context, productID uuid.UUID) ([]domain.Variation, error) {
	if productID == uuid.Nil {
		return nil, errors.New("product id")
	}
	return uc.Products.ListVariations(ctx, productID)
}

// --- Categorías ---

func (uc *ProductUC) SaveCategory(ctx context.Context, c *domain.Category) error {
	if c == nil || strings.TrimSpace(c.Name) == "" {
		return errors.New("nombre vacío")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Slug == "" {
		c.Slug = slug.Make(c.Name)
	}
	return uc.Categories.Save(ctx, c)
}

func (uc *ProductUC) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return uc.Categories.List(ctx)
}

func (uc *ProductUC) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errors.New("category id")
	}
	return uc.Categories.Delete(ctx, id)
}

// --- Atributos ---

func (uc *ProductUC) SaveAttributeKind(ctx context.Context, k *domain.AttributeKind) error {
	if k == nil || strings.TrimSpace(k.Name) == "" {
		return errors.New("nombre vacío")
	}
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return uc.Attributes.SaveKind(ctx, k)
}

func (uc *ProductUC) ListAttributeKinds(ctx context.Context) ([]domain.AttributeKind, error) {
	return uc.Attributes.ListKinds(ctx)
}

func (uc *ProductUC) DeleteAttributeKind(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errors.New("kind id")
	}
	return uc.Attributes.DeleteKind(ctx, id)
}

func (uc *ProductUC) SaveAttributeValue(ctx context.Context, v *domain.AttributeValue) error {
	if v == nil || strings.TrimSpace(v.Value) == "" {
		return errors.New("valor vacío")
	}
	if v.KindID == uuid.Nil {
		return errors.New("kind id")
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return uc.Attributes.SaveValue(ctx, v)
}

func (uc *ProductUC) DeleteAttributeValue(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errors.New("value id")
	}
	return uc.Attributes.DeleteValue(ctx, id)
}
