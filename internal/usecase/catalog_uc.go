package usecase

import (
	"context"
	"errors"

	"github.com/calzavia/tienda/internal/domain"
)

// CatalogUC es el puente entre la UI de selección y el núcleo puro de
// resolución/precio: la UI pide opciones después de cada click y resuelve la
// variación recién cuando la selección está completa.
type CatalogUC struct {
	Products domain.ProductRepo
	Resolver domain.ResolverConfig
}

// Options devuelve los valores todavía elegibles de cada eje dado el estado
// actual de la selección.
func (uc *CatalogUC) Options(ctx context.Context, slug string, sel domain.Selection) (map[string][]string, error) {
	p, err := uc.Products.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	kinds := map[string]struct{}{}
	for _, v := range p.Variations {
		for k := range v.Attributes {
			kinds[k] = struct{}{}
		}
	}
	out := make(map[string][]string, len(kinds))
	for k := range kinds {
		out[k] = domain.AvailableValues(p.Variations, k, sel)
	}
	return out, nil
}

// Resolve convierte una selección completa en el pedido de línea que consume
// el creador de órdenes. Nunca construye un pedido sobre una variación sin
// stock o ambigua: esa es la invariante del OrderLineRequest.
func (uc *CatalogUC) Resolve(ctx context.Context, slug string, sel domain.Selection, qty int) (*domain.OrderLineRequest, *domain.Quote, error) {
	if qty <= 0 {
		return nil, nil, domain.ErrInvalidQuantity
	}
	p, err := uc.Products.FindBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	if !p.Active {
		return nil, nil, ErrProductoInactivo
	}
	v, err := domain.ResolveVariation(p.Variations, sel, uc.Resolver.RequiredKinds(p))
	if err != nil {
		return nil, nil, err
	}
	q, err := domain.ComputeTotal(domain.PricingInput{
		UnitPrice:   p.Price,
		PromoPrice:  p.PromoPrice,
		BundlePrice: p.BundlePrice,
		Quantity:    qty,
	})
	if err != nil {
		return nil, nil, err
	}
	return &domain.OrderLineRequest{VariationID: v.ID, Quantity: qty}, &q, nil
}

// QuoteFor calcula el precio de un producto sin resolver variación (la página
// de producto muestra el total apenas cambia la cantidad, antes de completar
// la selección).
func (uc *CatalogUC) QuoteFor(ctx context.Context, slug string, qty int) (*domain.Quote, error) {
	p, err := uc.Products.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	q, err := domain.ComputeTotal(domain.PricingInput{
		UnitPrice:   p.Price,
		PromoPrice:  p.PromoPrice,
		BundlePrice: p.BundlePrice,
		Quantity:    qty,
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ErrProductoInactivo: un producto despublicado no se puede cotizar ni
// resolver desde la tienda.
var ErrProductoInactivo = errors.New("producto inactivo")
