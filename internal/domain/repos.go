package domain

import (
	"context"

	"github.com/google/uuid"
)

type ProductRepo interface {
	Save(ctx context.Context, p *Product) error
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context, f ProductFilter) ([]Product, int64, error)
	DeleteFullBySlug(ctx context.Context, slug string) ([]string, error)
	DistinctCategories(ctx context.Context) ([]string, error)

	AddImages(ctx context.Context, productID uuid.UUID, imgs []Image) error
	ClearImages(ctx context.Context, productID uuid.UUID) ([]string, error)

	SaveVariation(ctx context.Context, v *Variation) error
	ListVariations(ctx context.Context, productID uuid.UUID) ([]Variation, error)
	FindVariation(ctx context.Context, id uuid.UUID) (*Variation, error)
	DeleteVariation(ctx context.Context, id uuid.UUID) error
	// ReserveStock descuenta qty sólo si hay stock suficiente; devuelve
	// ErrOutOfStock en caso contrario. Debe ser atómico a nivel fila.
	ReserveStock(ctx context.Context, variationID uuid.UUID, qty int) error
	RestoreStock(ctx context.Context, variationID uuid.UUID, qty int) error
}

type OrderRepo interface {
	Save(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, status OrderStatus, page, pageSize int) ([]Order, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error
	MarkNotified(ctx context.Context, id uuid.UUID) error
}

type CustomerRepo interface {
	Save(ctx context.Context, c *Customer) error
	FindByEmail(ctx context.Context, email string) (*Customer, error)
}

type CategoryRepo interface {
	Save(ctx context.Context, c *Category) error
	List(ctx context.Context) ([]Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type AttributeRepo interface {
	SaveKind(ctx context.Context, k *AttributeKind) error
	ListKinds(ctx context.Context) ([]AttributeKind, error)
	DeleteKind(ctx context.Context, id uuid.UUID) error
	SaveValue(ctx context.Context, v *AttributeValue) error
	DeleteValue(ctx context.Context, id uuid.UUID) error
}

type FileStorage interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Remove(ctx context.Context, path string) error
}

// OrderNotifier avisa por los canales configurados (WhatsApp, email, píxel)
// que entró una orden nueva. Mejor esfuerzo: los fallos se loguean, nunca
// bloquean el checkout.
type OrderNotifier interface {
	NotifyNewOrder(ctx context.Context, o *Order)
}
