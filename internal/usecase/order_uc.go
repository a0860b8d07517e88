package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/calzavia/tienda/internal/domain"
)

type OrderUC struct {
	Orders   domain.OrderRepo
	Products domain.ProductRepo
	Notifier domain.OrderNotifier
}

type CheckoutLine struct {
	ProductSlug string
	Line        domain.OrderLineRequest
}

type CheckoutInput struct {
	Email        string
	Name         string
	Phone        string
	Cedula       string
	Departamento string
	Ciudad       string
	Barrio       string
	Address      string
	Notes        string
	CustomerID   *uuid.UUID
	ShippingCost int64
	Lines        []CheckoutLine
}

// Checkout crea una orden contraentrega reservando stock línea por línea con
// el descuento condicional del repo (stock >= qty, atómico a nivel fila). Si
// una línea no alcanza, se devuelve el stock ya reservado y la orden no se
// crea: nunca queda una orden apuntando a stock que no se descontó.
func (uc *OrderUC) Checkout(ctx context.Context, in CheckoutInput) (*domain.Order, error) {
	if strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.Name) == "" {
		return nil, errors.New("datos de contacto incompletos")
	}
	if strings.TrimSpace(in.Phone) == "" {
		return nil, errors.New("teléfono requerido para contraentrega")
	}
	if len(in.Lines) == 0 {
		return nil, errors.New("carrito vacío")
	}

	o := &domain.Order{
		ID:            uuid.New(),
		Status:        domain.OrderStatusPending,
		Email:         strings.TrimSpace(in.Email),
		Name:          strings.TrimSpace(in.Name),
		Phone:         strings.TrimSpace(in.Phone),
		Cedula:        strings.TrimSpace(in.Cedula),
		Departamento:  in.Departamento,
		Ciudad:        in.Ciudad,
		Barrio:        in.Barrio,
		Address:       in.Address,
		DeliveryNotes: in.Notes,
		CustomerID:    in.CustomerID,
		ShippingCost:  in.ShippingCost,
	}

	type reserved struct {
		id  uuid.UUID
		qty int
	}
	var done []reserved
	rollback := func() {
		for _, r := range done {
			if err := uc.Products.RestoreStock(ctx, r.id, r.qty); err != nil {
				log.Error().Err(err).Str("variation", r.id.String()).Msg("no se pudo devolver stock reservado")
			}
		}
	}

	var total int64
	for _, cl := range in.Lines {
		p, err := uc.Products.FindBySlug(ctx, cl.ProductSlug)
		if err != nil {
			rollback()
			return nil, err
		}
		var v *domain.Variation
		for i := range p.Variations {
			if p.Variations[i].ID == cl.Line.VariationID {
				v = &p.Variations[i]
				break
			}
		}
		if v == nil {
			rollback()
			return nil, domain.ErrNoMatchingVariation
		}
		q, err := domain.ComputeTotal(domain.PricingInput{
			UnitPrice:   p.Price,
			PromoPrice:  p.PromoPrice,
			BundlePrice: p.BundlePrice,
			Quantity:    cl.Line.Quantity,
		})
		if err != nil {
			rollback()
			return nil, err
		}
		if err := uc.Products.ReserveStock(ctx, v.ID, cl.Line.Quantity); err != nil {
			rollback()
			return nil, err
		}
		done = append(done, reserved{id: v.ID, qty: cl.Line.Quantity})

		vid := v.ID
		pid := p.ID
		unit := p.Price
		if q.BundleApplied {
			// con combo el unitario no aplica; se guarda el prorrateo
			// truncado sólo como referencia de línea. Lo que se cobra es
			// LineTotal: con combos impares UnitPrice*Qty puede diferir
			// en un peso.
			unit = q.Total / int64(cl.Line.Quantity)
		}
		o.Items = append(o.Items, domain.OrderItem{
			ID:            uuid.New(),
			ProductID:     &pid,
			VariationID:   &vid,
			Title:         p.Name,
			SKU:           v.SKU,
			Attributes:    v.Attributes,
			Qty:           cl.Line.Quantity,
			UnitPrice:     unit,
			LineTotal:     q.Total,
			BundleApplied: q.BundleApplied,
		})
		total += q.Total
	}
	o.Total = total + in.ShippingCost

	if err := uc.Orders.Save(ctx, o); err != nil {
		rollback()
		return nil, err
	}

	if uc.Notifier != nil {
		go uc.Notifier.NotifyNewOrder(context.WithoutCancel(ctx), o)
	}
	return o, nil
}

func (uc *OrderUC) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if id == uuid.Nil {
		return nil, errors.New("order id")
	}
	return uc.Orders.FindByID(ctx, id)
}

func (uc *OrderUC) List(ctx context.Context, status domain.OrderStatus, page, pageSize int) ([]domain.Order, int64, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	return uc.Orders.List(ctx, status, page, pageSize)
}

func (uc *OrderUC) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	switch status {
	case domain.OrderStatusPending, domain.OrderStatusConfirmed, domain.OrderStatusDispatched, domain.OrderStatusDelivered:
		return uc.Orders.UpdateStatus(ctx, id, status)
	case domain.OrderStatusCancelled:
		return uc.Cancel(ctx, id)
	}
	return errors.New("estado desconocido")
}

// Cancel devuelve el stock de cada línea y marca la orden cancelada. Las
// variaciones nunca se borran al cancelar: sólo se restaura su stock.
func (uc *OrderUC) Cancel(ctx context.Context, id uuid.UUID) error {
	o, err := uc.Orders.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if o.Status == domain.OrderStatusCancelled {
		return nil
	}
	for _, it := range o.Items {
		if it.VariationID == nil {
			continue
		}
		if err := uc.Products.RestoreStock(ctx, *it.VariationID, it.Qty); err != nil {
			log.Error().Err(err).Str("variation", it.VariationID.String()).Msg("restaurar stock al cancelar")
			return err
		}
	}
	return uc.Orders.UpdateStatus(ctx, id, domain.OrderStatusCancelled)
}
