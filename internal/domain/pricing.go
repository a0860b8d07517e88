package domain

import "math"

// Los montos son pesos colombianos enteros: COP no tiene subdivisión, así que
// acá no existe redondeo de centavos.
type PricingInput struct {
	UnitPrice   int64
	PromoPrice  int64 // precio "antes", tachado; 0 = no hay
	BundlePrice int64 // precio fijo por exactamente 2 unidades; 0 = no hay
	Quantity    int
}

type Quote struct {
	Total int64
	// CompareAt es la cifra "antes" para mostrar tachada; 0 = no se muestra.
	// Nunca participa del total.
	CompareAt     int64
	BundleApplied bool
}

// ComputeTotal calcula el monto a cobrar por una cantidad de unidades.
//
// Regla por defecto: UnitPrice * Quantity. Con exactamente 2 unidades y
// BundlePrice definido, el total es BundlePrice tal cual: el precio unitario
// no interviene ni parcialmente. PromoPrice jamás entra al total, sólo arma
// la cifra comparativa.
func ComputeTotal(in PricingInput) (Quote, error) {
	if in.Quantity <= 0 {
		return Quote{}, ErrInvalidQuantity
	}

	if in.Quantity == 2 && in.BundlePrice > 0 {
		q := Quote{Total: in.BundlePrice, BundleApplied: true}
		if in.PromoPrice > 0 {
			q.CompareAt = in.PromoPrice * 2
		} else {
			q.CompareAt = in.UnitPrice * 2
		}
		return q, nil
	}

	q := Quote{Total: in.UnitPrice * int64(in.Quantity)}
	if in.PromoPrice > 0 {
		q.CompareAt = in.PromoPrice * int64(in.Quantity)
	}
	return q, nil
}

// DiscountPercent devuelve el porcentaje de descuento entre la cifra "antes"
// y el total real, redondeado al entero más cercano. Truncar acá subestimaría
// el descuento sistemáticamente en los banners.
func DiscountPercent(before, now int64) int {
	if before <= 0 || now >= before {
		return 0
	}
	return int(math.Round(float64(before-now) / float64(before) * 100))
}
