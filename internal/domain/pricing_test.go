package domain

import (
	"errors"
	"testing"
)

func TestComputeTotal(t *testing.T) {
	cases := []struct {
		name        string
		in          PricingInput
		wantTotal   int64
		wantCompare int64
		wantBundle  bool
	}{
		{
			name:      "precio lineal por defecto",
			in:        PricingInput{UnitPrice: 49900, Quantity: 3},
			wantTotal: 149700,
		},
		{
			name:       "dos unidades con precio de combo",
			in:         PricingInput{UnitPrice: 49900, BundlePrice: 79900, Quantity: 2},
			wantTotal:  79900,
			wantBundle: true,
			// sin promo, el "antes" del combo es el lineal de 2 unidades
			wantCompare: 99800,
		},
		{
			name:      "una unidad ignora el combo",
			in:        PricingInput{UnitPrice: 49900, BundlePrice: 79900, Quantity: 1},
			wantTotal: 49900,
		},
		{
			name:      "dos unidades sin combo definido",
			in:        PricingInput{UnitPrice: 49900, Quantity: 2},
			wantTotal: 99800,
		},
		{
			name:      "tres unidades no disparan el combo",
			in:        PricingInput{UnitPrice: 49900, BundlePrice: 79900, Quantity: 3},
			wantTotal: 149700,
		},
		{
			name:        "combo reemplaza por completo al unitario",
			in:          PricingInput{UnitPrice: 50000, BundlePrice: 80000, Quantity: 2},
			wantTotal:   80000,
			wantBundle:  true,
			wantCompare: 100000,
		},
		{
			name:        "promo arma la cifra tachada en el camino lineal",
			in:          PricingInput{UnitPrice: 49900, PromoPrice: 69900, Quantity: 3},
			wantTotal:   149700,
			wantCompare: 209700,
		},
		{
			name:        "promo arma la cifra tachada en el camino combo",
			in:          PricingInput{UnitPrice: 49900, PromoPrice: 69900, BundlePrice: 79900, Quantity: 2},
			wantTotal:   79900,
			wantBundle:  true,
			wantCompare: 139800,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := ComputeTotal(tc.in)
			if err != nil {
				t.Fatal(err)
			}
			if q.Total != tc.wantTotal {
				t.Fatalf("Total = %d, quería %d", q.Total, tc.wantTotal)
			}
			if q.CompareAt != tc.wantCompare {
				t.Fatalf("CompareAt = %d, quería %d", q.CompareAt, tc.wantCompare)
			}
			if q.BundleApplied != tc.wantBundle {
				t.Fatalf("BundleApplied = %v, quería %v", q.BundleApplied, tc.wantBundle)
			}
		})
	}
}

func TestComputeTotalCantidadInvalida(t *testing.T) {
	for _, qty := range []int{0, -1, -10} {
		_, err := ComputeTotal(PricingInput{UnitPrice: 49900, Quantity: qty})
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("qty=%d: err = %v, quería ErrInvalidQuantity", qty, err)
		}
	}
}

// La promo jamás entra al total, sea cual sea el camino de precio.
func TestPromoNoAfectaElTotal(t *testing.T) {
	con, err := ComputeTotal(PricingInput{UnitPrice: 49900, PromoPrice: 99999, Quantity: 2})
	if err != nil {
		t.Fatal(err)
	}
	sin, err := ComputeTotal(PricingInput{UnitPrice: 49900, Quantity: 2})
	if err != nil {
		t.Fatal(err)
	}
	if con.Total != sin.Total {
		t.Fatalf("la promo cambió el total: %d vs %d", con.Total, sin.Total)
	}
}

func TestDiscountPercent(t *testing.T) {
	cases := []struct {
		before, now int64
		want        int
	}{
		{100000, 75000, 25},
		{99800, 79900, 20},  // 19.94% redondea a 20, no trunca a 19
		{149700, 79900, 47}, // 46.63% redondea a 47
		{0, 100, 0},
		{100, 100, 0},
		{100, 200, 0},
	}
	for _, tc := range cases {
		if got := DiscountPercent(tc.before, tc.now); got != tc.want {
			t.Fatalf("DiscountPercent(%d, %d) = %d, quería %d", tc.before, tc.now, got, tc.want)
		}
	}
}
