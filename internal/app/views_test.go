package app

import (
	"html/template"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/calzavia/tienda/internal/domain"
	"github.com/calzavia/tienda/internal/views"
)

func parseViews(t *testing.T) *template.Template {
	t.Helper()
	tmpl, err := template.New("layout").Funcs(templateFuncs()).ParseFS(views.FS, "*.html")
	if err != nil {
		t.Fatalf("parse views: %v", err)
	}
	return tmpl
}

func productoConPromo() *domain.Product {
	return &domain.Product{
		ID:          uuid.New(),
		Slug:        "botin-cuero",
		Name:        "Botín de cuero",
		Price:       50000,
		PromoPrice:  60000,
		BundlePrice: 79900,
		Active:      true,
	}
}

// PromoPrice es la cifra "antes" que se muestra tachada; lo que se cobra es
// siempre Price. Las vistas tienen que coincidir con lo que cobra el motor.
func TestVistasPromoTachadaYPrecioVigente(t *testing.T) {
	tmpl := parseViews(t)
	p := productoConPromo()

	cases := []struct {
		name string
		tpl  string
		data map[string]any
	}{
		{
			name: "home",
			tpl:  "home.html",
			data: map[string]any{"Products": []domain.Product{*p}, "Year": 2026},
		},
		{
			name: "listado",
			tpl:  "products.html",
			data: map[string]any{
				"Products": []domain.Product{*p}, "Total": int64(1),
				"Page": 1, "Pages": 1, "Query": "", "Sort": "",
				"Category": "", "Categories": []string{}, "Year": 2026,
			},
		},
		{
			name: "producto",
			tpl:  "product.html",
			data: map[string]any{
				"Product": p,
				"Kinds":   map[string][]string{"talla": {"38"}},
				"Year":    2026,
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var sb strings.Builder
			if err := tmpl.ExecuteTemplate(&sb, tc.tpl, tc.data); err != nil {
				t.Fatalf("render %s: %v", tc.tpl, err)
			}
			out := sb.String()
			if !strings.Contains(out, "<s>$ 60.000</s>") {
				t.Errorf("%s no tacha la cifra de antes (promo)", tc.tpl)
			}
			if strings.Contains(out, "<s>$ 50.000</s>") {
				t.Errorf("%s tacha el precio vigente", tc.tpl)
			}
			if !strings.Contains(out, "$ 50.000") {
				t.Errorf("%s no muestra el precio que se cobra", tc.tpl)
			}
		})
	}
}

func TestFormatoCOP(t *testing.T) {
	cop := templateFuncs()["cop"].(func(int64) string)
	cases := []struct {
		in   int64
		want string
	}{
		{0, "$ 0"},
		{950, "$ 950"},
		{79900, "$ 79.900"},
		{1250000, "$ 1.250.000"},
		{-8000, "$ -8.000"},
	}
	for _, tc := range cases {
		if got := cop(tc.in); got != tc.want {
			t.Errorf("cop(%d) = %q, quiero %q", tc.in, got, tc.want)
		}
	}
}
